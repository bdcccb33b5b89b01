package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errNotObject = errors.New("not a JSON object")

// objectKeys returns the top-level keys of a JSON object in document order.
// Duplicate keys are reported once.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	return keys, nil
}

// Intersector keeps the running intersection of key sets, ordered by the
// first set it saw.
type Intersector struct {
	fields []string
	seeded bool
}

func (in *Intersector) Add(keys []string) {
	if !in.seeded {
		in.fields = append([]string(nil), keys...)
		in.seeded = true
		return
	}
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	kept := in.fields[:0]
	for _, f := range in.fields {
		if present[f] {
			kept = append(kept, f)
		}
	}
	in.fields = kept
}

// Fields returns the current intersection; nil before the first Add.
func (in *Intersector) Fields() []string {
	if !in.seeded {
		return nil
	}
	return append([]string{}, in.fields...)
}
