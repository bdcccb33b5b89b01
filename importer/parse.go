package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/crystalize/errs"
)

const maxLineBytes = 64 << 20

// Entry is one parsed object, or the diagnostic for a skipped line.
type Entry struct {
	Line int
	Raw  string
	Keys []string
	Err  error
}

type format int

const (
	formatJSON format = iota
	formatText
)

func detectFormat(path string) (format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonl":
		return formatJSON, nil
	case ".log", ".txt":
		return formatText, nil
	default:
		return 0, errs.UnsupportedFormat("importer.parse", fmt.Errorf("%s: extension %q", filepath.Base(path), ext))
	}
}

// ParseFile reads every entry of path. Entry-level failures are returned
// inside the entries with Err set; the error return is for the file itself.
func ParseFile(path string) ([]Entry, error) {
	f, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Parse("importer.parse", err)
	}
	if f == formatJSON && bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return parseArray(data)
	}
	return parseLines(bytes.NewReader(data))
}

func parseLines(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var out []Entry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		out = append(out, parseEntry(line, []byte(text)))
	}
	if err := scanner.Err(); err != nil {
		return out, errs.Parse("importer.parse", fmt.Errorf("line %d: %w", line+1, err))
	}
	return out, nil
}

func parseArray(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, errs.Parse("importer.parse", err)
	}
	var out []Entry
	for i := 1; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			// the decoder cannot resync inside a broken array
			return out, errs.Parse("importer.parse", fmt.Errorf("element %d: %w", i, err))
		}
		out = append(out, parseEntry(i, raw))
	}
	return out, nil
}

func parseEntry(line int, raw []byte) Entry {
	keys, err := objectKeys(raw)
	if err != nil {
		return Entry{Line: line, Raw: string(raw), Err: errs.Parse("importer.parse", err)}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Entry{Line: line, Raw: string(raw), Err: errs.Parse("importer.parse", err)}
	}
	return Entry{Line: line, Raw: buf.String(), Keys: keys}
}
