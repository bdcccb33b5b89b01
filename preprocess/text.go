package preprocess

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
)

// Compose builds the text for one raw payload. Values that are null, empty
// or the literal "None" are left out; non-string values contribute their
// compact JSON form.
func Compose(raw string, fields []string) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, field := range fields {
		value, ok := obj[field]
		if !ok {
			continue
		}
		text, ok := render(value)
		if !ok {
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return Strip(sb.String()), nil
}

func render(value json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		if s == "" || s == "None" {
			return "", false
		}
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", false
	}
	return buf.String(), true
}

// Strip drops every rune that is not a letter, digit, underscore or
// whitespace and trims surrounding whitespace.
func Strip(s string) string {
	out := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(out)
}
