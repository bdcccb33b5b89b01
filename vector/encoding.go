package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EncodeEmbedding encodes a slice of float32 values into a BLOB representation
// suitable for storage in SQLite. The current encoding is a simple
// little-endian sequence of IEEE 754 float32 values without a length prefix;
// the length is derived from the BLOB size on decode.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("vector: non-finite value %v at %d", v, i)
		}
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding back into a
// slice of float32 values.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// DecodeText parses an embedding persisted as text, e.g. "[0.1, 0.2, 0.3]"
// or "0.1,0.2,0.3". Rows written by older tooling stored vectors that way.
func DecodeText(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector: invalid text embedding element %d: %w", i, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}

// Decode accepts either a BLOB ([]byte) or a text (string) embedding as
// scanned from SQLite.
func Decode(v any) ([]float32, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return DecodeEmbedding(t)
	case string:
		return DecodeText(t)
	default:
		return nil, fmt.Errorf("vector: unexpected embedding type %T", v)
	}
}
