package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDims is used when no dimension is requested.
const DefaultDims = 256

// Encoder hashes word unigrams and bigrams into a fixed number of signed
// buckets and L2-normalises the result.
type Encoder struct {
	dims int
}

func NewEncoder(dims int) (*Encoder, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("hashing: dims must be positive, got %d", dims)
	}
	return &Encoder{dims: dims}, nil
}

func (e *Encoder) Dims() int { return e.dims }

func (e *Encoder) Encode(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	tokens := Tokens(text)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e *Encoder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokens lower-cases text and splits it on anything that is not a letter
// or digit.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
