package engine

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/viant/vec/search"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterVectorFunctions registers vec_cosine and vec_l2 with the driver so
// they are available on new connections opened after this call.
// Note: existing open connections will not see new functions.
func RegisterVectorFunctions() {
	registerOnce.Do(func() {
		// the driver rejects duplicate names; Once keeps repeated calls quiet
		_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosineImpl)
		_ = sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2Impl)
	})
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	case string:
		// legacy text vectors compare as NULL
		return nil, nil
	default:
		return nil, fmt.Errorf("engine: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func embeddingPair(name string, args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, nil, err
	}
	if a != nil && b != nil && len(a) != len(b) {
		// mixed generations may coexist; a NULL sorts last instead of failing the query
		return nil, nil, nil
	}
	return a, b, nil
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("vec_cosine", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	va, vb := search.Float32s(a), search.Float32s(b)
	ma, mb := va.Magnitude(), vb.Magnitude()
	if ma == 0 || mb == 0 {
		return nil, nil
	}
	return float64(1 - va.CosineDistanceWithMagnitude(b, ma, mb)), nil
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := embeddingPair("vec_l2", args)
	if err != nil || a == nil || b == nil {
		return nil, err
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// decodeEmbedding is a local copy of vector.DecodeEmbedding; vector's tests
// import engine, so engine cannot import vector.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("engine: invalid embedding blob length %d", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
