package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/crystalize/errs"
)

// Factory loads a model from the part of the identifier after the scheme.
type Factory func(ctx context.Context, name string) (*Model, error)

// Registry resolves identifiers of the form "scheme:name".
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(scheme string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(scheme)] = f
}

// Schemes lists registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load resolves id. Unknown schemes and factory failures are ErrModelLoad.
func (r *Registry) Load(ctx context.Context, id string) (*Model, error) {
	scheme, name, ok := strings.Cut(strings.TrimSpace(id), ":")
	if !ok || scheme == "" || name == "" {
		return nil, errs.ModelLoad("embedding.Load", fmt.Errorf("model %q: want scheme:name", id))
	}
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ModelLoad("embedding.Load", fmt.Errorf("model %q: unknown scheme %q (have %s)", id, scheme, strings.Join(r.Schemes(), ", ")))
	}
	m, err := f(ctx, name)
	if err != nil {
		return nil, errs.ModelLoad("embedding.Load", fmt.Errorf("model %q: %w", id, err))
	}
	if m.Name == "" {
		m.Name = id
	}
	return m, nil
}
