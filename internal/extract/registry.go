package extract

import (
	"fmt"
	"sync"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

// Registry maps item kinds to their extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[Kind]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Kind]Extractor)}
}

// DefaultRegistry returns a registry holding the web map, dashboard,
// experience and story extractors. Legacy applications have no entry: the
// resolver follows their nested web map instead of scanning them.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WebMap{})
	r.Register(Dashboard{})
	r.Register(Experience{})
	r.Register(Story{})
	return r
}

// Register adds e, replacing any extractor already bound to its kind.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Kind()] = e
}

// Lookup returns the extractor bound to k.
func (r *Registry) Lookup(k Kind) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[k]
	if !ok {
		return nil, fmt.Errorf("no extractor for kind %q", k)
	}
	return e, nil
}

// Extract runs the extractor registered for k. Kinds without an extractor
// yield an empty result.
func (r *Registry) Extract(k Kind, p *payload.Value, ctx Context) Result {
	e, err := r.Lookup(k)
	if err != nil {
		return Result{}
	}
	return e.Extract(p, ctx)
}
