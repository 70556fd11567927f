// Package graphstore writes resolved dependency graphs to a graph database
// so that dependencies can be queried across many roots. Stores are write
// only; a session never reads a graph back.
package graphstore

import (
	"context"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
)

// Result counts what one StoreGraph call wrote.
type Result struct {
	Items int `json:"items"`
	URLs  int `json:"urls"`
	Edges int `json:"edges"`
}

// Nodes is the number of vertices written.
func (r Result) Nodes() int { return r.Items + r.URLs }

// Store persists graphs.
type Store interface {
	// StoreGraph merges g into the store. Storing the same graph twice
	// leaves the store unchanged.
	StoreGraph(ctx context.Context, g *depgraph.Graph) (Result, error)
	// Ping verifies the store can be reached.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close(ctx context.Context) error
}

// Batch is a graph flattened into the parameter lists a store writes.
type Batch struct {
	RootID string
	Portal string
	Items  []map[string]any
	URLs   []map[string]any
	// Uses holds item to item edges, References item to URL edges.
	Uses       []map[string]any
	References []map[string]any
}

// Result reports the sizes of b.
func (b Batch) Result() Result {
	return Result{Items: len(b.Items), URLs: len(b.URLs), Edges: len(b.Uses) + len(b.References)}
}

// NewBatch flattens g. Duplicate URLs collapse into one vertex; edges
// follow the rendered view, so every URL hangs off the root.
func NewBatch(g *depgraph.Graph) Batch {
	b := Batch{
		RootID:     g.Root.ID,
		Portal:     g.Portal,
		Items:      []map[string]any{},
		URLs:       []map[string]any{},
		Uses:       []map[string]any{},
		References: []map[string]any{},
	}

	for _, n := range g.Nodes() {
		if n.Kind != depgraph.NodeItem {
			continue
		}
		keywords := make([]any, len(n.Keywords))
		for i, k := range n.Keywords {
			keywords[i] = k
		}
		b.Items = append(b.Items, map[string]any{
			"id":          n.ItemID,
			"title":       n.Title,
			"type":        n.Type,
			"owner":       n.Owner,
			"group":       string(n.Group),
			"keywords":    keywords,
			"placeholder": n.Placeholder,
			"portal":      g.Portal,
		})
	}

	seenURL := make(map[string]bool)
	for _, u := range g.URLs {
		if seenURL[u] {
			continue
		}
		seenURL[u] = true
		b.URLs = append(b.URLs, map[string]any{
			"url":   u,
			"label": depgraph.ShortURL(u, 64),
		})
	}

	seenEdge := make(map[depgraph.Edge]bool)
	for _, e := range g.ViewEdges() {
		if i, ok := depgraph.ParseURLNodeID(e.Target); ok {
			e.Target = g.URLs[i]
			if seenEdge[e] {
				continue
			}
			seenEdge[e] = true
			b.References = append(b.References, map[string]any{"source": e.Source, "url": e.Target})
			continue
		}
		if seenEdge[e] {
			continue
		}
		seenEdge[e] = true
		b.Uses = append(b.Uses, map[string]any{"source": e.Source, "target": e.Target})
	}
	return b
}
