package depgraph

import (
	"encoding/json"
	"fmt"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
)

// Edge means Source depends on Target. Targets are item ids or URL node ids.
// It serializes as a two-element array.
type Edge struct {
	Source string
	Target string
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Source, e.Target})
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("edge must have 2 endpoints, got %d", len(pair))
	}
	e.Source, e.Target = pair[0], pair[1]
	return nil
}

func (e Edge) MarshalYAML() (interface{}, error) {
	return []string{e.Source, e.Target}, nil
}

// Graph is the result of one resolution run. Discovered never holds the
// root and never holds an id twice; URLs are addressed by position.
type Graph struct {
	Root       catalog.Item   `json:"root" yaml:"root"`
	Discovered []catalog.Item `json:"discovered" yaml:"discovered"`
	Edges      []Edge         `json:"edges" yaml:"edges"`
	URLs       []string       `json:"urls" yaml:"urls"`
	Portal     string         `json:"portal" yaml:"portal"`

	index map[string]int
}

// NodeKind classifies view nodes.
type NodeKind string

const (
	NodeItem NodeKind = "item"
	NodeURL  NodeKind = "url"
)

// Node is one vertex of the rendered view of a graph.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Label       string   `json:"label"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Owner       string   `json:"owner,omitempty"`
	ItemID      string   `json:"itemId,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	URL         string   `json:"url,omitempty"`
	Group       Group    `json:"group"`
	Color       string   `json:"color"`
	Root        bool     `json:"root,omitempty"`
	Placeholder bool     `json:"placeholder,omitempty"`
}

// Stats holds computed metrics about the rendered view of a graph.
type Stats struct {
	TotalNodes          int           `json:"total_nodes"`
	TotalEdges          int           `json:"total_edges"`
	ItemCount           int           `json:"item_count"`
	URLCount            int           `json:"url_count"`
	PlaceholderCount    int           `json:"placeholder_count"`
	MaxFanOut           int           `json:"max_fan_out"`  // most outgoing edges
	MaxFanIn            int           `json:"max_fan_in"`   // most incoming edges
	HotspotNode         string        `json:"hotspot_node"` // node with most outgoing edges
	ConnectedComponents int           `json:"connected_components"`
	CyclicDeps          [][]string    `json:"cyclic_deps,omitempty"`
	GroupCounts         map[Group]int `json:"group_counts"`
}

// UnmarshalJSON decodes a graph and rebuilds its item index, so a decoded
// graph can be read from several goroutines.
func (g *Graph) UnmarshalJSON(data []byte) error {
	type plain Graph
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Graph(p)
	g.index = nil
	g.ensureIndex()
	return nil
}
