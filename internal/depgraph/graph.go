package depgraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
)

const urlNodePrefix = "url_"

// New starts an empty graph for root.
func New(root catalog.Item, portal string) *Graph {
	return &Graph{
		Root:       root,
		Portal:     portal,
		Discovered: []catalog.Item{},
		Edges:      []Edge{},
		URLs:       []string{},
		index:      make(map[string]int),
	}
}

func (g *Graph) ensureIndex() {
	if g.index != nil && len(g.index) == len(g.Discovered) {
		return
	}
	g.index = make(map[string]int, len(g.Discovered))
	for i, it := range g.Discovered {
		if _, dup := g.index[it.ID]; !dup {
			g.index[it.ID] = i
		}
	}
}

// AddDiscovered appends it unless it is the root or already present.
func (g *Graph) AddDiscovered(it catalog.Item) bool {
	if it.ID == g.Root.ID {
		return false
	}
	g.ensureIndex()
	if _, ok := g.index[it.ID]; ok {
		return false
	}
	g.index[it.ID] = len(g.Discovered)
	g.Discovered = append(g.Discovered, it)
	return true
}

// HasItem reports whether id is the root or a discovered item.
func (g *Graph) HasItem(id string) bool {
	_, ok := g.Item(id)
	return ok
}

// Item returns the root or discovered item with id.
func (g *Graph) Item(id string) (catalog.Item, bool) {
	if id == g.Root.ID {
		return g.Root, true
	}
	g.ensureIndex()
	i, ok := g.index[id]
	if !ok {
		return catalog.Item{}, false
	}
	return g.Discovered[i], true
}

// AddEdge records that source depends on target. Parallel edges are kept.
func (g *Graph) AddEdge(source, target string) {
	g.Edges = append(g.Edges, Edge{Source: source, Target: target})
}

// AddURLs appends external references in order, duplicates included.
func (g *Graph) AddURLs(urls ...string) {
	g.URLs = append(g.URLs, urls...)
}

// URLNodeID is the synthetic node id of the i-th URL.
func URLNodeID(i int) string { return urlNodePrefix + strconv.Itoa(i) }

// ParseURLNodeID is the inverse of URLNodeID.
func ParseURLNodeID(id string) (int, bool) {
	if !strings.HasPrefix(id, urlNodePrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(id[len(urlNodePrefix):])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ItemCount is the number of item nodes, root included.
func (g *Graph) ItemCount() int { return 1 + len(g.Discovered) }

// Placeholders returns the ids of discovered items that could not be read.
func (g *Graph) Placeholders() []string {
	var out []string
	for _, it := range g.Discovered {
		if it.IsPlaceholder() {
			out = append(out, it.ID)
		}
	}
	return out
}

// Validate checks that every edge endpoint resolves and that discovered items
// are unique and exclude the root.
func (g *Graph) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(g.Discovered))
	for _, it := range g.Discovered {
		if it.ID == g.Root.ID {
			errs = append(errs, fmt.Errorf("discovered contains the root %s", it.ID))
		}
		if seen[it.ID] {
			errs = append(errs, fmt.Errorf("discovered contains %s twice", it.ID))
		}
		seen[it.ID] = true
	}
	resolves := func(id string) bool {
		if id == g.Root.ID || seen[id] {
			return true
		}
		i, ok := ParseURLNodeID(id)
		return ok && i < len(g.URLs)
	}
	for i, e := range g.Edges {
		if !resolves(e.Source) {
			errs = append(errs, fmt.Errorf("edge %d: unknown source %q", i, e.Source))
		}
		if !resolves(e.Target) {
			errs = append(errs, fmt.Errorf("edge %d: unknown target %q", i, e.Target))
		}
	}
	return errors.Join(errs...)
}

// Nodes returns the view nodes: the root, each discovered item, then one node
// per URL.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, g.ItemCount()+len(g.URLs))
	nodes = append(nodes, itemNode(g.Root, true))
	for _, it := range g.Discovered {
		nodes = append(nodes, itemNode(it, false))
	}
	for i, u := range g.URLs {
		short := ShortURL(u, 64)
		nodes = append(nodes, Node{
			ID:    URLNodeID(i),
			Kind:  NodeURL,
			Label: short + "\n(URL)",
			Title: short,
			Type:  "URL",
			URL:   u,
			Group: GroupURL,
			Color: GroupURL.Color(),
		})
	}
	return nodes
}

// ViewEdges returns the edges of the rendered view: one edge from the root to
// each URL node, followed by the graph's own edges.
func (g *Graph) ViewEdges() []Edge {
	edges := make([]Edge, 0, len(g.URLs)+len(g.Edges))
	for i := range g.URLs {
		edges = append(edges, Edge{Source: g.Root.ID, Target: URLNodeID(i)})
	}
	return append(edges, g.Edges...)
}

func itemNode(it catalog.Item, root bool) Node {
	title := it.Title
	if title == "" {
		title = "(no title)"
		if root {
			title = "Root"
		}
	}
	typ := it.Type
	if typ == "" {
		typ = "Unknown"
	}
	group := GroupOf(typ)
	return Node{
		ID:          it.ID,
		Kind:        NodeItem,
		Label:       title + "\n(" + typ + ")",
		Title:       it.Title,
		Type:        it.Type,
		Owner:       it.Owner,
		ItemID:      it.ID,
		Keywords:    it.TypeKeywords,
		URL:         it.ServiceURL,
		Group:       group,
		Color:       group.Color(),
		Root:        root,
		Placeholder: it.IsPlaceholder(),
	}
}

// ShortURL drops the scheme and query of u and truncates it to max runes.
func ShortURL(u string, max int) string {
	s := StripScheme(u)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, max)
}

// StripScheme removes a leading http:// or https://.
func StripScheme(u string) string {
	if strings.HasPrefix(u, "https://") {
		return u[len("https://"):]
	}
	if strings.HasPrefix(u, "http://") {
		return u[len("http://"):]
	}
	return u
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Neighborhood returns the view node id together with the nodes and view
// edges directly attached to it.
func (g *Graph) Neighborhood(id string) (Node, []Node, []Edge, bool) {
	var (
		self  Node
		found bool
	)
	nodes := g.Nodes()
	for _, n := range nodes {
		if n.ID == id {
			self, found = n, true
			break
		}
	}
	if !found {
		return Node{}, nil, nil, false
	}

	near := make(map[string]bool)
	var edges []Edge
	for _, e := range g.ViewEdges() {
		switch id {
		case e.Source:
			near[e.Target] = true
		case e.Target:
			near[e.Source] = true
		default:
			continue
		}
		edges = append(edges, e)
	}
	var neighbors []Node
	for _, n := range nodes {
		if n.ID != id && near[n.ID] {
			neighbors = append(neighbors, n)
		}
	}
	return self, neighbors, edges, true
}
