// Package query parses free-form search strings and evaluates them, together
// with an optional type-group filter, against the view of a dependency graph.
package query

import (
	"regexp"
	"strings"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
)

// tokenPattern matches, in order of preference: field:"quoted value",
// field:value, "quoted phrase" and a bare word.
var tokenPattern = regexp.MustCompile(`(\w+):"([^"]+)"|(\w+):(\S+)|"([^"]+)"|(\S+)`)

// Query is a parsed search string. All values are lower-cased.
type Query struct {
	Text   []string          `json:"text"`
	Fields map[string]string `json:"fields"`
}

// Parse splits q into free-text tokens and field constraints. Any field name
// is accepted; only type, owner, title and id constrain matching. A repeated
// field keeps its last value.
func Parse(q string) Query {
	out := Query{Fields: map[string]string{}}
	for _, m := range tokenPattern.FindAllStringSubmatch(q, -1) {
		switch {
		case m[1] != "" && m[2] != "":
			out.Fields[strings.ToLower(m[1])] = strings.ToLower(m[2])
		case m[3] != "" && m[4] != "":
			out.Fields[strings.ToLower(m[3])] = strings.ToLower(m[4])
		case m[5] != "":
			out.Text = append(out.Text, strings.ToLower(m[5]))
		case m[6] != "":
			out.Text = append(out.Text, strings.ToLower(m[6]))
		}
	}
	return out
}

// Empty reports whether q has neither tokens nor field constraints.
func (q Query) Empty() bool { return len(q.Text) == 0 && len(q.Fields) == 0 }

// Meta is the searchable description of a view node.
type Meta struct {
	Title    string
	Type     string
	Owner    string
	ID       string
	Keywords string // lower-cased, space-joined type keywords
	URL      string
}

// MetaOf describes n for matching. URL nodes are searchable by their short
// label only.
func MetaOf(n depgraph.Node) Meta {
	if n.Kind == depgraph.NodeURL {
		return Meta{
			Title: strings.TrimSuffix(n.Label, "\n(URL)"),
			Type:  "URL",
			URL:   n.URL,
		}
	}
	return Meta{
		Title:    n.Title,
		Type:     n.Type,
		Owner:    n.Owner,
		ID:       n.ItemID,
		Keywords: strings.ToLower(strings.Join(n.Keywords, " ")),
		URL:      n.URL,
	}
}

// Matches applies q to m. Every present field constraint must be a
// case-insensitive substring of its field, and every free-text token must
// occur in the title, type, owner, id or keywords. An empty query matches.
func (q Query) Matches(m Meta) bool {
	title := strings.ToLower(m.Title)
	typ := strings.ToLower(m.Type)
	owner := strings.ToLower(m.Owner)
	id := strings.ToLower(m.ID)

	for field, want := range q.Fields {
		var have string
		switch field {
		case "type":
			have = typ
		case "owner":
			have = owner
		case "title":
			have = title
		case "id":
			have = id
		default:
			continue
		}
		if !strings.Contains(have, want) {
			return false
		}
	}
	for _, tok := range q.Text {
		if !strings.Contains(title, tok) &&
			!strings.Contains(typ, tok) &&
			!strings.Contains(owner, tok) &&
			!strings.Contains(id, tok) &&
			!strings.Contains(m.Keywords, tok) {
			return false
		}
	}
	return true
}

// Filter is the search state of a session.
type Filter struct {
	Query string         `json:"query"`
	Group depgraph.Group `json:"group,omitempty"`
}

// Active reports whether the filter constrains anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || f.Group != ""
}

// Result is the outcome of evaluating a filter over a graph.
type Result struct {
	Filter Filter `json:"filter"`
	// All is set when no filter is active; the companion list then shows
	// every item and URL.
	All bool `json:"all"`
	// Nodes holds the matched view node ids in view order.
	Nodes []string `json:"nodes"`
	// Edges holds the view edges whose endpoints both matched.
	Edges []depgraph.Edge `json:"edges"`
	Items []catalog.Item  `json:"items"`
	URLs  []string        `json:"urls"`
	Total int             `json:"total"`
}

// Evaluate matches every view node of g against f. The companion list holds
// the matched discovered items and matched URLs; it is explicitly empty when
// an active filter matches nothing.
func Evaluate(g *depgraph.Graph, f Filter) Result {
	q := Parse(strings.TrimSpace(f.Query))
	res := Result{
		Filter: f,
		All:    !f.Active(),
		Nodes:  []string{},
		Edges:  []depgraph.Edge{},
		Items:  []catalog.Item{},
		URLs:   []string{},
	}

	nodes := g.Nodes()
	res.Total = len(nodes)
	matched := make(map[string]bool)
	matchedURLs := make(map[string]bool)
	for _, n := range nodes {
		okSearch := q.Empty() || q.Matches(MetaOf(n))
		okGroup := f.Group == "" || n.Group == f.Group
		if !okSearch || !okGroup {
			continue
		}
		matched[n.ID] = true
		res.Nodes = append(res.Nodes, n.ID)
		if n.Kind == depgraph.NodeURL {
			matchedURLs[n.URL] = true
		}
	}

	if len(matched) == 0 {
		return res
	}

	for _, e := range g.ViewEdges() {
		if matched[e.Source] && matched[e.Target] {
			res.Edges = append(res.Edges, e)
		}
	}
	for _, it := range g.Discovered {
		if matched[it.ID] {
			res.Items = append(res.Items, it)
		}
	}
	for _, u := range g.URLs {
		if matchedURLs[u] {
			res.URLs = append(res.URLs, u)
		}
	}
	return res
}
