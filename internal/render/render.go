package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/extract"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
)

// Renderer formats values for the terminal.
type Renderer struct {
	styles *Styles
}

func New() *Renderer { return &Renderer{styles: DefaultStyles()} }

// Legend renders one colored chip per type group with its node count.
func (r *Renderer) Legend(entries []depgraph.LegendEntry) string {
	if len(entries) == 0 {
		return r.styles.Help.Render("No nodes.")
	}
	chips := make([]string, 0, len(entries))
	for _, e := range entries {
		chips = append(chips, chip(fmt.Sprintf("%s %d", e.Group, e.Count), e.Color))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(chips, " "))
}

// Graph renders the heading, legend and the full companion list of g.
func (r *Renderer) Graph(g *depgraph.Graph) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(fmt.Sprintf("%s (%s)", titleOr(g.Root.Title), g.Root.Type)))
	b.WriteString("\n")
	b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("%s  %s", g.Root.ID, g.Portal)))
	b.WriteString("\n\n")
	b.WriteString(r.Legend(depgraph.Legend(g)))
	b.WriteString("\n\n")
	b.WriteString(r.table(g.Discovered, g.URLs, depgraph.Parents(g), g))
	b.WriteString("\n")
	return b.String()
}

// Search renders the matched items and URLs of res. An active filter with
// no match renders an explicit empty list.
func (r *Renderer) Search(g *depgraph.Graph, res query.Result) string {
	var b strings.Builder
	if res.All {
		b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("%d nodes", res.Total)))
	} else {
		b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("%d of %d nodes match %s", len(res.Nodes), res.Total, describe(res.Filter))))
	}
	b.WriteString("\n\n")
	if !res.All && len(res.Items) == 0 && len(res.URLs) == 0 {
		b.WriteString(r.styles.Help.Render("No matching items."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(r.table(res.Items, res.URLs, depgraph.Parents(g), g))
	b.WriteString("\n")
	return b.String()
}

// Neighborhood renders a node and its direct neighbors.
func (r *Renderer) Neighborhood(n depgraph.Node, neighbors []depgraph.Node) string {
	var b strings.Builder
	b.WriteString(chip(string(n.Group), n.Color))
	b.WriteString(" ")
	b.WriteString(r.styles.Title.Render(titleOr(n.Title)))
	b.WriteString("\n")
	if n.ItemID != "" {
		b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("%s  %s  %s", n.ItemID, n.Type, n.Owner)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, nb := range neighbors {
		b.WriteString(fmt.Sprintf("  %s %s\n", chip(string(nb.Group), nb.Color), titleOr(nb.Title)))
	}
	return b.String()
}

// Extraction renders the dependency set of a single item.
func (r *Renderer) Extraction(it catalog.Item, kind extract.Kind, res extract.Result) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(titleOr(it.Title)))
	b.WriteString(" ")
	b.WriteString(r.styles.StatusOK.Render(kind.String()))
	b.WriteString("\n\n")
	if res.Empty() {
		b.WriteString(r.styles.Help.Render("No dependencies found."))
		b.WriteString("\n")
		return b.String()
	}
	if len(res.ItemIDs) > 0 {
		b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("Items (%d)", len(res.ItemIDs))))
		b.WriteString("\n")
		for _, id := range res.ItemIDs {
			b.WriteString("  " + id + "\n")
		}
	}
	if len(res.URLs) > 0 {
		b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("URLs (%d)", len(res.URLs))))
		b.WriteString("\n")
		for _, u := range res.URLs {
			b.WriteString("  " + u + "\n")
		}
	}
	return b.String()
}

// Ref renders a classified root input.
func (r *Renderer) Ref(ref itemref.Ref, portal string) string {
	return fmt.Sprintf("%s %s\n%s %s\n",
		r.styles.Subtitle.Render("item  "), ref.ItemID,
		r.styles.Subtitle.Render("portal"), portal)
}

// Notice renders an authentication notice.
func (r *Renderer) Notice(msg string) string {
	return r.styles.StatusWarning.Render("AUTH") + " " + msg + "\n"
}

// Error renders a fatal error.
func (r *Renderer) Error(err error) string {
	return r.styles.StatusFailed.Render("ERROR") + " " + err.Error() + "\n"
}

func (r *Renderer) table(items []catalog.Item, urls []string, parents map[string][]string, g *depgraph.Graph) string {
	rows := make([][]string, 0, len(items)+len(urls))
	for _, it := range items {
		rows = append(rows, []string{titleOr(it.Title), it.Type, it.Owner, it.ID, strings.Join(parentTitles(g, parents[it.ID]), "; ")})
	}
	for _, u := range urls {
		rows = append(rows, []string{depgraph.ShortURL(u, 64), "URL", "", "", ""})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.Border).
		Headers("TITLE", "TYPE", "OWNER", "ID", "USED BY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return r.styles.Header
			case col == 3:
				return r.styles.Muted
			default:
				return r.styles.Cell
			}
		})
	return t.String()
}

func parentTitles(g *depgraph.Graph, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == g.Root.ID {
			out = append(out, titleOr(g.Root.Title))
			continue
		}
		if it, ok := g.Item(id); ok {
			out = append(out, titleOr(it.Title))
			continue
		}
		out = append(out, id)
	}
	return out
}

func describe(f query.Filter) string {
	var parts []string
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if f.Group != "" {
		parts = append(parts, "group "+string(f.Group))
	}
	return strings.Join(parts, " in ")
}

func titleOr(s string) string {
	if s == "" {
		return "(no title)"
	}
	return s
}
