package depgraph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatYAML    Format = "yaml"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatYAML, FormatDOT, FormatMermaid}

// ParseFormat accepts a format name case-insensitively. "yml" and "md" are
// aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "dot", "gv":
		return FormatDOT, nil
	case "mermaid", "md":
		return FormatMermaid, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Extension is the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case FormatMermaid:
		return "mmd"
	default:
		return string(f)
	}
}

// ContentType is the media type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	case FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export encodes g in format f.
func Export(g *Graph, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportJSON(g)
	case FormatCSV:
		return ExportCSV(g)
	case FormatYAML:
		return ExportYAML(g)
	case FormatDOT:
		return []byte(ExportDOT(g)), nil
	case FormatMermaid:
		return []byte(ExportMermaid(g)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// ExportJSON serializes the graph to JSON.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ExportYAML serializes the graph to YAML.
func ExportYAML(g *Graph) ([]byte, error) {
	return yaml.Marshal(g)
}

// ExportDOT generates a Graphviz DOT representation of the view, with one
// cluster per type group.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, grp := range groupNodes(g.Nodes()) {
		b.WriteString(fmt.Sprintf("  subgraph cluster_%s {\n", sanitizeDOTID(string(grp.group))))
		b.WriteString(fmt.Sprintf("    label=\"%s\";\n", grp.group))
		b.WriteString("    style=dashed;\n")
		b.WriteString(fmt.Sprintf("    color=\"%s\";\n", grp.group.Color()))
		for _, n := range grp.nodes {
			b.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
				n.ID, dotEscape(n.Label), nodeShape(n), n.Color))
		}
		b.WriteString("  }\n\n")
	}

	for _, e := range g.ViewEdges() {
		style := "solid"
		if _, isURL := ParseURLNodeID(e.Target); isURL {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s color=\"#8b949e\"];\n",
			e.Source, e.Target, style))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid diagram of the view.
func ExportMermaid(g *Graph) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for _, grp := range groupNodes(g.Nodes()) {
		b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", sanitizeMermaidID(string(grp.group)), grp.group))
		for _, n := range grp.nodes {
			b.WriteString(fmt.Sprintf("    %s%s\n", sanitizeMermaidID(n.ID), mermaidNodeShape(n)))
		}
		b.WriteString("  end\n")
	}

	for _, e := range g.ViewEdges() {
		arrow := "-->"
		if _, isURL := ParseURLNodeID(e.Target); isURL {
			arrow = "-.->"
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target)))
	}
	return b.String()
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(s Stats) string {
	var b strings.Builder
	b.WriteString("Dependency Graph Statistics\n")
	b.WriteString("==========================\n\n")
	b.WriteString(fmt.Sprintf("Nodes:        %d total\n", s.TotalNodes))
	b.WriteString(fmt.Sprintf("  Items:      %d\n", s.ItemCount))
	b.WriteString(fmt.Sprintf("  URLs:       %d\n", s.URLCount))
	b.WriteString(fmt.Sprintf("  Inaccessible: %d\n", s.PlaceholderCount))
	b.WriteString(fmt.Sprintf("Edges:        %d total\n", s.TotalEdges))
	b.WriteString(fmt.Sprintf("Max Fan-Out:  %d (%s)\n", s.MaxFanOut, s.HotspotNode))
	b.WriteString(fmt.Sprintf("Max Fan-In:   %d\n", s.MaxFanIn))
	b.WriteString(fmt.Sprintf("Components:   %d\n", s.ConnectedComponents))

	if len(s.CyclicDeps) > 0 {
		b.WriteString(fmt.Sprintf("\nCyclic Dependencies: %d\n", len(s.CyclicDeps)))
		for i, cycle := range s.CyclicDeps {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(cycle, " -> ")))
		}
	}

	if len(s.GroupCounts) > 0 {
		groups := make([]string, 0, len(s.GroupCounts))
		for grp := range s.GroupCounts {
			groups = append(groups, string(grp))
		}
		sort.Strings(groups)
		b.WriteString("\nGroups:\n")
		for _, grp := range groups {
			b.WriteString(fmt.Sprintf("  %s: %d\n", grp, s.GroupCounts[Group(grp)]))
		}
	}
	return b.String()
}

type nodeGroup struct {
	group Group
	nodes []Node
}

// groupNodes buckets nodes by group, keeping the classification order of
// groups and the view order of nodes.
func groupNodes(nodes []Node) []nodeGroup {
	buckets := make(map[Group][]Node)
	for _, n := range nodes {
		buckets[n.Group] = append(buckets[n.Group], n)
	}
	out := make([]nodeGroup, 0, len(buckets))
	for _, grp := range Groups {
		if ns := buckets[grp]; len(ns) > 0 {
			out = append(out, nodeGroup{group: grp, nodes: ns})
		}
	}
	return out
}

func sanitizeDOTID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func nodeShape(n Node) string {
	switch {
	case n.Root:
		return "box3d"
	case n.Kind == NodeURL:
		return "note"
	case n.Placeholder:
		return "octagon"
	default:
		return "box"
	}
}

func mermaidNodeShape(n Node) string {
	label := strings.ReplaceAll(n.Label, `"`, "#quot;")
	label = strings.ReplaceAll(label, "\n", "<br/>")
	switch {
	case n.Root:
		return fmt.Sprintf("[[\"%s\"]]", label)
	case n.Kind == NodeURL:
		return fmt.Sprintf("([\"%s\"])", label)
	case n.Placeholder:
		return fmt.Sprintf("{{\"%s\"}}", label)
	default:
		return fmt.Sprintf("[\"%s\"]", label)
	}
}
