package depgraph

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
)

const (
	rootID  = "00000000000000000000000000000001"
	mapID   = "00000000000000000000000000000002"
	layerID = "00000000000000000000000000000003"
	sceneID = "00000000000000000000000000000004"
)

func item(id, title, typ string) catalog.Item {
	return catalog.Item{ID: id, Title: title, Type: typ, Owner: "gis", TypeKeywords: []string{}}
}

// sampleGraph is a dashboard embedding one map that references a layer, plus
// two external URLs.
func sampleGraph() *Graph {
	root := item(rootID, "Ops Dashboard", "Dashboard")
	root.Created = 1700000000000
	g := New(root, "https://www.arcgis.com")
	g.AddDiscovered(item(mapID, "Parcels", "Web Map"))
	g.AddDiscovered(item(layerID, "Parcel Layer", "Feature Service"))
	g.AddEdge(rootID, mapID)
	g.AddEdge(mapID, layerID)
	g.AddURLs("https://tiles.example.org/MapServer?token=x", "http://example.org/a")
	return g
}

func TestAddDiscovered(t *testing.T) {
	g := New(item(rootID, "Root", "Web Map"), "https://www.arcgis.com")
	if g.AddDiscovered(item(rootID, "Root", "Web Map")) {
		t.Error("root must not be added to discovered")
	}
	if !g.AddDiscovered(item(mapID, "A", "Web Map")) {
		t.Fatal("expected first add to succeed")
	}
	if g.AddDiscovered(item(mapID, "A again", "Web Map")) {
		t.Error("duplicate id must be rejected")
	}
	if len(g.Discovered) != 1 {
		t.Fatalf("expected 1 discovered item, got %d", len(g.Discovered))
	}
	if it, ok := g.Item(mapID); !ok || it.Title != "A" {
		t.Errorf("Item(%s) = %+v, %v", mapID, it, ok)
	}
	if !g.HasItem(rootID) || g.HasItem(sceneID) {
		t.Error("HasItem gave wrong answers")
	}
}

func TestURLNodeID(t *testing.T) {
	if got := URLNodeID(3); got != "url_3" {
		t.Errorf("URLNodeID(3) = %q", got)
	}
	for _, tt := range []struct {
		in   string
		want int
		ok   bool
	}{
		{"url_0", 0, true},
		{"url_12", 12, true},
		{"url_", 0, false},
		{"url_x", 0, false},
		{rootID, 0, false},
	} {
		got, ok := ParseURLNodeID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseURLNodeID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValidate(t *testing.T) {
	g := sampleGraph()
	if err := g.Validate(); err != nil {
		t.Fatalf("sample graph should validate: %v", err)
	}

	g.AddEdge(mapID, sceneID)
	g.AddEdge(rootID, "url_9")
	err := g.Validate()
	if err == nil {
		t.Fatal("expected dangling edges to fail validation")
	}
	if !strings.Contains(err.Error(), sceneID) || !strings.Contains(err.Error(), "url_9") {
		t.Errorf("error should name both dangling targets: %v", err)
	}

	bad := &Graph{Root: item(rootID, "", ""), Discovered: []catalog.Item{item(rootID, "", "")}}
	if bad.Validate() == nil {
		t.Error("root in discovered should fail validation")
	}
}

func TestNodes(t *testing.T) {
	g := sampleGraph()
	nodes := g.Nodes()
	if len(nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(nodes))
	}

	root := nodes[0]
	if !root.Root || root.Label != "Ops Dashboard\n(Dashboard)" || root.Group != GroupDashboard {
		t.Errorf("unexpected root node %+v", root)
	}
	if nodes[1].Group != GroupWebMap || nodes[1].Color != "#6aa2ff" {
		t.Errorf("unexpected map node %+v", nodes[1])
	}
	u := nodes[3]
	if u.ID != "url_0" || u.Kind != NodeURL || u.Label != "tiles.example.org/MapServer\n(URL)" {
		t.Errorf("unexpected URL node %+v", u)
	}
	if u.Title != "tiles.example.org/MapServer" || u.Type != "URL" || u.Group != GroupURL {
		t.Errorf("unexpected URL node meta %+v", u)
	}
}

func TestNodes_Labels(t *testing.T) {
	g := New(catalog.Item{ID: rootID}, "https://www.arcgis.com")
	g.AddDiscovered(catalog.Item{ID: mapID})
	nodes := g.Nodes()
	if nodes[0].Label != "Root\n(Unknown)" {
		t.Errorf("root label = %q", nodes[0].Label)
	}
	if nodes[1].Label != "(no title)\n(Unknown)" {
		t.Errorf("discovered label = %q", nodes[1].Label)
	}
	if nodes[1].Group != GroupOther {
		t.Errorf("untyped item should be Other, got %s", nodes[1].Group)
	}

	long := "https://" + strings.Repeat("a", 100)
	g.AddURLs(long)
	if got := g.Nodes()[2].Title; len(got) != 64 {
		t.Errorf("URL label should be truncated to 64, got %d", len(got))
	}
}

func TestViewEdges(t *testing.T) {
	g := sampleGraph()
	edges := g.ViewEdges()
	want := []Edge{
		{rootID, "url_0"},
		{rootID, "url_1"},
		{rootID, mapID},
		{mapID, layerID},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(edges))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}
}

func TestGroupOf(t *testing.T) {
	tests := []struct {
		typ  string
		want Group
	}{
		{"StoryMap", GroupStoryMap},
		{"Web Experience", GroupExperience},
		{"Dashboard", GroupDashboard},
		{"Web Map", GroupWebMap},
		{"Web Mapping Application", GroupWebMap},
		{"Web Scene", GroupScene},
		{"Feature Service", GroupFeature},
		{"Scene Service", GroupScene},
		{"URL", GroupURL},
		{"url", GroupOther},
		{"Map Service", GroupOther},
		{"", GroupOther},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := GroupOf(tt.typ); got != tt.want {
				t.Errorf("GroupOf(%q) = %s, want %s", tt.typ, got, tt.want)
			}
		})
	}
}

func TestParseGroup(t *testing.T) {
	if g, ok := ParseGroup("web map"); !ok || g != GroupWebMap {
		t.Errorf("ParseGroup(web map) = %s, %v", g, ok)
	}
	if _, ok := ParseGroup("Tile Layer"); ok {
		t.Error("unknown group should not parse")
	}
}

func TestLegend(t *testing.T) {
	legend := Legend(sampleGraph())
	want := []LegendEntry{
		{GroupDashboard, "#8a7ff0", 1},
		{GroupFeature, "#2ec27e", 1},
		{GroupURL, "#c0c7d1", 2},
		{GroupWebMap, "#6aa2ff", 1},
	}
	if len(legend) != len(want) {
		t.Fatalf("expected %d legend entries, got %+v", len(want), legend)
	}
	for i := range want {
		if legend[i] != want[i] {
			t.Errorf("legend[%d] = %+v, want %+v", i, legend[i], want[i])
		}
	}
}

func TestAnalyze(t *testing.T) {
	s := Analyze(sampleGraph())
	if s.TotalNodes != 5 || s.TotalEdges != 4 {
		t.Errorf("expected 5 nodes and 4 edges, got %d and %d", s.TotalNodes, s.TotalEdges)
	}
	if s.ItemCount != 3 || s.URLCount != 2 {
		t.Errorf("expected 3 items and 2 URLs, got %d and %d", s.ItemCount, s.URLCount)
	}
	if s.MaxFanOut != 3 || s.HotspotNode != rootID {
		t.Errorf("expected root hotspot with fan-out 3, got %s with %d", s.HotspotNode, s.MaxFanOut)
	}
	if s.MaxFanIn != 1 {
		t.Errorf("expected max fan-in 1, got %d", s.MaxFanIn)
	}
	if s.ConnectedComponents != 1 {
		t.Errorf("expected 1 component, got %d", s.ConnectedComponents)
	}
	if len(s.CyclicDeps) != 0 {
		t.Errorf("expected no cycles, got %v", s.CyclicDeps)
	}
	if s.GroupCounts[GroupURL] != 2 {
		t.Errorf("expected 2 URL nodes, got %d", s.GroupCounts[GroupURL])
	}
}

func TestAnalyze_Cycle(t *testing.T) {
	g := sampleGraph()
	g.AddEdge(layerID, rootID)
	g.AddDiscovered(catalog.Placeholder(sceneID))
	s := Analyze(g)
	if len(s.CyclicDeps) != 1 {
		t.Fatalf("expected 1 cycle, got %v", s.CyclicDeps)
	}
	if strings.Join(s.CyclicDeps[0], ",") != rootID+","+mapID+","+layerID {
		t.Errorf("unexpected cycle %v", s.CyclicDeps[0])
	}
	if s.PlaceholderCount != 1 {
		t.Errorf("expected 1 placeholder, got %d", s.PlaceholderCount)
	}
	if s.ConnectedComponents != 2 {
		t.Errorf("isolated placeholder should form its own component, got %d", s.ConnectedComponents)
	}
}

func TestParents(t *testing.T) {
	g := sampleGraph()
	g.AddEdge(rootID, mapID)
	g.AddEdge(sceneID, mapID)
	p := Parents(g)
	if got := strings.Join(p[mapID], ","); got != rootID+","+sceneID {
		t.Errorf("parents of map = %s", got)
	}
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(sampleGraph())
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !strings.Contains(string(data), `"edges": [`) {
		t.Errorf("missing edges key:\n%s", data)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var edges [][]string
	if err := json.Unmarshal(raw["edges"], &edges); err != nil {
		t.Fatalf("edges should be pairs: %v", err)
	}
	if len(edges) != 2 || edges[0][0] != rootID || edges[0][1] != mapID {
		t.Errorf("unexpected edges %v", edges)
	}

	var back Graph
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if !back.HasItem(layerID) || len(back.URLs) != 2 || back.Portal != "https://www.arcgis.com" {
		t.Errorf("decoded graph lost data: %+v", back)
	}
}

func TestEdgeUnmarshal_BadArity(t *testing.T) {
	var e Edge
	if err := json.Unmarshal([]byte(`["a"]`), &e); err == nil {
		t.Error("expected error for single-element edge")
	}
}

func TestExportYAML(t *testing.T) {
	data, err := ExportYAML(sampleGraph())
	if err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	var doc struct {
		Edges [][]string `yaml:"edges"`
		URLs  []string   `yaml:"urls"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(doc.Edges) != 2 || doc.Edges[1][1] != layerID || len(doc.URLs) != 2 {
		t.Errorf("unexpected YAML document %+v", doc)
	}
}

func TestExportCSV(t *testing.T) {
	data, err := ExportCSV(sampleGraph())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(CSVHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	col := func(row []string, name string) string {
		for i, h := range CSVHeader {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}

	root := records[1]
	if col(root, "NodeType") != "Item" || col(root, "Portal") != "www.arcgis.com" {
		t.Errorf("unexpected root row %v", root)
	}
	if col(root, "RESTURL") != "https://www.arcgis.com/sharing/rest/content/items/"+rootID+"/data?f=pjson" {
		t.Errorf("dashboard should link its payload, got %s", col(root, "RESTURL"))
	}
	if col(root, "CreatedISO") != "2023-11-14T22:13:20.000Z" || col(root, "ModifiedISO") != "" {
		t.Errorf("unexpected dates %q %q", col(root, "CreatedISO"), col(root, "ModifiedISO"))
	}
	if col(root, "ParentIDs") != "" {
		t.Errorf("root should have no parents, got %q", col(root, "ParentIDs"))
	}

	layer := records[3]
	if col(layer, "RESTURL") != "https://www.arcgis.com/sharing/rest/content/items/"+layerID+"?f=pjson" {
		t.Errorf("layer should link its metadata, got %s", col(layer, "RESTURL"))
	}
	if col(layer, "ParentIDs") != mapID || col(layer, "ParentTitles") != "Parcels" {
		t.Errorf("unexpected layer parents %q %q", col(layer, "ParentIDs"), col(layer, "ParentTitles"))
	}
	if col(layer, "ItemURL") != "https://www.arcgis.com/home/item.html?id="+layerID {
		t.Errorf("unexpected item URL %s", col(layer, "ItemURL"))
	}

	u := records[4]
	if col(u, "NodeType") != "URL" || col(u, "Title") != "tiles.example.org/MapServer?token=x" {
		t.Errorf("unexpected URL row %v", u)
	}
	if col(u, "ParentIDs") != rootID || col(u, "ParentTitles") != "Ops Dashboard" {
		t.Errorf("URL rows default to the root as parent, got %v", u)
	}
}

func TestExportDOT(t *testing.T) {
	dot := ExportDOT(sampleGraph())
	for _, want := range []string{
		"digraph dependencies {",
		"subgraph cluster_Web_Map",
		`"` + rootID + `" [label="Ops Dashboard\n(Dashboard)" shape=box3d`,
		`"` + rootID + `" -> "url_0" [style=dashed`,
		`"` + mapID + `" -> "` + layerID + `" [style=solid`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestExportMermaid(t *testing.T) {
	m := ExportMermaid(sampleGraph())
	if !strings.HasPrefix(m, "graph LR\n") {
		t.Error("expected graph LR header")
	}
	for _, want := range []string{
		`subgraph Web_Map["Web Map"]`,
		rootID + ` --> ` + mapID,
		rootID + ` -.-> url_1`,
		`Parcels<br/>(Web Map)`,
	} {
		if !strings.Contains(m, want) {
			t.Errorf("Mermaid output missing %q:\n%s", want, m)
		}
	}
}

func TestExportFormats(t *testing.T) {
	for _, f := range Formats {
		data, err := Export(sampleGraph(), f)
		if err != nil || len(data) == 0 {
			t.Errorf("Export(%s) = %d bytes, %v", f, len(data), err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("expected unknown format error")
	}
	if f, _ := ParseFormat("YML"); f != FormatYAML {
		t.Errorf("ParseFormat(YML) = %s", f)
	}
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(Analyze(sampleGraph()))
	for _, want := range []string{"Nodes:        5 total", "URLs:       2", "Web Map: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatStats missing %q:\n%s", want, out)
		}
	}
}

func TestNeighborhood(t *testing.T) {
	g := sampleGraph()
	self, near, edges, ok := g.Neighborhood(mapID)
	if !ok {
		t.Fatal("expected map node to be found")
	}
	if self.Title != "Parcels" {
		t.Errorf("self = %+v", self)
	}
	if len(near) != 2 || near[0].ID != rootID || near[1].ID != layerID {
		t.Errorf("unexpected neighbors %+v", near)
	}
	if len(edges) != 2 {
		t.Errorf("expected 2 attached edges, got %v", edges)
	}

	_, near, _, _ = g.Neighborhood("url_1")
	if len(near) != 1 || near[0].ID != rootID {
		t.Errorf("URL node should only touch the root, got %+v", near)
	}
	if _, _, _, ok := g.Neighborhood(sceneID); ok {
		t.Error("unknown node should not be found")
	}
}
