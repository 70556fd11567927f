package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
)

const (
	rootID  = "11111111111111111111111111111111"
	mapID   = "22222222222222222222222222222222"
	layerID = "33333333333333333333333333333333"
)

func browseSession(t *testing.T) *session.Session {
	t.Helper()
	g := depgraph.New(catalog.Item{ID: rootID, Title: "Ops Dashboard", Type: "Dashboard"}, "https://www.arcgis.com")
	g.AddDiscovered(catalog.Item{ID: mapID, Title: "Parcels", Type: "Web Map", Owner: "gis"})
	g.AddDiscovered(catalog.Item{ID: layerID, Title: "Parcel Layer", Type: "Feature Service", Owner: "gis"})
	g.AddEdge(rootID, mapID)
	g.AddEdge(mapID, layerID)
	g.AddURLs("https://tiles.example.org/arcgis/rest/services/Base/MapServer")

	s := session.New(g.Portal)
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	s.Finish(&resolver.Run{ID: "run-1", Graph: g})
	return s
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m BrowseModel, keys ...string) BrowseModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(BrowseModel)
	}
	return m
}

func titles(m BrowseModel) []string {
	var out []string
	for _, n := range m.Rows() {
		out = append(out, n.Title)
	}
	return out
}

func TestNewBrowseModel_NoGraph(t *testing.T) {
	if _, err := NewBrowseModel(session.New("")); err == nil {
		t.Fatal("expected error without a resolved graph")
	}
}

func TestBrowse_InitialList(t *testing.T) {
	m, err := NewBrowseModel(browseSession(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(m.Rows()); got != 4 {
		t.Fatalf("expected every node listed, got %d: %v", got, titles(m))
	}
	sel, ok := m.Selected()
	if !ok || sel.ID != rootID {
		t.Fatalf("expected root selected first, got %+v", sel)
	}

	m = press(t, m, "down", "down", "up")
	if sel, _ := m.Selected(); sel.ID != mapID {
		t.Fatalf("expected web map selected, got %s", sel.ID)
	}
	if !strings.Contains(m.View(), "Ops Dashboard") {
		t.Error("view missing root title")
	}
}

func TestBrowse_LegendToggle(t *testing.T) {
	s := browseSession(t)
	m, err := NewBrowseModel(s)
	if err != nil {
		t.Fatal(err)
	}

	// Legend order is Dashboard, Feature, URL, Web Map.
	m = press(t, m, "4")
	if s.Filter().Group != depgraph.GroupWebMap {
		t.Fatalf("expected Web Map group, got %q", s.Filter().Group)
	}
	if got := titles(m); len(got) != 1 || got[0] != "Parcels" {
		t.Fatalf("unexpected rows %v", got)
	}

	m = press(t, m, "4")
	if s.Filter().Group != "" || len(m.Rows()) != 4 {
		t.Fatalf("second toggle should clear the group, rows %v", titles(m))
	}

	m = press(t, m, "2", "0")
	if s.Filter().Group != "" {
		t.Fatal("0 should clear the group")
	}

	// Out of range keys do nothing.
	m = press(t, m, "9")
	if s.Filter().Group != "" {
		t.Fatal("unexpected group selected")
	}
}

func TestBrowse_Search(t *testing.T) {
	s := browseSession(t)
	m, err := NewBrowseModel(s)
	if err != nil {
		t.Fatal(err)
	}

	m = press(t, m, "/", "l", "a", "y", "e", "r")
	if s.Filter().Query != "layer" {
		t.Fatalf("expected query to follow the input, got %q", s.Filter().Query)
	}
	if got := titles(m); len(got) != 1 || got[0] != "Parcel Layer" {
		t.Fatalf("unexpected rows %v", got)
	}

	// While typing, shortcut keys are text.
	m = press(t, m, "enter", "r")
	if s.Filter().Query != "" || len(m.Rows()) != 4 {
		t.Fatalf("r should reset the filter, got %q %v", s.Filter().Query, titles(m))
	}

	m = press(t, m, "/", "n", "o", "p", "e")
	if len(m.Rows()) != 0 {
		t.Fatalf("expected an empty list, got %v", titles(m))
	}
	if _, ok := m.Selected(); ok {
		t.Fatal("nothing should be selected")
	}
	if !strings.Contains(m.View(), "no match") {
		t.Error("expected an explicit empty list")
	}

	m = press(t, m, "esc")
	if s.Filter().Query != "" || len(m.Rows()) != 4 {
		t.Fatal("esc should clear the search")
	}
}

func TestBrowse_Quit(t *testing.T) {
	m, err := NewBrowseModel(browseSession(t))
	if err != nil {
		t.Fatal(err)
	}
	next, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if next.(BrowseModel).View() != "" {
		t.Error("expected empty view after quit")
	}
}
