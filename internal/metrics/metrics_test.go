package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
)

func TestRunMetrics_Counts(t *testing.T) {
	m := New("abcd1234abcd1234abcd1234abcd1234", "https://www.arcgis.com")
	m.CountItem(false, false)
	m.CountPayload(false, false)
	m.CountItem(true, false)
	m.CountItem(true, true)

	if m.Total() != 4 {
		t.Errorf("expected 4 fetches, got %d", m.Total())
	}
	if m.Fetches.Items != 3 || m.Fetches.Payloads != 1 {
		t.Errorf("unexpected split %+v", m.Fetches)
	}
	if m.Fetches.Failed != 2 || m.Fetches.Denied != 1 {
		t.Errorf("unexpected failures %+v", m.Fetches)
	}
}

func TestRunMetrics_CollectGraph(t *testing.T) {
	g := depgraph.New(catalog.Item{ID: "r", Type: "Dashboard"}, "https://www.arcgis.com")
	g.AddDiscovered(catalog.Item{ID: "a", Type: "Web Map"})
	g.AddDiscovered(catalog.Placeholder("b"))
	g.AddEdge("r", "a")
	g.AddURLs("https://x.example.org")

	m := New("r", g.Portal)
	m.CollectGraph(g)
	if m.RootType != "Dashboard" {
		t.Errorf("root type = %q", m.RootType)
	}
	want := GraphMetrics{Discovered: 2, Placeholders: 1, Edges: 1, URLs: 1}
	if m.Graph != want {
		t.Errorf("graph metrics = %+v, want %+v", m.Graph, want)
	}
}

func TestRunMetrics_Finish(t *testing.T) {
	m := New("r", "p")
	time.Sleep(2 * time.Millisecond)
	m.Finish("ok", nil)
	if m.Duration <= 0 || m.FinishedAt.IsZero() {
		t.Errorf("finish did not record timing: %+v", m)
	}
	if m.Outcome != "ok" {
		t.Errorf("outcome = %q", m.Outcome)
	}
}

func TestRunMetrics_PrintSummary(t *testing.T) {
	m := New("abcd1234abcd1234abcd1234abcd1234", "https://www.arcgis.com")
	m.Kind = "webmap"
	m.AddStage("root", 15*time.Millisecond, 2)
	m.Finish("auth_required", []string{"some dependent items are private"})

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"DEPENDENCY CHECK REPORT", "webmap", "root", "[2 fetches]", "some dependent items are private"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunMetrics_JSON(t *testing.T) {
	m := New("r", "p")
	m.CountPayload(false, false)
	data, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var back RunMetrics
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Fetches.Payloads != 1 || back.RootID != "r" {
		t.Errorf("decoded = %+v", back)
	}
}
