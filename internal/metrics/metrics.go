package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
)

// RunMetrics collects statistics for one resolution run.
type RunMetrics struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	RootID     string         `json:"root_id"`
	RootType   string         `json:"root_type,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Portal     string         `json:"portal"`
	Fetches    FetchMetrics   `json:"fetches"`
	Graph      GraphMetrics   `json:"graph"`
	Stages     []StageMetrics `json:"stages"`
	Outcome    string         `json:"outcome"`
	Errors     []string       `json:"errors,omitempty"`
}

type FetchMetrics struct {
	Items    int `json:"items"`
	Payloads int `json:"payloads"`
	Failed   int `json:"failed"`
	Denied   int `json:"denied"` // failures that required authentication
}

type GraphMetrics struct {
	Discovered   int `json:"discovered"`
	Placeholders int `json:"placeholders"`
	Edges        int `json:"edges"`
	URLs         int `json:"urls"`
	DeepenedMaps int `json:"deepened_maps"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Fetches  int           `json:"fetches"`
}

// New starts tracking a run for rootID.
func New(rootID, portal string) *RunMetrics {
	return &RunMetrics{StartedAt: time.Now(), RootID: rootID, Portal: portal}
}

// Total is the number of catalog requests issued so far.
func (m *RunMetrics) Total() int { return m.Fetches.Items + m.Fetches.Payloads }

// CountItem records one metadata fetch.
func (m *RunMetrics) CountItem(failed, denied bool) {
	m.Fetches.Items++
	m.countFailure(failed, denied)
}

// CountPayload records one payload fetch.
func (m *RunMetrics) CountPayload(failed, denied bool) {
	m.Fetches.Payloads++
	m.countFailure(failed, denied)
}

func (m *RunMetrics) countFailure(failed, denied bool) {
	if failed {
		m.Fetches.Failed++
	}
	if denied {
		m.Fetches.Denied++
	}
}

// AddStage records a stage's timing and how many fetches it issued.
func (m *RunMetrics) AddStage(name string, d time.Duration, fetches int) {
	m.Stages = append(m.Stages, StageMetrics{Name: name, Duration: d, Fetches: fetches})
}

// CollectGraph computes graph-side metrics.
func (m *RunMetrics) CollectGraph(g *depgraph.Graph) {
	m.RootType = g.Root.Type
	m.Graph.Discovered = len(g.Discovered)
	m.Graph.Placeholders = len(g.Placeholders())
	m.Graph.Edges = len(g.Edges)
	m.Graph.URLs = len(g.URLs)
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(outcome string, errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Outcome = outcome
	m.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        DEPENDENCY CHECK REPORT       ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Root:        %-23s║\n", m.RootID[:min(len(m.RootID), 23)])
	fmt.Fprintf(w, "║ Kind:        %-23s║\n", m.Kind)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Outcome:     %-23s║\n", m.Outcome)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ FETCHES (%s)\n", m.Portal)
	fmt.Fprintf(w, "║   Items:       %d\n", m.Fetches.Items)
	fmt.Fprintf(w, "║   Payloads:    %d\n", m.Fetches.Payloads)
	fmt.Fprintf(w, "║   Failed:      %d\n", m.Fetches.Failed)
	fmt.Fprintf(w, "║   Denied:      %d\n", m.Fetches.Denied)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH (%s)\n", m.RootType)
	fmt.Fprintf(w, "║   Discovered:  %d\n", m.Graph.Discovered)
	fmt.Fprintf(w, "║   Inaccessible:%d\n", m.Graph.Placeholders)
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Graph.Edges)
	fmt.Fprintf(w, "║   URLs:        %d\n", m.Graph.URLs)
	fmt.Fprintf(w, "║   Web maps:    %d deepened\n", m.Graph.DeepenedMaps)
	if len(m.Stages) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ STAGES\n")
		for _, s := range m.Stages {
			fmt.Fprintf(w, "║   %-14s %8s  [%d fetches]\n", s.Name, s.Duration.Round(time.Millisecond), s.Fetches)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
