package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
)

const rootID = "abcdefabcdefabcdefabcdefabcdef12"

func sampleRun() *resolver.Run {
	g := depgraph.New(catalog.Item{ID: rootID, Title: "Ops", Type: "Dashboard"}, "https://gis.example.org/portal")
	g.AddDiscovered(catalog.Item{ID: "abcdefabcdefabcdefabcdefabcdef34", Title: "Parcels", Type: "Web Map"})
	g.AddEdge(rootID, "abcdefabcdefabcdefabcdefabcdef34")
	return &resolver.Run{ID: "run-1", Graph: g}
}

func TestSession_NoGraph(t *testing.T) {
	s := New("https://www.arcgis.com")
	assert.NotEmpty(t, s.ID())
	_, err := s.Graph()
	assert.ErrorIs(t, err, ErrNoGraph)
	_, err = s.Search()
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestSession_RunLifecycle(t *testing.T) {
	s := New("https://www.arcgis.com")
	require.NoError(t, s.Begin())
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Begin(), ErrBusy)
	assert.ErrorIs(t, s.Reset(), ErrBusy)

	s.Finish(sampleRun())
	assert.False(t, s.Running())
	g, err := s.Graph()
	require.NoError(t, err)
	assert.Equal(t, rootID, g.Root.ID)
	assert.Equal(t, "https://gis.example.org/portal", s.Portal(), "portal follows the last run")

	require.NoError(t, s.Begin())
	s.Abort()
	g, err = s.Graph()
	require.NoError(t, err, "failed run keeps the previous graph")
	assert.Equal(t, rootID, g.Root.ID)
}

func TestSession_BeginIsExclusive(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSession_SearchAndToggle(t *testing.T) {
	s := New("")
	s.Finish(sampleRun())

	s.SetFilter(query.Filter{Query: "parcels"})
	res, err := s.Search()
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	f := s.ToggleGroup(depgraph.GroupDashboard)
	assert.Equal(t, depgraph.GroupDashboard, f.Group)
	res, _ = s.Search()
	assert.Empty(t, res.Nodes, "no dashboard matches parcels")

	f = s.ToggleGroup(depgraph.GroupDashboard)
	assert.Empty(t, f.Group)
	assert.Equal(t, "parcels", f.Query)
}

func TestSession_ResetKeepsToken(t *testing.T) {
	s := New("")
	s.SetToken(catalog.Token{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	s.Finish(sampleRun())
	s.SetFilter(query.Filter{Query: "x"})

	require.NoError(t, s.Reset())
	_, err := s.Graph()
	assert.ErrorIs(t, err, ErrNoGraph)
	assert.Equal(t, query.Filter{}, s.Filter())
	assert.Equal(t, "tok", s.Token().Value)
}

func TestSession_TokenExpiry(t *testing.T) {
	s := New("")
	s.SetToken(catalog.Token{Value: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.Empty(t, s.Token().Value)
	assert.False(t, s.Info().Authenticated)

	s.SetToken(catalog.Token{Value: "new", ExpiresAt: time.Now().Add(time.Hour)})
	info := s.Info()
	assert.True(t, info.Authenticated)
	require.NotNil(t, info.TokenExpiresAt)

	s.ClearToken()
	assert.Empty(t, s.Token().Value)
}

func TestSession_Info(t *testing.T) {
	s := New("https://www.arcgis.com")
	s.Finish(sampleRun())
	info := s.Info()
	assert.Equal(t, s.ID(), info.ID)
	assert.Equal(t, rootID, info.RootID)
	assert.False(t, info.Running)
}
