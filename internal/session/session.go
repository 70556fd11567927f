// Package session holds the state of one interactive session: the portal and
// token in use, the most recent graph and the active search filter.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
)

var (
	// ErrBusy is returned by Begin while another run is in flight.
	ErrBusy = errors.New("a resolution is already running")
	// ErrNoGraph is returned when nothing has been resolved yet.
	ErrNoGraph = errors.New("no graph has been resolved yet")
)

// Session is safe for concurrent use. At most one resolution runs at a time.
type Session struct {
	mu      sync.RWMutex
	id      string
	created time.Time
	portal  string
	token   catalog.Token
	run     *resolver.Run
	filter  query.Filter
	running bool
}

// New creates an empty session bound to portal.
func New(portal string) *Session {
	return &Session{
		id:      uuid.NewString(),
		created: time.Now().UTC(),
		portal:  portal,
	}
}

func (s *Session) ID() string { return s.id }

// Portal returns the portal of the most recent run, or the configured one.
func (s *Session) Portal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portal
}

func (s *Session) SetPortal(p string) {
	s.mu.Lock()
	s.portal = p
	s.mu.Unlock()
}

// Token returns the held token. Expired tokens are reported as empty.
func (s *Session) Token() catalog.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.token.Valid(time.Now()) {
		return catalog.Token{}
	}
	return s.token
}

func (s *Session) SetToken(t catalog.Token) {
	s.mu.Lock()
	s.token = t
	s.mu.Unlock()
}

func (s *Session) ClearToken() { s.SetToken(catalog.Token{}) }

// Begin marks a run as in flight. Callers must follow it with Finish or
// Abort.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBusy
	}
	s.running = true
	return nil
}

// Running reports whether a run is in flight.
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Finish stores a completed run as the current graph.
func (s *Session) Finish(run *resolver.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.run = run
	if run != nil && run.Graph != nil {
		s.portal = run.Graph.Portal
	}
}

// Abort ends a failed run. The previous graph, if any, stays current.
func (s *Session) Abort() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Run returns the most recent completed run.
func (s *Session) Run() (*resolver.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.run == nil {
		return nil, ErrNoGraph
	}
	return s.run, nil
}

// Graph returns the current graph.
func (s *Session) Graph() (*depgraph.Graph, error) {
	run, err := s.Run()
	if err != nil {
		return nil, err
	}
	return run.Graph, nil
}

func (s *Session) Filter() query.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Session) SetFilter(f query.Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// ToggleGroup selects g as the type-group filter, or clears it when g is
// already selected. It returns the resulting filter.
func (s *Session) ToggleGroup(g depgraph.Group) query.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.Group == g {
		s.filter.Group = ""
	} else {
		s.filter.Group = g
	}
	return s.filter
}

// Search evaluates the current filter over the current graph.
func (s *Session) Search() (query.Result, error) {
	g, err := s.Graph()
	if err != nil {
		return query.Result{}, err
	}
	return query.Evaluate(g, s.Filter()), nil
}

// Reset drops the graph and filter. The portal and token are kept. It fails
// with ErrBusy while a run is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBusy
	}
	s.run = nil
	s.filter = query.Filter{}
	return nil
}

// Info is a snapshot of the session for display.
type Info struct {
	ID             string       `json:"id"`
	Created        time.Time    `json:"created"`
	Portal         string       `json:"portal"`
	Authenticated  bool         `json:"authenticated"`
	TokenExpiresAt *time.Time   `json:"tokenExpiresAt,omitempty"`
	Running        bool         `json:"running"`
	RootID         string       `json:"rootId,omitempty"`
	Filter         query.Filter `json:"filter"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := Info{
		ID:            s.id,
		Created:       s.created,
		Portal:        s.portal,
		Authenticated: s.token.Valid(time.Now()),
		Running:       s.running,
		Filter:        s.filter,
	}
	if info.Authenticated && !s.token.ExpiresAt.IsZero() {
		exp := s.token.ExpiresAt
		info.TokenExpiresAt = &exp
	}
	if s.run != nil && s.run.Graph != nil {
		info.RootID = s.run.Graph.Root.ID
	}
	return info
}
