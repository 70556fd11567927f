package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/artifact"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/checker"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/graphstore"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/metrics"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/query"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
)

// maxBodyBytes bounds request bodies; every body is a small JSON object.
const maxBodyBytes = 64 << 10

// API serves one session. Graph and upload endpoints are mounted only when
// the matching sink is configured.
type API struct {
	checker *checker.Checker
	session *session.Session
	logger  *zap.Logger
	audit   *observability.AuditLogger
	graphs  graphstore.Store
	uploads *artifact.Uploader
}

type APIOption func(*API)

func WithLogger(l *zap.Logger) APIOption {
	return func(a *API) { a.logger = l }
}

func WithAuditLogger(l *observability.AuditLogger) APIOption {
	return func(a *API) { a.audit = l }
}

// WithGraphStore enables POST /api/store.
func WithGraphStore(s graphstore.Store) APIOption {
	return func(a *API) { a.graphs = s }
}

// WithUploader enables POST /api/upload/{format}.
func WithUploader(u *artifact.Uploader) APIOption {
	return func(a *API) { a.uploads = u }
}

func NewAPI(c *checker.Checker, s *session.Session, opts ...APIOption) *API {
	a := &API{
		checker: c,
		session: s,
		logger:  zap.NewNop(),
		audit:   observability.Audit(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Routes mounts the session endpoints on r.
func (a *API) Routes(r chi.Router) {
	r.Post("/resolve", a.resolve)
	r.Get("/graph", a.graph)
	r.Get("/search", a.search)
	r.Get("/legend", a.legend)
	r.Post("/legend/{group}/toggle", a.toggleGroup)
	r.Get("/nodes/{id}", a.node)
	r.Get("/export/{format}", a.export)
	r.Post("/token", a.requestToken)
	r.Delete("/token", a.clearToken)
	r.Get("/session", a.sessionInfo)
	r.Delete("/session", a.reset)
	if a.graphs != nil {
		r.Post("/store", a.store)
	}
	if a.uploads != nil {
		r.Post("/upload/{format}", a.upload)
	}
}

type apiError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Stage   string `json:"stage,omitempty"`
	ItemID  string `json:"itemId,omitempty"`
}

func (a *API) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, apiError{Error: true, Message: message, Code: status})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type resolveRequest struct {
	Input  string `json:"input"`
	Portal string `json:"portal,omitempty"`
}

type resolveResponse struct {
	RunID   string                 `json:"runId"`
	Kind    string                 `json:"kind"`
	Graph   *depgraph.Graph        `json:"graph"`
	Stats   depgraph.Stats         `json:"stats"`
	Legend  []depgraph.LegendEntry `json:"legend"`
	Metrics *metrics.RunMetrics    `json:"metrics"`
}

// resolve runs one resolution. Without an explicit portal, a session holding
// a token stays on the portal that issued it.
func (a *API) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		a.respondError(w, http.StatusBadRequest, "input is required")
		return
	}

	if err := a.session.Begin(); err != nil {
		a.respondError(w, http.StatusConflict, err.Error())
		return
	}

	tok := a.session.Token()
	portal := req.Portal
	if portal == "" && tok.Value != "" {
		portal = a.session.Portal()
	}

	run, err := a.checker.Resolve(r.Context(), req.Input, portal, tok)
	if err != nil {
		a.session.Abort()
		a.resolveError(w, err)
		return
	}
	a.session.Finish(run)

	a.respondJSON(w, http.StatusOK, resolveResponse{
		RunID:   run.ID,
		Kind:    run.Kind.String(),
		Graph:   run.Graph,
		Stats:   depgraph.Analyze(run.Graph),
		Legend:  depgraph.Legend(run.Graph),
		Metrics: run.Metrics,
	})
}

func (a *API) resolveError(w http.ResponseWriter, err error) {
	var ve *itemref.ValidationError
	switch ae, isAuth := resolver.AsAuthError(err); {
	case isAuth:
		a.respondJSON(w, http.StatusUnauthorized, apiError{
			Error:   true,
			Message: ae.Notice(),
			Code:    http.StatusUnauthorized,
			Stage:   string(ae.Stage),
			ItemID:  ae.ItemID,
		})
	case errors.As(err, &ve):
		a.respondError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, context.Canceled):
		a.respondError(w, http.StatusServiceUnavailable, "resolution cancelled")
	default:
		a.logger.Warn("resolution failed", zap.Error(err))
		a.respondError(w, http.StatusBadGateway, err.Error())
	}
}

// currentGraph writes 404 and returns nil when nothing has been resolved.
func (a *API) currentGraph(w http.ResponseWriter) *depgraph.Graph {
	g, err := a.session.Graph()
	if err != nil {
		a.respondError(w, http.StatusNotFound, err.Error())
		return nil
	}
	return g
}

type graphView struct {
	Root   catalog.Item           `json:"root"`
	Portal string                 `json:"portal"`
	Nodes  []depgraph.Node        `json:"nodes"`
	Edges  []depgraph.Edge        `json:"edges"`
	Legend []depgraph.LegendEntry `json:"legend"`
	Stats  depgraph.Stats         `json:"stats"`
}

func (a *API) graph(w http.ResponseWriter, r *http.Request) {
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	a.respondJSON(w, http.StatusOK, graphView{
		Root:   g.Root,
		Portal: g.Portal,
		Nodes:  g.Nodes(),
		Edges:  g.ViewEdges(),
		Legend: depgraph.Legend(g),
		Stats:  depgraph.Analyze(g),
	})
}

// search sets the session filter from q and group, then evaluates it.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	f := query.Filter{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("group"); raw != "" {
		grp, ok := depgraph.ParseGroup(raw)
		if !ok {
			a.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown group %q", raw))
			return
		}
		f.Group = grp
	}
	if _, err := a.session.Graph(); err != nil {
		a.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	a.session.SetFilter(f)
	res, err := a.session.Search()
	if err != nil {
		a.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	a.respondJSON(w, http.StatusOK, res)
}

func (a *API) legend(w http.ResponseWriter, r *http.Request) {
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	a.respondJSON(w, http.StatusOK, depgraph.Legend(g))
}

// toggleGroup flips the group filter the way a legend click does and
// returns the new search result.
func (a *API) toggleGroup(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "group"))
	if err != nil {
		raw = chi.URLParam(r, "group")
	}
	grp, ok := depgraph.ParseGroup(raw)
	if !ok {
		a.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown group %q", raw))
		return
	}
	if a.currentGraph(w) == nil {
		return
	}
	a.session.ToggleGroup(grp)
	res, err := a.session.Search()
	if err != nil {
		a.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	a.respondJSON(w, http.StatusOK, res)
}

type nodeView struct {
	Node      depgraph.Node   `json:"node"`
	Neighbors []depgraph.Node `json:"neighbors"`
	Edges     []depgraph.Edge `json:"edges"`
}

func (a *API) node(w http.ResponseWriter, r *http.Request) {
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	id := chi.URLParam(r, "id")
	n, neighbors, edges, ok := g.Neighborhood(id)
	if !ok {
		a.respondError(w, http.StatusNotFound, fmt.Sprintf("node %q not in graph", id))
		return
	}
	if neighbors == nil {
		neighbors = []depgraph.Node{}
	}
	if edges == nil {
		edges = []depgraph.Edge{}
	}
	a.respondJSON(w, http.StatusOK, nodeView{Node: n, Neighbors: neighbors, Edges: edges})
}

func (a *API) export(w http.ResponseWriter, r *http.Request) {
	f, err := depgraph.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	data, err := depgraph.Export(g, f)
	if err != nil {
		a.logger.Error("export failed", zap.String("format", string(f)), zap.Error(err))
		a.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	a.audit.LogExport(r.Context(), g.Root.ID, string(f), "http", len(data))

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="depcheck-%s.%s"`, g.Root.ID, f.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type tokenRequest struct {
	Portal            string `json:"portal,omitempty"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	Mode              string `json:"mode,omitempty"`
	Referer           string `json:"referer,omitempty"`
	ExpirationMinutes int    `json:"expirationMinutes,omitempty"`
}

type tokenResponse struct {
	Authenticated bool      `json:"authenticated"`
	Portal        string    `json:"portal"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// requestToken exchanges credentials and keeps the token in the session.
// The password is never echoed or logged.
func (a *API) requestToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		a.respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	mode, err := catalog.ParseTokenMode(req.Mode)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	portal := itemref.EnsurePortal(firstNonEmpty(req.Portal, a.session.Portal()))
	tok, err := a.checker.RequestToken(r.Context(), portal, catalog.TokenRequest{
		Username:   req.Username,
		Password:   req.Password,
		Mode:       mode,
		Referer:    req.Referer,
		Expiration: time.Duration(req.ExpirationMinutes) * time.Minute,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, catalog.ErrTransport) {
			status = http.StatusBadGateway
		}
		a.respondError(w, status, err.Error())
		return
	}

	a.session.SetPortal(portal)
	a.session.SetToken(tok)
	a.respondJSON(w, http.StatusOK, tokenResponse{Authenticated: true, Portal: portal, ExpiresAt: tok.ExpiresAt})
}

func (a *API) clearToken(w http.ResponseWriter, r *http.Request) {
	a.session.ClearToken()
	a.audit.LogTokenClear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) sessionInfo(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.session.Info())
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Reset(); err != nil {
		a.respondError(w, http.StatusConflict, err.Error())
		return
	}
	a.audit.LogSessionReset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) store(w http.ResponseWriter, r *http.Request) {
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	res, err := a.graphs.StoreGraph(r.Context(), g)
	if err != nil {
		a.logger.Error("graph store failed", zap.String("root_id", g.Root.ID), zap.Error(err))
		a.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	a.respondJSON(w, http.StatusOK, res)
}

func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	f, err := depgraph.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	g := a.currentGraph(w)
	if g == nil {
		return
	}
	obj, err := a.uploads.Upload(r.Context(), g, f)
	if err != nil {
		a.logger.Error("upload failed", zap.String("root_id", g.Root.ID), zap.Error(err))
		a.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	a.respondJSON(w, http.StatusCreated, obj)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
