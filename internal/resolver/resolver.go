// Package resolver crawls an item's dependencies: it reads the root item and
// its payload, follows the ids the payload references for one level, and
// deepens once more through any web maps it found.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/extract"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/metrics"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

// Catalog is the subset of the catalog client a run needs.
type Catalog interface {
	Portal() string
	FetchItem(ctx context.Context, id string) (catalog.Item, error)
	FetchItemData(ctx context.Context, id string) (*payload.Value, error)
}

// Resolver runs resolutions against one catalog. Fetches are issued one at a
// time so discovered items keep their discovery order.
type Resolver struct {
	catalog  Catalog
	registry *extract.Registry
	logger   *zap.Logger
	audit    *observability.AuditLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry replaces the default extractor registry.
func WithRegistry(r *extract.Registry) Option {
	return func(res *Resolver) { res.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(res *Resolver) { res.logger = l }
}

// WithAuditLogger sets where run events are audited.
func WithAuditLogger(a *observability.AuditLogger) Option {
	return func(res *Resolver) { res.audit = a }
}

// New creates a resolver reading from c.
func New(c Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:  c,
		registry: extract.DefaultRegistry(),
		logger:   zap.NewNop(),
		audit:    observability.Audit(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run is a completed resolution.
type Run struct {
	ID      string              `json:"id"`
	Kind    extract.Kind        `json:"-"`
	Graph   *depgraph.Graph     `json:"graph"`
	Metrics *metrics.RunMetrics `json:"metrics"`
}

// Resolve builds the dependency graph of rootID. A run that hits an item
// needing authentication returns an *AuthError and no graph.
func (r *Resolver) Resolve(ctx context.Context, rootID string) (*Run, error) {
	if !itemref.IsItemID(rootID) {
		observability.RecordResolveRun(observability.OutcomeInvalid, 0, 0)
		return nil, &itemref.ValidationError{Input: rootID, Reason: "not a 32-character hexadecimal item id"}
	}

	portal := r.catalog.Portal()
	ctx, span := observability.StartResolveSpan(ctx, rootID, portal)
	defer span.End()

	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID), zap.String("item_id", rootID))
	c := &crawl{
		Resolver: r,
		runID:    runID,
		rootID:   rootID,
		log:      log,
		m:        metrics.New(rootID, portal),
	}
	r.audit.LogRunStart(ctx, c.runID, rootID, portal)

	g, err := c.run(ctx)
	if err != nil {
		observability.RecordError(span, err)
		outcome := outcomeOf(err)
		c.m.Finish(outcome, []string{err.Error()})
		observability.RecordResolveRun(outcome, c.m.Duration, 0)
		if ae, ok := AsAuthError(err); ok {
			log.Warn("run needs authentication", zap.String("stage", string(ae.Stage)), zap.Error(err))
			r.audit.LogRunAuthRequired(ctx, c.runID, rootID, string(ae.Stage), ae.Notice())
		} else {
			log.Error("run failed", zap.Error(err))
			r.audit.LogRunError(ctx, c.runID, rootID, err)
		}
		return nil, err
	}

	c.m.CollectGraph(g)
	c.m.Finish(observability.OutcomeOK, nil)
	observability.RecordResolveRun(observability.OutcomeOK, c.m.Duration, len(g.Discovered))
	observability.RecordResolveResult(span, len(g.Discovered), len(g.Edges), len(g.URLs), c.m.Graph.Placeholders)
	r.audit.LogRunComplete(ctx, c.runID, rootID, c.m.Duration, len(g.Discovered), len(g.Edges), len(g.URLs))
	log.Info("run complete",
		zap.String("kind", c.kind.String()),
		zap.Int("discovered", len(g.Discovered)),
		zap.Int("placeholders", c.m.Graph.Placeholders),
		zap.Int("edges", len(g.Edges)),
		zap.Int("urls", len(g.URLs)),
		zap.Int("fetches", c.m.Total()),
		zap.Duration("duration", c.m.Duration),
	)
	return &Run{ID: c.runID, Kind: c.kind, Graph: g, Metrics: c.m}, nil
}

// crawl holds the state of one run.
type crawl struct {
	*Resolver
	runID  string
	rootID string
	kind   extract.Kind
	log    *zap.Logger
	m      *metrics.RunMetrics
}

func (c *crawl) run(ctx context.Context) (*depgraph.Graph, error) {
	start, fetched := time.Now(), c.m.Total()

	item, err := c.fetchItem(ctx, c.rootID)
	if err != nil {
		if ae := authAbort(StageRootItem, c.rootID, err); ae != nil {
			return nil, ae
		}
		return nil, fmt.Errorf("fetch root item: %w", err)
	}
	item.ID = c.rootID
	c.kind = extract.Classify(item.Type, item.TypeKeywords)
	c.m.Kind = c.kind.String()
	g := depgraph.New(item, c.catalog.Portal())

	data, err := c.fetchData(ctx, c.rootID)
	if err != nil {
		if ae := authAbort(StageRootData, c.rootID, err); ae != nil {
			return nil, ae
		}
		return nil, fmt.Errorf("fetch root payload: %w", err)
	}
	c.m.AddStage("root", time.Since(start), c.m.Total()-fetched)

	start, fetched = time.Now(), c.m.Total()
	found, err := c.expand(ctx, g, data)
	if err != nil {
		return nil, err
	}
	if err := c.fetchDependents(ctx, g, found.ItemIDs, StageDependent); err != nil {
		return nil, err
	}
	c.m.AddStage("dependents", time.Since(start), c.m.Total()-fetched)

	start, fetched = time.Now(), c.m.Total()
	if err := c.deepen(ctx, g); err != nil {
		return nil, err
	}
	c.m.AddStage("deepen", time.Since(start), c.m.Total()-fetched)
	return g, nil
}

// expand runs the root's extractor and records root edges and URLs. Legacy
// applications are followed through their web map instead.
func (c *crawl) expand(ctx context.Context, g *depgraph.Graph, data *payload.Value) (extract.Result, error) {
	if c.kind != extract.KindLegacyApp {
		found := c.extract(ctx, c.kind, c.rootID, data)
		for _, id := range found.ItemIDs {
			g.AddEdge(c.rootID, id)
		}
		g.AddURLs(found.URLs...)
		return found, nil
	}

	mapID, ok := extract.LegacyWebMapID(data)
	if !ok {
		c.log.Debug("legacy application has no web map")
		return extract.Result{}, nil
	}
	g.AddEdge(c.rootID, mapID)
	mapData, err := c.fetchData(ctx, mapID)
	if err != nil {
		if ae := authAbort(StageWebMap, mapID, err); ae != nil {
			return extract.Result{}, ae
		}
		return extract.Result{}, fmt.Errorf("fetch web map %s payload: %w", mapID, err)
	}
	inner := c.extract(ctx, extract.KindWebMap, mapID, mapData)
	for _, id := range inner.ItemIDs {
		g.AddEdge(mapID, id)
	}
	g.AddURLs(inner.URLs...)

	ids := []string{mapID}
	for _, id := range inner.ItemIDs {
		if id != mapID {
			ids = append(ids, id)
		}
	}
	return extract.Result{ItemIDs: ids, URLs: inner.URLs}, nil
}

// fetchDependents reads the metadata of each id not yet in the graph. Items
// that cannot be read become placeholders unless the failure needs
// authentication, which aborts the run at stage.
func (c *crawl) fetchDependents(ctx context.Context, g *depgraph.Graph, ids []string, stage Stage) error {
	for _, id := range ids {
		if g.HasItem(id) {
			continue
		}
		it, err := c.fetchItem(ctx, id)
		if err != nil {
			if ae := authAbort(stage, id, err); ae != nil {
				return ae
			}
			c.log.Warn("dependent item unreadable, using placeholder",
				zap.String("dependency_id", id),
				zap.Error(err),
			)
			observability.RecordPlaceholder()
			it = catalog.Placeholder(id)
		}
		it.ID = id
		g.AddDiscovered(it)
	}
	return nil
}

// deepen follows each web map found among the root's direct dependencies one
// more hop. Items it adds are not themselves followed. The web map of a legacy
// application is read again here, so its edges and URLs appear twice.
func (c *crawl) deepen(ctx context.Context, g *depgraph.Graph) error {
	var maps []string
	for _, it := range g.Discovered {
		if extract.Classify(it.Type, it.TypeKeywords) == extract.KindWebMap {
			maps = append(maps, it.ID)
		}
	}

	for _, mapID := range maps {
		data, err := c.fetchData(ctx, mapID)
		if err != nil {
			if ae := authAbort(StageWebMap, mapID, err); ae != nil {
				return ae
			}
			c.log.Warn("web map payload unreadable, not deepening",
				zap.String("web_map_id", mapID),
				zap.Error(err),
			)
			continue
		}
		c.m.Graph.DeepenedMaps++
		inner := c.extract(ctx, extract.KindWebMap, mapID, data)
		for _, id := range inner.ItemIDs {
			g.AddEdge(mapID, id)
		}
		g.AddURLs(inner.URLs...)
		if err := c.fetchDependents(ctx, g, inner.ItemIDs, StageLayer); err != nil {
			return err
		}
	}
	return nil
}

func (c *crawl) extract(ctx context.Context, kind extract.Kind, itemID string, data *payload.Value) extract.Result {
	_, span := observability.StartExtractSpan(ctx, kind.String(), itemID)
	defer span.End()
	res := c.registry.Extract(kind, data, extract.Context{RootID: c.rootID})
	observability.RecordExtractResult(span, len(res.ItemIDs), len(res.URLs))
	c.log.Debug("extracted",
		zap.String("kind", kind.String()),
		zap.String("source_id", itemID),
		zap.Int("item_ids", len(res.ItemIDs)),
		zap.Int("urls", len(res.URLs)),
	)
	return res
}

func (c *crawl) fetchItem(ctx context.Context, id string) (catalog.Item, error) {
	it, err := c.catalog.FetchItem(ctx, id)
	c.m.CountItem(err != nil, errors.Is(err, catalog.ErrAuthRequired))
	return it, err
}

func (c *crawl) fetchData(ctx context.Context, id string) (*payload.Value, error) {
	p, err := c.catalog.FetchItemData(ctx, id)
	c.m.CountPayload(err != nil, errors.Is(err, catalog.ErrAuthRequired))
	return p, err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, catalog.ErrAuthRequired):
		return observability.OutcomeAuthRequired
	case errors.Is(err, catalog.ErrAPI):
		return observability.OutcomeAPIError
	case errors.Is(err, catalog.ErrMalformed):
		return observability.OutcomeMalformed
	case errors.Is(err, catalog.ErrTransport):
		return observability.OutcomeTransport
	default:
		return observability.OutcomeAPIError
	}
}
