package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/metrics"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
)

// ResolveInput names the root to resolve. The token never travels through
// workflow history; the worker uses the token its own config implies.
type ResolveInput struct {
	Input  string
	Portal string
}

// ResolveResult is the serializable outcome of one resolution. On an auth
// abort GraphJSON is empty and Notice, Stage and ItemID are set.
type ResolveResult struct {
	RunID     string
	Kind      string
	GraphJSON string
	Stats     depgraph.Stats
	Metrics   *metrics.RunMetrics

	Notice string
	Stage  string
	ItemID string
}

// NeedsAuth reports whether the run stopped on an item that needs a token.
func (r ResolveResult) NeedsAuth() bool { return r.Notice != "" }

// Graph decodes the resolved graph.
func (r ResolveResult) Graph() (*depgraph.Graph, error) {
	if r.GraphJSON == "" {
		return nil, errors.New("result carries no graph")
	}
	var g depgraph.Graph
	if err := json.Unmarshal([]byte(r.GraphJSON), &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

// Checker is the part of the checker the activity needs.
type Checker interface {
	ConfiguredToken(ctx context.Context, portal string) (catalog.Token, error)
	Resolve(ctx context.Context, input, portal string, tok catalog.Token) (*resolver.Run, error)
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Checker Checker
	Logger  *zap.Logger
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	deps = d
}

// ResolveActivity performs one whole sequential resolution.
func ResolveActivity(ctx context.Context, input ResolveInput) (ResolveResult, error) {
	if deps == nil || deps.Checker == nil {
		return ResolveResult{}, sdktemporal.NewNonRetryableApplicationError("worker has no checker", "Configuration", nil)
	}
	log := deps.Logger.With(zap.String("input", input.Input))

	tok, err := deps.Checker.ConfiguredToken(ctx, input.Portal)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("token: %w", err)
	}

	run, err := deps.Checker.Resolve(ctx, input.Input, input.Portal, tok)
	if err != nil {
		if ae, ok := resolver.AsAuthError(err); ok {
			log.Warn("resolution needs a token", zap.String("stage", string(ae.Stage)), zap.String("item_id", ae.ItemID))
			return ResolveResult{Notice: ae.Notice(), Stage: string(ae.Stage), ItemID: ae.ItemID}, nil
		}
		var ve *itemref.ValidationError
		if errors.As(err, &ve) {
			return ResolveResult{}, sdktemporal.NewNonRetryableApplicationError(ve.Error(), "ValidationError", ve)
		}
		return ResolveResult{}, err
	}

	graphJSON, err := json.Marshal(run.Graph)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("marshal graph: %w", err)
	}
	log.Info("resolution finished", zap.String("run_id", run.ID), zap.Int("items", run.Graph.ItemCount()))
	return ResolveResult{
		RunID:     run.ID,
		Kind:      run.Kind.String(),
		GraphJSON: string(graphJSON),
		Stats:     depgraph.Analyze(run.Graph),
		Metrics:   run.Metrics,
	}, nil
}
