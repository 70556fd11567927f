// Package neo4j stores dependency graphs in Neo4j as (:Item), (:Service) and
// (:Resolution) nodes joined by USES, REFERENCES and ROOT relationships.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/config"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/graphstore"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
)

const (
	mergeItems = `UNWIND $items AS it
MERGE (i:Item {id: it.id})
SET i += it`

	mergeServices = `UNWIND $urls AS u
MERGE (s:Service {url: u.url})
SET s.label = u.label`

	mergeUses = `UNWIND $uses AS e
MATCH (a:Item {id: e.source})
MATCH (b:Item {id: e.target})
MERGE (a)-[:USES]->(b)`

	mergeReferences = `UNWIND $references AS e
MATCH (a:Item {id: e.source})
MATCH (s:Service {url: e.url})
MERGE (a)-[:REFERENCES]->(s)`

	mergeResolution = `MATCH (root:Item {id: $root})
MERGE (r:Resolution {rootId: $root, portal: $portal})
SET r.storedAt = datetime(), r.items = $itemCount, r.urls = $urlCount
MERGE (r)-[:ROOT]->(root)`
)

// Store implements graphstore.Store using Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
	audit    *observability.AuditLogger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithAuditLogger(a *observability.AuditLogger) Option {
	return func(s *Store) { s.audit = a }
}

// New connects to the database described by cfg and verifies connectivity.
func New(ctx context.Context, cfg config.Neo4jConfig, opts ...Option) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	s := &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   zap.NewNop(),
		audit:    observability.Audit(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// StoreGraph merges g in a single write transaction.
func (s *Store) StoreGraph(ctx context.Context, g *depgraph.Graph) (graphstore.Result, error) {
	b := graphstore.NewBatch(g)
	res := b.Result()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			name   string
			cypher string
			params map[string]any
		}{
			{"items", mergeItems, map[string]any{"items": b.Items}},
			{"services", mergeServices, map[string]any{"urls": b.URLs}},
			{"uses", mergeUses, map[string]any{"uses": b.Uses}},
			{"references", mergeReferences, map[string]any{"references": b.References}},
			{"resolution", mergeResolution, map[string]any{
				"root":      b.RootID,
				"portal":    b.Portal,
				"itemCount": res.Items,
				"urlCount":  res.URLs,
			}},
		}
		for _, st := range steps {
			result, err := tx.Run(ctx, st.cypher, st.params)
			if err != nil {
				return nil, fmt.Errorf("merge %s: %w", st.name, err)
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, fmt.Errorf("merge %s: %w", st.name, err)
			}
		}
		return nil, nil
	})
	s.audit.LogGraphStore(ctx, b.RootID, res.Nodes(), res.Edges, err)
	if err != nil {
		return graphstore.Result{}, fmt.Errorf("store graph %s: %w", b.RootID, err)
	}

	s.logger.Info("graph stored",
		zap.String("root_id", b.RootID),
		zap.Int("items", res.Items),
		zap.Int("urls", res.URLs),
		zap.Int("edges", res.Edges),
	)
	return res, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

var _ graphstore.Store = (*Store)(nil)
