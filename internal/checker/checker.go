// Package checker wires configuration, the catalog client and the resolver
// into the operations exposed by the CLI, the HTTP surface and the worker.
package checker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/config"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/extract"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/resolver"
)

// Checker builds per-portal catalog clients and runs resolutions.
type Checker struct {
	portal   config.PortalConfig
	catalog  config.CatalogConfig
	http     *http.Client
	registry *extract.Registry
	logger   *zap.Logger
	audit    *observability.AuditLogger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the HTTP client shared by every catalog client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

func WithAuditLogger(a *observability.AuditLogger) Option {
	return func(c *Checker) { c.audit = a }
}

// WithRegistry replaces the default extractor registry.
func WithRegistry(r *extract.Registry) Option {
	return func(c *Checker) { c.registry = r }
}

// New creates a checker from the portal and catalog sections of cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		portal:   cfg.Portal,
		catalog:  cfg.Catalog,
		registry: extract.DefaultRegistry(),
		logger:   zap.NewNop(),
		audit:    observability.Audit(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Catalog.Timeout}
	}
	return c
}

// Target resolves a root input to its item reference and the portal to
// query. portal, when set, wins over the configured portal, which wins over
// the one derived from the input.
func (c *Checker) Target(input, portal string) (itemref.Ref, string, error) {
	ref, err := itemref.Parse(input)
	if err != nil {
		return ref, "", err
	}
	explicit := strings.TrimSpace(portal)
	if explicit == "" {
		explicit = c.portal.URL
	}
	return ref, itemref.ChoosePortal(explicit, ref), nil
}

// Client returns a catalog client for portal holding tok.
func (c *Checker) Client(portal string, tok catalog.Token) *catalog.Client {
	opts := []catalog.Option{
		catalog.WithHTTPClient(c.http),
		catalog.WithLogger(c.logger.Named("catalog")),
		catalog.WithRateLimit(c.catalog.RequestsPerSecond, c.catalog.Burst),
		catalog.WithItemCache(c.catalog.CacheSize),
	}
	if c.catalog.UserAgent != "" {
		opts = append(opts, catalog.WithUserAgent(c.catalog.UserAgent))
	}
	if ref := c.referer(portal); ref != "" {
		opts = append(opts, catalog.WithReferer(ref))
	}
	if tok.Value != "" {
		opts = append(opts, catalog.WithToken(tok))
	}
	return catalog.New(portal, opts...)
}

// Resolve classifies input and crawls its dependencies.
func (c *Checker) Resolve(ctx context.Context, input, portal string, tok catalog.Token) (*resolver.Run, error) {
	ref, base, err := c.Target(input, portal)
	if err != nil {
		return nil, err
	}
	r := resolver.New(c.Client(base, tok),
		resolver.WithRegistry(c.registry),
		resolver.WithLogger(c.logger.Named("resolver")),
		resolver.WithAuditLogger(c.audit),
	)
	return r.Resolve(ctx, ref.ItemID)
}

// Inspection is the dependency set of a single item, extracted without
// crawling.
type Inspection struct {
	Portal string         `json:"portal"`
	Item   catalog.Item   `json:"item"`
	Kind   string         `json:"kind"`
	Result extract.Result `json:"result"`
	// WebMapID is the nested web map of a legacy application.
	WebMapID string `json:"webMapId,omitempty"`

	kind extract.Kind
}

// ItemKind returns the classified kind.
func (i *Inspection) ItemKind() extract.Kind { return i.kind }

// Inspect fetches one item and its payload and runs the matching extractor.
// For a legacy application the result holds its nested web map only.
func (c *Checker) Inspect(ctx context.Context, input, portal string, tok catalog.Token) (*Inspection, error) {
	ref, base, err := c.Target(input, portal)
	if err != nil {
		return nil, err
	}
	client := c.Client(base, tok)

	it, err := client.FetchItem(ctx, ref.ItemID)
	if err != nil {
		return nil, fmt.Errorf("fetch item: %w", err)
	}
	data, err := client.FetchItemData(ctx, ref.ItemID)
	if err != nil {
		return nil, fmt.Errorf("fetch item data: %w", err)
	}

	kind := extract.Classify(it.Type, it.TypeKeywords)
	ins := &Inspection{Portal: base, Item: it, Kind: kind.String(), kind: kind}
	if kind == extract.KindLegacyApp {
		if id, ok := extract.LegacyWebMapID(data); ok {
			ins.WebMapID = id
			ins.Result = extract.Result{ItemIDs: []string{id}}
		}
		return ins, nil
	}
	ins.Result = c.registry.Extract(kind, data, extract.Context{RootID: it.ID})
	return ins, nil
}

// RequestToken exchanges credentials for a token on portal.
func (c *Checker) RequestToken(ctx context.Context, portal string, req catalog.TokenRequest) (catalog.Token, error) {
	base := itemref.EnsurePortal(firstNonEmpty(portal, c.portal.URL))
	if req.Referer == "" {
		req.Referer = c.referer(base)
	}
	if req.Expiration <= 0 {
		req.Expiration = c.portal.Expiration()
	}
	tok, err := c.Client(base, catalog.Token{}).RequestToken(ctx, req)
	c.audit.LogTokenRequest(ctx, base, req.Username, string(req.Mode), err)
	if err != nil {
		return catalog.Token{}, err
	}
	return tok, nil
}

// ConfiguredToken returns the token implied by config: the static token when
// set, otherwise one requested with the configured credentials. Without
// either it returns the zero token.
func (c *Checker) ConfiguredToken(ctx context.Context, portal string) (catalog.Token, error) {
	if c.portal.Token != "" {
		return catalog.Token{Value: c.portal.Token}, nil
	}
	if c.portal.Username == "" {
		return catalog.Token{}, nil
	}
	mode, err := catalog.ParseTokenMode(c.portal.TokenMode)
	if err != nil {
		return catalog.Token{}, err
	}
	return c.RequestToken(ctx, portal, catalog.TokenRequest{
		Username: c.portal.Username,
		Password: c.portal.Password,
		Mode:     mode,
	})
}

// referer is the configured referer, or the portal itself. Tokens issued in
// referer mode are only honoured on requests carrying the same value.
func (c *Checker) referer(portal string) string {
	return firstNonEmpty(c.portal.Referer, portal)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
