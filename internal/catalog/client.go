// Package catalog is a client for the content catalog REST API: item
// metadata, item configuration payloads and token generation.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

// RESTPath is appended to the portal base for every API call.
const RESTPath = "/sharing/rest"

const (
	opItem  = "item"
	opData  = "data"
	opToken = "token"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Client talks to one portal. It is safe for concurrent use, though the
// resolver only ever issues one request at a time.
type Client struct {
	portal    string
	http      *http.Client
	logger    *zap.Logger
	limiter   *rate.Limiter
	cache     *lru.Cache[string, Item]
	userAgent string
	referer   string

	mu    sync.RWMutex
	token Token
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithToken starts the client with a token already held.
func WithToken(t Token) Option {
	return func(c *Client) { c.token = t }
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithItemCache keeps up to size item metadata documents in memory.
func WithItemCache(size int) Option {
	return func(c *Client) {
		if size <= 0 {
			c.cache = nil
			return
		}
		cache, err := lru.New[string, Item](size)
		if err == nil {
			c.cache = cache
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithReferer sets the Referer header sent with every request. Tokens
// generated in referer mode are only honoured with a matching header.
func WithReferer(ref string) Option {
	return func(c *Client) { c.referer = ref }
}

// New creates a client for portal. An empty portal means the default portal.
func New(portal string, opts ...Option) *Client {
	c := &Client{
		portal:    itemref.EnsurePortal(portal),
		http:      &http.Client{Timeout: 60 * time.Second},
		logger:    zap.NewNop(),
		userAgent: "depcheck/0.1",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Portal returns the normalized portal base.
func (c *Client) Portal() string { return c.portal }

// Token returns the token currently held.
func (c *Client) Token() Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the held token. Cached metadata is dropped because
// visibility depends on the token.
func (c *Client) SetToken(t Token) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
	if c.cache != nil {
		c.cache.Purge()
	}
}

// ClearToken drops the held token.
func (c *Client) ClearToken() { c.SetToken(Token{}) }

// ItemURL is the metadata endpoint for id.
func (c *Client) ItemURL(id string) string {
	return c.portal + RESTPath + "/content/items/" + url.PathEscape(id)
}

// DataURL is the configuration payload endpoint for id.
func (c *Client) DataURL(id string) string {
	return c.ItemURL(id) + "/data"
}

// FetchItem returns the metadata of item id.
func (c *Client) FetchItem(ctx context.Context, id string) (Item, error) {
	if c.cache != nil {
		if it, ok := c.cache.Get(id); ok {
			observability.RecordCatalogRequest(opItem, observability.OutcomeCacheHit, 0)
			return it, nil
		}
	}

	body, reqURL, err := c.get(ctx, opItem, id, c.ItemURL(id))
	if err != nil {
		return Item{}, err
	}
	doc, err := classify(opItem, reqURL, body.status, body.data, false)
	if err != nil {
		return Item{}, c.fail(opItem, id, body.elapsed, err)
	}
	if doc.Kind() != payload.Object {
		return Item{}, c.fail(opItem, id, body.elapsed, &Error{
			Kind: KindMalformed, Op: opItem, URL: reqURL, Status: body.status,
			Message: fmt.Sprintf("item document is %s, not an object", doc.Kind()),
		})
	}

	var w wireItem
	if err := json.Unmarshal(body.data, &w); err != nil {
		return Item{}, c.fail(opItem, id, body.elapsed, &Error{
			Kind: KindMalformed, Op: opItem, URL: reqURL, Status: body.status,
			Message: "decode item document", Err: err,
		})
	}
	it := w.item(id)
	observability.RecordCatalogRequest(opItem, observability.OutcomeOK, body.elapsed)
	if c.cache != nil {
		c.cache.Add(id, it)
	}
	return it, nil
}

// FetchItemData returns the configuration payload of item id. Items without
// a payload yield a null value.
func (c *Client) FetchItemData(ctx context.Context, id string) (*payload.Value, error) {
	body, reqURL, err := c.get(ctx, opData, id, c.DataURL(id))
	if err != nil {
		return nil, err
	}
	doc, err := classify(opData, reqURL, body.status, body.data, true)
	if err != nil {
		return nil, c.fail(opData, id, body.elapsed, err)
	}
	observability.RecordCatalogRequest(opData, observability.OutcomeOK, body.elapsed)
	return doc, nil
}

type response struct {
	status  int
	data    []byte
	elapsed time.Duration
}

// get performs a GET with f=json and the held token. Transport failures are
// returned already classified; the caller classifies the response itself.
func (c *Client) get(ctx context.Context, op, id, endpoint string) (response, string, error) {
	ctx, span := observability.StartCatalogSpan(ctx, op, id)
	defer span.End()

	u, err := url.Parse(endpoint)
	if err != nil {
		return response{}, endpoint, &Error{Kind: KindTransport, Op: op, URL: endpoint, Err: err}
	}
	q := u.Query()
	q.Set("f", "json")
	if tok := c.Token(); tok.Value != "" {
		q.Set("token", tok.Value)
	}
	u.RawQuery = q.Encode()
	safeURL := redact(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return response{}, safeURL, &Error{Kind: KindTransport, Op: op, URL: safeURL, Err: err}
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = safeURL
		}
		observability.RecordError(span, err)
		cerr := &Error{Kind: KindTransport, Op: op, URL: safeURL, Err: err}
		return response{}, safeURL, c.fail(op, id, resp.elapsed, cerr)
	}
	observability.RecordCatalogStatus(span, resp.status)
	return resp, safeURL, nil
}

// do sends req after waiting for the limiter and reads the whole body.
func (c *Client) do(ctx context.Context, req *http.Request) (response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, err
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return response{elapsed: time.Since(start)}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return response{elapsed: elapsed}, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("catalog request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", elapsed),
	)
	return response{status: resp.StatusCode, data: data, elapsed: elapsed}, nil
}

// fail records a classified failure and returns it unchanged.
func (c *Client) fail(op, id string, elapsed time.Duration, err error) error {
	kind := KindTransport
	if ce, ok := err.(*Error); ok {
		kind = ce.Kind
	}
	observability.RecordCatalogRequest(op, kind.outcome(), elapsed)
	c.logger.Debug("catalog request failed",
		zap.String("op", op),
		zap.String("item_id", id),
		zap.Stringer("kind", kind),
		zap.Error(err),
	)
	return err
}
