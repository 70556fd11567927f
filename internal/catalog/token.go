package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
)

// TokenMode selects what a generated token is bound to.
type TokenMode string

const (
	ModeReferer   TokenMode = "referer"
	ModeRequestIP TokenMode = "requestip"
)

// DefaultExpiration is the token lifetime requested when none is given.
const DefaultExpiration = 60 * time.Minute

// ParseTokenMode accepts "referer" and "requestip", case-insensitively.
func ParseTokenMode(s string) (TokenMode, error) {
	switch TokenMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReferer, "":
		return ModeReferer, nil
	case ModeRequestIP:
		return ModeRequestIP, nil
	default:
		return "", fmt.Errorf("unknown token mode %q (want referer or requestip)", s)
	}
}

// Token is a short-lived credential appended to catalog requests.
type Token struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the token is set and not expired at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && (t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt))
}

// TokenRequest holds the credentials exchanged for a token.
type TokenRequest struct {
	Username   string
	Password   string
	Mode       TokenMode
	Referer    string
	Expiration time.Duration
}

// RequestToken exchanges credentials for a token. The token is not stored on
// the client; call SetToken to use it.
func (c *Client) RequestToken(ctx context.Context, tr TokenRequest) (Token, error) {
	ctx, span := observability.StartCatalogSpan(ctx, opToken, "")
	defer span.End()

	if tr.Username == "" || tr.Password == "" {
		return Token{}, fmt.Errorf("request token: username and password are required")
	}
	mode := tr.Mode
	if mode == "" {
		mode = ModeReferer
	}
	exp := tr.Expiration
	if exp <= 0 {
		exp = DefaultExpiration
	}

	form := url.Values{}
	form.Set("username", tr.Username)
	form.Set("password", tr.Password)
	form.Set("client", string(mode))
	if mode == ModeReferer {
		ref := tr.Referer
		if ref == "" {
			ref = c.referer
		}
		if ref == "" {
			return Token{}, fmt.Errorf("request token: referer mode needs a referer")
		}
		form.Set("referer", ref)
	}
	form.Set("expiration", strconv.Itoa(int(exp/time.Minute)))
	form.Set("f", "json")

	endpoint := c.portal + RESTPath + "/generateToken"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &Error{Kind: KindTransport, Op: opToken, URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issued := time.Now()
	resp, err := c.do(ctx, req)
	if err != nil {
		observability.RecordError(span, err)
		return Token{}, c.fail(opToken, "", resp.elapsed, &Error{Kind: KindTransport, Op: opToken, URL: endpoint, Err: err})
	}
	observability.RecordCatalogStatus(span, resp.status)

	doc, err := classify(opToken, endpoint, resp.status, resp.data, false)
	if err != nil {
		observability.RecordError(span, err)
		return Token{}, c.fail(opToken, "", resp.elapsed, err)
	}
	value, _ := doc.GetString("token")
	if value == "" {
		return Token{}, c.fail(opToken, "", resp.elapsed, &Error{
			Kind: KindMalformed, Op: opToken, URL: endpoint, Status: resp.status,
			Message: "response carries no token",
		})
	}

	tok := Token{Value: value, ExpiresAt: issued.Add(exp)}
	if ms, ok := doc.Get("expires").Float(); ok && ms > 0 {
		tok.ExpiresAt = time.UnixMilli(int64(ms))
	}
	observability.RecordCatalogRequest(opToken, observability.OutcomeOK, resp.elapsed)
	c.logger.Info("token generated",
		zap.String("portal", c.portal),
		zap.String("mode", string(mode)),
		zap.Time("expires_at", tok.ExpiresAt),
	)
	return tok, nil
}
