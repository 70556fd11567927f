package catalog

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

// ErrorKind classifies a failed catalog call.
type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindAPI
	KindAuthRequired
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api error"
	case KindAuthRequired:
		return "auth required"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

func (k ErrorKind) outcome() string {
	switch k {
	case KindAuthRequired:
		return observability.OutcomeAuthRequired
	case KindAPI:
		return observability.OutcomeAPIError
	case KindMalformed:
		return observability.OutcomeMalformed
	default:
		return observability.OutcomeTransport
	}
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrTransport    = &Error{Kind: KindTransport}
	ErrAPI          = &Error{Kind: KindAPI}
	ErrAuthRequired = &Error{Kind: KindAuthRequired}
	ErrMalformed    = &Error{Kind: KindMalformed}
)

// Error is a classified catalog failure. URL never carries the token.
type Error struct {
	Kind    ErrorKind
	Op      string
	URL     string
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("catalog: %s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("catalog %s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	authMessage     = regexp.MustCompile(`(?i)token required|not authorized|forbidden`)
	restAuthMessage = regexp.MustCompile(`(?i)token|authorized`)
)

// classify inspects a completed HTTP exchange and returns the decoded body
// when the exchange succeeded. With allowEmpty, an empty successful body
// decodes to null instead of failing as malformed.
func classify(op, rawURL string, status int, body []byte, allowEmpty bool) (*payload.Value, error) {
	doc, perr := payload.Parse(body)
	env := doc.Get("error")
	code := errorCode(env.Get("code"))
	msg, _ := env.GetString("message")

	if status < 200 || status > 299 || code == 498 || code == 499 {
		if msg == "" {
			msg = fmt.Sprintf("%d %s", status, http.StatusText(status))
		}
		kind := KindAPI
		if status == 403 || code == 498 || code == 499 || authMessage.MatchString(msg) {
			kind = KindAuthRequired
		}
		return nil, &Error{Kind: kind, Op: op, URL: rawURL, Status: status, Code: code, Message: msg}
	}
	if env.Truthy() {
		if msg == "" {
			msg = "REST error"
		}
		kind := KindAPI
		if restAuthMessage.MatchString(msg) {
			kind = KindAuthRequired
		}
		return nil, &Error{Kind: kind, Op: op, URL: rawURL, Status: status, Code: code, Message: msg}
	}
	if perr != nil && allowEmpty && len(bytes.TrimSpace(body)) == 0 {
		return &payload.Value{}, nil
	}
	if perr != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, URL: rawURL, Status: status, Message: "unexpected non-JSON response", Err: perr}
	}
	return doc, nil
}

// errorCode reads a REST error code, which portals send as a number or as a
// numeric string.
func errorCode(v *payload.Value) int {
	switch v.Kind() {
	case payload.Number:
		f, _ := v.Float()
		return int(f)
	case payload.String:
		s, _ := v.Str()
		n, _ := strconv.Atoi(s)
		return n
	default:
		return 0
	}
}

// redact removes the token query parameter from a request URL.
func redact(u *url.URL) string {
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
