// Package catalogtest serves canned catalog documents from an httptest
// server so that code above the catalog client can be tested without the
// network.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Credentials accepted by the token endpoint.
const (
	Username = "gis_admin"
	Password = "correct-horse"
)

const itemsPath = "/sharing/rest/content/items/"

// Portal is a fake portal. Items marked private answer 499 "Token Required"
// unless the request carries the issued token.
type Portal struct {
	Server *httptest.Server
	// Token is issued by generateToken and unlocks private items.
	Token string

	mu          sync.Mutex
	items       map[string]string
	data        map[string]string
	private     map[string]bool
	privateData map[string]bool
	broken      map[string]bool
	calls       []string
}

// New starts a portal that is closed when t ends.
func New(t testing.TB) *Portal {
	p := &Portal{
		Token:       "issued-token",
		items:       make(map[string]string),
		data:        make(map[string]string),
		private:     make(map[string]bool),
		privateData: make(map[string]bool),
		broken:      make(map[string]bool),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

// URL is the portal base.
func (p *Portal) URL() string { return p.Server.URL }

// AddItem registers item metadata.
func (p *Portal) AddItem(id, title, typ string, keywords ...string) {
	if keywords == nil {
		keywords = []string{}
	}
	doc, _ := json.Marshal(map[string]any{
		"id":           id,
		"title":        title,
		"type":         typ,
		"owner":        "gis_admin",
		"access":       "public",
		"created":      1700000000000,
		"modified":     1700000360000,
		"typeKeywords": keywords,
	})
	p.mu.Lock()
	p.items[id] = string(doc)
	p.mu.Unlock()
}

// SetData registers the configuration payload of id.
func (p *Portal) SetData(id, body string) {
	p.mu.Lock()
	p.data[id] = body
	p.mu.Unlock()
}

// Private requires the token for both metadata and payload of id.
func (p *Portal) Private(id string) {
	p.mu.Lock()
	p.private[id] = true
	p.mu.Unlock()
}

// PrivateData requires the token for the payload of id only.
func (p *Portal) PrivateData(id string) {
	p.mu.Lock()
	p.privateData[id] = true
	p.mu.Unlock()
}

// Broken makes every request for id fail with a server error.
func (p *Portal) Broken(id string) {
	p.mu.Lock()
	p.broken[id] = true
	p.mu.Unlock()
}

// Calls returns the requests served so far as "item <id>", "data <id>" or
// "token".
func (p *Portal) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Portal) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *Portal) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/sharing/rest/generateToken" {
		p.record("token")
		p.generateToken(w, r)
		return
	}
	if !strings.HasPrefix(r.URL.Path, itemsPath) {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, itemsPath)
	id, isData := strings.CutSuffix(rest, "/data")
	if isData {
		p.record("data " + id)
	} else {
		p.record("item " + id)
	}

	p.mu.Lock()
	item, hasItem := p.items[id]
	body, hasData := p.data[id]
	private := p.private[id] || (isData && p.privateData[id])
	broken := p.broken[id]
	p.mu.Unlock()

	switch {
	case broken:
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"Internal server error"}}`)
	case private && r.URL.Query().Get("token") != p.Token:
		fmt.Fprint(w, `{"error":{"code":499,"message":"Token Required","details":[]}}`)
	case !hasItem:
		fmt.Fprint(w, `{"error":{"code":400,"messageCode":"CONT_0001","message":"Item does not exist or is inaccessible.","details":[]}}`)
	case isData && hasData:
		fmt.Fprint(w, body)
	case isData:
		// Items without a payload answer with an empty body.
	default:
		fmt.Fprint(w, item)
	}
}

func (p *Portal) generateToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		fmt.Fprint(w, `{"error":{"code":400,"message":"Unable to generate token.","details":["Invalid username or password."]}}`)
		return
	}
	expires := time.Now().Add(time.Hour).UnixMilli()
	fmt.Fprintf(w, `{"token":%q,"expires":%d,"ssl":true}`, p.Token, expires)
}
