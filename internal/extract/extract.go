// Package extract turns an item's configuration payload into the set of
// item ids and external URLs it depends on. Extractors are pure: they never
// perform I/O.
package extract

import (
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

// Result is a dependency set. Both lists are deduplicated and keep the order
// in which values were first seen.
type Result struct {
	ItemIDs []string `json:"itemIds"`
	URLs    []string `json:"urls"`
}

// Empty reports whether nothing was found.
func (r Result) Empty() bool { return len(r.ItemIDs) == 0 && len(r.URLs) == 0 }

// Context carries what an extractor may need beyond the payload.
type Context struct {
	// RootID is the id of the item whose payload is being scanned.
	RootID string
}

// Extractor produces a dependency set for one item kind.
type Extractor interface {
	Kind() Kind
	Extract(p *payload.Value, ctx Context) Result
}

// collector accumulates an ordered, deduplicated Result.
type collector struct {
	ids     []string
	urls    []string
	seenID  map[string]struct{}
	seenURL map[string]struct{}
}

func newCollector() *collector {
	return &collector{
		seenID:  make(map[string]struct{}),
		seenURL: make(map[string]struct{}),
	}
}

func (c *collector) id(s string) {
	if s == "" {
		return
	}
	if _, ok := c.seenID[s]; ok {
		return
	}
	c.seenID[s] = struct{}{}
	c.ids = append(c.ids, s)
}

func (c *collector) url(s string) {
	if s == "" {
		return
	}
	if _, ok := c.seenURL[s]; ok {
		return
	}
	c.seenURL[s] = struct{}{}
	c.urls = append(c.urls, s)
}

func (c *collector) result() Result {
	return Result{ItemIDs: c.ids, URLs: c.urls}
}

// idRef returns the item id carried by a scanned value: either the string
// itself or, for an object, its own "id" member. Only valid ids are returned.
func idRef(v *payload.Value) (string, bool) {
	if s, ok := v.Str(); ok {
		return s, itemref.IsItemID(s)
	}
	if v.Kind() == payload.Object {
		if s, ok := v.GetString("id"); ok && itemref.IsItemID(s) {
			return s, true
		}
	}
	return "", false
}

// nonEmptyString returns the string member key when it is present and not
// empty.
func nonEmptyString(v *payload.Value, key string) (string, bool) {
	s, ok := v.GetString(key)
	return s, ok && s != ""
}
