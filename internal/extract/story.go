package extract

import (
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

var (
	storyIDKeys  = []string{"itemId", "mapId", "webmap", "webscene"}
	storyURLKeys = []string{"url", "href", "serviceUrl", "portalUrl"}
)

// Story extracts dependencies from story payloads. The payload may arrive as
// a JSON-encoded string. References back to the story itself are dropped.
type Story struct{}

func (Story) Kind() Kind { return KindStory }

func (Story) Extract(raw *payload.Value, ctx Context) Result {
	p := payload.Unwrap(raw)
	c := newCollector()

	addID := func(id string) {
		if itemref.IsItemID(id) && id != ctx.RootID {
			c.id(id)
		}
	}
	addURL := func(u string) {
		c.url(u)
		if id, ok := itemref.SniffHref(u); ok {
			addID(id)
		}
	}

	for _, v := range payload.Scan(p, storyIDKeys...) {
		if id, ok := idRef(v); ok {
			addID(id)
		}
	}
	for _, u := range payload.ScanStrings(p, storyURLKeys...) {
		if itemref.IsAbsoluteURL(u) {
			addURL(u)
		}
	}

	ds := p.Get("dataSources")
	if !ds.Truthy() {
		ds = p.Path("story", "dataSources")
	}
	for _, entry := range ds.Children() {
		for _, key := range []string{"itemId", "webmap", "webscene"} {
			if id, ok := entry.Value.GetString(key); ok {
				addID(id)
			}
		}
		if u, ok := nonEmptyString(entry.Value, "url"); ok {
			addURL(u)
		}
	}
	return c.result()
}
