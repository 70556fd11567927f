package extract

import "github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"

// WebMap collects operational layer item ids and service URLs, plus the item
// ids of each layer's sub-layers and tables. It does not descend further.
type WebMap struct{}

func (WebMap) Kind() Kind { return KindWebMap }

func (WebMap) Extract(p *payload.Value, _ Context) Result {
	c := newCollector()
	for _, layer := range p.Get("operationalLayers").Elems() {
		if id, ok := nonEmptyString(layer, "itemId"); ok {
			c.id(id)
		}
		if u, ok := nonEmptyString(layer, "url"); ok {
			c.url(u)
		}
		for _, sub := range layer.Get("layers").Elems() {
			if id, ok := nonEmptyString(sub, "itemId"); ok {
				c.id(id)
			}
		}
		for _, tbl := range layer.Get("tables").Elems() {
			if id, ok := nonEmptyString(tbl, "itemId"); ok {
				c.id(id)
			}
		}
	}
	return c.result()
}

// LegacyWebMapID returns the web map a legacy map application is built on,
// read from the payload's map.itemId.
func LegacyWebMapID(p *payload.Value) (string, bool) {
	return nonEmptyString(p.Get("map"), "itemId")
}
