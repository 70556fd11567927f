package extract

import (
	"regexp"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"
)

var mapSourceType = regexp.MustCompile(`(?i)web_?map|web_?scene`)

// Experience extracts dependencies from builder-assembled application
// payloads. It reads the declared data sources and map views, then repeats
// the generic scans over the whole document because builder configs nest
// references in widget settings that have no fixed shape.
type Experience struct{}

func (Experience) Kind() Kind { return KindExperience }

func (Experience) Extract(raw *payload.Value, _ Context) Result {
	p := payload.Unwrap(raw)
	c := newCollector()

	for _, entry := range experienceDataSources(p).Children() {
		d := entry.Value
		if id, ok := nonEmptyString(d, "itemId"); ok {
			c.id(id)
		}
		if id, ok := nonEmptyString(d, "sourceMapId"); ok {
			c.id(id)
		}
		if u, ok := nonEmptyString(d, "url"); ok {
			c.url(u)
		}
		if t, ok := d.GetString("type"); ok && mapSourceType.MatchString(t) {
			if id, ok := nonEmptyString(d, "itemId"); ok {
				c.id(id)
			}
		}
	}

	for _, view := range p.Path("appConfig", "mapViews").Elems() {
		if id, ok := nonEmptyString(view, "mapId"); ok {
			c.id(id)
		}
	}

	for _, v := range payload.Scan(p, "itemId", "mapId") {
		if id, ok := idRef(v); ok {
			c.id(id)
		}
	}
	for _, v := range payload.Scan(p, "webmap", "webscene") {
		if id, ok := idRef(v); ok {
			c.id(id)
		}
	}
	for _, u := range payload.ScanStrings(p, "url", "serviceUrl", "portalUrl") {
		if itemref.IsAbsoluteURL(u) {
			c.url(u)
		}
	}
	return c.result()
}

// experienceDataSources returns the first truthy of dataSources,
// appConfig.dataSources and config.dataSources.
func experienceDataSources(p *payload.Value) *payload.Value {
	for _, path := range [][]string{
		{"dataSources"},
		{"appConfig", "dataSources"},
		{"config", "dataSources"},
	} {
		if ds := p.Path(path...); ds.Truthy() {
			return ds
		}
	}
	return nil
}
