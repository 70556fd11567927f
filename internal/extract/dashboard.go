package extract

import "github.com/cmesserich-br/ago-dependency-checker-app/internal/payload"

// Dashboard collects every string found under an itemId key anywhere in the
// payload. Dashboards reference services through their data sources only, so
// no URLs are reported.
type Dashboard struct{}

func (Dashboard) Kind() Kind { return KindDashboard }

func (Dashboard) Extract(p *payload.Value, _ Context) Result {
	c := newCollector()
	for _, id := range payload.ScanStrings(p, "itemId") {
		c.id(id)
	}
	return c.result()
}
