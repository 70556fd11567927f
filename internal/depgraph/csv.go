package depgraph

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
)

// CSVHeader lists the columns of the tabular export.
var CSVHeader = []string{
	"NodeType", "Title", "Type", "ItemID", "Owner", "Access", "Portal",
	"ItemURL", "RESTURL", "ServiceURL", "ParentIDs", "ParentTitles",
	"CreatedISO", "ModifiedISO", "TypeKeywords",
}

// Row is one line of the tabular export.
type Row struct {
	NodeType     string
	Title        string
	Type         string
	ItemID       string
	Owner        string
	Access       string
	Portal       string
	ItemURL      string
	RESTURL      string
	ServiceURL   string
	ParentIDs    []string
	ParentTitles []string
	CreatedISO   string
	ModifiedISO  string
	TypeKeywords []string
}

func (r Row) record() []string {
	return []string{
		r.NodeType, r.Title, r.Type, r.ItemID, r.Owner, r.Access, r.Portal,
		r.ItemURL, r.RESTURL, r.ServiceURL,
		strings.Join(r.ParentIDs, ";"), strings.Join(r.ParentTitles, ";"),
		r.CreatedISO, r.ModifiedISO, strings.Join(r.TypeKeywords, ";"),
	}
}

// Rows builds the tabular export: one row per item, root first, then one row
// per URL. URLs without recorded parents are attributed to the root.
func Rows(g *Graph) []Row {
	parents := Parents(g)
	portal := StripScheme(g.Portal)
	titles := func(ids []string) []string {
		var out []string
		for _, id := range ids {
			if it, ok := g.Item(id); ok && it.Title != "" {
				out = append(out, it.Title)
			}
		}
		return out
	}

	items := append([]catalog.Item{g.Root}, g.Discovered...)
	rows := make([]Row, 0, len(items)+len(g.URLs))
	for _, it := range items {
		pids := parents[it.ID]
		rows = append(rows, Row{
			NodeType:     "Item",
			Title:        it.Title,
			Type:         it.Type,
			ItemID:       it.ID,
			Owner:        it.Owner,
			Access:       it.Access,
			Portal:       portal,
			ItemURL:      g.Portal + "/home/item.html?id=" + it.ID,
			RESTURL:      restURL(g.Portal, it),
			ServiceURL:   it.ServiceURL,
			ParentIDs:    pids,
			ParentTitles: titles(pids),
			CreatedISO:   isoTime(it.CreatedAt()),
			ModifiedISO:  isoTime(it.ModifiedAt()),
			TypeKeywords: it.TypeKeywords,
		})
	}
	for i, u := range g.URLs {
		pids := parents[URLNodeID(i)]
		if len(pids) == 0 {
			pids = []string{g.Root.ID}
		}
		rows = append(rows, Row{
			NodeType:     "URL",
			Title:        truncate(StripScheme(u), 80),
			Type:         "URL",
			Portal:       portal,
			ServiceURL:   u,
			ParentIDs:    pids,
			ParentTitles: titles(pids),
		})
	}
	return rows
}

// ExportCSV renders Rows with a header line.
func ExportCSV(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, r := range Rows(g) {
		if err := w.Write(r.record()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// hasPayload reports whether items of type t carry a configuration payload
// worth linking to instead of their metadata.
func hasPayload(t string) bool {
	x := strings.ToLower(t)
	for _, k := range []string{"web map", "dashboard", "experience", "story", "web mapping application"} {
		if strings.Contains(x, k) {
			return true
		}
	}
	return false
}

func restURL(portal string, it catalog.Item) string {
	base := portal + catalog.RESTPath + "/content/items/" + it.ID
	if hasPayload(it.Type) {
		return base + "/data?f=pjson"
	}
	return base + "?f=pjson"
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
