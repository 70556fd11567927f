package catalog

import "time"

const (
	placeholderTitle = "(inaccessible)"
	placeholderType  = "Unknown"
	placeholderOwner = "—"
)

// Item is the metadata of one catalog item. Created and Modified are epoch
// milliseconds as reported by the catalog.
type Item struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Type         string   `json:"type" yaml:"type"`
	Owner        string   `json:"owner" yaml:"owner"`
	Access       string   `json:"access" yaml:"access"`
	Created      int64    `json:"created" yaml:"created"`
	Modified     int64    `json:"modified" yaml:"modified"`
	TypeKeywords []string `json:"typeKeywords" yaml:"typeKeywords"`
	ServiceURL   string   `json:"serviceUrl,omitempty" yaml:"serviceUrl,omitempty"`
}

// Placeholder stands in for an item whose metadata could not be fetched.
func Placeholder(id string) Item {
	return Item{
		ID:           id,
		Title:        placeholderTitle,
		Type:         placeholderType,
		Owner:        placeholderOwner,
		TypeKeywords: []string{},
	}
}

// IsPlaceholder reports whether it was produced by Placeholder.
func (it Item) IsPlaceholder() bool {
	return it.Title == placeholderTitle && it.Type == placeholderType
}

// CreatedAt returns the creation time, or the zero time when unknown.
func (it Item) CreatedAt() time.Time { return msTime(it.Created) }

// ModifiedAt returns the modification time, or the zero time when unknown.
func (it Item) ModifiedAt() time.Time { return msTime(it.Modified) }

func msTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// wireItem is the metadata document as served by the catalog, where the
// service URL is named "url".
type wireItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Owner        string   `json:"owner"`
	Access       string   `json:"access"`
	Created      float64  `json:"created"`
	Modified     float64  `json:"modified"`
	TypeKeywords []string `json:"typeKeywords"`
	URL          *string  `json:"url"`
}

func (w wireItem) item(id string) Item {
	it := Item{
		ID:           id,
		Title:        w.Title,
		Type:         w.Type,
		Owner:        w.Owner,
		Access:       w.Access,
		Created:      int64(w.Created),
		Modified:     int64(w.Modified),
		TypeKeywords: w.TypeKeywords,
	}
	if it.TypeKeywords == nil {
		it.TypeKeywords = []string{}
	}
	if w.URL != nil {
		it.ServiceURL = *w.URL
	}
	return it
}
