package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/catalog"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
)

const rootID = "abcdefabcdefabcdefabcdefabcdef12"

func sampleGraph() *depgraph.Graph {
	g := depgraph.New(catalog.Item{ID: rootID, Title: "Root Map", Type: "Web Map"}, "https://www.arcgis.com")
	g.AddURLs("https://services.example.org/arcgis/rest/services/Roads/MapServer")
	return g
}

type failingStore struct{ *MemoryStore }

func (failingStore) Put(context.Context, string, string, []byte) error {
	return errors.New("bucket is read-only")
}

func TestUploader_Upload(t *testing.T) {
	store := NewMemoryStore()
	var audit bytes.Buffer
	u := NewUploader(store, "exports/", WithAuditLogger(observability.NewAuditLoggerTo(&audit, "s1")))
	u.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	obj, err := u.Upload(context.Background(), sampleGraph(), depgraph.FormatCSV)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	wantKey := "exports/" + rootID + "/20260301T123000Z.csv"
	if obj.Key != wantKey {
		t.Fatalf("key = %q, want %q", obj.Key, wantKey)
	}
	if obj.URL != "memory://"+wantKey {
		t.Fatalf("url = %q", obj.URL)
	}
	if obj.ContentType != "text/csv; charset=utf-8" || store.ContentType(wantKey) != obj.ContentType {
		t.Fatalf("content type = %q / %q", obj.ContentType, store.ContentType(wantKey))
	}

	data, err := store.Get(context.Background(), wantKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(data) != obj.Size || !strings.Contains(string(data), "Root Map") {
		t.Fatalf("stored %d bytes, object says %d", len(data), obj.Size)
	}

	var ev map[string]any
	if err := json.Unmarshal(audit.Bytes(), &ev); err != nil {
		t.Fatalf("audit line: %v", err)
	}
	if ev["event_type"] != "artifact.upload" {
		t.Fatalf("audit event = %v", ev["event_type"])
	}
}

func TestUploader_PutFailure(t *testing.T) {
	u := NewUploader(failingStore{NewMemoryStore()}, "")
	_, err := u.Upload(context.Background(), sampleGraph(), depgraph.FormatJSON)
	if err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("expected put failure, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "  ", "text/plain", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = s.Put(ctx, "/b/1.json", "application/json", []byte("{}"))
	_ = s.Put(ctx, "a/1.json", "application/json", []byte("{}"))
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a/1.json" || keys[1] != "b/1.json" {
		t.Fatalf("keys = %v", keys)
	}
}
