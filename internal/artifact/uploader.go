package artifact

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/depgraph"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
)

// Object describes one uploaded export.
type Object struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	URL         string `json:"url"`
}

// Uploader exports graphs and writes them to a Store under
// <prefix><root id>/<timestamp>.<ext>.
type Uploader struct {
	store  Store
	prefix string
	logger *zap.Logger
	audit  *observability.AuditLogger
	now    func() time.Time
}

type UploaderOption func(*Uploader)

func WithLogger(l *zap.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = l }
}

func WithAuditLogger(a *observability.AuditLogger) UploaderOption {
	return func(u *Uploader) { u.audit = a }
}

func NewUploader(store Store, prefix string, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		store:  store,
		prefix: prefix,
		logger: zap.NewNop(),
		audit:  observability.Audit(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Key is the object key an export of g in format f gets at t.
func (u *Uploader) Key(g *depgraph.Graph, f depgraph.Format, t time.Time) string {
	name := t.UTC().Format("20060102T150405Z") + "." + f.Extension()
	return u.prefix + path.Join(g.Root.ID, name)
}

// Upload exports g in format f and stores it.
func (u *Uploader) Upload(ctx context.Context, g *depgraph.Graph, f depgraph.Format) (Object, error) {
	data, err := depgraph.Export(g, f)
	if err != nil {
		return Object{}, fmt.Errorf("export %s: %w", f, err)
	}

	obj := Object{
		Bucket:      u.store.Bucket(),
		Key:         u.Key(g, f, u.now()),
		Format:      string(f),
		ContentType: f.ContentType(),
		Size:        len(data),
	}
	err = u.store.Put(ctx, obj.Key, obj.ContentType, data)
	u.audit.LogUpload(ctx, obj.Bucket, obj.Key, int64(obj.Size), err)
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", obj.Key, err)
	}

	if link, err := u.store.URL(ctx, obj.Key); err != nil {
		u.logger.Warn("no link for uploaded artifact", zap.String("key", obj.Key), zap.Error(err))
	} else {
		obj.URL = link
	}
	u.logger.Info("artifact uploaded",
		zap.String("bucket", obj.Bucket),
		zap.String("key", obj.Key),
		zap.Int("size", obj.Size),
	)
	return obj, nil
}
