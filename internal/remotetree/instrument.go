package remotetree

import (
	"context"
	"errors"
	"io"
	"time"

	"asset-catalog/internal/metrics"
)

type instrumented struct {
	next    Tree
	backend string
}

// Instrument wraps tree so every remote call is counted and timed under the
// backend label.
func Instrument(tree Tree, backend string) Tree {
	return &instrumented{next: tree, backend: backend}
}

func (t *instrumented) observe(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotDownloadable), errors.Is(err, ErrNoThumbnail):
		status = "not_available"
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	metrics.RemoteRequestsTotal.WithLabelValues(t.backend, operation, status).Inc()
	metrics.RemoteRequestDuration.WithLabelValues(t.backend, operation).Observe(time.Since(start).Seconds())
}

func (t *instrumented) List(ctx context.Context, folderID string) ([]Item, error) {
	start := time.Now()
	items, err := t.next.List(ctx, folderID)
	t.observe("list", start, err)
	return items, err
}

func (t *instrumented) Stat(ctx context.Context, id string) (Item, error) {
	start := time.Now()
	item, err := t.next.Stat(ctx, id)
	t.observe("stat", start, err)
	return item, err
}

func (t *instrumented) Download(ctx context.Context, id string, w io.Writer) error {
	start := time.Now()
	err := t.next.Download(ctx, id, w)
	t.observe("download", start, err)
	return err
}

func (t *instrumented) Thumbnail(ctx context.Context, link string, edge int) ([]byte, error) {
	start := time.Now()
	thumb, err := t.next.Thumbnail(ctx, link, edge)
	t.observe("thumbnail", start, err)
	return thumb, err
}

func (t *instrumented) IDFromLink(link string) (string, bool) {
	return t.next.IDFromLink(link)
}

func (t *instrumented) RootName(ctx context.Context, rootID string) (string, error) {
	start := time.Now()
	name, err := t.next.RootName(ctx, rootID)
	t.observe("root_name", start, err)
	return name, err
}
