package remotetree

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"asset-catalog/internal/media"
)

// maxThumbnailSource caps how much of an image object is fetched to build a
// platform thumbnail.
const maxThumbnailSource = 32 << 20

// fileItem builds the listing entry of an object. Only image objects carry a
// thumbnail link.
func fileItem(c linkCodec, key, mimeType string, size int64) Item {
	item := Item{
		ID:       key,
		Name:     baseName(key),
		MimeType: mimeType,
		Size:     size,
		ViewLink: c.link(key),
	}
	if media.IsImageName(key) {
		item.ThumbnailLink = item.ViewLink
	}
	return item
}

// objectThumbnail downloads an image object and normalizes it to edge.
func objectThumbnail(ctx context.Context, t Tree, c linkCodec, link string, edge int) ([]byte, error) {
	id, ok := c.id(link)
	if !ok || !media.IsImageName(id) {
		return nil, ErrNoThumbnail
	}

	var buf bytes.Buffer
	if err := t.Download(ctx, id, &limitedWriter{w: &buf, n: maxThumbnailSource}); err != nil {
		return nil, fmt.Errorf("fetch thumbnail source: %w", err)
	}
	thumb, err := media.Normalize(buf.Bytes(), edge, media.ThumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoThumbnail, err)
	}
	return thumb, nil
}

type limitedWriter struct {
	w io.Writer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.n {
		return 0, fmt.Errorf("thumbnail source exceeds %d bytes", maxThumbnailSource)
	}
	n, err := l.w.Write(p)
	l.n -= int64(n)
	return n, err
}
