package remotetree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// FolderMimeType marks folder items in a listing.
const FolderMimeType = "inode/directory"

var (
	// ErrNotDownloadable is returned by Download when the id names a folder.
	ErrNotDownloadable = errors.New("item is a folder and cannot be downloaded")
	// ErrNoThumbnail is returned when the platform has no thumbnail for an item.
	ErrNoThumbnail = errors.New("no platform thumbnail")
	// ErrNotFound is returned for ids that name neither a file nor a folder.
	ErrNotFound = errors.New("remote item not found")
	// ErrUnknownBackend is returned by New for an unrecognised remote type.
	ErrUnknownBackend = errors.New("unknown remote backend")
)

// Item is one child of a remote folder.
type Item struct {
	ID            string
	Name          string
	MimeType      string
	Size          int64
	ThumbnailLink string // empty when the platform has no thumbnail
	ViewLink      string
}

// IsFolder reports whether the item is a folder.
func (i Item) IsFolder() bool {
	return i.MimeType == FolderMimeType
}

// Tree is a hierarchical remote store. Folder ids are object-key prefixes
// ending in "/"; the empty id is the store root.
type Tree interface {
	// List returns the direct children of folderID in name order.
	List(ctx context.Context, folderID string) ([]Item, error)
	// Stat returns metadata of a single file.
	Stat(ctx context.Context, id string) (Item, error)
	// Download streams the content of file id into w.
	Download(ctx context.Context, id string, w io.Writer) error
	// Thumbnail returns the platform thumbnail behind link, no larger than
	// edge pixels on its longer side.
	Thumbnail(ctx context.Context, link string, edge int) ([]byte, error)
	// IDFromLink extracts an item id from a view link.
	IDFromLink(link string) (string, bool)
	// RootName returns the display name of a folder.
	RootName(ctx context.Context, rootID string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Type      string // "memory", "minio" or "s3"
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	SeedDir   string // memory only: local directory loaded at startup
}

// New builds the configured backend, instrumented with request metrics.
func New(ctx context.Context, cfg Config) (Tree, error) {
	var (
		tree Tree
		err  error
	)
	switch cfg.Type {
	case "memory":
		m := NewMemory(cfg.Bucket)
		if cfg.SeedDir != "" {
			err = m.LoadDir(cfg.SeedDir)
		}
		tree = m
	case "minio":
		tree, err = NewMinio(cfg)
	case "s3":
		tree, err = NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Type, ErrUnknownBackend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(tree, cfg.Type), nil
}

// NormalizeRootID reduces an operator-supplied location (a view link, an
// s3:// URL or a bare prefix) to a folder id.
func NormalizeRootID(tree Tree, location string) string {
	loc := strings.TrimSpace(location)
	if id, ok := tree.IDFromLink(loc); ok {
		return asFolderID(id)
	}
	if u, err := url.Parse(loc); err == nil && u.Scheme == "s3" {
		return asFolderID(strings.TrimPrefix(u.Path, "/"))
	}
	return asFolderID(strings.TrimPrefix(loc, "/"))
}

func asFolderID(id string) string {
	if id == "" || strings.HasSuffix(id, "/") {
		return id
	}
	return id + "/"
}

// baseName returns the last segment of a key or folder prefix.
func baseName(key string) string {
	return path.Base(strings.TrimSuffix(key, "/"))
}

// linkCodec builds and parses view links of the form <base>/<escaped key>.
type linkCodec struct {
	base string
}

func (c linkCodec) link(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.base + "/" + strings.Join(segs, "/")
}

func (c linkCodec) id(link string) (string, bool) {
	rest, ok := strings.CutPrefix(link, c.base+"/")
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func folderItem(c linkCodec, prefix string) Item {
	return Item{
		ID:       prefix,
		Name:     baseName(prefix),
		MimeType: FolderMimeType,
		ViewLink: c.link(prefix),
	}
}

func rootName(bucket, rootID string) string {
	if strings.Trim(rootID, "/") == "" {
		return bucket
	}
	return baseName(rootID)
}
