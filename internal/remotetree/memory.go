package remotetree

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"asset-catalog/internal/media"
)

// Memory is an in-process Tree. Folders exist implicitly through the keys
// below them.
type Memory struct {
	mu         sync.RWMutex
	bucket     string
	codec      linkCodec
	objects    map[string][]byte
	thumbnails map[string][]byte
	listErrors map[string]error
}

// NewMemory returns an empty in-memory tree.
func NewMemory(bucket string) *Memory {
	if bucket == "" {
		bucket = "memory"
	}
	return &Memory{
		bucket:     bucket,
		codec:      linkCodec{base: "memory://" + bucket},
		objects:    make(map[string][]byte),
		thumbnails: make(map[string][]byte),
		listErrors: make(map[string]error),
	}
}

// Put stores an object under key.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[strings.TrimPrefix(key, "/")] = data
}

// SetThumbnail registers a platform thumbnail for a non-image object, the
// way hosted drives render previews of archives.
func (m *Memory) SetThumbnail(key string, image []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thumbnails[key] = image
}

// FailList makes List(folderID) return err.
func (m *Memory) FailList(folderID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrors[folderID] = err
}

// LoadDir copies every file below dir into the tree, keyed by its slash
// path relative to dir.
func (m *Memory) LoadDir(dir string) error {
	return m.LoadFS(osfs.New(dir), "/")
}

// LoadFS copies every regular file of fs below root into the tree.
func (m *Memory) LoadFS(fs billy.Filesystem, root string) error {
	return util.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := util.ReadFile(fs, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), strings.TrimSuffix(filepath.ToSlash(root), "/")+"/")
		m.Put(rel, data)
		return nil
	})
}

func (m *Memory) List(_ context.Context, folderID string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.listErrors[folderID]; err != nil {
		return nil, err
	}

	folders := map[string]bool{}
	var items []Item
	for key, data := range m.objects {
		rest, ok := strings.CutPrefix(key, folderID)
		if !ok || rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			folders[folderID+rest[:i+1]] = true
			continue
		}
		item := fileItem(m.codec, key, mimetype.Detect(data).String(), int64(len(data)))
		if _, ok := m.thumbnails[key]; ok {
			item.ThumbnailLink = item.ViewLink
		}
		items = append(items, item)
	}
	for prefix := range folders {
		items = append(items, folderItem(m.codec, prefix))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *Memory) Stat(_ context.Context, id string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[id]
	if !ok {
		if m.isFolderLocked(id) {
			return folderItem(m.codec, asFolderID(id)), nil
		}
		return Item{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	item := fileItem(m.codec, id, mimetype.Detect(data).String(), int64(len(data)))
	if _, ok := m.thumbnails[id]; ok {
		item.ThumbnailLink = item.ViewLink
	}
	return item, nil
}

func (m *Memory) Download(_ context.Context, id string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.objects[id]
	folder := !ok && m.isFolderLocked(id)
	m.mu.RUnlock()

	switch {
	case folder || strings.HasSuffix(id, "/"):
		return fmt.Errorf("%s: %w", id, ErrNotDownloadable)
	case !ok:
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (m *Memory) Thumbnail(ctx context.Context, link string, edge int) ([]byte, error) {
	id, ok := m.codec.id(link)
	if !ok {
		return nil, ErrNoThumbnail
	}

	m.mu.RLock()
	explicit, hasExplicit := m.thumbnails[id]
	m.mu.RUnlock()

	if hasExplicit {
		thumb, err := media.Normalize(explicit, edge, media.ThumbnailQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoThumbnail, err)
		}
		return thumb, nil
	}
	return objectThumbnail(ctx, m, m.codec, link, edge)
}

func (m *Memory) IDFromLink(link string) (string, bool) {
	return m.codec.id(link)
}

func (m *Memory) RootName(_ context.Context, rootID string) (string, error) {
	return rootName(m.bucket, rootID), nil
}

// isFolderLocked reports whether any key lives below id. Callers hold mu.
func (m *Memory) isFolderLocked(id string) bool {
	prefix := asFolderID(id)
	if prefix == "" {
		return true
	}
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
