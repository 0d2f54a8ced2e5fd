package indexer

import (
	"strings"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/mediatypes"
)

// layout is the shape of a folder's direct children.
type layout int

const (
	// layoutFolders holds sub-folders and no archive or model.
	layoutFolders layout = iota
	// layoutFiles holds archives or models and no sub-folder.
	layoutFiles
	// layoutMixed holds both.
	layoutMixed
)

// children is a folder listing sorted into the classes the walker cares
// about. Listing order is kept within each class.
type children[T any] struct {
	folders  []T
	images   []T
	archives []T
	models   []T
	assets   []T // archives and models together
}

// classify sorts a listing. Hidden entries are dropped. Multi-part RAR
// volumes count as archives whatever their extension.
func classify[T any](items []T, name func(T) string, isDir func(T) bool) children[T] {
	var c children[T]
	for _, item := range items {
		n := name(item)
		if strings.HasPrefix(n, ".") {
			continue
		}
		if isDir(item) {
			c.folders = append(c.folders, item)
			continue
		}

		switch fileType(n) {
		case mediatypes.FileTypeImage:
			c.images = append(c.images, item)
		case mediatypes.FileTypeArchive:
			c.archives = append(c.archives, item)
			c.assets = append(c.assets, item)
		case mediatypes.FileTypeModel:
			c.models = append(c.models, item)
			c.assets = append(c.assets, item)
		}
	}
	return c
}

func fileType(name string) mediatypes.FileType {
	if archive.IsMultipart(name) {
		return mediatypes.FileTypeArchive
	}
	return mediatypes.GetFileType(name)
}

func (c children[T]) layout() layout {
	switch {
	case len(c.assets) == 0:
		return layoutFolders
	case len(c.folders) == 0:
		return layoutFiles
	default:
		return layoutMixed
	}
}
