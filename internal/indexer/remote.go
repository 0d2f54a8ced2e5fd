package indexer

import (
	"context"
	"errors"
	"path"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/database"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/remotetree"
)

type remoteFolder struct {
	id   string
	path string // slash path from the source root, "" at the root
}

func (f remoteFolder) name() string {
	if f.path == "" {
		return remoteRootName
	}
	return path.Base(f.path)
}

// scanRemote walks a remote tree source. All remote calls for a folder are
// made before its transaction opens; a folder whose listing fails is logged
// and the walk continues with its siblings.
func (idx *Indexer) scanRemote(ctx context.Context, src database.Source, result *Result) error {
	if idx.tree == nil {
		return errors.New("no remote backend configured")
	}

	stack := []remoteFolder{{id: src.Location}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		folder := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		items, err := idx.tree.List(ctx, folder.id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn("Error listing remote folder %q: %v", folder.id, err)
			metrics.ScannerErrors.WithLabelValues("list").Inc()
			result.Errors++
			continue
		}
		metrics.ScannerFoldersProcessed.WithLabelValues(string(src.Kind)).Inc()
		result.Folders++

		kids := classify(items,
			func(i remotetree.Item) string { return i.Name },
			remotetree.Item.IsFolder,
		)
		for i := len(kids.folders) - 1; i >= 0; i-- {
			sub := kids.folders[i]
			stack = append(stack, remoteFolder{id: sub.ID, path: path.Join(folder.path, sub.Name)})
		}

		assets := idx.remoteAssets(ctx, folder, kids)
		if err := idx.writeFolder(ctx, src, assets, result); err != nil {
			logging.Warn("Failed to record remote folder %q: %v", folder.id, err)
			result.Errors++
		}
	}
	return nil
}

// remoteAssets turns one remote listing into assets. A files-only folder is
// a single asset named after the folder; in a mixed folder every archive or
// model is its own asset.
func (idx *Indexer) remoteAssets(ctx context.Context, folder remoteFolder, kids children[remotetree.Item]) []database.Asset {
	switch kids.layout() {
	case layoutFiles:
		chosen, ok := representative(kids)
		if !ok {
			return nil
		}
		var thumb []byte
		if len(kids.images) > 0 {
			thumb = idx.platformThumbnail(ctx, kids.images[0])
		}
		if thumb == nil {
			thumb = idx.platformThumbnail(ctx, chosen)
		}
		logging.Debug("Remote group %s: %d images, %d archives, %d models",
			folder.name(), len(kids.images), len(kids.archives), len(kids.models))
		return []database.Asset{{
			Filename:      folder.name(),
			Filepath:      chosen.ViewLink,
			FileSize:      chosen.Size,
			FolderPath:    folder.path,
			ThumbnailBlob: thumb,
		}}

	case layoutMixed:
		assets := make([]database.Asset, 0, len(kids.assets))
		for _, item := range kids.assets {
			assets = append(assets, database.Asset{
				Filename:      item.Name,
				Filepath:      item.ViewLink,
				FileSize:      item.Size,
				FolderPath:    folder.path,
				ThumbnailBlob: idx.platformThumbnail(ctx, item),
			})
		}
		return assets
	}
	return nil
}

// representative picks the file that stands for a files-only folder: the
// lowest volume when the folder holds nothing but multi-part RARs, otherwise
// the first ordinary archive, otherwise the first model.
func representative(kids children[remotetree.Item]) (remotetree.Item, bool) {
	var multipart, plain []remotetree.Item
	for _, a := range kids.archives {
		if archive.IsMultipart(a.Name) {
			multipart = append(multipart, a)
		} else {
			plain = append(plain, a)
		}
	}

	switch {
	case len(multipart) > 0 && len(plain) == 0 && len(kids.models) == 0:
		first := multipart[0]
		firstIdx, _ := archive.MultipartIndex(first.Name)
		for _, a := range multipart[1:] {
			if n, _ := archive.MultipartIndex(a.Name); n < firstIdx {
				first, firstIdx = a, n
			}
		}
		return first, true
	case len(plain) > 0:
		return plain[0], true
	case len(kids.models) > 0:
		return kids.models[0], true
	}
	return remotetree.Item{}, false
}

// platformThumbnail fetches the listing-size thumbnail of item, or nil.
func (idx *Indexer) platformThumbnail(ctx context.Context, item remotetree.Item) []byte {
	if item.ThumbnailLink == "" {
		return nil
	}
	thumb, err := idx.tree.Thumbnail(ctx, item.ThumbnailLink, listingThumbnailEdge)
	if err != nil {
		if !errors.Is(err, remotetree.ErrNoThumbnail) {
			logging.Debug("Thumbnail of %s unavailable: %v", item.Name, err)
		}
		return nil
	}
	return thumb
}
