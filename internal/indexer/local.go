package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/database"
	"asset-catalog/internal/filesystem"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/media"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/sniff"
)

// localFolder is one folder of a local source as the walker sees it.
type localFolder struct {
	fs   billy.Filesystem // rooted at the source
	root string           // absolute source path
	rel  string           // slash path from the source root, "" at the root
}

func (f localFolder) abs() string {
	return filepath.Join(f.root, filepath.FromSlash(f.rel))
}

func (f localFolder) billyPath(name string) string {
	if f.rel == "" {
		return name
	}
	return path.Join(f.rel, name)
}

// scanLocal walks a filesystem source with an explicit stack of folders.
// A folder that cannot be listed is logged and skipped.
func (idx *Indexer) scanLocal(ctx context.Context, src database.Source, result *Result) error {
	root, err := filepath.Abs(src.Location)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src.Location, err)
	}
	info, err := filesystem.StatWithRetry(root, idx.retry)
	if err != nil {
		return fmt.Errorf("source path unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", root)
	}

	fs := osfs.New(root)
	stack := []string{""}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		folder := localFolder{fs: fs, root: root, rel: stack[len(stack)-1]}
		stack = stack[:len(stack)-1]

		listPath := folder.rel
		if listPath == "" {
			listPath = "."
		}
		infos, err := filesystem.Retry("readdir", folder.abs(), idx.retry, func() ([]os.FileInfo, error) {
			return fs.ReadDir(listPath)
		})
		if err != nil {
			logging.Warn("Error listing %s: %v", folder.abs(), err)
			metrics.ScannerErrors.WithLabelValues("list").Inc()
			result.Errors++
			continue
		}
		metrics.ScannerFoldersProcessed.WithLabelValues(string(src.Kind)).Inc()
		result.Folders++

		kids := classify(infos, os.FileInfo.Name, os.FileInfo.IsDir)
		for i := len(kids.folders) - 1; i >= 0; i-- {
			stack = append(stack, folder.billyPath(kids.folders[i].Name()))
		}

		if err := idx.writeFolder(ctx, src, idx.localAssets(folder, kids), result); err != nil {
			logging.Warn("Failed to record %s: %v", folder.abs(), err)
			result.Errors++
		}
	}
	return nil
}

// localAssets turns one folder listing into assets. Every archive is its
// own asset. Models become one folder project when grouped, otherwise one
// asset each.
func (idx *Indexer) localAssets(folder localFolder, kids children[os.FileInfo]) []database.Asset {
	lay := kids.layout()
	if lay == layoutFolders {
		return nil
	}
	dir := folder.abs()

	var assets []database.Asset
	for _, fi := range kids.archives {
		full := filepath.Join(dir, fi.Name())
		assets = append(assets, database.Asset{
			Filename:      fi.Name(),
			Filepath:      full,
			FileSize:      fi.Size(),
			FolderPath:    folder.rel,
			ThumbnailBlob: archiveThumbnail(full),
		})
	}

	if len(kids.models) == 0 {
		return assets
	}

	group := lay == layoutFiles && (folder.rel != "" || len(kids.models) >= groupThreshold)
	if !group {
		for _, fi := range kids.models {
			assets = append(assets, database.Asset{
				Filename:   fi.Name(),
				Filepath:   filepath.Join(dir, fi.Name()),
				FileSize:   fi.Size(),
				FolderPath: folder.rel,
			})
		}
		return assets
	}

	name := filepath.Base(dir)
	if folder.rel == "" {
		name = fmt.Sprintf("Project_%d_Files", len(kids.models))
	}
	logging.Debug("Folder project %s (%d models, %d images)", name, len(kids.models), len(kids.images))
	return append(assets, database.Asset{
		Filename:      name,
		Filepath:      dir,
		FolderPath:    folder.rel,
		ThumbnailBlob: folderThumbnail(folder, kids.images),
	})
}

// archiveThumbnail returns the best image inside a local archive, or nil.
func archiveThumbnail(full string) []byte {
	if archive.IsContinuation(full) {
		return nil
	}
	kind, err := sniff.SniffFile(full)
	if err != nil || !kind.IsArchive() {
		logging.Debug("Not reading %s as an archive: kind=%s err=%v", full, kind, err)
		return nil
	}
	thumb, err := media.BestImageInArchive(full, kind)
	if err != nil {
		if !errors.Is(err, media.ErrNoImage) {
			logging.Debug("No archive thumbnail for %s: %v", full, err)
		}
		return nil
	}
	return thumb
}

// folderThumbnail normalizes the first render or preview image of a folder,
// falling back to the images in listing order.
func folderThumbnail(folder localFolder, images []os.FileInfo) []byte {
	ordered := make([]os.FileInfo, 0, len(images)+1)
	for _, fi := range images {
		lower := strings.ToLower(fi.Name())
		if strings.Contains(lower, "render") || strings.Contains(lower, "preview") {
			ordered = append(ordered, fi)
			break
		}
	}
	ordered = append(ordered, images...)

	for _, fi := range ordered {
		data, err := util.ReadFile(folder.fs, folder.billyPath(fi.Name()))
		if err != nil {
			logging.Debug("Failed to read %s: %v", fi.Name(), err)
			continue
		}
		thumb, err := media.Normalize(data, media.ThumbnailEdge, media.ThumbnailQuality)
		if err != nil {
			logging.Debug("Failed to normalize %s: %v", fi.Name(), err)
			continue
		}
		return thumb
	}
	return nil
}
