package backfill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/database"
	"asset-catalog/internal/filesystem"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/media"
	"asset-catalog/internal/mediatypes"
	"asset-catalog/internal/memory"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/remotetree"
	"asset-catalog/internal/render"
	"asset-catalog/internal/sniff"
)

// Routes label how a thumbnail was looked for.
const (
	routePlatform = "platform"
	routeModel    = "model"
	routeArchive  = "archive"
	routeFolder   = "folder"
	routeNone     = "none"
)

var (
	errNoSource  = errors.New("no thumbnail source found")
	errNoContent = errors.New("no extractable content")
	errNoRemote  = errors.New("no remote backend configured")
)

// outcome is the result of processing one asset. A blob means success, a
// reason means a permanent skip, anything else is retried.
type outcome struct {
	blob   []byte
	reason database.SkipReason
	route  string
	err    error
}

func succeeded(route string, blob []byte) outcome {
	return outcome{route: route, blob: blob}
}

func skipped(route string, reason database.SkipReason) outcome {
	return outcome{route: route, reason: reason}
}

// failed converts an error into an outcome, turning the structural errors
// into skips.
func failed(route string, err error) outcome {
	switch {
	case errors.Is(err, archive.ErrNeedsAllParts):
		return skipped(route, database.SkipMultipartContinuation)
	case errors.Is(err, archive.ErrSpansVolumes):
		return skipped(route, database.SkipMultipartFirstPart)
	case errors.Is(err, remotetree.ErrNotDownloadable):
		return skipped(route, database.SkipFolder)
	case errors.Is(err, errNoContent):
		return skipped(route, database.SkipNoContent)
	}
	return outcome{route: route, err: err}
}

// worker owns a catalog handle and a scratch directory for one goroutine.
type worker struct {
	id      int
	db      *database.Database
	tree    remotetree.Tree
	scratch string
	monitor *memory.Monitor
	retry   filesystem.RetryConfig
}

func (w *worker) close() {
	if err := w.db.Close(); err != nil {
		logging.Warn("Worker %d: closing catalog handle: %v", w.id, err)
	}
	if err := os.RemoveAll(w.scratch); err != nil {
		logging.Warn("Worker %d: removing scratch %s: %v", w.id, w.scratch, err)
	}
}

// run drains jobs. Cancellation is checked between items only; an item that
// has started is finished and recorded.
func (w *worker) run(ctx context.Context, jobs <-chan database.PendingAsset, t *tally) {
	metrics.BackfillWorkersActive.Inc()
	defer metrics.BackfillWorkersActive.Dec()

	itemCtx := context.WithoutCancel(ctx)
	for item := range jobs {
		if ctx.Err() != nil {
			continue
		}
		if w.monitor != nil {
			if err := w.monitor.Wait(ctx); err != nil {
				continue
			}
		}

		out := w.process(itemCtx, item)
		if err := w.record(itemCtx, item, out); err != nil {
			logging.Error("Worker %d: recording outcome of asset %d: %v", w.id, item.ID, err)
			t.failed.Add(1)
			continue
		}

		switch {
		case out.blob != nil:
			t.succeeded.Add(1)
		case out.reason != "":
			t.skipped.Add(1)
		default:
			t.retried.Add(1)
		}
	}
}

// record commits the outcome of one item in its own transaction.
func (w *worker) record(ctx context.Context, item database.PendingAsset, out outcome) error {
	switch {
	case out.blob != nil:
		metrics.BackfillItemsTotal.WithLabelValues("succeeded").Inc()
		logging.Debug("Worker %d: %s thumbnail for %s (%d bytes)", w.id, out.route, item.Filename, len(out.blob))
		return w.db.RecordSuccess(ctx, item.ID, out.blob)
	case out.reason != "":
		metrics.BackfillItemsTotal.WithLabelValues("skipped").Inc()
		metrics.BackfillSkipsTotal.WithLabelValues(string(out.reason)).Inc()
		logging.Debug("Worker %d: skipping %s: %s", w.id, item.Filename, out.reason)
		return w.db.RecordSkip(ctx, item.ID, out.reason)
	default:
		metrics.BackfillItemsTotal.WithLabelValues("retry").Inc()
		logging.Warn("Worker %d: no thumbnail for %s (attempt %d/%d): %v",
			w.id, item.Filename, item.Attempts+1, database.MaxAttempts, out.err)
		return w.db.RecordFailure(ctx, item.ID)
	}
}

// process finds a thumbnail for one asset. Panics are turned into retries.
func (w *worker) process(ctx context.Context, item database.PendingAsset) (out outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Worker %d: panic while processing %s: %v", w.id, item.Filepath, r)
			out = outcome{route: out.route, err: fmt.Errorf("panic: %v", r)}
		}
		route := out.route
		if route == "" {
			route = routeNone
		}
		metrics.BackfillItemDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}()

	if item.SourceKind == database.SourceLocal {
		return w.processLocal(item)
	}
	return w.processRemote(ctx, item)
}

func (w *worker) processLocal(item database.PendingAsset) outcome {
	info, err := filesystem.StatWithRetry(item.Filepath, w.retry)
	if err != nil {
		return failed(routeNone, err)
	}
	if info.IsDir() {
		blob, err := folderThumbnail(item.Filepath)
		if err != nil {
			return failed(routeFolder, err)
		}
		return succeeded(routeFolder, blob)
	}
	if archive.IsContinuation(item.Filepath) {
		return skipped(routeArchive, database.SkipMultipartContinuation)
	}
	if info.Size() == 0 {
		return skipped(routeNone, database.SkipNoContent)
	}
	return w.fromFile(item.Filepath, filepath.Base(item.Filepath))
}

func (w *worker) processRemote(ctx context.Context, item database.PendingAsset) outcome {
	if w.tree == nil {
		return failed(routeNone, errNoRemote)
	}
	id, ok := w.tree.IDFromLink(item.Filepath)
	if !ok {
		return skipped(routeNone, database.SkipInvalidLink)
	}

	name := path.Base(id)
	switch {
	case archive.IsContinuation(name):
		return skipped(routeArchive, database.SkipMultipartContinuation)
	case archive.IsFirstPart(name):
		return w.platformThumbnail(ctx, id)
	}

	var out outcome
	err := archive.WithScratch(w.scratch, func(dir string) error {
		local := filepath.Join(dir, scratchName(name))
		if err := w.download(ctx, id, local); err != nil {
			return err
		}
		out = w.fromFile(local, name)
		return nil
	})
	if err != nil {
		return failed(routeNone, err)
	}
	return out
}

// platformThumbnail stands in for multi-part first volumes, which are never
// downloaded.
func (w *worker) platformThumbnail(ctx context.Context, id string) outcome {
	item, err := w.tree.Stat(ctx, id)
	if err != nil {
		return failed(routePlatform, err)
	}
	if item.ThumbnailLink == "" {
		return skipped(routePlatform, database.SkipMultipartFirstPart)
	}
	blob, err := w.tree.Thumbnail(ctx, item.ThumbnailLink, media.ThumbnailEdge)
	if errors.Is(err, remotetree.ErrNoThumbnail) {
		return skipped(routePlatform, database.SkipMultipartFirstPart)
	}
	if err != nil {
		return failed(routePlatform, err)
	}
	return succeeded(routePlatform, blob)
}

func (w *worker) download(ctx context.Context, id, local string) (err error) {
	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := w.tree.Download(ctx, id, f); err != nil {
		return fmt.Errorf("download %s: %w", id, err)
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errNoContent
	}
	return nil
}

// fromFile routes a file by its sniffed kind. Magic bytes decide over the
// name; the name only matters for OBJ meshes, which have no magic.
func (w *worker) fromFile(local, name string) outcome {
	kind, err := sniff.SniffFile(local)
	if err != nil {
		return failed(routeNone, err)
	}

	switch {
	case kind.IsArchive():
		blob, err := w.fromArchive(local, kind)
		if err != nil {
			return failed(routeArchive, err)
		}
		return succeeded(routeArchive, blob)
	case kind == sniff.StlModel || mediatypes.IsRenderable(name):
		blob, err := render.Render(local)
		if err != nil {
			return failed(routeModel, err)
		}
		return succeeded(routeModel, blob)
	}
	return failed(routeNone, fmt.Errorf("%s (%s): %w", name, kind, errNoSource))
}

// fromArchive tries the best image inside the archive, then extracts it and
// scans the tree as a folder.
func (w *worker) fromArchive(local string, kind sniff.Kind) ([]byte, error) {
	blob, err := media.BestImageInArchive(local, kind)
	if err == nil {
		return blob, nil
	}
	if errors.Is(err, archive.ErrNeedsAllParts) || errors.Is(err, archive.ErrSpansVolumes) {
		return nil, err
	}
	logging.Debug("Worker %d: no direct image in %s: %v", w.id, filepath.Base(local), err)

	err = archive.WithScratch(w.scratch, func(dir string) error {
		if err := archive.ExtractAll(local, kind, dir); err != nil {
			return err
		}
		if empty, err := isEmptyTree(dir); err == nil && empty {
			return errNoContent
		}
		blob, err = folderThumbnail(dir)
		return err
	})
	return blob, err
}

// folderThumbnail applies the folder rule to a directory: keyword image,
// else best image, else a render of the first mesh.
func folderThumbnail(dir string) ([]byte, error) {
	if blob, err := media.BestImageInDir(dir); err == nil {
		return blob, nil
	}
	mesh, ok := render.FindRenderable(dir)
	if !ok {
		return nil, errNoSource
	}
	return render.Render(mesh)
}

func isEmptyTree(dir string) (bool, error) {
	empty := true
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			empty = false
			return fs.SkipAll
		}
		return nil
	})
	return empty, err
}

// scratchName keeps the extension of a remote name and drops anything that
// could leave the scratch directory.
func scratchName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "item"
	}
	return name
}
