package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"asset-catalog/internal/database"
	"asset-catalog/internal/filesystem"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/remotetree"
)

const (
	// Root models are grouped into one project asset from this many on.
	groupThreshold = 5

	// Edge of platform thumbnails fetched while listing remote folders.
	listingThumbnailEdge = 250

	// Name of a files-only remote folder asset at the tree root.
	remoteRootName = "Root"
)

// namePrefixes are stripped from source names by a scan.
var namePrefixes = []string{"Copy of ", "Kopyası ", "Import-"}

// Indexer walks the cataloged sources and upserts what it finds.
type Indexer struct {
	db    *database.Database
	tree  remotetree.Tree
	retry filesystem.RetryConfig

	indexMu    sync.Mutex
	isIndexing bool
}

// Result summarises one scan.
type Result struct {
	Sources  int
	Folders  int
	Assets   int
	Errors   int
	Duration time.Duration
	// Skipped is set when another scan was already running.
	Skipped bool
}

// New creates an Indexer. tree may be nil when no remote backend is
// configured; remote sources are then reported and skipped.
func New(db *database.Database, tree remotetree.Tree) *Indexer {
	return &Indexer{
		db:    db,
		tree:  tree,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// SetRetryConfig replaces the retry policy for local filesystem calls.
func (idx *Indexer) SetRetryConfig(cfg filesystem.RetryConfig) {
	idx.retry = cfg
}

// Scan walks every source once, one after another. A call made while
// another scan is running returns immediately with Result.Skipped set.
// Source-level failures are logged and counted; only a failure to read the
// source list or a cancelled context is returned.
func (idx *Indexer) Scan(ctx context.Context) (Result, error) {
	if !idx.tryStartIndexing() {
		logging.Info("Scan already in progress, skipping...")
		return Result{Skipped: true}, nil
	}
	defer idx.finishIndexing()

	metrics.ScannerIsRunning.Set(1)
	defer metrics.ScannerIsRunning.Set(0)
	metrics.ScannerRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting catalog scan...")

	sources, err := idx.db.ListSources(ctx)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("source").Inc()
		return Result{}, fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		logging.Warn("No sources are registered; add one with 'asset-catalog source add'")
	}

	sources = idx.normalizeSourceNames(ctx, sources)

	var result Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logging.Info("Scanning source %q (%s: %s)", src.Name, src.Kind, src.Location)
		var scanErr error
		switch src.Kind {
		case database.SourceLocal:
			scanErr = idx.scanLocal(ctx, src, &result)
		case database.SourceRemoteTree:
			scanErr = idx.scanRemote(ctx, src, &result)
		default:
			scanErr = fmt.Errorf("unknown source kind %q", src.Kind)
		}

		if scanErr != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logging.Warn("Skipping source %q: %v", src.Name, scanErr)
			metrics.ScannerErrors.WithLabelValues("source").Inc()
			result.Errors++
			continue
		}
		result.Sources++
	}

	idx.finalizeScan(startTime, &result)
	return result, nil
}

// finalizeScan records timing and refreshes the catalog gauges.
func (idx *Indexer) finalizeScan(startTime time.Time, result *Result) {
	result.Duration = time.Since(startTime)

	metrics.ScannerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ScannerLastRunDuration.Set(result.Duration.Seconds())

	if stats, err := idx.db.GetStats(); err == nil {
		metrics.Publish(stats)
	} else {
		logging.Warn("Failed to refresh catalog statistics: %v", err)
	}

	logging.Info("Scan complete: %d sources, %d folders, %d assets, %d errors in %v",
		result.Sources, result.Folders, result.Assets, result.Errors, result.Duration)
}

// tryStartIndexing attempts to start a scan, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks the scan as complete.
func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	idx.isIndexing = false
}

// NormalizeName strips copy and import prefixes from a source name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped := false
		for _, prefix := range namePrefixes {
			if rest, ok := strings.CutPrefix(name, prefix); ok {
				name = strings.TrimSpace(rest)
				stripped = true
			}
		}
		if !stripped {
			return name
		}
	}
}

// normalizeSourceNames renames sources whose names carry copy or import
// prefixes. Remote sources are first given the real name of their root.
// Failures leave the name unchanged.
func (idx *Indexer) normalizeSourceNames(ctx context.Context, sources []database.Source) []database.Source {
	for i := range sources {
		src := &sources[i]

		base := src.Name
		if src.Kind == database.SourceRemoteTree && idx.tree != nil {
			if name, err := idx.tree.RootName(ctx, src.Location); err == nil && name != "" {
				base = name
			} else if err != nil {
				logging.Debug("Root name of %q unavailable: %v", src.Location, err)
			}
		}

		name := NormalizeName(base)
		if name == "" || name == src.Name {
			continue
		}
		if err := idx.db.RenameSource(ctx, src.ID, name); err != nil {
			logging.Warn("Failed to rename source %q: %v", src.Name, err)
			continue
		}
		logging.Info("Renamed source %q to %q", src.Name, name)
		src.Name = name
	}
	return sources
}

// writeFolder upserts the assets found in one folder in a single
// transaction.
func (idx *Indexer) writeFolder(ctx context.Context, src database.Source, assets []database.Asset, result *Result) error {
	if len(assets) == 0 {
		return nil
	}

	batch, err := idx.db.BeginBatch(ctx)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("commit").Inc()
		return fmt.Errorf("failed to begin folder transaction: %w", err)
	}

	for i := range assets {
		assets[i].SourceID = src.ID
		if err := idx.db.UpsertAsset(batch, &assets[i]); err != nil {
			metrics.ScannerErrors.WithLabelValues("upsert").Inc()
			return idx.db.EndBatch(batch, fmt.Errorf("upserting %s: %w", assets[i].Filepath, err))
		}
	}

	if err := idx.db.EndBatch(batch, nil); err != nil {
		metrics.ScannerErrors.WithLabelValues("commit").Inc()
		return fmt.Errorf("failed to commit folder: %w", err)
	}

	metrics.ScannerAssetsUpserted.WithLabelValues(string(src.Kind)).Add(float64(len(assets)))
	result.Assets += len(assets)
	return nil
}
