package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics listener requests
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_http_requests_total",
			Help: "Total number of requests served by the metrics listener",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_http_request_duration_seconds",
			Help:    "Time spent serving metrics listener requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_http_requests_in_flight",
			Help: "Number of metrics listener requests being served",
		},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_catalog_scanner_runs_total",
			Help: "Total number of catalog scans",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_scanner_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed scan",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_scanner_last_run_duration_seconds",
			Help: "Duration of the last completed scan in seconds",
		},
	)

	ScannerFoldersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_scanner_folders_processed_total",
			Help: "Total number of folders visited by the tree walker",
		},
		[]string{"source_kind"},
	)

	ScannerAssetsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_scanner_assets_upserted_total",
			Help: "Total number of asset rows written by the tree walker",
		},
		[]string{"source_kind"},
	)

	ScannerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_scanner_errors_total",
			Help: "Total number of tree walker errors",
		},
		[]string{"stage"}, // "list", "upsert", "commit", "source"
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_scanner_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)
)

// Backfill metrics
var (
	BackfillItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_backfill_items_total",
			Help: "Total number of backfill items by outcome",
		},
		[]string{"outcome"}, // "succeeded", "skipped", "retry"
	)

	BackfillSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_backfill_skips_total",
			Help: "Total number of permanently skipped items by reason",
		},
		[]string{"reason"},
	)

	BackfillItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_backfill_item_duration_seconds",
			Help:    "Time spent processing one backfill item",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"route"}, // "platform", "model", "archive", "folder", "none"
	)

	BackfillRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_backfill_running",
			Help: "Whether a backfill sweep is currently running (1 = running, 0 = idle)",
		},
	)

	BackfillWorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_backfill_workers_active",
			Help: "Number of backfill workers currently processing an item",
		},
	)

	BackfillBatchSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_backfill_batch_size",
			Help: "Number of items selected by the last backfill sweep",
		},
	)

	BackfillLeaseContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_catalog_backfill_lease_contention_total",
			Help: "Total number of sweeps that found the exclusive lease held",
		},
	)
)

// Archive metrics
var (
	ArchiveOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_archive_operations_total",
			Help: "Total number of archive operations by kind, operation and status",
		},
		[]string{"kind", "operation", "status"},
	)
)

// Render metrics
var (
	RenderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_render_total",
			Help: "Total number of mesh renders by status",
		},
		[]string{"status"}, // "success", "error_load", "error_empty", "error_panic", "error_encode"
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_render_duration_seconds",
			Help:    "Mesh render duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RenderTriangles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_render_triangles",
			Help:    "Triangle count of rendered meshes",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailNormalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_thumbnail_normalize_total",
			Help: "Total number of thumbnail normalizations by backend and status",
		},
		[]string{"backend", "status"}, // backend: "vips", "imaging"
	)

	ThumbnailNormalizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_thumbnail_normalize_duration_seconds",
			Help:    "Thumbnail normalization duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)

	ThumbnailBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_thumbnail_bytes",
			Help:    "Size of stored thumbnails in bytes",
			Buckets: prometheus.ExponentialBuckets(2048, 2, 8),
		},
	)
)

// Remote tree metrics
var (
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_remote_requests_total",
			Help: "Total number of remote tree requests by backend, operation and status",
		},
		[]string{"backend", "operation", "status"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_remote_request_duration_seconds",
			Help:    "Remote tree request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type"}, // "commit", "rollback"
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_catalog_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Catalog metrics
var (
	CatalogAssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_catalog_catalog_assets",
			Help: "Number of catalog assets by thumbnail state",
		},
		[]string{"state"}, // "pending", "retrying", "exhausted", "succeeded", "skipped"
	)

	CatalogSourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_catalog_sources",
			Help: "Number of configured sources",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_catalog_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_catalog_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asset_catalog_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)

	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 when unset)",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_catalog_memory_paused",
			Help: "Whether backfill workers are paused on memory pressure (1) or not (0)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_catalog_memory_gc_pauses_total",
			Help: "Number of times memory pressure paused the backfill",
		},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
