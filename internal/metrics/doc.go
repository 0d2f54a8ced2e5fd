// Package metrics provides Prometheus instrumentation for asset-catalog.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "asset_catalog_".
//
// # Metric Categories
//
//   - Scanner: runs, folders visited and assets upserted per source kind, errors by stage
//   - Backfill: items by outcome, skips by reason, per-item duration by route,
//     lease contention
//   - Archive: list/read/extract operations per archive kind
//   - Render: mesh render outcomes, duration and triangle counts
//   - Thumbnail: normalization outcomes per backend (vips or imaging)
//   - Remote: remote tree requests per backend and operation
//   - Database: query counts and durations, transaction durations
//   - Catalog: asset counts by thumbnail state, refreshed by [Collector]
//   - Filesystem: stale-handle retries per volume
//   - HTTP: requests to the metrics listener, recorded by package middleware
//
// # Serving
//
// The CLI only exposes metrics when metrics.listen is configured:
//
//	srv, err := metrics.Serve(":9090", middleware.Metrics())
//	if err != nil {
//	    return err
//	}
//	defer srv.Shutdown(ctx)
//
// InitializeMetrics should be called once at startup so label combinations
// are present from the first scrape.
package metrics
