package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"catalog", "scratch", "source", "unknown"}
	fsOps := []string{"stat", "open", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, kind := range []string{"local", "remote-tree"} {
		ScannerFoldersProcessed.WithLabelValues(kind)
		ScannerAssetsUpserted.WithLabelValues(kind)
	}
	for _, stage := range []string{"source", "list", "upsert", "commit"} {
		ScannerErrors.WithLabelValues(stage)
	}

	// --- Backfill outcomes ---
	for _, outcome := range []string{"succeeded", "skipped", "retry"} {
		BackfillItemsTotal.WithLabelValues(outcome)
	}
	for _, reason := range []string{"folder", "invalid-link", "multipart-continuation",
		"multipart-first-part", "sibling-image", "no-content"} {
		BackfillSkipsTotal.WithLabelValues(reason)
	}
	for _, route := range []string{"platform", "model", "archive", "folder", "none"} {
		BackfillItemDuration.WithLabelValues(route)
	}

	// --- Archive operations by kind ---
	for _, kind := range []string{"zip-archive", "sevenzip-archive", "rar-archive"} {
		for _, op := range []string{"list", "read", "extract"} {
			ArchiveOperationsTotal.WithLabelValues(kind, op, "success")
			ArchiveOperationsTotal.WithLabelValues(kind, op, "error")
		}
	}

	for _, status := range []string{"success", "error_load", "error_empty", "error_panic", "error_encode"} {
		RenderTotal.WithLabelValues(status)
	}

	for _, backend := range []string{"vips", "imaging"} {
		ThumbnailNormalizeTotal.WithLabelValues(backend, "success")
		ThumbnailNormalizeTotal.WithLabelValues(backend, "error")
		ThumbnailNormalizeDuration.WithLabelValues(backend)
	}

	for _, state := range []string{"pending", "retrying", "exhausted", "succeeded", "skipped"} {
		CatalogAssetsTotal.WithLabelValues(state)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "upsert_asset", "select_pending",
		"record_success", "record_skip", "record_failure", "mark_sibling_images",
		"begin_transaction", "commit", "rollback"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(t)
	}
}
