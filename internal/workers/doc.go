/*
Package workers sizes the backfill worker pool.

Go 1.19+ sets GOMAXPROCS from the container CPU limit, so the helpers here
use GOMAXPROCS rather than runtime.NumCPU:

	numWorkers := workers.ForMixed(8) // at most 8 workers

A backfill worker downloads an item (I/O), extracts archives and rasterizes
meshes (CPU), so the pipeline uses the mixed multiplier when no explicit
worker count is configured:

	count := workers.Resolve(cfg.Backfill.Workers, 16)

# Environment Variable Override

BACKFILL_WORKERS pins the count regardless of configuration:

	BACKFILL_WORKERS=2 asset-catalog backfill --parallel

Every backfill worker holds its own catalog connection, so the count also
bounds the number of concurrent SQLite writers.
*/
package workers
