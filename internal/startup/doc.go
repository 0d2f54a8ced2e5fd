// Package startup handles configuration loading and the startup and
// shutdown log sections of the asset-catalog commands.
//
// # Configuration
//
// [LoadConfig] reads an optional TOML file:
//
//	[paths]
//	database_dir = "/database"
//	scratch_dir  = "/scratch"
//
//	[remote]            # tagged union on type
//	type       = "minio" # "memory", "minio" or "s3"
//	endpoint   = "minio:9000"
//	bucket     = "assets"
//	use_ssl    = false
//
//	[backfill]
//	workers    = 5
//	batch_size = 100     # clamped to 50..100
//	lease      = "file"  # or "database"
//
//	[log]
//	level = "info"
//
//	[metrics]
//	listen = ":9090"
//
// Environment variables override the file:
//
//   - DATABASE_DIR, SCRATCH_DIR: directory paths
//   - BACKFILL_WORKERS: parallel sweep width
//   - METRICS_LISTEN: metrics server address
//   - REMOTE_ACCESS_KEY, REMOTE_SECRET_KEY: remote credentials
//   - LOG_LEVEL, DEBUG: take precedence over [log] level
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// Both directories are created when missing and must be writable.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package startup
