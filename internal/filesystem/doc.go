/*
Package filesystem provides filesystem operations with retry logic for NFS
stale file handle errors.

Source trees are frequently NFS or SMB mounts. A stale handle (ESTALE) during
a walk is transient, so stat, open and readdir calls are retried with capped
exponential backoff. Every other error is returned on the first attempt.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

Arbitrary calls, such as a billy.Filesystem listing, go through Retry:

	infos, err := filesystem.Retry("readdir", dir, cfg, func() ([]os.FileInfo, error) {
	    return fs.ReadDir(dir)
	})

# Metrics

Operations are labeled with a volume name resolved by longest-prefix match
against [VolumeResolver]. The CLI registers "catalog", "scratch" and each
local source. Recording goes through an [Observer]; the metrics package
provides the Prometheus implementation, installed with SetObserver.
*/
package filesystem
