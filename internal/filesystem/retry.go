package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"asset-catalog/internal/logging"
)

// Volume labels used by the CLI when it installs the default resolver.
const (
	VolumeCatalog = "catalog"
	VolumeScratch = "scratch"
	VolumeSource  = "source"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	// mounts is sorted by path length descending
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash
	name string
}

// NewVolumeResolver creates a resolver from a map of volume name → path.
//
//	NewVolumeResolver(map[string]string{
//	    filesystem.VolumeCatalog: cfg.DatabaseDir,
//	    filesystem.VolumeScratch: cfg.ScratchDir,
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		mounts = append(mounts, volumeMount{path: withSlash(absOrSelf(path)), name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Add registers another mount, keeping longest-prefix order. Local sources
// are added as they are scanned.
func (vr *VolumeResolver) Add(name, path string) {
	if vr == nil {
		return
	}
	vr.mounts = append(vr.mounts, volumeMount{path: withSlash(absOrSelf(path)), name: name})
	sort.SliceStable(vr.mounts, func(i, j int) bool {
		return len(vr.mounts[i].path) > len(vr.mounts[j].path)
	})
}

// Resolve returns the volume name for a given path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(withSlash(absPath), mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func withSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver when set.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns the defaults for NFS-backed sources.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// Retry runs fn, retrying with capped exponential backoff while it fails
// with ESTALE. Any other error is returned immediately. operation labels the
// call in logs and metrics ("stat", "open", "readdir").
func Retry[T any](operation, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	obs := defaultObserver
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		callStart := time.Now()
		v, err := fn()
		obs.ObserveOperation(volume, operation, time.Since(callStart).Seconds(), err)
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", operation, attempt, path)
				obs.ObserveRetry(operation, volume, RetrySucceeded, time.Since(start).Seconds())
			}
			return v, nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			var zero T
			return zero, err
		}
		obs.ObserveRetry(operation, volume, RetryStale, 0)

		if attempt < config.MaxRetries {
			obs.ObserveRetry(operation, volume, RetryAttempt, 0)
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				operation, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", operation, config.MaxRetries, path, lastErr)
	obs.ObserveRetry(operation, volume, RetryExhausted, time.Since(start).Seconds())
	var zero T
	return zero, lastErr
}

// StatWithRetry performs os.Stat, retrying on stale file handles.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return Retry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open, retrying on stale file handles.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return Retry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// ReadDirWithRetry performs os.ReadDir, retrying on stale file handles.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	return Retry("readdir", path, config, func() ([]os.DirEntry, error) {
		return os.ReadDir(path)
	})
}
