package media

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"asset-catalog/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsSeverity ranks libvips (GLib) log levels from least to most severe.
// GLib flag values grow as severity drops, so they cannot be compared directly.
func vipsSeverity(lvl vips.LogLevel) int {
	switch lvl {
	case vips.LogLevelDebug:
		return 0
	case vips.LogLevelInfo, vips.LogLevelMessage:
		return 1
	case vips.LogLevelWarning:
		return 2
	case vips.LogLevelCritical:
		return 4
	case vips.LogLevelError:
		return 5
	default:
		return 3
	}
}

// vipsLogConfig maps the application log level to the verbosity requested
// from libvips and a handler that forwards messages at or above it.
func vipsLogConfig(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	var threshold vips.LogLevel
	switch level {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelInfo:
		threshold = vips.LogLevelWarning
	case logging.LevelWarn:
		threshold = vips.LogLevelCritical
	default:
		threshold = vips.LogLevelError
	}

	handler := func(domain string, lvl vips.LogLevel, msg string) {
		if vipsSeverity(lvl) < vipsSeverity(threshold) {
			return
		}
		switch sev := vipsSeverity(lvl); {
		case sev >= vipsSeverity(vips.LogLevelCritical):
			logging.Error("[%s] %s", domain, msg)
		case sev == vipsSeverity(vips.LogLevelWarning):
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
	return threshold, handler
}

// InitVips starts libvips. It is optional: without it Normalize decodes
// with imaging only. Call once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	vipsLevel, handler := vipsLogConfig(logging.GetLevel())
	vips.LoggingSettings(handler, vipsLevel)

	// Workers call Normalize concurrently; keep libvips itself single threaded.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

func normalizeWithVips(data []byte, maxEdge, quality int) ([]byte, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if w*h > MaxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d", w, h)
	}

	if w > maxEdge || h > maxEdge {
		tw, th := fitWithin(w, h, maxEdge)
		if err := ref.Thumbnail(tw, th, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	if ref.HasAlpha() {
		if err := ref.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, fmt.Errorf("vips flatten failed: %w", err)
		}
	}

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return out, nil
}

// fitWithin scales w×h so the longer edge equals edge, keeping at least one
// pixel on the shorter edge.
func fitWithin(w, h, edge int) (int, int) {
	if w >= h {
		th := h * edge / w
		if th < 1 {
			th = 1
		}
		return edge, th
	}
	tw := w * edge / h
	if tw < 1 {
		tw = 1
	}
	return tw, edge
}
