package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. libvips, the 7z and RAR decoders and the render canvases allocate
// outside the soft limit's accounting, so they get the remainder.
const DefaultMemoryRatio = 0.80

// ConfigResult reports what ConfigureFromEnv decided.
type ConfigResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source string
	// ContainerLimit is MEMORY_LIMIT in bytes, 0 when unset.
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the Go soft memory limit before a sweep starts
// filling worker pools. An explicit GOMEMLIMIT is left as the runtime parsed
// it. Otherwise MEMORY_LIMIT (bytes, usually the pod limit from the
// Downward API) is scaled by MEMORY_RATIO, default DefaultMemoryRatio.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		metrics.GoMemLimit.Set(float64(result.GoMemLimit))
		return result
	}

	none := ConfigResult{Source: "none"}
	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, backfill runs without a soft memory limit")
		return none
	}
	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", raw, err)
		return none
	}
	if containerLimit <= 0 {
		logging.Warn("Ignoring non-positive MEMORY_LIMIT %q", raw)
		return none
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)
	metrics.GoMemLimit.Set(float64(limit))

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(limit), ratio*100, formatBytes(containerLimit))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

// parseRatio accepts a value in (0, 1] and falls back to DefaultMemoryRatio.
func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", raw, err, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	if ratio <= 0 || ratio > 1.0 {
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
