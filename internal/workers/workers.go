package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "BACKFILL_WORKERS"

// Count returns multiplier workers per available CPU, at least one and at
// most limit (0 for no limit). GOMAXPROCS already follows the container CPU
// quota. BACKFILL_WORKERS overrides the result.
func Count(multiplier float64, limit int) int {
	if count, ok := override(); ok {
		if limit > 0 && count > limit {
			return limit
		}
		return count
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// Resolve returns the configured worker count when it is positive, the
// environment override when set, and otherwise a mixed-workload count capped
// at limit.
func Resolve(configured, limit int) int {
	if count, ok := override(); ok {
		return count
	}
	if configured > 0 {
		return configured
	}
	return ForMixed(limit)
}

func override() (int, bool) {
	value := os.Getenv(OverrideEnv)
	if value == "" {
		return 0, false
	}
	count, err := strconv.Atoi(value)
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
// Downloading, extracting and rasterizing an asset is a mixed workload.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
