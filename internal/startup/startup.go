package startup

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"asset-catalog/internal/logging"
	"asset-catalog/internal/memory"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	switch {
	case !result.Configured:
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable)")
	case result.Source == "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT: %d bytes (from environment)", result.GoMemLimit)
	default:
		logging.Info("  GOMEMLIMIT: %d bytes (%.0f%% of %d byte container limit)",
			result.GoMemLimit, result.Ratio*100, result.ContainerLimit)
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogScanInit logs the start of a catalog scan.
func LogScanInit(sources int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCAN")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Sources: %d", sources)
}

// LogBackfillInit logs the shape of a backfill sweep.
func LogBackfillInit(parallel bool, workers, batchSize int, lease string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BACKFILL")
	logging.Info("------------------------------------------------------------")
	if parallel {
		logging.Info("  Mode:       parallel (%d workers)", workers)
	} else {
		logging.Info("  Mode:       sequential")
	}
	logging.Info("  Batch size: %d", batchSize)
	logging.Info("  Lease:      %s", lease)
}

// LogMetricsServer logs where /metrics is served.
func LogMetricsServer(addr string) {
	logging.Info("  Metrics:    http://%s/metrics", addr)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    ___                   __     ______      __        __
   /   |  _____________  / /_   / ____/___ _/ /_____ _/ /___  ____ _
  / /| | / ___/ ___/ _ \/ __/  / /   / __ '/ __/ __ '/ / __ \/ __ '/
 / ___ |(__  |__  )  __/ /_   / /___/ /_/ / /_/ /_/ / / /_/ / /_/ /
/_/  |_/____/____/\___/\__/   \____/\__,_/\__/\__,_/_/\____/\__, /
                                                           /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}
