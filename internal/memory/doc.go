// Package memory controls the Go runtime memory limit in containers and
// provides backpressure for the backfill pool.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: standard Go variable; takes precedence when set.
//   - MEMORY_LIMIT: container memory limit in bytes, typically from the
//     Kubernetes Downward API (resourceFieldRef: limits.memory).
//   - MEMORY_RATIO: fraction of MEMORY_LIMIT given to the Go heap, between
//     0.0 and 1.0. Default is 0.80. libvips and the archive decoders
//     allocate outside the Go heap, so leave headroom.
//
// GOMEMLIMIT is a soft limit: the collector works harder near it but does
// not bound CGO allocations.
//
// # Backpressure
//
// A [Monitor] samples heap usage. Once it crosses the critical mark,
// [Monitor.Wait] blocks workers before their next item until usage drops
// below the high-water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	for item := range items {
//	    if err := monitor.Wait(ctx); err != nil {
//	        return
//	    }
//	    process(item)
//	}
package memory
