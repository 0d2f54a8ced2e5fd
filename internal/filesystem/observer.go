package filesystem

// RetryEvent identifies a step in a retried operation.
type RetryEvent int

const (
	// RetryAttempt is recorded before each backoff sleep.
	RetryAttempt RetryEvent = iota
	// RetryStale is recorded for every ESTALE observed.
	RetryStale
	// RetrySucceeded is recorded when an operation succeeds after at least one retry.
	RetrySucceeded
	// RetryExhausted is recorded when every retry failed with ESTALE.
	RetryExhausted
)

// Observer records filesystem operation metrics. The metrics package provides
// the Prometheus implementation; filesystem never imports it.
type Observer interface {
	// ObserveOperation records duration and error status for one call.
	// volume is the resolved mount label ("catalog", "scratch", "source").
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// ObserveRetry records a retry event. durationSeconds is the total time
	// spent so far and is only meaningful for RetrySucceeded and RetryExhausted.
	ObserveRetry(operation, volume string, event RetryEvent, durationSeconds float64)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, float64, error) {}
func (nopObserver) ObserveRetry(string, string, RetryEvent, float64) {}

// defaultObserver is the package-level observer set at startup.
var defaultObserver Observer = nopObserver{}

// SetObserver sets the package-level metrics observer. A nil observer
// disables recording.
func SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	defaultObserver = o
}
