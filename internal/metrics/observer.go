package metrics

import "asset-catalog/internal/filesystem"

// filesystemObserver feeds filesystem retry events into the Filesystem*
// collectors.
type filesystemObserver struct{}

// NewFilesystemObserver returns the observer installed with
// filesystem.SetObserver at startup.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveRetry(operation, volume string, event filesystem.RetryEvent, durationSeconds float64) {
	switch event {
	case filesystem.RetryAttempt:
		FilesystemRetryAttempts.WithLabelValues(operation, volume).Inc()
	case filesystem.RetryStale:
		FilesystemStaleErrors.WithLabelValues(operation, volume).Inc()
	case filesystem.RetrySucceeded:
		FilesystemRetrySuccess.WithLabelValues(operation, volume).Inc()
		FilesystemRetryDuration.WithLabelValues(operation, volume).Observe(durationSeconds)
	case filesystem.RetryExhausted:
		FilesystemRetryFailures.WithLabelValues(operation, volume).Inc()
		FilesystemRetryDuration.WithLabelValues(operation, volume).Observe(durationSeconds)
	}
}
