package ports

import "context"

// MetricsRecorder records event core metrics.
type MetricsRecorder interface {
	// RecordMutation records one lifecycle or permission operation and its outcome.
	RecordMutation(ctx context.Context, operation string, err error)

	// RecordConflict records a rejected scheduling attempt.
	RecordConflict(ctx context.Context, operation string)
}
