package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordRunDuration(ctx context.Context, ms float64)
	RecordFindings(ctx context.Context, n int64)
	IncrementApplyCount(ctx context.Context)
	IncrementApplyErrors(ctx context.Context)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordRunDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordFindings(context.Context, int64)     {}
func (NoopInstrumentation) IncrementApplyCount(context.Context)       {}
func (NoopInstrumentation) IncrementApplyErrors(context.Context)      {}
