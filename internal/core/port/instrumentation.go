package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordCatalogReadDuration(ctx context.Context, ms float64)
	IncrementSamples(ctx context.Context)
	IncrementCounterResets(ctx context.Context)
	RecordIntervalHitRate(ctx context.Context, pct float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordCatalogReadDuration(context.Context, float64) {}
func (NoopInstrumentation) IncrementSamples(context.Context)                    {}
func (NoopInstrumentation) IncrementCounterResets(context.Context)              {}
func (NoopInstrumentation) RecordIntervalHitRate(context.Context, float64)      {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)         {}
