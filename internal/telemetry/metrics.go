package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/indexlens"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	CatalogReadDuration metric.Float64Histogram
	Samples             metric.Int64Counter
	CounterResets       metric.Int64Counter
	IntervalHitRate     metric.Float64Histogram
	ToolDuration        metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// The SDK hands back a noop instrument alongside any error.
	catalogRead, _ := meter.Float64Histogram("indexlens.catalog.read.duration",
		metric.WithDescription("Time spent reading index definitions and usage counters"),
		metric.WithUnit("ms"),
	)
	samples, _ := meter.Int64Counter("indexlens.ahi.samples",
		metric.WithDescription("AHI samples captured"),
	)
	resets, _ := meter.Int64Counter("indexlens.ahi.counter_resets",
		metric.WithDescription("Monitor rebaselines caused by a decreasing cumulative counter"),
	)
	hitRate, _ := meter.Float64Histogram("indexlens.ahi.interval.hit_rate",
		metric.WithDescription("AHI hit rate per sampling interval"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	toolDuration, _ := meter.Float64Histogram("indexlens.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		CatalogReadDuration: catalogRead,
		Samples:             samples,
		CounterResets:       resets,
		IntervalHitRate:     hitRate,
		ToolDuration:        toolDuration,
	}
}

func (i *Instruments) RecordCatalogReadDuration(ctx context.Context, ms float64) {
	i.CatalogReadDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementSamples(ctx context.Context) {
	i.Samples.Add(ctx, 1)
}

func (i *Instruments) IncrementCounterResets(ctx context.Context) {
	i.CounterResets.Add(ctx, 1)
}

func (i *Instruments) RecordIntervalHitRate(ctx context.Context, pct float64) {
	i.IntervalHitRate.Record(ctx, pct)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
