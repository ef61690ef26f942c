package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// MonitorState is the lifecycle position of a Monitor.
type MonitorState int32

const (
	StateIdle MonitorState = iota
	StateSampling
	StateStopped
)

func (s MonitorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("MonitorState(%d)", int32(s))
}

var ErrMonitorStarted = errors.New("monitor already started")

// MonitorOptions bounds a monitoring run. A zero Duration runs until the
// context is cancelled.
type MonitorOptions struct {
	Interval time.Duration
	Duration time.Duration
}

func (o MonitorOptions) validate() error {
	if o.Interval <= 0 {
		return fmt.Errorf("sampling interval must be positive, got %s", o.Interval)
	}
	if o.Duration < 0 {
		return fmt.Errorf("monitoring duration must not be negative, got %s", o.Duration)
	}
	return nil
}

// Monitor samples the AHI counters on a fixed interval and keeps the series in
// memory. A Monitor runs once; build a new one for every run.
type Monitor struct {
	sampler  *Sampler
	observer port.SeriesObserver
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation

	now   func() time.Time
	wait  func(ctx context.Context, d time.Duration) bool
	state atomic.Int32
}

func NewMonitor(sampler *Sampler, observer port.SeriesObserver, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *Monitor {
	if observer == nil {
		observer = port.NoopObserver{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &Monitor{
		sampler:  sampler,
		observer: observer,
		logger:   logger,
		tracer:   tracer,
		inst:     inst,
		now:      time.Now,
		wait:     sleepCtx,
	}
}

// State reports where the monitor is in its lifecycle. Safe to call from any
// goroutine.
func (m *Monitor) State() MonitorState {
	return MonitorState(m.state.Load())
}

// Run samples until opts.Duration elapses or ctx is cancelled and returns the
// series collected so far. Cancellation is only observed between ticks: a
// sample that has started always completes. A sampling error stops the run
// and is returned together with the partial series.
func (m *Monitor) Run(ctx context.Context, opts MonitorOptions) (*domain.AHISeries, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !m.state.CompareAndSwap(int32(StateIdle), int32(StateSampling)) {
		return nil, ErrMonitorStarted
	}
	defer m.state.Store(int32(StateStopped))

	ctx, span := m.tracer.Start(ctx, "Monitor.Run",
		trace.WithAttributes(
			attribute.Int64("indexlens.interval_ms", opts.Interval.Milliseconds()),
			attribute.Int64("indexlens.duration_ms", opts.Duration.Milliseconds()),
		),
	)
	defer span.End()

	series := &domain.AHISeries{
		StartedAt: m.now(),
		Samples:   []domain.AHISample{},
		Intervals: []domain.AHIInterval{},
	}
	var deadline time.Time
	if opts.Duration > 0 {
		deadline = series.StartedAt.Add(opts.Duration)
	}

	m.logger.InfoContext(ctx, "AHI monitoring started",
		slog.Duration("interval", opts.Interval),
		slog.Duration("duration", opts.Duration),
	)

	var (
		prev      domain.AHISample
		havePrev  bool
		warnedOff bool
		runErr    error
	)
	for {
		if ctx.Err() != nil {
			series.StopReason = domain.StopCancelled
			break
		}

		sample, err := m.sampler.Sample(context.WithoutCancel(ctx))
		if err != nil {
			series.StopReason = domain.StopError
			runErr = fmt.Errorf("sampling AHI counters: %w", err)
			break
		}
		m.inst.IncrementSamples(ctx)

		if !sample.Enabled && !warnedOff {
			m.logger.WarnContext(ctx, "innodb_adaptive_hash_index is OFF; counters will not move")
			warnedOff = true
		}

		var interval *domain.AHIInterval
		if havePrev {
			iv, diff, ok := domain.NewInterval(prev, sample)
			if ok {
				series.Intervals = append(series.Intervals, iv)
				interval = &iv
				if iv.Effectiveness.HitRate != nil {
					m.inst.RecordIntervalHitRate(ctx, *iv.Effectiveness.HitRate)
				}
			} else {
				series.Rebaselines++
				m.inst.IncrementCounterResets(ctx)
				m.logger.InfoContext(ctx, "AHI counters went backwards; rebaselining",
					slog.Any("counters", diff.Decreased),
					slog.String("reason", diff.Err().Error()),
				)
			}
		}
		series.Samples = append(series.Samples, sample)
		prev, havePrev = sample, true
		m.observer.ObserveSample(ctx, sample, interval)

		next := opts.Interval
		if !deadline.IsZero() {
			remaining := deadline.Sub(m.now())
			if remaining <= 0 {
				series.StopReason = domain.StopDuration
				break
			}
			next = min(next, remaining)
		}
		if !m.wait(ctx, next) {
			series.StopReason = domain.StopCancelled
			break
		}
	}

	series.StoppedAt = m.now()
	span.SetAttributes(
		attribute.Int("indexlens.samples", len(series.Samples)),
		attribute.Int("indexlens.rebaselines", series.Rebaselines),
		attribute.String("indexlens.stop_reason", string(series.StopReason)),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		return series, runErr
	}

	m.logger.InfoContext(ctx, "AHI monitoring stopped",
		slog.String("reason", string(series.StopReason)),
		slog.Int("samples", len(series.Samples)),
		slog.Int("intervals", len(series.Intervals)),
		slog.Int("rebaselines", series.Rebaselines),
	)
	return series, nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
