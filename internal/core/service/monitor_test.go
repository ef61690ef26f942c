package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(reader *mockStatusReader, obs port.SeriesObserver, inst port.Instrumentation) (*Monitor, *fakeClock) {
	clock := newFakeClock()
	sampler := NewSampler(reader)
	sampler.now = clock.Now
	m := NewMonitor(sampler, obs, testLogger(), nil, inst)
	m.now = clock.Now
	m.wait = clock.wait
	return m, clock
}

func TestMonitor_RunsForDuration(t *testing.T) {
	reader := &mockStatusReader{statuses: []*port.AHIStatus{
		status(1000, 1000),
		status(1800, 1200),
		status(2400, 1600),
		status(2400, 1600),
	}}
	m, clock := newTestMonitor(reader, nil, nil)
	start := clock.Now()

	series, err := m.Run(context.Background(), MonitorOptions{Interval: 5 * time.Second, Duration: 15 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, domain.StopDuration, series.StopReason)
	require.Len(t, series.Samples, 4, "ticks at 0s, 5s, 10s and 15s")
	require.Len(t, series.Intervals, 3)
	assert.Equal(t, start, series.StartedAt)
	assert.Equal(t, start.Add(15*time.Second), series.StoppedAt)
	assert.Equal(t, StateStopped, m.State())

	assert.InDelta(t, 80.0, *series.Intervals[0].Effectiveness.HitRate, 0.001)
	assert.Equal(t, domain.TierExcellent, series.Intervals[0].Effectiveness.Tier)
	assert.InDelta(t, 60.0, *series.Intervals[1].Effectiveness.HitRate, 0.001)
	assert.Equal(t, domain.TierGood, series.Intervals[1].Effectiveness.Tier)
	assert.Nil(t, series.Intervals[2].Effectiveness.HitRate)
	assert.Equal(t, domain.TierUndefined, series.Intervals[2].Effectiveness.Tier)

	for _, iv := range series.Intervals {
		assert.Equal(t, 5*time.Second, iv.Elapsed)
	}
}

func TestMonitor_LastWaitClampedToDeadline(t *testing.T) {
	reader := &mockStatusReader{statuses: []*port.AHIStatus{status(0, 0), status(10, 0), status(20, 0)}}
	m, _ := newTestMonitor(reader, nil, nil)

	series, err := m.Run(context.Background(), MonitorOptions{Interval: 10 * time.Second, Duration: 15 * time.Second})
	require.NoError(t, err)

	require.Len(t, series.Samples, 3)
	require.Len(t, series.Intervals, 2)
	assert.Equal(t, 10*time.Second, series.Intervals[0].Elapsed)
	assert.Equal(t, 5*time.Second, series.Intervals[1].Elapsed, "partial final interval is kept")
}

func TestMonitor_CounterResetRebaselines(t *testing.T) {
	reader := &mockStatusReader{statuses: []*port.AHIStatus{
		status(1000, 500),
		status(2000, 600),
		status(50, 10), // server restarted
		status(130, 30),
	}}
	obs := &recordingObserver{}
	inst := &countingInst{}
	m, _ := newTestMonitor(reader, obs, inst)

	series, err := m.Run(context.Background(), MonitorOptions{Interval: time.Second, Duration: 3 * time.Second})
	require.NoError(t, err)

	require.Len(t, series.Samples, 4)
	require.Len(t, series.Intervals, 2, "no interval for the reset tick")
	assert.Equal(t, 1, series.Rebaselines)
	for _, iv := range series.Intervals {
		for _, v := range []int64{iv.Delta.Searches, iv.Delta.BtreeSearches, iv.Delta.RowsAdded} {
			assert.GreaterOrEqual(t, v, int64(0))
		}
	}
	assert.Equal(t, int64(80), series.Intervals[1].Delta.Searches)
	assert.Equal(t, int64(20), series.Intervals[1].Delta.BtreeSearches)

	require.Len(t, obs.calls, 4)
	assert.Nil(t, obs.calls[0].interval, "first tick has no interval")
	assert.NotNil(t, obs.calls[1].interval)
	assert.Nil(t, obs.calls[2].interval, "rebaseline tick has no interval")
	assert.NotNil(t, obs.calls[3].interval)

	assert.Equal(t, 4, inst.samples)
	assert.Equal(t, 1, inst.resets)
	assert.Len(t, inst.hitRates, 2)
}

func TestMonitor_CancelledBetweenTicks(t *testing.T) {
	reader := &mockStatusReader{statuses: []*port.AHIStatus{status(1, 1), status(2, 2), status(3, 3)}}
	m, clock := newTestMonitor(reader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	waits := 0
	m.wait = func(ctx context.Context, d time.Duration) bool {
		waits++
		if waits == 2 {
			cancel()
		}
		return clock.wait(ctx, d)
	}

	series, err := m.Run(ctx, MonitorOptions{Interval: time.Second})
	require.NoError(t, err, "cancellation is a normal stop")

	assert.Equal(t, domain.StopCancelled, series.StopReason)
	assert.Len(t, series.Samples, 2)
	assert.Len(t, series.Intervals, 1)
	assert.Equal(t, 2, reader.calls)
}

func TestMonitor_CancelledBeforeStart(t *testing.T) {
	reader := &mockStatusReader{statuses: []*port.AHIStatus{status(1, 1)}}
	m, _ := newTestMonitor(reader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	series, err := m.Run(ctx, MonitorOptions{Interval: time.Second})
	require.NoError(t, err)
	assert.Equal(t, domain.StopCancelled, series.StopReason)
	assert.Empty(t, series.Samples)
	assert.Zero(t, reader.calls)
}

func TestMonitor_CancellationNeverInterruptsSample(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sampleCtxErr error
	reader := &mockStatusReader{
		statuses: []*port.AHIStatus{status(10, 10)},
		onRead: func(ctx context.Context, _ int) {
			cancel()
			sampleCtxErr = ctx.Err()
		},
	}
	m, _ := newTestMonitor(reader, nil, nil)
	m.wait = sleepCtx

	series, err := m.Run(ctx, MonitorOptions{Interval: time.Hour})
	require.NoError(t, err)

	assert.NoError(t, sampleCtxErr, "in-flight sample must not see the cancellation")
	require.Len(t, series.Samples, 1, "the started sample is kept")
	assert.Equal(t, domain.StopCancelled, series.StopReason)
}

func TestMonitor_SampleErrorReturnsPartialSeries(t *testing.T) {
	reader := &mockStatusReader{
		statuses: []*port.AHIStatus{status(1, 1), status(2, 2)},
		errs:     map[int]error{2: fmt.Errorf("%w: metrics disabled", domain.ErrDataUnavailable)},
	}
	m, _ := newTestMonitor(reader, nil, nil)

	series, err := m.Run(context.Background(), MonitorOptions{Interval: time.Second})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	require.NotNil(t, series)
	assert.Equal(t, domain.StopError, series.StopReason)
	assert.Len(t, series.Samples, 2)
	assert.Len(t, series.Intervals, 1)
	assert.Equal(t, 3, reader.calls, "no retry after a failed sample")
	assert.Equal(t, StateStopped, m.State())
}

func TestMonitor_DisabledAHIStillSamples(t *testing.T) {
	off := status(0, 50)
	off.Enabled = false
	reader := &mockStatusReader{statuses: []*port.AHIStatus{off}}
	m, _ := newTestMonitor(reader, nil, nil)

	series, err := m.Run(context.Background(), MonitorOptions{Interval: time.Second, Duration: time.Second})
	require.NoError(t, err)
	require.Len(t, series.Samples, 2)
	assert.False(t, series.Samples[0].Enabled)
}

func TestMonitor_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts MonitorOptions
	}{
		{"zero interval", MonitorOptions{}},
		{"negative interval", MonitorOptions{Interval: -time.Second}},
		{"negative duration", MonitorOptions{Interval: time.Second, Duration: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor(&mockStatusReader{statuses: []*port.AHIStatus{status(1, 1)}}, nil, nil)
			_, err := m.Run(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Equal(t, StateIdle, m.State(), "invalid options never start the monitor")
		})
	}
}

func TestMonitor_RunsOnce(t *testing.T) {
	m, _ := newTestMonitor(&mockStatusReader{statuses: []*port.AHIStatus{status(1, 1)}}, nil, nil)
	assert.Equal(t, StateIdle, m.State())

	_, err := m.Run(context.Background(), MonitorOptions{Interval: time.Second, Duration: time.Second})
	require.NoError(t, err)

	_, err = m.Run(context.Background(), MonitorOptions{Interval: time.Second})
	assert.True(t, errors.Is(err, ErrMonitorStarted))
}

func TestMonitor_StateWhileSampling(t *testing.T) {
	var during MonitorState
	var m *Monitor
	reader := &mockStatusReader{
		statuses: []*port.AHIStatus{status(1, 1)},
		onRead:   func(context.Context, int) { during = m.State() },
	}
	m, _ = newTestMonitor(reader, nil, nil)

	_, err := m.Run(context.Background(), MonitorOptions{Interval: time.Second, Duration: time.Second})
	require.NoError(t, err)
	assert.Equal(t, StateSampling, during)
	assert.Equal(t, "sampling", during.String())
}
