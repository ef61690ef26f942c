package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fake clock ---

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

// wait advances the clock instead of sleeping; it still honours cancellation.
func (c *fakeClock) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	c.t = c.t.Add(d)
	return true
}

// --- mock AHIStatusReader ---

type mockStatusReader struct {
	statuses []*port.AHIStatus
	errs     map[int]error
	calls    int
	onRead   func(ctx context.Context, call int)
}

func (m *mockStatusReader) ReadAHIStatus(ctx context.Context) (*port.AHIStatus, error) {
	call := m.calls
	m.calls++
	if m.onRead != nil {
		m.onRead(ctx, call)
	}
	if err, ok := m.errs[call]; ok {
		return nil, err
	}
	if call < len(m.statuses) {
		return m.statuses[call], nil
	}
	return m.statuses[len(m.statuses)-1], nil
}

func status(searches, btree int64) *port.AHIStatus {
	return &port.AHIStatus{
		Enabled:         true,
		Partitions:      8,
		BufferPoolBytes: 128 << 20,
		HashTableSize:   34679,
		HashBuffers:     12,
		Metrics: map[string]int64{
			domain.MetricAHISearches:          searches,
			domain.MetricAHISearchesBtree:     btree,
			domain.MetricAHIPagesAdded:        10,
			domain.MetricAHIPagesRemoved:      1,
			domain.MetricAHIRowsAdded:         100,
			domain.MetricAHIRowsUpdated:       5,
			domain.MetricAHIRowsRemoved:       2,
			domain.MetricAHIRowsDeletedNoHash: 0,
		},
	}
}

// --- recording observer ---

type observed struct {
	sample   domain.AHISample
	interval *domain.AHIInterval
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveSample(_ context.Context, s domain.AHISample, iv *domain.AHIInterval) {
	r.calls = append(r.calls, observed{sample: s, interval: iv})
}

// --- recording instrumentation ---

type countingInst struct {
	port.NoopInstrumentation
	samples  int
	resets   int
	hitRates []float64
}

func (c *countingInst) IncrementSamples(context.Context)       { c.samples++ }
func (c *countingInst) IncrementCounterResets(context.Context) { c.resets++ }
func (c *countingInst) RecordIntervalHitRate(_ context.Context, pct float64) {
	c.hitRates = append(c.hitRates, pct)
}
