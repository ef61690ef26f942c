package port

import (
	"context"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// SeriesObserver receives each sample as the monitor captures it. interval is
// nil on the first tick and after a rebaseline.
type SeriesObserver interface {
	ObserveSample(ctx context.Context, sample domain.AHISample, interval *domain.AHIInterval)
}

// NoopObserver ignores every sample.
type NoopObserver struct{}

func (NoopObserver) ObserveSample(context.Context, domain.AHISample, *domain.AHIInterval) {}
