package service

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// Sampler turns one AHI status reading into one sample. It never retries and
// never changes server configuration.
type Sampler struct {
	reader port.AHIStatusReader
	now    func() time.Time
}

func NewSampler(reader port.AHIStatusReader) *Sampler {
	return &Sampler{reader: reader, now: time.Now}
}

// Sample fails with domain.ErrDataUnavailable when any of the InnoDB AHI
// metrics is disabled.
func (s *Sampler) Sample(ctx context.Context) (domain.AHISample, error) {
	st, err := s.reader.ReadAHIStatus(ctx)
	if err != nil {
		return domain.AHISample{}, fmt.Errorf("reading AHI status: %w", err)
	}

	counters, err := domain.CountersFromMetrics(st.Metrics)
	if err != nil {
		return domain.AHISample{}, err
	}

	return domain.AHISample{
		Timestamp:       s.now(),
		Enabled:         st.Enabled,
		Partitions:      st.Partitions,
		BufferPoolBytes: st.BufferPoolBytes,
		HashTableSize:   st.HashTableSize,
		BufferCount:     st.HashBuffers,
		Counters:        counters,
	}, nil
}
