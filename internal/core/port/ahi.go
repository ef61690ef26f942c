package port

import "context"

// AHIStatus is one raw reading of the adaptive hash index instrumentation.
type AHIStatus struct {
	Enabled         bool
	Partitions      int64
	BufferPoolBytes int64
	HashTableSize   int64
	HashBuffers     int64
	// Metrics holds only the INNODB_METRICS counters whose status is enabled.
	Metrics map[string]int64
}

// AHIStatusReader takes one reading. It must not change server configuration.
type AHIStatusReader interface {
	ReadAHIStatus(ctx context.Context) (*AHIStatus, error)
}

// AHIMetricsEnabler switches on the InnoDB metrics the sampler depends on.
type AHIMetricsEnabler interface {
	EnableAHIMetrics(ctx context.Context) error
}
