package domain

import (
	"fmt"
	"time"
)

// InnoDB metric names backing the AHI counters. All eight must be enabled in
// INFORMATION_SCHEMA.INNODB_METRICS for a sample to be taken.
const (
	MetricAHISearches          = "adaptive_hash_searches"
	MetricAHISearchesBtree     = "adaptive_hash_searches_btree"
	MetricAHIPagesAdded        = "adaptive_hash_pages_added"
	MetricAHIPagesRemoved      = "adaptive_hash_pages_removed"
	MetricAHIRowsAdded         = "adaptive_hash_rows_added"
	MetricAHIRowsUpdated       = "adaptive_hash_rows_updated"
	MetricAHIRowsRemoved       = "adaptive_hash_rows_removed"
	MetricAHIRowsDeletedNoHash = "adaptive_hash_rows_deleted_no_hash_entry"
)

// AHIMetricNames lists the metrics in counter order.
var AHIMetricNames = []string{
	MetricAHISearches,
	MetricAHISearchesBtree,
	MetricAHIPagesAdded,
	MetricAHIPagesRemoved,
	MetricAHIRowsAdded,
	MetricAHIRowsUpdated,
	MetricAHIRowsRemoved,
	MetricAHIRowsDeletedNoHash,
}

// AHICounters are the cumulative AHI counters, or a delta between two
// readings of them.
type AHICounters struct {
	Searches          int64 `json:"searches" yaml:"searches"`
	BtreeSearches     int64 `json:"btree_searches" yaml:"btree_searches"`
	PagesAdded        int64 `json:"pages_added" yaml:"pages_added"`
	PagesRemoved      int64 `json:"pages_removed" yaml:"pages_removed"`
	RowsAdded         int64 `json:"rows_added" yaml:"rows_added"`
	RowsUpdated       int64 `json:"rows_updated" yaml:"rows_updated"`
	RowsRemoved       int64 `json:"rows_removed" yaml:"rows_removed"`
	RowsDeletedNoHash int64 `json:"rows_deleted_no_hash" yaml:"rows_deleted_no_hash"`
}

// CountersFromMetrics maps INNODB_METRICS values onto counters. It fails with
// ErrDataUnavailable naming every metric that is absent.
func CountersFromMetrics(metrics map[string]int64) (AHICounters, error) {
	var missing []string
	get := func(name string) int64 {
		v, ok := metrics[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	}
	c := AHICounters{
		Searches:          get(MetricAHISearches),
		BtreeSearches:     get(MetricAHISearchesBtree),
		PagesAdded:        get(MetricAHIPagesAdded),
		PagesRemoved:      get(MetricAHIPagesRemoved),
		RowsAdded:         get(MetricAHIRowsAdded),
		RowsUpdated:       get(MetricAHIRowsUpdated),
		RowsRemoved:       get(MetricAHIRowsRemoved),
		RowsDeletedNoHash: get(MetricAHIRowsDeletedNoHash),
	}
	if len(missing) > 0 {
		return AHICounters{}, fmt.Errorf("%w: innodb metrics not enabled: %v", ErrDataUnavailable, missing)
	}
	return c, nil
}

func (c AHICounters) values() [8]int64 {
	return [8]int64{
		c.Searches, c.BtreeSearches, c.PagesAdded, c.PagesRemoved,
		c.RowsAdded, c.RowsUpdated, c.RowsRemoved, c.RowsDeletedNoHash,
	}
}

// AHISample is one immutable reading of the AHI instrumentation.
type AHISample struct {
	Timestamp       time.Time   `json:"timestamp" yaml:"timestamp"`
	Enabled         bool        `json:"enabled" yaml:"enabled"`
	Partitions      int64       `json:"partitions" yaml:"partitions"`
	BufferPoolBytes int64       `json:"buffer_pool_bytes" yaml:"buffer_pool_bytes"`
	HashTableSize   int64       `json:"hash_table_size" yaml:"hash_table_size"`
	BufferCount     int64       `json:"buffer_count" yaml:"buffer_count"`
	Counters        AHICounters `json:"counters" yaml:"counters"`
}

// Effectiveness computes the hit rate over the cumulative counters, i.e.
// since the server started or the metrics were last reset.
func (s AHISample) Effectiveness() Effectiveness {
	return NewEffectiveness(s.Counters.Searches, s.Counters.BtreeSearches)
}

// CounterDiff is the result of comparing two consecutive readings: either a
// delta, or a rebaseline signal when any counter went backwards.
type CounterDiff struct {
	Delta      AHICounters
	Rebaseline bool
	// Decreased names the counters that went backwards.
	Decreased []string
}

// Err returns ErrCounterReset wrapped with the offending counters when the
// diff is a rebaseline, nil otherwise. It is meant for logging only.
func (d CounterDiff) Err() error {
	if !d.Rebaseline {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCounterReset, d.Decreased)
}

// DiffCounters subtracts prev from cur. It never returns a negative delta:
// if any counter decreased the result is a rebaseline with a zero delta.
func DiffCounters(prev, cur AHICounters) CounterDiff {
	p, c := prev.values(), cur.values()
	var decreased []string
	for i := range p {
		if c[i] < p[i] {
			decreased = append(decreased, AHIMetricNames[i])
		}
	}
	if len(decreased) > 0 {
		return CounterDiff{Rebaseline: true, Decreased: decreased}
	}
	return CounterDiff{Delta: AHICounters{
		Searches:          cur.Searches - prev.Searches,
		BtreeSearches:     cur.BtreeSearches - prev.BtreeSearches,
		PagesAdded:        cur.PagesAdded - prev.PagesAdded,
		PagesRemoved:      cur.PagesRemoved - prev.PagesRemoved,
		RowsAdded:         cur.RowsAdded - prev.RowsAdded,
		RowsUpdated:       cur.RowsUpdated - prev.RowsUpdated,
		RowsRemoved:       cur.RowsRemoved - prev.RowsRemoved,
		RowsDeletedNoHash: cur.RowsDeletedNoHash - prev.RowsDeletedNoHash,
	}}
}

// AHIInterval is built from two adjacent samples only.
type AHIInterval struct {
	Start         time.Time     `json:"start" yaml:"start"`
	End           time.Time     `json:"end" yaml:"end"`
	Elapsed       time.Duration `json:"elapsed_ns" yaml:"elapsed"`
	Delta         AHICounters   `json:"delta" yaml:"delta"`
	Effectiveness Effectiveness `json:"effectiveness" yaml:"effectiveness"`
}

// NewInterval diffs two adjacent samples. The bool is false when the counters
// were reset between them, in which case no interval exists.
func NewInterval(prev, cur AHISample) (AHIInterval, CounterDiff, bool) {
	diff := DiffCounters(prev.Counters, cur.Counters)
	if diff.Rebaseline {
		return AHIInterval{}, diff, false
	}
	return AHIInterval{
		Start:         prev.Timestamp,
		End:           cur.Timestamp,
		Elapsed:       cur.Timestamp.Sub(prev.Timestamp),
		Delta:         diff.Delta,
		Effectiveness: NewEffectiveness(diff.Delta.Searches, diff.Delta.BtreeSearches),
	}, diff, true
}

// StopReason records why a monitoring run ended.
type StopReason string

const (
	StopDuration  StopReason = "duration_elapsed"
	StopCancelled StopReason = "cancelled"
	StopError     StopReason = "error"
)

// AHISeries is the in-memory output of a monitoring run.
type AHISeries struct {
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	StoppedAt   time.Time     `json:"stopped_at" yaml:"stopped_at"`
	StopReason  StopReason    `json:"stop_reason" yaml:"stop_reason"`
	Samples     []AHISample   `json:"samples" yaml:"samples"`
	Intervals   []AHIInterval `json:"intervals" yaml:"intervals"`
	Rebaselines int           `json:"rebaselines" yaml:"rebaselines"`
}

// Overall aggregates every interval of the series into one effectiveness
// figure. Rebaselined gaps contribute nothing.
func (s *AHISeries) Overall() Effectiveness {
	var ahi, btree int64
	for _, iv := range s.Intervals {
		ahi += iv.Delta.Searches
		btree += iv.Delta.BtreeSearches
	}
	return NewEffectiveness(ahi, btree)
}

// Latest returns the most recent sample, if any.
func (s *AHISeries) Latest() (AHISample, bool) {
	if len(s.Samples) == 0 {
		return AHISample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}
