package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// StatusReader takes AHI readings from InnoDB. It only reads; switching the
// metrics on is EnableAHIMetrics' job.
type StatusReader struct {
	run          runner
	queryTimeout time.Duration
}

func NewStatusReader(db *sql.DB, queryTimeout time.Duration, auditor port.QueryAuditor) *StatusReader {
	return &StatusReader{
		run:          runner{db: db, auditor: auditor},
		queryTimeout: queryTimeout,
	}
}

func (r *StatusReader) ReadAHIStatus(ctx context.Context) (*port.AHIStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	st := &port.AHIStatus{}
	if err := r.readVariables(ctx, st); err != nil {
		return nil, err
	}
	if err := r.run.one(ctx, queryBufferPoolSize, &st.BufferPoolBytes); err != nil {
		return nil, fmt.Errorf("reading innodb_buffer_pool_size: %w", err)
	}

	metrics, err := r.readMetrics(ctx)
	if err != nil {
		return nil, err
	}
	st.Metrics = metrics

	status, err := r.readEngineStatus(ctx)
	if err != nil {
		return nil, err
	}
	st.HashTableSize, st.HashBuffers = parseHashTableStatus(status)

	return st, nil
}

func (r *StatusReader) readVariables(ctx context.Context, st *port.AHIStatus) error {
	err := r.run.each(ctx, queryAHIVariables, nil, func(rows *sql.Rows) error {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		switch strings.ToLower(name) {
		case "innodb_adaptive_hash_index":
			st.Enabled = strings.EqualFold(value, "ON") || value == "1"
		case "innodb_adaptive_hash_index_parts":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing %s=%q: %w", name, value, err)
			}
			st.Partitions = n
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading AHI variables: %w", err)
	}
	return nil
}

func (r *StatusReader) readMetrics(ctx context.Context) (map[string]int64, error) {
	names := make([]string, len(domain.AHIMetricNames))
	for i, n := range domain.AHIMetricNames {
		names[i] = quoteString(n)
	}
	stmt := fmt.Sprintf(queryAHIMetrics, strings.Join(names, ", "))

	metrics := make(map[string]int64, len(names))
	err := r.run.each(ctx, stmt, nil, func(rows *sql.Rows) error {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		metrics[name] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading INNODB_METRICS: %w", err)
	}
	return metrics, nil
}

func (r *StatusReader) readEngineStatus(ctx context.Context) (string, error) {
	var status string
	err := r.run.each(ctx, queryInnoDBStatus, nil, func(rows *sql.Rows) error {
		var typ, name string
		if err := rows.Scan(&typ, &name, &status); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading SHOW ENGINE INNODB STATUS: %w", err)
	}
	return status, nil
}

// EnableAHIMetrics turns on every InnoDB metric the sampler reads. It needs
// SYSTEM_VARIABLES_ADMIN (or SUPER) and persists until server restart.
func (r *StatusReader) EnableAHIMetrics(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	for _, name := range domain.AHIMetricNames {
		if err := r.run.exec(ctx, fmt.Sprintf(stmtEnableMonitor, quoteString(name))); err != nil {
			return fmt.Errorf("enabling metric %s: %w", name, err)
		}
	}
	return nil
}

var hashTableRe = regexp.MustCompile(`Hash table size (\d+), node heap has (\d+) buffer\(s\)`)

// parseHashTableStatus sums the per-partition hash table lines found in the
// INSERT BUFFER AND ADAPTIVE HASH INDEX section.
func parseHashTableStatus(status string) (size, buffers int64) {
	for _, m := range hashTableRe.FindAllStringSubmatch(status, -1) {
		s, err1 := strconv.ParseInt(m[1], 10, 64)
		b, err2 := strconv.ParseInt(m[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		size += s
		buffers += b
	}
	return size, buffers
}
