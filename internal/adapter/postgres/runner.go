package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// runner executes catalog statements and writes one audit entry per statement.
type runner struct {
	pool    *pgxpool.Pool
	auditor port.QueryAuditor
}

// each runs stmt and calls scan once per row.
func (r runner) each(ctx context.Context, stmt string, args []any, scan func(pgx.Rows) error) (err error) {
	start := time.Now()
	n := 0
	defer func() {
		r.auditor.Record(ctx, port.AuditEntry{
			Statement:  stmt,
			Rows:       n,
			DurationMS: time.Since(start).Milliseconds(),
			Err:        err,
		})
	}()

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return fmt.Errorf("scanning row %d: %w", n+1, err)
		}
		n++
	}
	return rows.Err()
}

// one runs a single-row statement into dst.
func (r runner) one(ctx context.Context, stmt string, dst ...any) (err error) {
	start := time.Now()
	defer func() {
		r.auditor.Record(ctx, port.AuditEntry{
			Statement:  stmt,
			Rows:       1,
			DurationMS: time.Since(start).Milliseconds(),
			Err:        err,
		})
	}()
	return r.pool.QueryRow(ctx, stmt).Scan(dst...)
}
