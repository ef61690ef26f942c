package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// runner executes read statements and writes one audit entry per statement.
type runner struct {
	db      *sql.DB
	auditor port.QueryAuditor
}

// each runs stmt and calls scan once per row. The audit entry carries the row
// count and whatever error ended the iteration.
func (r runner) each(ctx context.Context, stmt string, args []any, scan func(*sql.Rows) error) (err error) {
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

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return fmt.Errorf("scanning row %d: %w", n+1, err)
		}
		n++
	}
	return rows.Err()
}

// one runs a single-row, single-value statement.
func (r runner) one(ctx context.Context, stmt string, dst any) error {
	found := false
	err := r.each(ctx, stmt, nil, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(dst)
	})
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

func (r runner) exec(ctx context.Context, stmt string) (err error) {
	start := time.Now()
	defer func() {
		r.auditor.Record(ctx, port.AuditEntry{
			Statement:  stmt,
			DurationMS: time.Since(start).Milliseconds(),
			Err:        err,
		})
	}()
	_, err = r.db.ExecContext(ctx, stmt)
	return err
}
