package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogReader reads index definitions from pg_index and usage counters from
// the cumulative statistics views.
type CatalogReader struct {
	run          runner
	schemas      []string // empty means all non-system schemas
	queryTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewCatalogReader(pool *pgxpool.Pool, schemas []string, queryTimeout time.Duration, auditor port.QueryAuditor, logger *slog.Logger) *CatalogReader {
	return &CatalogReader{
		run:          runner{pool: pool, auditor: auditor},
		schemas:      schemas,
		queryTimeout: queryTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// ReadCatalog fails with domain.ErrDataUnavailable when track_counts is off,
// because idx_scan would never move.
func (c *CatalogReader) ReadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var trackCounts string
	if err := c.run.one(ctx, queryStatsEnabled, &trackCounts); err != nil {
		return nil, fmt.Errorf("checking track_counts: %w", err)
	}
	if trackCounts != "on" {
		return nil, fmt.Errorf("%w: track_counts is off; index scan counters are not collected", domain.ErrDataUnavailable)
	}

	var versionText string
	if err := c.run.one(ctx, queryServerVersion, &versionText); err != nil {
		return nil, fmt.Errorf("reading server version: %w", err)
	}
	version, err := strconv.Atoi(versionText)
	if err != nil {
		return nil, fmt.Errorf("parsing server_version_num %q: %w", versionText, err)
	}

	snap := &domain.CatalogSnapshot{Dialect: domain.DialectPostgres, CapturedAt: c.now().UTC()}

	if snap.Indexes, snap.Warnings, err = c.fetchIndexes(ctx, version); err != nil {
		return nil, err
	}
	if snap.ForeignKeys, err = c.fetchForeignKeys(ctx); err != nil {
		return nil, err
	}
	if snap.Tables, err = c.fetchTableSizes(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func lastScanColumn(version int) string {
	if version >= 160000 {
		return "s.last_idx_scan"
	}
	return "NULL::timestamptz"
}

func (c *CatalogReader) fetchIndexes(ctx context.Context, version int) ([]domain.IndexRecord, []domain.Warning, error) {
	filter, args := schemaFilter(c.schemas, "n.nspname", 1)
	query := fmt.Sprintf(queryIndexes, lastScanColumn(version), filter)

	var (
		records  []domain.IndexRecord
		warnings []domain.Warning
	)
	err := c.run.each(ctx, query, args, func(rows pgx.Rows) error {
		var (
			d             domain.IndexDescriptor
			u             domain.IndexUsageCounters
			def, method   string
			ins, upd, del int64
			lastUsed      *time.Time
		)
		if err := rows.Scan(
			&d.Schema, &d.Table, &d.Name, &d.Unique, &d.Primary,
			&def, &method, &d.Cardinality,
			&u.Reads, &u.Fetches, &ins, &upd, &del, &lastUsed,
		); err != nil {
			return err
		}

		parsed, err := parseIndexDef(def)
		if err != nil {
			warnings = append(warnings, domain.Warning{Schema: d.Schema, Table: d.Table, Index: d.Name, Message: err.Error()})
			c.logger.DebugContext(ctx, "index definition skipped",
				slog.String("index", d.Key().String()),
				slog.String("error", err.Error()),
			)
			return nil
		}

		d.Columns = parsed.Columns
		d.StorageType = method
		u.Inserts, u.Updates, u.Deletes = ins, upd, del
		u.Writes = ins + upd + del
		u.LastUsed = lastUsed
		records = append(records, domain.IndexRecord{Index: d, Usage: u})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("querying indexes: %w", err)
	}
	return records, warnings, nil
}

func (c *CatalogReader) fetchForeignKeys(ctx context.Context) ([]domain.ForeignKey, error) {
	filter, args := schemaFilter(c.schemas, "n.nspname", 1)

	var fks []domain.ForeignKey
	err := c.run.each(ctx, fmt.Sprintf(queryForeignKeys, filter), args, func(rows pgx.Rows) error {
		var fk domain.ForeignKey
		if err := rows.Scan(&fk.Schema, &fk.Table, &fk.Name, &fk.Columns); err != nil {
			return err
		}
		fks = append(fks, fk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	return fks, nil
}

func (c *CatalogReader) fetchTableSizes(ctx context.Context) ([]domain.TableSizeStats, error) {
	filter, args := schemaFilter(c.schemas, "n.nspname", 1)

	var tables []domain.TableSizeStats
	err := c.run.each(ctx, fmt.Sprintf(queryTableSizes, filter), args, func(rows pgx.Rows) error {
		var t domain.TableSizeStats
		if err := rows.Scan(&t.Schema, &t.Table, &t.DataBytes, &t.IndexBytes); err != nil {
			return err
		}
		tables = append(tables, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying table sizes: %w", err)
	}
	return tables, nil
}
