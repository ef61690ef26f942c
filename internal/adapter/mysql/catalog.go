package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// CatalogReader reads index definitions from information_schema and usage
// counters from performance_schema.
type CatalogReader struct {
	run          runner
	schemas      []string
	queryTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewCatalogReader(db *sql.DB, schemas []string, queryTimeout time.Duration, auditor port.QueryAuditor, logger *slog.Logger) *CatalogReader {
	return &CatalogReader{
		run:          runner{db: db, auditor: auditor},
		schemas:      schemas,
		queryTimeout: queryTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// ReadCatalog fails with domain.ErrDataUnavailable when performance_schema is
// off, since every usage counter would then read as zero.
func (c *CatalogReader) ReadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var enabled int
	if err := c.run.one(ctx, queryPerformanceSchemaEnabled, &enabled); err != nil {
		return nil, fmt.Errorf("checking performance_schema: %w", err)
	}
	if enabled != 1 {
		return nil, fmt.Errorf("%w: performance_schema is OFF; set performance_schema=ON in my.cnf and restart", domain.ErrDataUnavailable)
	}

	snap := &domain.CatalogSnapshot{Dialect: domain.DialectMySQL, CapturedAt: c.now().UTC()}

	descriptors, warnings, err := c.fetchIndexColumns(ctx)
	if err != nil {
		return nil, err
	}
	snap.Warnings = warnings

	usage, err := c.fetchUsage(ctx)
	if err != nil {
		return nil, err
	}

	snap.Indexes = make([]domain.IndexRecord, 0, len(descriptors))
	for _, d := range descriptors {
		u, ok := usage[d.Key()]
		if !ok {
			c.logger.DebugContext(ctx, "no usage row for index; table not opened since restart",
				slog.String("index", d.Key().String()),
			)
		}
		snap.Indexes = append(snap.Indexes, domain.IndexRecord{Index: d, Usage: u})
	}

	if snap.ForeignKeys, err = c.fetchForeignKeys(ctx); err != nil {
		return nil, err
	}
	if snap.Tables, err = c.fetchTableSizes(ctx); err != nil {
		return nil, err
	}

	return snap, nil
}

// fetchIndexColumns folds per-column STATISTICS rows into descriptors. An
// index with a functional key part is dropped and reported as a warning.
func (c *CatalogReader) fetchIndexColumns(ctx context.Context) ([]domain.IndexDescriptor, []domain.Warning, error) {
	filter, args := schemaFilter(c.schemas, "s.TABLE_SCHEMA")

	var (
		out        []domain.IndexDescriptor
		expression = make(map[domain.IndexKey]bool)
	)
	err := c.run.each(ctx, fmt.Sprintf(queryIndexColumns, filter), args, func(rows *sql.Rows) error {
		var (
			d         domain.IndexDescriptor
			nonUnique int
			column    sql.NullString
		)
		if err := rows.Scan(&d.Schema, &d.Table, &d.Name, &nonUnique, &column, &d.Cardinality, &d.StorageType); err != nil {
			return err
		}
		if !column.Valid {
			expression[d.Key()] = true
		}

		if n := len(out); n > 0 && out[n-1].Key() == d.Key() {
			out[n-1].Columns = append(out[n-1].Columns, column.String)
			out[n-1].Cardinality = d.Cardinality
			return nil
		}
		d.Columns = []string{column.String}
		d.Unique = nonUnique == 0
		d.Primary = d.Name == domain.PrimaryIndexName
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("querying index definitions: %w", err)
	}

	var warnings []domain.Warning
	kept := out[:0]
	for _, d := range out {
		if expression[d.Key()] {
			warnings = append(warnings, domain.Warning{
				Schema:  d.Schema,
				Table:   d.Table,
				Index:   d.Name,
				Message: fmt.Errorf("%w: index %s has a functional key part", domain.ErrInvalidIndexDefinition, d.Key()).Error(),
			})
			continue
		}
		kept = append(kept, d)
	}
	return kept, warnings, nil
}

func (c *CatalogReader) fetchUsage(ctx context.Context) (map[domain.IndexKey]domain.IndexUsageCounters, error) {
	filter, args := schemaFilter(c.schemas, "u.OBJECT_SCHEMA")

	usage := make(map[domain.IndexKey]domain.IndexUsageCounters)
	err := c.run.each(ctx, fmt.Sprintf(queryIndexUsage, filter), args, func(rows *sql.Rows) error {
		var (
			k domain.IndexKey
			u domain.IndexUsageCounters
		)
		if err := rows.Scan(&k.Schema, &k.Table, &k.Name,
			&u.Reads, &u.Writes, &u.Fetches, &u.Inserts, &u.Updates, &u.Deletes); err != nil {
			return err
		}
		usage[k] = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying index usage: %w", err)
	}
	return usage, nil
}

func (c *CatalogReader) fetchForeignKeys(ctx context.Context) ([]domain.ForeignKey, error) {
	filter, args := schemaFilter(c.schemas, "k.TABLE_SCHEMA")

	var fks []domain.ForeignKey
	err := c.run.each(ctx, fmt.Sprintf(queryForeignKeys, filter), args, func(rows *sql.Rows) error {
		var fk domain.ForeignKey
		var column string
		if err := rows.Scan(&fk.Schema, &fk.Table, &fk.Name, &column); err != nil {
			return err
		}
		if n := len(fks); n > 0 && fks[n-1].Schema == fk.Schema && fks[n-1].Table == fk.Table && fks[n-1].Name == fk.Name {
			fks[n-1].Columns = append(fks[n-1].Columns, column)
			return nil
		}
		fk.Columns = []string{column}
		fks = append(fks, fk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	return fks, nil
}

func (c *CatalogReader) fetchTableSizes(ctx context.Context) ([]domain.TableSizeStats, error) {
	filter, args := schemaFilter(c.schemas, "t.TABLE_SCHEMA")

	var tables []domain.TableSizeStats
	err := c.run.each(ctx, fmt.Sprintf(queryTableSizes, filter), args, func(rows *sql.Rows) error {
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
