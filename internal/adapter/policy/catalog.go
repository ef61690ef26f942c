package policy

import (
	"context"
	"log/slog"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// FilteredCatalog decorates an IndexCatalogReader and drops every object the
// policy excludes before the snapshot reaches the report path. Excluded
// indexes take no part in redundancy detection either.
type FilteredCatalog struct {
	inner  port.IndexCatalogReader
	policy *Policy
	logger *slog.Logger
}

// NewFilteredCatalog wraps inner with the exclusion rules of pol.
func NewFilteredCatalog(inner port.IndexCatalogReader, pol *Policy, logger *slog.Logger) *FilteredCatalog {
	return &FilteredCatalog{inner: inner, policy: pol, logger: logger}
}

func (f *FilteredCatalog) ReadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	snap, err := f.inner.ReadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if f.policy.Empty() {
		return snap, nil
	}

	kept := snap.Indexes[:0:0]
	for _, rec := range snap.Indexes {
		if r, ok := f.policy.ExcludesIndex(rec.Index.Key()); ok {
			f.logger.DebugContext(ctx, "index excluded by policy",
				slog.String("index", rec.Index.Key().String()),
				slog.String("pattern", r.Pattern),
				slog.String("reason", r.Reason),
			)
			continue
		}
		kept = append(kept, rec)
	}
	excluded := len(snap.Indexes) - len(kept)
	snap.Indexes = kept

	fks := snap.ForeignKeys[:0:0]
	for _, fk := range snap.ForeignKeys {
		if _, ok := f.policy.ExcludesTable(fk.Schema, fk.Table); !ok {
			fks = append(fks, fk)
		}
	}
	snap.ForeignKeys = fks

	tables := snap.Tables[:0:0]
	for _, t := range snap.Tables {
		if _, ok := f.policy.ExcludesTable(t.Schema, t.Table); !ok {
			tables = append(tables, t)
		}
	}
	snap.Tables = tables

	warnings := snap.Warnings[:0:0]
	for _, w := range snap.Warnings {
		if w.Index != "" {
			if _, ok := f.policy.ExcludesIndex(domain.IndexKey{Schema: w.Schema, Table: w.Table, Name: w.Index}); ok {
				continue
			}
		} else if _, ok := f.policy.ExcludesTable(w.Schema, w.Table); ok {
			continue
		}
		warnings = append(warnings, w)
	}
	snap.Warnings = warnings

	if excluded > 0 {
		f.logger.InfoContext(ctx, "policy exclusions applied", slog.Int("excluded_indexes", excluded))
	}
	return snap, nil
}
