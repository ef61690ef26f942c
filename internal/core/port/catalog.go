package port

import (
	"context"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// IndexCatalogReader reads per-index definitions, usage counters, foreign keys
// and table sizes from the database's runtime instrumentation. Rows it cannot
// interpret are returned as snapshot warnings rather than errors.
type IndexCatalogReader interface {
	ReadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error)
}
