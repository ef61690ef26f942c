package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- LoadFromFile tests ---

func TestLoadFromFile(t *testing.T) {
	yaml := `
exclude:
  schemas:
    - "audit_*"
  tables:
    - "shop.schema_migrations"
  indexes:
    - "shop.orders.idx_legacy_*"
    - pattern: "shop.*.tmp_*"
      reason: "scratch indexes from the migration tool"
`
	path := writeTempFile(t, yaml)

	pol, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, pol.Exclude.Schemas, 1)
	assert.Equal(t, "audit_*", pol.Exclude.Schemas[0].Pattern)
	require.Len(t, pol.Exclude.Indexes, 2)
	assert.Empty(t, pol.Exclude.Indexes[0].Reason)
	assert.Equal(t, "shop.*.tmp_*", pol.Exclude.Indexes[1].Pattern)
	assert.Equal(t, "scratch indexes from the migration tool", pol.Exclude.Indexes[1].Reason)
	assert.False(t, pol.Empty())
}

func TestLoadFromFile_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "")

	pol, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, pol.Empty())
}

func TestLoadFromFile_InvalidPatterns(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"table without schema", "exclude:\n  tables: [\"orders\"]\n", "exclude.tables[0]"},
		{"index with two segments", "exclude:\n  indexes: [\"orders.idx\"]\n", "want 3"},
		{"schema with dot", "exclude:\n  schemas: [\"a.b\"]\n", "exclude.schemas[0]"},
		{"empty segment", "exclude:\n  tables: [\"shop.\"]\n", "empty segment"},
		{"bad glob", "exclude:\n  tables: [\"shop.[a\"]\n", "syntax error"},
		{"empty pattern", "exclude:\n  indexes:\n    - pattern: \"\"\n", "empty pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.yaml)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validating policy")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/policy.yaml")
	require.Error(t, err)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "exclude:\n  tables: [invalid")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing policy YAML")
}

// --- Matching tests ---

func TestPolicy_ExcludesIndex(t *testing.T) {
	pol := &Policy{Exclude: ExcludeConfig{
		Schemas: []Rule{{Pattern: "audit_*"}},
		Tables:  []Rule{{Pattern: "shop.schema_migrations"}},
		Indexes: []Rule{{Pattern: "shop.orders.idx_legacy_*", Reason: "kept for rollback"}},
	}}

	tests := []struct {
		name string
		key  domain.IndexKey
		want bool
	}{
		{"schema glob", domain.IndexKey{Schema: "audit_2026", Table: "events", Name: "idx_ts"}, true},
		{"table rule", domain.IndexKey{Schema: "shop", Table: "schema_migrations", Name: "PRIMARY"}, true},
		{"index glob", domain.IndexKey{Schema: "shop", Table: "orders", Name: "idx_legacy_status"}, true},
		{"other index on same table", domain.IndexKey{Schema: "shop", Table: "orders", Name: "idx_status"}, false},
		{"schema glob needs its literal prefix", domain.IndexKey{Schema: "audit", Table: "x", Name: "y"}, false},
		{"other schema", domain.IndexKey{Schema: "billing", Table: "orders", Name: "idx_legacy_status"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := pol.ExcludesIndex(tt.key)
			assert.Equal(t, tt.want, got)
		})
	}

	r, ok := pol.ExcludesIndex(domain.IndexKey{Schema: "shop", Table: "orders", Name: "idx_legacy_a"})
	require.True(t, ok)
	assert.Equal(t, "kept for rollback", r.Reason)
}

func TestPolicy_NilExcludesNothing(t *testing.T) {
	var pol *Policy
	assert.True(t, pol.Empty())
	_, ok := pol.ExcludesIndex(domain.IndexKey{Schema: "a", Table: "b", Name: "c"})
	assert.False(t, ok)
	_, ok = pol.ExcludesTable("a", "b")
	assert.False(t, ok)
}

// --- FilteredCatalog tests ---

type mockCatalog struct {
	snap *domain.CatalogSnapshot
	err  error
}

func (m *mockCatalog) ReadCatalog(_ context.Context) (*domain.CatalogSnapshot, error) {
	return m.snap, m.err
}

func testSnapshot() *domain.CatalogSnapshot {
	idx := func(schema, table, name string, cols ...string) domain.IndexRecord {
		return domain.IndexRecord{Index: domain.IndexDescriptor{Schema: schema, Table: table, Name: name, Columns: cols}}
	}
	return &domain.CatalogSnapshot{
		Dialect: domain.DialectMySQL,
		Indexes: []domain.IndexRecord{
			idx("shop", "orders", "idx_customer", "customer_id"),
			idx("shop", "orders", "idx_legacy_customer", "customer_id", "status"),
			idx("shop", "schema_migrations", "PRIMARY", "version"),
			idx("audit_2026", "events", "idx_ts", "ts"),
		},
		ForeignKeys: []domain.ForeignKey{
			{Schema: "shop", Table: "orders", Name: "fk_customer", Columns: []string{"customer_id"}},
			{Schema: "audit_2026", Table: "events", Name: "fk_actor", Columns: []string{"actor_id"}},
		},
		Tables: []domain.TableSizeStats{
			{Schema: "shop", Table: "orders", DataBytes: 100},
			{Schema: "audit_2026", Table: "events", DataBytes: 900},
		},
		Warnings: []domain.Warning{
			{Schema: "shop", Table: "orders", Index: "idx_legacy_expr", Message: "functional key part"},
			{Schema: "shop", Table: "customers", Index: "idx_lower", Message: "functional key part"},
			{Schema: "audit_2026", Table: "events", Message: "table skipped"},
		},
	}
}

func TestFilteredCatalog_ReadCatalog(t *testing.T) {
	pol := &Policy{Exclude: ExcludeConfig{
		Schemas: []Rule{{Pattern: "audit_*"}},
		Tables:  []Rule{{Pattern: "shop.schema_migrations"}},
		Indexes: []Rule{{Pattern: "shop.orders.idx_legacy_*"}},
	}}
	fc := NewFilteredCatalog(&mockCatalog{snap: testSnapshot()}, pol, testLogger())

	snap, err := fc.ReadCatalog(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Indexes, 1)
	assert.Equal(t, "idx_customer", snap.Indexes[0].Index.Name)

	require.Len(t, snap.ForeignKeys, 1)
	assert.Equal(t, "fk_customer", snap.ForeignKeys[0].Name)

	require.Len(t, snap.Tables, 1)
	assert.Equal(t, "orders", snap.Tables[0].Table)

	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, "idx_lower", snap.Warnings[0].Index)
}

func TestFilteredCatalog_ExcludedCovererHidesRedundancy(t *testing.T) {
	pol := &Policy{Exclude: ExcludeConfig{Indexes: []Rule{{Pattern: "shop.orders.idx_legacy_*"}}}}
	fc := NewFilteredCatalog(&mockCatalog{snap: testSnapshot()}, pol, testLogger())

	snap, err := fc.ReadCatalog(context.Background())
	require.NoError(t, err)

	report := domain.BuildUsageReport(*snap, domain.ReportOptions{})
	assert.Empty(t, report.Redundant, "idx_customer is only redundant against the excluded index")
}

func TestFilteredCatalog_EmptyPolicyPassesThrough(t *testing.T) {
	want := testSnapshot()
	fc := NewFilteredCatalog(&mockCatalog{snap: want}, &Policy{}, testLogger())

	got, err := fc.ReadCatalog(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFilteredCatalog_PropagatesError(t *testing.T) {
	fc := NewFilteredCatalog(&mockCatalog{err: domain.ErrDataUnavailable}, &Policy{}, testLogger())

	_, err := fc.ReadCatalog(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
