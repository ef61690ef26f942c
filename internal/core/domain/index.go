package domain

import (
	"fmt"
	"time"
)

// Dialect identifies the database family a catalog snapshot was read from.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// PrimaryIndexName is the name MySQL gives every primary key index.
const PrimaryIndexName = "PRIMARY"

// IndexKey is the identity of an index: (schema, table, index name).
type IndexKey struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
	Name   string `json:"name" yaml:"name"`
}

func (k IndexKey) String() string {
	return k.Schema + "." + k.Table + "." + k.Name
}

// TableKey returns "schema.table".
func (k IndexKey) TableKey() string {
	return k.Schema + "." + k.Table
}

// IndexDescriptor is an immutable snapshot of one index definition.
// Columns are in declared key order; order is significant.
type IndexDescriptor struct {
	Schema      string   `json:"schema" yaml:"schema"`
	Table       string   `json:"table" yaml:"table"`
	Name        string   `json:"name" yaml:"name"`
	Columns     []string `json:"columns" yaml:"columns"`
	Unique      bool     `json:"unique" yaml:"unique"`
	Primary     bool     `json:"primary" yaml:"primary"`
	Cardinality int64    `json:"cardinality" yaml:"cardinality"`
	StorageType string   `json:"storage_type,omitempty" yaml:"storage_type,omitempty"`
}

func (d IndexDescriptor) Key() IndexKey {
	return IndexKey{Schema: d.Schema, Table: d.Table, Name: d.Name}
}

// Validate rejects descriptors that cannot be analyzed. The returned error
// always wraps ErrInvalidIndexDefinition.
func (d IndexDescriptor) Validate() error {
	if d.Table == "" || d.Name == "" {
		return fmt.Errorf("%w: missing table or index name (%q)", ErrInvalidIndexDefinition, d.Key().String())
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("%w: index %s has no columns", ErrInvalidIndexDefinition, d.Key())
	}
	for i, c := range d.Columns {
		if c == "" {
			return fmt.Errorf("%w: index %s has an empty column name at position %d", ErrInvalidIndexDefinition, d.Key(), i+1)
		}
	}
	return nil
}

// IndexUsageCounters are cumulative since the instrumentation was last reset.
// Fetches, Inserts, Updates and Deletes are zero when the source does not
// expose them.
type IndexUsageCounters struct {
	Reads    int64      `json:"reads" yaml:"reads"`
	Writes   int64      `json:"writes" yaml:"writes"`
	Fetches  int64      `json:"fetches,omitempty" yaml:"fetches,omitempty"`
	Inserts  int64      `json:"inserts,omitempty" yaml:"inserts,omitempty"`
	Updates  int64      `json:"updates,omitempty" yaml:"updates,omitempty"`
	Deletes  int64      `json:"deletes,omitempty" yaml:"deletes,omitempty"`
	LastUsed *time.Time `json:"last_used,omitempty" yaml:"last_used,omitempty"`
}

// Total is the number of accesses of any kind.
func (c IndexUsageCounters) Total() int64 {
	return c.Reads + c.Writes
}

// IndexRecord pairs a definition with its usage counters.
type IndexRecord struct {
	Index IndexDescriptor    `json:"index" yaml:"index"`
	Usage IndexUsageCounters `json:"usage" yaml:"usage"`
}

// ForeignKey is a declared foreign-key constraint on the referencing side.
type ForeignKey struct {
	Schema  string   `json:"schema" yaml:"schema"`
	Table   string   `json:"table" yaml:"table"`
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// TableSizeStats is informational; it never affects classification.
type TableSizeStats struct {
	Schema     string `json:"schema" yaml:"schema"`
	Table      string `json:"table" yaml:"table"`
	DataBytes  int64  `json:"data_bytes" yaml:"data_bytes"`
	IndexBytes int64  `json:"index_bytes" yaml:"index_bytes"`
}

func (t TableSizeStats) TotalBytes() int64 {
	return t.DataBytes + t.IndexBytes
}

// Warning records a catalog row that was left out of the analysis.
type Warning struct {
	Schema  string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Table   string `json:"table,omitempty" yaml:"table,omitempty"`
	Index   string `json:"index,omitempty" yaml:"index,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// CatalogSnapshot is everything the report path needs, read in one pass.
type CatalogSnapshot struct {
	Dialect     Dialect          `json:"dialect" yaml:"dialect"`
	CapturedAt  time.Time        `json:"captured_at" yaml:"captured_at"`
	Indexes     []IndexRecord    `json:"indexes" yaml:"indexes"`
	ForeignKeys []ForeignKey     `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Tables      []TableSizeStats `json:"tables,omitempty" yaml:"tables,omitempty"`
	Warnings    []Warning        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ServesForeignKey reports whether idx can back one of the declared foreign
// keys: same table, and the constraint's columns are a leading prefix of the
// index key.
func ServesForeignKey(idx IndexDescriptor, fks []ForeignKey) bool {
	for _, fk := range fks {
		if fk.Schema != idx.Schema || fk.Table != idx.Table {
			continue
		}
		if isPrefix(fk.Columns, idx.Columns) {
			return true
		}
	}
	return false
}

// isPrefix reports whether a is a non-empty leading segment of b (a == b
// included).
func isPrefix(a, b []string) bool {
	if len(a) == 0 || len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
