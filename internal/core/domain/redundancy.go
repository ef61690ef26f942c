package domain

import (
	"fmt"
	"sort"
)

// RedundancyPair says Redundant's key columns are a leading segment of
// Covering's key columns on the same table. Identical is set when both
// column sequences are equal; such a pair is reported once, with the
// lexicographically smaller index name as the coverer.
type RedundancyPair struct {
	Schema    string          `json:"schema" yaml:"schema"`
	Table     string          `json:"table" yaml:"table"`
	Redundant IndexDescriptor `json:"redundant" yaml:"redundant"`
	Covering  IndexDescriptor `json:"covering" yaml:"covering"`
	Identical bool            `json:"identical" yaml:"identical"`
}

type bucketKey struct {
	schema, table, first string
}

// DetectRedundancy finds prefix-covered indexes. For every non-primary index
// it picks the tightest coverer (fewest columns, then lowest name) among the
// other non-primary indexes of the same table. Comparison is on column names
// exactly as given.
//
// A descriptor with no columns rejects the whole call; callers that want
// per-row tolerance validate first.
func DetectRedundancy(indexes []IndexDescriptor) ([]RedundancyPair, error) {
	buckets := make(map[bucketKey][]IndexDescriptor)
	for _, idx := range indexes {
		if err := idx.Validate(); err != nil {
			return nil, fmt.Errorf("detecting redundancy: %w", err)
		}
		if idx.Primary {
			continue
		}
		k := bucketKey{idx.Schema, idx.Table, idx.Columns[0]}
		buckets[k] = append(buckets[k], idx)
	}

	var pairs []RedundancyPair
	for _, group := range buckets {
		for _, a := range group {
			cover, identical, ok := tightestCover(a, group)
			if !ok {
				continue
			}
			pairs = append(pairs, RedundancyPair{
				Schema:    a.Schema,
				Table:     a.Table,
				Redundant: a,
				Covering:  cover,
				Identical: identical,
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		pi, pj := pairs[i], pairs[j]
		if pi.Schema != pj.Schema {
			return pi.Schema < pj.Schema
		}
		if pi.Table != pj.Table {
			return pi.Table < pj.Table
		}
		if pi.Redundant.Name != pj.Redundant.Name {
			return pi.Redundant.Name < pj.Redundant.Name
		}
		return pi.Covering.Name < pj.Covering.Name
	})
	return pairs, nil
}

// tightestCover returns the smallest index in group that covers a.
// An equal-length coverer only counts when its name sorts before a's, so
// each identical pair is emitted exactly once.
func tightestCover(a IndexDescriptor, group []IndexDescriptor) (IndexDescriptor, bool, bool) {
	var (
		best  IndexDescriptor
		found bool
	)
	for _, b := range group {
		if b.Name == a.Name {
			continue
		}
		if !isPrefix(a.Columns, b.Columns) {
			continue
		}
		if len(a.Columns) == len(b.Columns) && b.Name > a.Name {
			continue
		}
		if !found || len(b.Columns) < len(best.Columns) ||
			(len(b.Columns) == len(best.Columns) && b.Name < best.Name) {
			best = b
			found = true
		}
	}
	return best, found && len(best.Columns) == len(a.Columns), found
}
