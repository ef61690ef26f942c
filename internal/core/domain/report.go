package domain

import (
	"fmt"
	"sort"
	"time"
)

// DefaultTopN is the length of the most-accessed list when none is requested.
const DefaultTopN = 10

// RecommendationCategory is the top-level bucket of a recommendation.
type RecommendationCategory string

const (
	CategorySafeToDrop RecommendationCategory = "safe_to_drop"
	CategoryReview     RecommendationCategory = "review"
)

// Label is the operator-facing wording of a category.
func (c RecommendationCategory) Label() string {
	switch c {
	case CategorySafeToDrop:
		return "safe to consider dropping"
	case CategoryReview:
		return "review before dropping"
	}
	return string(c)
}

// RecommendationReason explains why an index was recommended.
type RecommendationReason string

const (
	ReasonUnused           RecommendationReason = "unused"
	ReasonUnusedForeignKey RecommendationReason = "unused_foreign_key"
	ReasonRedundant        RecommendationReason = "redundant"
)

// Recommendation is one entry of the action list. Each index appears in at
// most one recommendation; all reasons that apply are kept.
type Recommendation struct {
	Category  RecommendationCategory `json:"category" yaml:"category"`
	Index     IndexKey               `json:"index" yaml:"index"`
	Reasons   []RecommendationReason `json:"reasons" yaml:"reasons"`
	CoveredBy *IndexKey              `json:"covered_by,omitempty" yaml:"covered_by,omitempty"`
	Statement string                 `json:"statement" yaml:"statement"`
}

// Summary holds the headline counts of a report.
type Summary struct {
	TotalIndexes      int     `json:"total_indexes" yaml:"total_indexes"`
	UsedIndexes       int     `json:"used_indexes" yaml:"used_indexes"`
	UnusedIndexes     int     `json:"unused_indexes" yaml:"unused_indexes"`
	UnusedForeignKey  int     `json:"unused_foreign_key" yaml:"unused_foreign_key"`
	ForeignKeyIndexes int     `json:"foreign_key_indexes" yaml:"foreign_key_indexes"`
	RedundantPairs    int     `json:"redundant_pairs" yaml:"redundant_pairs"`
	UnusedPercent     float64 `json:"unused_percent" yaml:"unused_percent"`
	SkippedRows       int     `json:"skipped_rows" yaml:"skipped_rows"`
}

// SizeRollup aggregates table sizes.
type SizeRollup struct {
	DataBytes    int64            `json:"data_bytes" yaml:"data_bytes"`
	IndexBytes   int64            `json:"index_bytes" yaml:"index_bytes"`
	TotalBytes   int64            `json:"total_bytes" yaml:"total_bytes"`
	IndexPercent float64          `json:"index_percent" yaml:"index_percent"`
	Tables       []TableSizeStats `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// UsageReport is the output of the report path. It is derived entirely from
// its input snapshot, so building it twice from the same snapshot yields
// equal values.
type UsageReport struct {
	Dialect         Dialect           `json:"dialect" yaml:"dialect"`
	GeneratedAt     time.Time         `json:"generated_at" yaml:"generated_at"`
	Summary         Summary           `json:"summary" yaml:"summary"`
	Unused          []ClassifiedIndex `json:"unused" yaml:"unused"`
	Redundant       []RedundancyPair  `json:"redundant" yaml:"redundant"`
	TopAccessed     []ClassifiedIndex `json:"top_accessed" yaml:"top_accessed"`
	Sizes           SizeRollup        `json:"sizes" yaml:"sizes"`
	Recommendations []Recommendation  `json:"recommendations" yaml:"recommendations"`
	Warnings        []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ReportOptions tunes report construction.
type ReportOptions struct {
	TopN int
}

// BuildUsageReport classifies every index in the snapshot, detects redundant
// pairs and assembles the report. Rows that fail validation are dropped and
// listed in Warnings; they never abort the batch.
func BuildUsageReport(snap CatalogSnapshot, opts ReportOptions) *UsageReport {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	report := &UsageReport{
		Dialect:     snap.Dialect,
		GeneratedAt: snap.CapturedAt,
		Unused:      []ClassifiedIndex{},
		Redundant:   []RedundancyPair{},
		TopAccessed: []ClassifiedIndex{},
		Warnings:    append([]Warning(nil), snap.Warnings...),
	}

	valid := make([]IndexRecord, 0, len(snap.Indexes))
	for _, rec := range snap.Indexes {
		if err := rec.Index.Validate(); err != nil {
			report.Warnings = append(report.Warnings, Warning{
				Schema:  rec.Index.Schema,
				Table:   rec.Index.Table,
				Index:   rec.Index.Name,
				Message: err.Error(),
			})
			continue
		}
		valid = append(valid, rec)
	}
	sortRecords(valid)

	classified := make([]ClassifiedIndex, 0, len(valid))
	descriptors := make([]IndexDescriptor, 0, len(valid))
	for _, rec := range valid {
		c := ClassifyUsage(rec.Index, rec.Usage, ServesForeignKey(rec.Index, snap.ForeignKeys))
		classified = append(classified, c)
		descriptors = append(descriptors, rec.Index)

		if c.ForeignKey {
			report.Summary.ForeignKeyIndexes++
		}
		if c.Class == UsageUnused {
			report.Unused = append(report.Unused, c)
			if c.ForeignKey {
				report.Summary.UnusedForeignKey++
			}
		}
	}

	// Every descriptor was validated above, so the only possible error is a
	// programming mistake; surface it as a warning rather than losing the report.
	pairs, err := DetectRedundancy(descriptors)
	if err != nil {
		report.Warnings = append(report.Warnings, Warning{Message: err.Error()})
	} else {
		report.Redundant = pairs
	}

	report.Summary.TotalIndexes = len(classified)
	report.Summary.UnusedIndexes = len(report.Unused)
	report.Summary.UsedIndexes = len(classified) - len(report.Unused)
	report.Summary.RedundantPairs = len(report.Redundant)
	report.Summary.SkippedRows = len(snap.Indexes) - len(valid)
	if len(classified) > 0 {
		report.Summary.UnusedPercent = 100 * float64(len(report.Unused)) / float64(len(classified))
	}

	report.TopAccessed = topAccessed(classified, topN)
	report.Sizes = rollupSizes(snap.Tables)
	report.Recommendations = recommend(snap.Dialect, report.Unused, report.Redundant)
	sortWarnings(report.Warnings)

	return report
}

func sortRecords(recs []IndexRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return lessKey(recs[i].Index.Key(), recs[j].Index.Key())
	})
}

func lessKey(a, b IndexKey) bool {
	if a.Schema != b.Schema {
		return a.Schema < b.Schema
	}
	if a.Table != b.Table {
		return a.Table < b.Table
	}
	return a.Name < b.Name
}

// topAccessed ranks indexes with at least one access by total accesses,
// descending; ties fall back to table then index name.
func topAccessed(classified []ClassifiedIndex, n int) []ClassifiedIndex {
	active := make([]ClassifiedIndex, 0, len(classified))
	for _, c := range classified {
		if c.Usage.Total() > 0 {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		ti, tj := active[i].Usage.Total(), active[j].Usage.Total()
		if ti != tj {
			return ti > tj
		}
		ki, kj := active[i].Index.Key(), active[j].Index.Key()
		if ki.Table != kj.Table {
			return ki.Table < kj.Table
		}
		if ki.Name != kj.Name {
			return ki.Name < kj.Name
		}
		return ki.Schema < kj.Schema
	})
	if len(active) > n {
		active = active[:n]
	}
	return active
}

func rollupSizes(tables []TableSizeStats) SizeRollup {
	var r SizeRollup
	r.Tables = append([]TableSizeStats(nil), tables...)
	for _, t := range r.Tables {
		r.DataBytes += t.DataBytes
		r.IndexBytes += t.IndexBytes
	}
	r.TotalBytes = r.DataBytes + r.IndexBytes
	if r.TotalBytes > 0 {
		r.IndexPercent = 100 * float64(r.IndexBytes) / float64(r.TotalBytes)
	}
	sort.SliceStable(r.Tables, func(i, j int) bool {
		ti, tj := r.Tables[i].TotalBytes(), r.Tables[j].TotalBytes()
		if ti != tj {
			return ti > tj
		}
		if r.Tables[i].Schema != r.Tables[j].Schema {
			return r.Tables[i].Schema < r.Tables[j].Schema
		}
		return r.Tables[i].Table < r.Tables[j].Table
	})
	return r
}

// recommend merges unused and redundant findings into one entry per index.
// Unused indexes that back no foreign key are safe-to-drop candidates even
// when they are also redundant; everything else goes to review.
func recommend(dialect Dialect, unused []ClassifiedIndex, redundant []RedundancyPair) []Recommendation {
	byKey := make(map[IndexKey]*Recommendation)
	var order []IndexKey

	get := func(k IndexKey) *Recommendation {
		if r, ok := byKey[k]; ok {
			return r
		}
		r := &Recommendation{Index: k, Category: CategoryReview, Statement: DropStatement(dialect, k)}
		byKey[k] = r
		order = append(order, k)
		return r
	}

	for _, u := range unused {
		r := get(u.Index.Key())
		if u.ForeignKey {
			r.Reasons = append(r.Reasons, ReasonUnusedForeignKey)
		} else {
			r.Reasons = append(r.Reasons, ReasonUnused)
			r.Category = CategorySafeToDrop
		}
	}
	for _, p := range redundant {
		r := get(p.Redundant.Key())
		r.Reasons = append(r.Reasons, ReasonRedundant)
		cover := p.Covering.Key()
		r.CoveredBy = &cover
	}

	recs := make([]Recommendation, 0, len(order))
	for _, k := range order {
		recs = append(recs, *byKey[k])
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Category != recs[j].Category {
			return recs[i].Category == CategorySafeToDrop
		}
		return lessKey(recs[i].Index, recs[j].Index)
	})
	return recs
}

// DropStatement renders the statement an operator would run to drop the
// index. It is advisory text and is never executed by this tool.
func DropStatement(dialect Dialect, k IndexKey) string {
	if dialect == DialectPostgres {
		return fmt.Sprintf("DROP INDEX %s.%s;", k.Schema, k.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s.%s DROP INDEX %s;", k.Schema, k.Table, k.Name)
}

func sortWarnings(ws []Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Schema != ws[j].Schema {
			return ws[i].Schema < ws[j].Schema
		}
		if ws[i].Table != ws[j].Table {
			return ws[i].Table < ws[j].Table
		}
		if ws[i].Index != ws[j].Index {
			return ws[i].Index < ws[j].Index
		}
		return ws[i].Message < ws[j].Message
	})
}
