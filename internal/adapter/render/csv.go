package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

var reportCSVHeader = []string{
	"section", "schema", "table", "index", "columns",
	"reads", "writes", "foreign_key", "covered_by", "category", "statement",
}

// reportCSV writes one row per finding. The section column tells the row kind
// apart so a single file can be loaded into a spreadsheet and filtered.
func reportCSV(w io.Writer, r *domain.UsageReport) error {
	cw := csv.NewWriter(w)
	rows := [][]string{reportCSVHeader}

	for _, u := range r.Unused {
		rows = append(rows, []string{
			"unused", u.Index.Schema, u.Index.Table, u.Index.Name, joinColumns(u.Index.Columns),
			itoa(u.Usage.Reads), itoa(u.Usage.Writes), strconv.FormatBool(u.ForeignKey), "", "", "",
		})
	}
	for _, p := range r.Redundant {
		rows = append(rows, []string{
			"redundant", p.Schema, p.Table, p.Redundant.Name, joinColumns(p.Redundant.Columns),
			"", "", "", p.Covering.Name, "", "",
		})
	}
	for _, c := range r.TopAccessed {
		rows = append(rows, []string{
			"top_accessed", c.Index.Schema, c.Index.Table, c.Index.Name, joinColumns(c.Index.Columns),
			itoa(c.Usage.Reads), itoa(c.Usage.Writes), strconv.FormatBool(c.ForeignKey), "", "", "",
		})
	}
	for _, rec := range r.Recommendations {
		covered := ""
		if rec.CoveredBy != nil {
			covered = rec.CoveredBy.Name
		}
		rows = append(rows, []string{
			"recommendation", rec.Index.Schema, rec.Index.Table, rec.Index.Name, "",
			"", "", "", covered, string(rec.Category), rec.Statement,
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

var seriesCSVHeader = []string{
	"start", "end", "elapsed_seconds",
	"ahi_searches", "btree_searches", "hit_rate_pct", "tier",
	"pages_added", "pages_removed", "rows_added", "rows_updated", "rows_removed", "rows_deleted_no_hash",
}

// seriesCSV writes one row per interval.
func seriesCSV(w io.Writer, s *domain.AHISeries) error {
	cw := csv.NewWriter(w)
	rows := [][]string{seriesCSVHeader}
	for _, iv := range s.Intervals {
		d := iv.Delta
		rows = append(rows, []string{
			iv.Start.Format(time.RFC3339Nano),
			iv.End.Format(time.RFC3339Nano),
			strconv.FormatFloat(iv.Elapsed.Seconds(), 'f', 3, 64),
			itoa(d.Searches), itoa(d.BtreeSearches),
			csvHitRate(iv.Effectiveness), string(iv.Effectiveness.Tier),
			itoa(d.PagesAdded), itoa(d.PagesRemoved),
			itoa(d.RowsAdded), itoa(d.RowsUpdated), itoa(d.RowsRemoved), itoa(d.RowsDeletedNoHash),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// snapshotCSV writes metric,value pairs.
func snapshotCSV(w io.Writer, doc snapshotDoc) error {
	s := doc.Sample
	c := s.Counters
	rows := [][]string{
		{"metric", "value"},
		{"timestamp", s.Timestamp.Format(time.RFC3339Nano)},
		{"enabled", strconv.FormatBool(s.Enabled)},
		{"partitions", itoa(s.Partitions)},
		{"buffer_pool_bytes", itoa(s.BufferPoolBytes)},
		{"hash_table_size", itoa(s.HashTableSize)},
		{"buffer_count", itoa(s.BufferCount)},
		{domain.MetricAHISearches, itoa(c.Searches)},
		{domain.MetricAHISearchesBtree, itoa(c.BtreeSearches)},
		{domain.MetricAHIPagesAdded, itoa(c.PagesAdded)},
		{domain.MetricAHIPagesRemoved, itoa(c.PagesRemoved)},
		{domain.MetricAHIRowsAdded, itoa(c.RowsAdded)},
		{domain.MetricAHIRowsUpdated, itoa(c.RowsUpdated)},
		{domain.MetricAHIRowsRemoved, itoa(c.RowsRemoved)},
		{domain.MetricAHIRowsDeletedNoHash, itoa(c.RowsDeletedNoHash)},
		{"hit_rate_pct", csvHitRate(doc.Effectiveness)},
		{"tier", string(doc.Effectiveness.Tier)},
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// csvHitRate leaves the cell empty for an undefined rate.
func csvHitRate(e domain.Effectiveness) string {
	if e.HitRate == nil {
		return ""
	}
	return strconv.FormatFloat(*e.HitRate, 'f', 2, 64)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ";")
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
