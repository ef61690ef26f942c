package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/olekukonko/tablewriter"
)

// textWriter accumulates the first write error so section renderers can stay
// linear.
type textWriter struct {
	w     io.Writer
	err   error
	color bool
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) heading(title string) {
	t.printf("\n%s\n", t.paint(color.New(color.Bold), title))
}

func (t *textWriter) paint(c *color.Color, s string) string {
	if !t.color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func (t *textWriter) tier(tier domain.Tier, s string) string {
	return t.paint(tierColor(tier), s)
}

func (t *textWriter) table(header []string, rows [][]string) {
	if t.err != nil {
		return
	}
	tw := tablewriter.NewWriter(t.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(header)
	tw.AppendBulk(rows)
	tw.Render()
}

func tierColor(t domain.Tier) *color.Color {
	switch t {
	case domain.TierExcellent:
		return color.New(color.FgGreen, color.Bold)
	case domain.TierGood:
		return color.New(color.FgGreen)
	case domain.TierModerate:
		return color.New(color.FgYellow)
	case domain.TierLow:
		return color.New(color.FgRed)
	}
	return color.New(color.Faint)
}

func reportText(w io.Writer, r *domain.UsageReport, opts Options) error {
	t := &textWriter{w: w, color: opts.Color}
	s := r.Summary

	t.printf("Index usage report (%s), generated %s\n", r.Dialect, r.GeneratedAt.Format(time.RFC3339))
	t.printf("%s indexes: %s used, %s unused (%.1f%%), %s backing foreign keys, %s redundant pairs\n",
		humanize.Comma(int64(s.TotalIndexes)),
		humanize.Comma(int64(s.UsedIndexes)),
		humanize.Comma(int64(s.UnusedIndexes)),
		s.UnusedPercent,
		humanize.Comma(int64(s.ForeignKeyIndexes)),
		humanize.Comma(int64(s.RedundantPairs)),
	)
	if s.SkippedRows > 0 {
		t.printf("%d catalog rows skipped (see warnings)\n", s.SkippedRows)
	}

	t.heading("Unused indexes (never read)")
	if len(r.Unused) == 0 {
		t.printf("No unused indexes found.\n")
	} else {
		rows := make([][]string, 0, len(r.Unused))
		for _, u := range r.Unused {
			rows = append(rows, []string{
				u.Index.Schema + "." + u.Index.Table,
				u.Index.Name,
				strings.Join(u.Index.Columns, ", "),
				yesNo(u.ForeignKey),
				humanize.Comma(u.Index.Cardinality),
				humanize.Comma(u.Usage.Writes),
			})
		}
		t.table([]string{"TABLE", "INDEX", "COLUMNS", "FK", "CARDINALITY", "WRITES"}, rows)
		if s.UnusedForeignKey > 0 {
			t.printf("%d unused index(es) back foreign keys; dropping them can slow down cascades and joins.\n", s.UnusedForeignKey)
		}
	}

	t.heading("Redundant indexes (prefix of another index)")
	if len(r.Redundant) == 0 {
		t.printf("No redundant indexes found.\n")
	} else {
		rows := make([][]string, 0, len(r.Redundant))
		for _, p := range r.Redundant {
			cover := p.Covering.Name
			if p.Identical {
				cover += " (identical)"
			}
			rows = append(rows, []string{
				p.Schema + "." + p.Table,
				p.Redundant.Name,
				strings.Join(p.Redundant.Columns, ", "),
				cover,
				strings.Join(p.Covering.Columns, ", "),
			})
		}
		t.table([]string{"TABLE", "REDUNDANT", "COLUMNS", "COVERED BY", "COLUMNS"}, rows)
	}

	t.heading(fmt.Sprintf("Most accessed indexes (top %d)", len(r.TopAccessed)))
	if len(r.TopAccessed) == 0 {
		t.printf("No index activity recorded.\n")
	} else {
		rows := make([][]string, 0, len(r.TopAccessed))
		for _, c := range r.TopAccessed {
			rows = append(rows, []string{
				c.Index.Schema + "." + c.Index.Table,
				c.Index.Name,
				humanize.Comma(c.Usage.Reads),
				humanize.Comma(c.Usage.Writes),
				humanize.Comma(c.Usage.Total()),
			})
		}
		t.table([]string{"TABLE", "INDEX", "READS", "WRITES", "TOTAL"}, rows)
	}

	if r.Sizes.TotalBytes > 0 {
		t.heading("Storage")
		t.printf("data %s, indexes %s (%.1f%% of %s)\n",
			humanize.IBytes(uint64(r.Sizes.DataBytes)),
			humanize.IBytes(uint64(r.Sizes.IndexBytes)),
			r.Sizes.IndexPercent,
			humanize.IBytes(uint64(r.Sizes.TotalBytes)),
		)
	}

	t.heading("Recommendations")
	if len(r.Recommendations) == 0 {
		t.printf("Nothing to recommend.\n")
	}
	for _, rec := range r.Recommendations {
		label := rec.Category.Label()
		if rec.Category == domain.CategorySafeToDrop {
			label = t.paint(color.New(color.FgGreen), label)
		} else {
			label = t.paint(color.New(color.FgYellow), label)
		}
		reasons := make([]string, len(rec.Reasons))
		for i, reason := range rec.Reasons {
			reasons[i] = string(reason)
		}
		line := fmt.Sprintf("[%s] %s (%s)", label, rec.Index, strings.Join(reasons, ", "))
		if rec.CoveredBy != nil {
			line += " covered by " + rec.CoveredBy.Name
		}
		t.printf("  %s\n      %s\n", line, rec.Statement)
	}

	if len(r.Warnings) > 0 {
		t.heading("Warnings")
		for _, w := range r.Warnings {
			t.printf("  %s: %s\n", warningSubject(w), w.Message)
		}
	}
	return t.err
}

func seriesText(w io.Writer, s *domain.AHISeries, opts Options) error {
	t := &textWriter{w: w, color: opts.Color}

	t.printf("Adaptive hash index monitor: %s to %s (%s)\n",
		s.StartedAt.Format(time.RFC3339), s.StoppedAt.Format(time.RFC3339), s.StopReason)
	t.printf("%d samples, %d intervals, %d rebaselines\n", len(s.Samples), len(s.Intervals), s.Rebaselines)
	if latest, ok := s.Latest(); ok && !latest.Enabled {
		t.printf("%s\n", t.paint(color.New(color.FgYellow), "innodb_adaptive_hash_index is OFF; counters will not move"))
	}

	if len(s.Intervals) > 0 {
		t.heading("Intervals")
		rows := make([][]string, 0, len(s.Intervals))
		for _, iv := range s.Intervals {
			e := iv.Effectiveness
			rows = append(rows, []string{
				iv.End.Format(time.TimeOnly),
				iv.Elapsed.Round(time.Millisecond).String(),
				humanize.Comma(iv.Delta.Searches),
				humanize.Comma(iv.Delta.BtreeSearches),
				hitRate(e),
				t.tier(e.Tier, string(e.Tier)),
			})
		}
		t.table([]string{"END", "ELAPSED", "AHI SEARCHES", "BTREE SEARCHES", "HIT RATE", "TIER"}, rows)
	}

	overall := s.Overall()
	t.heading("Overall")
	t.printf("hit rate %s, %s\n", hitRate(overall), t.tier(overall.Tier, string(overall.Tier)))
	t.printf("%s\n", overall.Tier.Advice())
	return t.err
}

func snapshotText(w io.Writer, doc snapshotDoc, opts Options) error {
	t := &textWriter{w: w, color: opts.Color}
	s := doc.Sample

	t.printf("Adaptive hash index snapshot at %s\n", s.Timestamp.Format(time.RFC3339))
	t.printf("enabled: %s, partitions: %d, buffer pool: %s\n",
		yesNo(s.Enabled), s.Partitions, humanize.IBytes(uint64(s.BufferPoolBytes)))
	t.printf("hash table size: %s cells, node heap: %s buffers\n",
		humanize.Comma(s.HashTableSize), humanize.Comma(s.BufferCount))

	c := s.Counters
	t.heading("Cumulative counters")
	t.table([]string{"METRIC", "VALUE"}, [][]string{
		{domain.MetricAHISearches, humanize.Comma(c.Searches)},
		{domain.MetricAHISearchesBtree, humanize.Comma(c.BtreeSearches)},
		{domain.MetricAHIPagesAdded, humanize.Comma(c.PagesAdded)},
		{domain.MetricAHIPagesRemoved, humanize.Comma(c.PagesRemoved)},
		{domain.MetricAHIRowsAdded, humanize.Comma(c.RowsAdded)},
		{domain.MetricAHIRowsUpdated, humanize.Comma(c.RowsUpdated)},
		{domain.MetricAHIRowsRemoved, humanize.Comma(c.RowsRemoved)},
		{domain.MetricAHIRowsDeletedNoHash, humanize.Comma(c.RowsDeletedNoHash)},
	})

	t.heading("Effectiveness since startup")
	t.printf("hit rate %s, %s\n", hitRate(doc.Effectiveness), t.tier(doc.Effectiveness.Tier, string(doc.Effectiveness.Tier)))
	t.printf("%s\n", doc.Advice)
	return t.err
}

func warningSubject(w domain.Warning) string {
	var parts []string
	for _, p := range []string{w.Schema, w.Table, w.Index} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "catalog"
	}
	return strings.Join(parts, ".")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
