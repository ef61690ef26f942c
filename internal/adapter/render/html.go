package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

var htmlFuncs = template.FuncMap{
	"comma":   humanize.Comma,
	"bytes":   func(v int64) string { return humanize.IBytes(uint64(max(v, 0))) },
	"join":    func(cols []string) string { return strings.Join(cols, ", ") },
	"hitRate": hitRate,
	"advice":  func(t domain.Tier) string { return t.Advice() },
	"ts":      func(t time.Time) string { return t.Format(time.RFC3339) },
	"clock":   func(t time.Time) string { return t.Format(time.TimeOnly) },
	"pct":     func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"label":   func(c domain.RecommendationCategory) string { return c.Label() },
	"yesno":   yesNo,
}

const htmlHead = `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:1.5rem}
th,td{border:1px solid #ddd;padding:.4rem .6rem;text-align:left}
th{background:#f4f4f4}
td.num{text-align:right;font-variant-numeric:tabular-nums}
.cards{display:flex;gap:1rem;flex-wrap:wrap;margin-bottom:1.5rem}
.card{border:1px solid #ddd;border-radius:6px;padding:.8rem 1.2rem;min-width:10rem}
.card .v{font-size:1.6rem;font-weight:600}
.tier-excellent{color:#1a7f37}.tier-good{color:#2da44e}.tier-moderate{color:#bf8700}.tier-low{color:#cf222e}.tier-undefined{color:#888}
.safe_to_drop{color:#1a7f37}.review{color:#bf8700}
code{background:#f6f8fa;padding:.1rem .3rem}
</style>
</head>
<body>
{{end}}`

var reportTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(htmlHead + `
{{template "head" "Index usage report"}}
<h1>Index usage report</h1>
<p>{{.Dialect}} &middot; generated {{ts .GeneratedAt}}</p>
<div class="cards">
<div class="card">Total indexes<div class="v">{{.Summary.TotalIndexes}}</div></div>
<div class="card">Unused<div class="v">{{.Summary.UnusedIndexes}}</div>{{pct .Summary.UnusedPercent}} of total</div>
<div class="card">Backing foreign keys<div class="v">{{.Summary.ForeignKeyIndexes}}</div></div>
<div class="card">Redundant pairs<div class="v">{{.Summary.RedundantPairs}}</div></div>
{{if .Sizes.TotalBytes}}<div class="card">Index storage<div class="v">{{bytes .Sizes.IndexBytes}}</div>{{pct .Sizes.IndexPercent}} of {{bytes .Sizes.TotalBytes}}</div>{{end}}
</div>

<h2>Unused indexes</h2>
{{if .Unused}}<table>
<tr><th>Table</th><th>Index</th><th>Columns</th><th>FK</th><th>Cardinality</th><th>Writes</th></tr>
{{range .Unused}}<tr><td>{{.Index.Schema}}.{{.Index.Table}}</td><td>{{.Index.Name}}</td><td>{{join .Index.Columns}}</td><td>{{yesno .ForeignKey}}</td><td class="num">{{comma .Index.Cardinality}}</td><td class="num">{{comma .Usage.Writes}}</td></tr>
{{end}}</table>{{else}}<p>No unused indexes found.</p>{{end}}

<h2>Redundant indexes</h2>
{{if .Redundant}}<table>
<tr><th>Table</th><th>Redundant</th><th>Columns</th><th>Covered by</th><th>Columns</th></tr>
{{range .Redundant}}<tr><td>{{.Schema}}.{{.Table}}</td><td>{{.Redundant.Name}}</td><td>{{join .Redundant.Columns}}</td><td>{{.Covering.Name}}{{if .Identical}} (identical){{end}}</td><td>{{join .Covering.Columns}}</td></tr>
{{end}}</table>{{else}}<p>No redundant indexes found.</p>{{end}}

<h2>Most accessed indexes</h2>
{{if .TopAccessed}}<table>
<tr><th>Table</th><th>Index</th><th>Reads</th><th>Writes</th><th>Total</th></tr>
{{range .TopAccessed}}<tr><td>{{.Index.Schema}}.{{.Index.Table}}</td><td>{{.Index.Name}}</td><td class="num">{{comma .Usage.Reads}}</td><td class="num">{{comma .Usage.Writes}}</td><td class="num">{{comma .Usage.Total}}</td></tr>
{{end}}</table>{{else}}<p>No index activity recorded.</p>{{end}}

<h2>Recommendations</h2>
{{if .Recommendations}}<table>
<tr><th>Category</th><th>Index</th><th>Reasons</th><th>Statement</th></tr>
{{range .Recommendations}}<tr><td class="{{.Category}}">{{label .Category}}</td><td>{{.Index}}</td><td>{{range $i, $r := .Reasons}}{{if $i}}, {{end}}{{$r}}{{end}}{{with .CoveredBy}} (covered by {{.Name}}){{end}}</td><td><code>{{.Statement}}</code></td></tr>
{{end}}</table>{{else}}<p>Nothing to recommend.</p>{{end}}

{{if .Warnings}}<h2>Warnings</h2><ul>
{{range .Warnings}}<li>{{.Schema}}.{{.Table}}.{{.Index}}: {{.Message}}</li>
{{end}}</ul>{{end}}
</body>
</html>
`))

var seriesTemplate = template.Must(template.New("series").Funcs(htmlFuncs).Parse(htmlHead + `
{{template "head" "Adaptive hash index monitor"}}
<h1>Adaptive hash index monitor</h1>
<p>{{ts .StartedAt}} to {{ts .StoppedAt}} ({{.StopReason}}) &middot; {{len .Samples}} samples, {{len .Intervals}} intervals, {{.Rebaselines}} rebaselines</p>
<div class="cards">
<div class="card">Overall hit rate<div class="v tier-{{.Overall.Tier}}">{{hitRate .Overall}}</div>{{.Overall.Tier}}</div>
</div>
<p>{{.Advice}}</p>
{{if .Intervals}}<table>
<tr><th>End</th><th>Elapsed</th><th>AHI searches</th><th>B-tree searches</th><th>Hit rate</th><th>Tier</th></tr>
{{range .Intervals}}<tr><td>{{clock .End}}</td><td>{{.Elapsed}}</td><td class="num">{{comma .Delta.Searches}}</td><td class="num">{{comma .Delta.BtreeSearches}}</td><td class="num">{{hitRate .Effectiveness}}</td><td class="tier-{{.Effectiveness.Tier}}">{{.Effectiveness.Tier}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>
`))

var snapshotTemplate = template.Must(template.New("snapshot").Funcs(htmlFuncs).Parse(htmlHead + `
{{template "head" "Adaptive hash index snapshot"}}
<h1>Adaptive hash index snapshot</h1>
<p>{{ts .Sample.Timestamp}} &middot; enabled: {{yesno .Sample.Enabled}} &middot; {{.Sample.Partitions}} partitions &middot; buffer pool {{bytes .Sample.BufferPoolBytes}}</p>
<div class="cards">
<div class="card">Hit rate since startup<div class="v tier-{{.Effectiveness.Tier}}">{{hitRate .Effectiveness}}</div>{{.Effectiveness.Tier}}</div>
<div class="card">Hash table size<div class="v">{{comma .Sample.HashTableSize}}</div></div>
<div class="card">Node heap buffers<div class="v">{{comma .Sample.BufferCount}}</div></div>
</div>
<p>{{.Advice}}</p>
<table>
<tr><th>Counter</th><th>Value</th></tr>
<tr><td>AHI searches</td><td class="num">{{comma .Sample.Counters.Searches}}</td></tr>
<tr><td>B-tree searches</td><td class="num">{{comma .Sample.Counters.BtreeSearches}}</td></tr>
<tr><td>Pages added</td><td class="num">{{comma .Sample.Counters.PagesAdded}}</td></tr>
<tr><td>Pages removed</td><td class="num">{{comma .Sample.Counters.PagesRemoved}}</td></tr>
<tr><td>Rows added</td><td class="num">{{comma .Sample.Counters.RowsAdded}}</td></tr>
<tr><td>Rows updated</td><td class="num">{{comma .Sample.Counters.RowsUpdated}}</td></tr>
<tr><td>Rows removed</td><td class="num">{{comma .Sample.Counters.RowsRemoved}}</td></tr>
<tr><td>Rows deleted without hash entry</td><td class="num">{{comma .Sample.Counters.RowsDeletedNoHash}}</td></tr>
</table>
</body>
</html>
`))

func reportHTML(w io.Writer, r *domain.UsageReport) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	return nil
}

func seriesHTML(w io.Writer, s *domain.AHISeries) error {
	if err := seriesTemplate.Execute(w, seriesDoc(s)); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	return nil
}

func snapshotHTML(w io.Writer, doc snapshotDoc) error {
	if err := snapshotTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	return nil
}
