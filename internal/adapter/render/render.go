// Package render writes reports and AHI series in the supported output
// formats. Every function writes to an io.Writer and never closes it.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// Options tune the text format. Other formats ignore them.
type Options struct {
	Color bool
}

// Report writes a usage report.
func Report(w io.Writer, format string, r *domain.UsageReport, opts Options) error {
	switch format {
	case FormatText:
		return reportText(w, r, opts)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	case FormatCSV:
		return reportCSV(w, r)
	case FormatHTML:
		return reportHTML(w, r)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// Series writes the outcome of a monitoring run.
func Series(w io.Writer, format string, s *domain.AHISeries, opts Options) error {
	switch format {
	case FormatText:
		return seriesText(w, s, opts)
	case FormatJSON:
		return writeJSON(w, seriesDoc(s))
	case FormatYAML:
		return writeYAML(w, seriesDoc(s))
	case FormatCSV:
		return seriesCSV(w, s)
	case FormatHTML:
		return seriesHTML(w, s)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// Snapshot writes one AHI sample with its cumulative effectiveness.
func Snapshot(w io.Writer, format string, s domain.AHISample, opts Options) error {
	doc := snapshotDoc{Sample: s, Effectiveness: s.Effectiveness()}
	doc.Advice = doc.Effectiveness.Tier.Advice()
	switch format {
	case FormatText:
		return snapshotText(w, doc, opts)
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		return writeYAML(w, doc)
	case FormatCSV:
		return snapshotCSV(w, doc)
	case FormatHTML:
		return snapshotHTML(w, doc)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// seriesDocument adds the derived overall figure to the raw series.
type seriesDocument struct {
	domain.AHISeries `yaml:",inline"`
	Overall          domain.Effectiveness `json:"overall" yaml:"overall"`
	Advice           string               `json:"advice" yaml:"advice"`
}

func seriesDoc(s *domain.AHISeries) seriesDocument {
	overall := s.Overall()
	return seriesDocument{AHISeries: *s, Overall: overall, Advice: overall.Tier.Advice()}
}

type snapshotDoc struct {
	Sample        domain.AHISample     `json:"sample" yaml:"sample"`
	Effectiveness domain.Effectiveness `json:"effectiveness" yaml:"effectiveness"`
	Advice        string               `json:"advice" yaml:"advice"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// hitRate formats an optional percentage; an undefined rate is never shown
// as 0%.
func hitRate(e domain.Effectiveness) string {
	if e.HitRate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *e.HitRate)
}
