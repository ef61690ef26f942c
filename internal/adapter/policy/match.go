package policy

import (
	"path"
	"strings"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// matches compares each dot-separated segment of pattern against the
// corresponding name. Patterns are validated at load time, so a match error
// can only come from a hand-built Policy and counts as no match.
func matches(pattern string, names ...string) bool {
	parts := strings.Split(pattern, ".")
	if len(parts) != len(names) {
		return false
	}
	for i, part := range parts {
		ok, err := path.Match(part, names[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// ExcludesTable returns the first rule hiding schema.table, either through a
// schema rule or a table rule.
func (p *Policy) ExcludesTable(schema, table string) (Rule, bool) {
	if p == nil {
		return Rule{}, false
	}
	for _, r := range p.Exclude.Schemas {
		if matches(r.Pattern, schema) {
			return r, true
		}
	}
	for _, r := range p.Exclude.Tables {
		if matches(r.Pattern, schema, table) {
			return r, true
		}
	}
	return Rule{}, false
}

// ExcludesIndex returns the first rule hiding the index at any level.
func (p *Policy) ExcludesIndex(k domain.IndexKey) (Rule, bool) {
	if r, ok := p.ExcludesTable(k.Schema, k.Table); ok {
		return r, true
	}
	if p == nil {
		return Rule{}, false
	}
	for _, r := range p.Exclude.Indexes {
		if matches(r.Pattern, k.Schema, k.Table, k.Name) {
			return r, true
		}
	}
	return Rule{}, false
}
