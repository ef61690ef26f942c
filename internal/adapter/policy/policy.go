package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled configuration loaded from a YAML file.
// It lists the objects to hide from every diagnostic.
type Policy struct {
	Exclude ExcludeConfig `yaml:"exclude"`
}

// ExcludeConfig groups exclusion rules by the level they apply to. Patterns
// use path.Match syntax per name segment:
//
//	schemas: "audit_*"
//	tables:  "schema.table"
//	indexes: "schema.table.index"
type ExcludeConfig struct {
	Schemas []Rule `yaml:"schemas"`
	Tables  []Rule `yaml:"tables"`
	Indexes []Rule `yaml:"indexes"`
}

// Rule is one exclusion pattern with an optional note explaining it.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason,omitempty"`
}

// UnmarshalYAML accepts both a plain pattern string and the struct form.
//
//	indexes:
//	  - "shop.orders.idx_legacy_*"      # plain → Rule{Pattern: ...}
//	  - pattern: "shop.*.tmp_*"          # struct with a reason
//	    reason: "scratch indexes from the migration tool"
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Pattern = value.Value
		return nil
	}
	type alias Rule
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding exclusion rule: %w", err)
	}
	*r = Rule(a)
	return nil
}

// Empty reports whether the policy excludes nothing.
func (p *Policy) Empty() bool {
	return p == nil || len(p.Exclude.Schemas)+len(p.Exclude.Tables)+len(p.Exclude.Indexes) == 0
}
