package policy

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(file string) (*Policy, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	levels := []struct {
		field    string
		rules    []Rule
		segments int
	}{
		{"exclude.schemas", pol.Exclude.Schemas, 1},
		{"exclude.tables", pol.Exclude.Tables, 2},
		{"exclude.indexes", pol.Exclude.Indexes, 3},
	}
	for _, lvl := range levels {
		for i, r := range lvl.rules {
			if err := validatePattern(r.Pattern, lvl.segments); err != nil {
				return fmt.Errorf("%s[%d]: %w", lvl.field, i, err)
			}
		}
	}
	return nil
}

func validatePattern(pattern string, segments int) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	parts := strings.Split(pattern, ".")
	if len(parts) != segments {
		return fmt.Errorf("pattern %q has %d dot-separated segments, want %d", pattern, len(parts), segments)
	}
	for _, part := range parts {
		if part == "" {
			return fmt.Errorf("pattern %q has an empty segment", pattern)
		}
		if _, err := path.Match(part, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}
