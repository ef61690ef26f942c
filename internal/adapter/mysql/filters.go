package mysql

import (
	"fmt"
	"strings"
)

// systemSchemas are never analyzed unless named explicitly.
var systemSchemas = []string{"mysql", "information_schema", "performance_schema", "sys"}

// schemaFilter returns a WHERE fragment and its args restricting column to the
// requested schemas, or excluding the system schemas when none are requested.
func schemaFilter(schemas []string, column string) (clause string, args []any) {
	list, op := schemas, "IN"
	if len(list) == 0 {
		list, op = systemSchemas, "NOT IN"
	}
	placeholders := make([]string, len(list))
	args = make([]any, len(list))
	for i, s := range list {
		placeholders[i] = "?"
		args[i] = s
	}
	return fmt.Sprintf("%s %s (%s)", column, op, strings.Join(placeholders, ", ")), args
}

// quoteString renders s as a single-quoted MySQL string literal.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
