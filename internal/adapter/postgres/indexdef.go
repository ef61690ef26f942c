package postgres

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// parsedIndex is the key layout recovered from pg_get_indexdef output.
type parsedIndex struct {
	Columns []string
	Method  string
	Partial bool
}

// parseIndexDef parses a CREATE INDEX statement and returns its key columns
// in order. INCLUDE columns are not part of the key and are left out. An
// expression key part makes the index unusable for prefix comparison and is
// reported as domain.ErrInvalidIndexDefinition.
func parseIndexDef(def string) (parsedIndex, error) {
	tree, err := pg_query.Parse(def)
	if err != nil {
		return parsedIndex{}, fmt.Errorf("%w: parsing %q: %w", domain.ErrInvalidIndexDefinition, def, err)
	}
	if len(tree.Stmts) != 1 || tree.Stmts[0].Stmt == nil {
		return parsedIndex{}, fmt.Errorf("%w: expected one statement in %q", domain.ErrInvalidIndexDefinition, def)
	}

	node, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok || node.IndexStmt == nil {
		return parsedIndex{}, fmt.Errorf("%w: not a CREATE INDEX statement: %q", domain.ErrInvalidIndexDefinition, def)
	}
	stmt := node.IndexStmt

	out := parsedIndex{
		Method:  stmt.AccessMethod,
		Partial: stmt.WhereClause != nil,
	}
	for i, param := range stmt.IndexParams {
		elem, ok := param.Node.(*pg_query.Node_IndexElem)
		if !ok || elem.IndexElem == nil {
			return parsedIndex{}, fmt.Errorf("%w: unexpected key part %d in %q", domain.ErrInvalidIndexDefinition, i+1, def)
		}
		if elem.IndexElem.Name == "" {
			return parsedIndex{}, fmt.Errorf("%w: key part %d is an expression", domain.ErrInvalidIndexDefinition, i+1)
		}
		out.Columns = append(out.Columns, elem.IndexElem.Name)
	}
	return out, nil
}
