package domain

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// PgQueryValidator validates corrective statements using PostgreSQL's actual
// parser before they reach the execution gate. Only single CREATE INDEX or
// DROP INDEX statements are permitted (whitelist approach).
type PgQueryValidator struct{}

func NewPgQueryValidator() *PgQueryValidator {
	return &PgQueryValidator{}
}

// Validate parses the SQL and rejects anything that isn't a single index DDL
// statement.
func (v *PgQueryValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyStatement
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 {
		return ErrEmptyStatement
	}

	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	stmt := tree.Stmts[0].Stmt
	if stmt == nil {
		return ErrEmptyStatement
	}

	switch node := stmt.Node.(type) {
	case *pg_query.Node_IndexStmt:
		return nil
	case *pg_query.Node_DropStmt:
		if node.DropStmt.RemoveType == pg_query.ObjectType_OBJECT_INDEX {
			return nil
		}
		return ErrNotAllowed
	default:
		return ErrNotAllowed
	}
}
