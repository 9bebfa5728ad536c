package port

import "context"

// StatementExecutor runs one corrective DDL statement against the live
// database. Each call is an independent transaction; a failure never affects
// previously executed statements.
type StatementExecutor interface {
	ExecuteDDL(ctx context.Context, sql string) error
}

// StatementValidator validates corrective SQL before execution.
type StatementValidator interface {
	Validate(sql string) error
}
