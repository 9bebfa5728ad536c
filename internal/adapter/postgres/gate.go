package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Gate executes corrective DDL statements, one transaction per statement.
// A failure is reported to the caller and never rolls back previously
// committed statements.
type Gate struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

func NewGate(pool *pgxpool.Pool, statementTimeout time.Duration) *Gate {
	return &Gate{pool: pool, statementTimeout: statementTimeout}
}

func (g *Gate) ExecuteDDL(ctx context.Context, sql string) error {
	ctx, cancel := context.WithTimeout(ctx, g.statementTimeout)
	defer cancel()

	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Enforce the timeout server-side too. SET LOCAL scopes to this
	// transaction only.
	timeoutMS := g.statementTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return fmt.Errorf("setting statement timeout: %w", err)
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
