package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes treated as per-schema access failures rather than run aborts.
const (
	codeInsufficientPrivilege = "42501"
	codeInvalidSchemaName     = "3F000"
)

// Catalog reads index statistics and constraints from the system catalogs.
// All queries are read-only; it never mutates catalog state.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// Read snapshots the given schemas. Named schemas the current role cannot
// read are recorded in Denied and skipped; the remaining schemas are still
// collected. An empty schema list snapshots all non-system schemas in one
// pass.
func (c *Catalog) Read(ctx context.Context, schemas []string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{TakenAt: time.Now().UTC()}

	if len(schemas) == 0 {
		return snap, c.collect(ctx, nil, snap)
	}

	for _, schema := range schemas {
		readable, err := c.schemaReadable(ctx, schema)
		if err != nil {
			if accessErr := asAccessError(schema, err); accessErr != nil {
				snap.Denied = append(snap.Denied, accessErr)
				continue
			}
			return nil, fmt.Errorf("checking access to schema %q: %w", schema, err)
		}
		if !readable {
			snap.Denied = append(snap.Denied, &domain.SchemaAccessError{
				Schema: schema,
				Err:    domain.ErrPermissionDenied,
			})
			continue
		}

		if err := c.collect(ctx, []string{schema}, snap); err != nil {
			if accessErr := asAccessError(schema, err); accessErr != nil {
				snap.Denied = append(snap.Denied, accessErr)
				continue
			}
			return nil, err
		}
	}

	return snap, nil
}

func (c *Catalog) schemaReadable(ctx context.Context, schema string) (bool, error) {
	var ok bool
	err := c.pool.QueryRow(ctx, querySchemaReadable, schema).Scan(&ok)
	return ok, err
}

func (c *Catalog) collect(ctx context.Context, schemas []string, snap *domain.Snapshot) error {
	indexes, err := c.fetchIndexStats(ctx, schemas)
	if err != nil {
		return err
	}
	constraints, err := c.fetchConstraints(ctx, schemas)
	if err != nil {
		return err
	}
	snap.Indexes = append(snap.Indexes, indexes...)
	snap.Constraints = append(snap.Constraints, constraints...)
	return nil
}

func (c *Catalog) fetchIndexStats(ctx context.Context, schemas []string) ([]domain.IndexStat, error) {
	filter, args := schemaFilter(schemas, "s.schemaname", 1)
	query := fmt.Sprintf(queryIndexStats, filter)

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying index stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.IndexStat
	for rows.Next() {
		var s domain.IndexStat
		if err := rows.Scan(
			&s.Schema, &s.Table, &s.Name, &s.Columns,
			&s.SizeBytes, &s.Scans, &s.TuplesRead, &s.TuplesFetched,
			&s.IsPrimaryKey, &s.IsUnique, &s.IsPartial, &s.HasExpression,
		); err != nil {
			return nil, fmt.Errorf("scanning index stat row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (c *Catalog) fetchConstraints(ctx context.Context, schemas []string) ([]domain.ConstraintInfo, error) {
	filter, args := schemaFilter(schemas, "n.nspname", 1)
	query := fmt.Sprintf(queryConstraints, filter)

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying constraints: %w", err)
	}
	defer rows.Close()

	var cons []domain.ConstraintInfo
	for rows.Next() {
		var ci domain.ConstraintInfo
		var typ string
		if err := rows.Scan(&ci.Schema, &ci.Table, &ci.Name, &typ, &ci.Columns, &ci.ReferencedTable); err != nil {
			return nil, fmt.Errorf("scanning constraint row: %w", err)
		}
		ci.Type = domain.ConstraintType(typ)
		cons = append(cons, ci)
	}
	return cons, rows.Err()
}

// asAccessError converts privilege and missing-schema errors into a
// per-schema SchemaAccessError, or returns nil for everything else.
func asAccessError(schema string, err error) *domain.SchemaAccessError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case codeInsufficientPrivilege, codeInvalidSchemaName:
		return &domain.SchemaAccessError{Schema: schema, Err: err}
	default:
		return nil
	}
}
