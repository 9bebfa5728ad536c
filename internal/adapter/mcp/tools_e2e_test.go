package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guillermoBallester/pgadvisor/internal/adapter/postgres"
	"github.com/guillermoBallester/pgadvisor/internal/audit"
	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/guillermoBallester/pgadvisor/internal/core/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const e2eSchema = `
	CREATE TABLE customers (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL
	);

	-- orders.customer_id is a foreign key with no covering index.
	CREATE TABLE orders (
		id          SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	-- Never scanned in this test, so it shows up as unused once it crosses
	-- the size floor.
	CREATE INDEX idx_orders_status ON orders(status);

	-- Exact duplicate pair for the redundancy rule.
	CREATE INDEX idx_orders_created ON orders(created_at);
	CREATE INDEX idx_orders_created_dup ON orders(created_at);

	INSERT INTO customers (name)
	SELECT 'Customer ' || i FROM generate_series(1, 50) AS i;

	INSERT INTO orders (customer_id, status, created_at)
	SELECT
		(i % 50) + 1,
		CASE WHEN i % 4 = 0 THEN 'shipped' ELSE 'pending' END,
		now() - (i || ' minutes')::interval
	FROM generate_series(1, 2000) AS i;
`

// setupE2E starts a Postgres testcontainer, applies the schema, runs ANALYZE,
// and returns a fully wired MCP server backed by real adapters.
func setupE2E(t *testing.T) (*server.MCPServer, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, e2eSchema)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "ANALYZE")
	require.NoError(t, err)

	// Real adapters.
	catalog := postgres.NewCatalog(pool)
	gate := postgres.NewGate(pool, 10*time.Second)

	// Real service.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	advisor := service.NewAdvisorService(catalog, gate, domain.NewPgQueryValidator(), audit.NoopAuditor{}, logger, nil, nil, nil)

	// Real MCP server.
	s := server.NewMCPServer("test-e2e", "0.0.1", server.WithToolCapabilities(true))
	RegisterTools(s, advisor, domain.DefaultThresholds())
	return s, pool
}

func TestE2E_AdvisorTools(t *testing.T) {
	s, pool := setupE2E(t)
	ctx := context.Background()

	// The schema above is tiny; lower the size floors so the rules fire.
	looseThresholds := map[string]any{
		"min_unused_size_bytes": float64(1),
		"large_size_bytes":      float64(1),
	}

	t.Run("analyze", func(t *testing.T) {
		args := map[string]any{"schemas": "public"}
		for k, v := range looseThresholds {
			args[k] = v
		}
		result := callToolE2E(t, s, "analyze", args)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))

		var rep service.Report
		require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
		assert.False(t, rep.Applied)
		assert.Empty(t, rep.DeniedSchemas)

		byCategory := make(map[domain.Category][]service.ReportFinding)
		for _, f := range rep.Findings {
			byCategory[f.Category] = append(byCategory[f.Category], f)
			assert.Equal(t, service.StatusNotExecuted, f.Execution.Status)
		}

		// orders.customer_id FK has no index.
		require.NotEmpty(t, byCategory[domain.CategoryMissingFKIndex])
		fk := byCategory[domain.CategoryMissingFKIndex][0]
		assert.Equal(t, "public.orders", fk.SchemaTable)
		require.NotNil(t, fk.Statement)
		assert.Equal(t, domain.StatementCreateIndex, fk.Statement.Kind)
		assert.Equal(t, []string{"customer_id"}, fk.Statement.Columns)

		// idx_orders_created / idx_orders_created_dup are exact duplicates;
		// exactly one of the pair is reported.
		dups := 0
		for _, f := range byCategory[domain.CategoryRedundantIndex] {
			require.NotNil(t, f.Statement)
			if f.Statement.Index == "idx_orders_created" || f.Statement.Index == "idx_orders_created_dup" {
				dups++
			}
		}
		assert.Equal(t, 1, dups, "exactly one of an exact-duplicate pair is redundant")

		// Never-scanned indexes show up as unused.
		unusedNames := make(map[string]bool)
		for _, f := range byCategory[domain.CategoryUnusedIndex] {
			require.NotNil(t, f.Statement)
			unusedNames[f.Statement.Index] = true
		}
		assert.True(t, unusedNames["idx_orders_status"], "idx_orders_status was never scanned")

		// Findings are ordered by priority ascending.
		for i := 1; i < len(rep.Findings); i++ {
			assert.LessOrEqual(t, rep.Findings[i-1].Priority, rep.Findings[i].Priority)
		}
	})

	t.Run("apply/confirm_required", func(t *testing.T) {
		result := callToolE2E(t, s, "apply", map[string]any{"confirm": false})
		assert.True(t, result.IsError)
	})

	t.Run("apply", func(t *testing.T) {
		args := map[string]any{"confirm": true, "schemas": "public"}
		for k, v := range looseThresholds {
			args[k] = v
		}
		result := callToolE2E(t, s, "apply", args)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))

		var rep service.Report
		require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
		assert.True(t, rep.Applied)

		// With the floors lowered the duplicate pair is flagged both unused
		// and redundant, so the later of the two DROPs fails on an index the
		// earlier one already removed. Apply keeps going either way; assert
		// on the end state rather than on every per-statement status.
		executed := 0
		for _, f := range rep.Findings {
			if f.Statement == nil {
				assert.Equal(t, service.StatusNotExecuted, f.Execution.Status)
				continue
			}
			if f.Execution.Status == service.StatusExecuted {
				executed++
			}
		}
		assert.Greater(t, executed, 0)

		// The FK index now exists.
		var found bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM pg_indexes
				WHERE schemaname = 'public' AND tablename = 'orders'
				  AND indexdef LIKE '%(customer_id)%'
			)`,
		).Scan(&found)
		require.NoError(t, err)
		assert.True(t, found, "apply should have created the FK index")

		// The unused index is gone.
		err = pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_orders_status')`,
		).Scan(&found)
		require.NoError(t, err)
		assert.False(t, found, "apply should have dropped idx_orders_status")
	})

	t.Run("analyze/after_apply", func(t *testing.T) {
		args := map[string]any{"schemas": "public"}
		for k, v := range looseThresholds {
			args[k] = v
		}
		result := callToolE2E(t, s, "analyze", args)
		require.False(t, result.IsError, "unexpected error: %s", toolText(result))

		var rep service.Report
		require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
		for _, f := range rep.Findings {
			assert.NotEqual(t, domain.CategoryMissingFKIndex, f.Category,
				"FK finding should be resolved after apply")
		}
	})
}

// callToolE2E reuses the unit-test helper; the shared session counter keeps
// repeated calls against the same server from colliding.
func callToolE2E(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	return callTool(t, s, toolName, args)
}
