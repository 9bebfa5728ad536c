package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"io"
	"log/slog"

	"github.com/guillermoBallester/pgadvisor/internal/audit"
	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/guillermoBallester/pgadvisor/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock CatalogReader ---

type mockReader struct {
	snap        *domain.Snapshot
	err         error
	lastSchemas []string
}

func (m *mockReader) Read(_ context.Context, schemas []string) (*domain.Snapshot, error) {
	m.lastSchemas = schemas
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

// --- mock StatementExecutor ---

type mockGate struct {
	executed []string
	err      error
}

func (m *mockGate) ExecuteDDL(_ context.Context, sql string) error {
	m.executed = append(m.executed, sql)
	return m.err
}

// --- helpers ---

var sessionCounter atomic.Int64

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession(fmt.Sprintf("test-%d", sessionCounter.Add(1)), nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

func unusedIndexSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Indexes: []domain.IndexStat{
			{
				Schema: "public", Table: "orders", Name: "idx_orders_legacy",
				Columns: []string{"legacy_id"}, SizeBytes: 4 << 20, Scans: 0,
			},
		},
		TakenAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func setupServer(reader *mockReader, gate *mockGate) (*server.MCPServer, *mockGate) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if gate == nil {
		gate = &mockGate{}
	}

	advisor := service.NewAdvisorService(reader, gate, domain.NewPgQueryValidator(), audit.NoopAuditor{}, logger, nil, nil, nil)

	s := server.NewMCPServer("test", "0.1.0", server.WithToolCapabilities(true))
	RegisterTools(s, advisor, domain.DefaultThresholds())
	return s, gate
}

// --- tests ---

func TestAnalyze_HappyPath(t *testing.T) {
	reader := &mockReader{snap: unusedIndexSnapshot()}
	s, gate := setupServer(reader, nil)

	result := callTool(t, s, "analyze", nil)
	require.False(t, result.IsError, toolText(result))

	var rep service.Report
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, domain.CategoryUnusedIndex, rep.Findings[0].Category)
	assert.Equal(t, service.StatusNotExecuted, rep.Findings[0].Execution.Status)
	assert.False(t, rep.Applied)
	assert.Empty(t, gate.executed, "analyze must never execute statements")
}

func TestAnalyze_SchemasArgument(t *testing.T) {
	reader := &mockReader{snap: &domain.Snapshot{}}
	s, _ := setupServer(reader, nil)

	result := callTool(t, s, "analyze", map[string]any{"schemas": "public, billing"})
	require.False(t, result.IsError, toolText(result))
	assert.Equal(t, []string{"public", "billing"}, reader.lastSchemas)
}

func TestAnalyze_ThresholdOverride(t *testing.T) {
	// The only index is 4 MiB; raising the unused-size floor above that
	// suppresses the finding.
	reader := &mockReader{snap: unusedIndexSnapshot()}
	s, _ := setupServer(reader, nil)

	result := callTool(t, s, "analyze", map[string]any{
		"min_unused_size_bytes": float64(8 << 20),
	})
	require.False(t, result.IsError, toolText(result))

	var rep service.Report
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
	assert.Empty(t, rep.Findings)
}

func TestAnalyze_ReaderError(t *testing.T) {
	reader := &mockReader{err: fmt.Errorf("connection refused")}
	s, _ := setupServer(reader, nil)

	result := callTool(t, s, "analyze", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "analysis failed")
}

func TestApply_RequiresConfirm(t *testing.T) {
	reader := &mockReader{snap: unusedIndexSnapshot()}
	s, gate := setupServer(reader, nil)

	result := callTool(t, s, "apply", map[string]any{"confirm": false})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "confirm must be true")
	assert.Empty(t, gate.executed)

	result = callTool(t, s, "apply", nil)
	assert.True(t, result.IsError)
	assert.Empty(t, gate.executed)
}

func TestApply_ExecutesStatements(t *testing.T) {
	reader := &mockReader{snap: unusedIndexSnapshot()}
	s, gate := setupServer(reader, nil)

	result := callTool(t, s, "apply", map[string]any{"confirm": true})
	require.False(t, result.IsError, toolText(result))

	var rep service.Report
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
	assert.True(t, rep.Applied)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, service.StatusExecuted, rep.Findings[0].Execution.Status)

	require.Len(t, gate.executed, 1)
	assert.Equal(t, `DROP INDEX "public"."idx_orders_legacy"`, gate.executed[0])
}

func TestApply_ReportsFailures(t *testing.T) {
	reader := &mockReader{snap: unusedIndexSnapshot()}
	s, _ := setupServer(reader, &mockGate{err: fmt.Errorf("index is in use")})

	result := callTool(t, s, "apply", map[string]any{"confirm": true})
	require.False(t, result.IsError, toolText(result))

	var rep service.Report
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &rep))
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, service.StatusFailed, rep.Findings[0].Execution.Status)
	assert.Contains(t, rep.Findings[0].Execution.Error, "index is in use")
}
