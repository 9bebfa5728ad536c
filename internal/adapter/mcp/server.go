package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/guillermoBallester/pgadvisor/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer exposing the advisor tools with logging hooks.
func NewServer(version string, advisor *service.AdvisorService, defaults domain.Thresholds, logger *slog.Logger, tracer trace.Tracer) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithHooks(ToolCallHooks(logger, tracer)),
	)

	RegisterTools(s, advisor, defaults)

	return s
}
