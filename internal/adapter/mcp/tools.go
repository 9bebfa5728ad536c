package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/guillermoBallester/pgadvisor/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "pgadvisor"

// Tool descriptions
const (
	descAnalyze = "Analyze index health for the given schemas and return findings as JSON. " +
		"Reports unused indexes, foreign keys without a covering index, redundant indexes, " +
		"and large rarely-used indexes, each with a priority and (where safe) a corrective " +
		"SQL statement. This is always a dry run: nothing is executed."

	descAnalyzeSchemas = "Comma-separated schema names to analyze (defaults to all non-system schemas)"

	descApply = "Run the analysis and execute each finding's corrective statement, one transaction " +
		"per statement, continuing past individual failures. Requires confirm=true. " +
		"Returns the report with a per-finding execution result."

	descApplyConfirm = "Must be true to execute corrective statements against the database"

	descThresholdMinUnused = "Minimum index size in bytes for the unused-index rule (default 1048576)"
	descThresholdLarge     = "Minimum index size in bytes for the large-rarely-used rule (default 10485760)"
	descThresholdMaxScans  = "Scan count below which an index counts as rarely used (default 100)"
)

func RegisterTools(s *server.MCPServer, advisor *service.AdvisorService, defaults domain.Thresholds) {
	s.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription(descAnalyze),
			mcp.WithString("schemas",
				mcp.Description(descAnalyzeSchemas),
			),
			mcp.WithNumber("min_unused_size_bytes",
				mcp.Description(descThresholdMinUnused),
			),
			mcp.WithNumber("large_size_bytes",
				mcp.Description(descThresholdLarge),
			),
			mcp.WithNumber("rarely_used_max_scans",
				mcp.Description(descThresholdMaxScans),
			),
		),
		analyzeHandler(advisor, defaults, false),
	)

	s.AddTool(
		mcp.NewTool("apply",
			mcp.WithDescription(descApply),
			mcp.WithBoolean("confirm",
				mcp.Required(),
				mcp.Description(descApplyConfirm),
			),
			mcp.WithString("schemas",
				mcp.Description(descAnalyzeSchemas),
			),
			mcp.WithNumber("min_unused_size_bytes",
				mcp.Description(descThresholdMinUnused),
			),
			mcp.WithNumber("large_size_bytes",
				mcp.Description(descThresholdLarge),
			),
			mcp.WithNumber("rarely_used_max_scans",
				mcp.Description(descThresholdMaxScans),
			),
		),
		analyzeHandler(advisor, defaults, true),
	)
}

func analyzeHandler(advisor *service.AdvisorService, defaults domain.Thresholds, apply bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		if apply {
			confirm, _ := args["confirm"].(bool)
			if !confirm {
				return mcp.NewToolResultError("confirm must be true to apply corrective statements"), nil
			}
		}

		opts := service.RunOptions{
			Apply:      apply,
			Thresholds: thresholdsFromArgs(args, defaults),
		}
		if raw, _ := args["schemas"].(string); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					opts.Schemas = append(opts.Schemas, s)
				}
			}
		}

		rep, err := advisor.Run(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		data, err := json.Marshal(rep)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func thresholdsFromArgs(args map[string]any, defaults domain.Thresholds) domain.Thresholds {
	th := defaults
	if v, ok := args["min_unused_size_bytes"].(float64); ok && v >= 0 {
		th.MinUnusedSizeBytes = int64(v)
	}
	if v, ok := args["large_size_bytes"].(float64); ok && v >= 0 {
		th.LargeSizeBytes = int64(v)
	}
	if v, ok := args["rarely_used_max_scans"].(float64); ok && v > 0 {
		th.RarelyUsedMaxScans = int64(v)
	}
	return th
}
