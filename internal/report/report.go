// Package report renders advisor run results for humans and machines. It is
// a pure transformation: finding content and ordering are never altered.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guillermoBallester/pgadvisor/internal/core/service"
)

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, rep *service.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteText renders the report as a human-readable summary, findings in
// priority order.
func WriteText(w io.Writer, rep *service.Report) error {
	var b strings.Builder

	scope := "all non-system schemas"
	if len(rep.Schemas) > 0 {
		scope = strings.Join(rep.Schemas, ", ")
	}
	mode := "dry run"
	if rep.Applied {
		mode = "apply"
	}

	fmt.Fprintf(&b, "pgadvisor report %s\n", rep.TakenAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "schemas: %s | mode: %s | findings: %d\n", scope, mode, len(rep.Findings))

	for _, denied := range rep.DeniedSchemas {
		fmt.Fprintf(&b, "skipped: %s\n", denied)
	}

	if len(rep.Findings) == 0 {
		b.WriteString("\nNo findings. Indexes and constraints look healthy.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for i, f := range rep.Findings {
		fmt.Fprintf(&b, "\n%d. [P%d] %s %s\n", i+1, f.Priority, f.Category, f.SchemaTable)
		fmt.Fprintf(&b, "   %s\n", f.Description)
		fmt.Fprintf(&b, "   action: %s\n", f.RecommendedAction)
		if f.Statement != nil {
			fmt.Fprintf(&b, "   statement: %s;\n", f.Statement.SQL())
		}
		fmt.Fprintf(&b, "   impact: %s\n", f.EstimatedImpact)
		switch f.Execution.Status {
		case service.StatusExecuted:
			fmt.Fprintf(&b, "   executed in %dms\n", f.Execution.DurationMS)
		case service.StatusFailed:
			fmt.Fprintf(&b, "   FAILED: %s\n", f.Execution.Error)
		}
	}

	if stmts := Statements(rep); len(stmts) > 0 && !rep.Applied {
		b.WriteString("\nCorrective statements (not executed):\n")
		for _, s := range stmts {
			fmt.Fprintf(&b, "  %s;\n", s)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Statements returns the corrective SQL for every finding that has one,
// preserving report order.
func Statements(rep *service.Report) []string {
	var out []string
	for _, f := range rep.Findings {
		if f.Statement != nil {
			out = append(out, f.Statement.SQL())
		}
	}
	return out
}
