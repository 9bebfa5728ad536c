package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category identifies the heuristic rule that produced a finding.
type Category string

const (
	CategoryUnusedIndex     Category = "unused_index"
	CategoryMissingFKIndex  Category = "missing_fk_index"
	CategoryRedundantIndex  Category = "redundant_index"
	CategoryLargeRarelyUsed Category = "large_rarely_used"
)

// Finding priorities. Lower is more urgent.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// StatementKind distinguishes the two corrective actions the advisor emits.
type StatementKind string

const (
	StatementCreateIndex StatementKind = "create_index"
	StatementDropIndex   StatementKind = "drop_index"
)

// Statement is a corrective action as structured data. It is rendered to SQL
// only at the formatting or execution boundary, never built by string
// concatenation from catalog values.
type Statement struct {
	Kind    StatementKind `json:"kind"`
	Schema  string        `json:"schema"`
	Table   string        `json:"table,omitempty"`
	Index   string        `json:"index"`
	Columns []string      `json:"columns,omitempty"`
}

// SQL renders the statement with quoted identifiers.
func (s Statement) SQL() string {
	switch s.Kind {
	case StatementCreateIndex:
		cols := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = quoteIdent(c)
		}
		return fmt.Sprintf("CREATE INDEX %s ON %s.%s (%s)",
			quoteIdent(s.Index), quoteIdent(s.Schema), quoteIdent(s.Table), strings.Join(cols, ", "))
	case StatementDropIndex:
		return fmt.Sprintf("DROP INDEX %s.%s", quoteIdent(s.Schema), quoteIdent(s.Index))
	default:
		return ""
	}
}

// MarshalJSON includes the rendered SQL alongside the structured fields so
// report consumers don't have to re-render it.
func (s Statement) MarshalJSON() ([]byte, error) {
	type alias Statement
	return json.Marshal(struct {
		alias
		SQL string `json:"sql"`
	}{alias(s), s.SQL()})
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Finding is one advisor result. Findings are immutable once produced and
// ordered by priority, then by estimated size descending.
type Finding struct {
	Category          Category   `json:"category"`
	Priority          int        `json:"priority"`
	SchemaTable       string     `json:"schema_table"`
	Description       string     `json:"description"`
	RecommendedAction string     `json:"recommended_action"`
	Statement         *Statement `json:"corrective_statement,omitempty"`
	EstimatedImpact   string     `json:"estimated_impact"`

	// SizeBytes is the ordering tiebreaker within a priority band.
	SizeBytes int64 `json:"-"`
}

// HumanSize formats a byte count the way pg_size_pretty does, coarsely.
func HumanSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
