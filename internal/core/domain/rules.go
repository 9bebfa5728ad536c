package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Default heuristic thresholds. The source statistics give no principled
// values here, so all three are operator-configurable.
const (
	DefaultMinUnusedSizeBytes = 1 << 20  // 1 MiB
	DefaultLargeSizeBytes     = 10 << 20 // 10 MiB
	DefaultRarelyUsedMaxScans = 100
)

// Thresholds tune the heuristic rules.
type Thresholds struct {
	MinUnusedSizeBytes int64
	LargeSizeBytes     int64
	RarelyUsedMaxScans int64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinUnusedSizeBytes: DefaultMinUnusedSizeBytes,
		LargeSizeBytes:     DefaultLargeSizeBytes,
		RarelyUsedMaxScans: DefaultRarelyUsedMaxScans,
	}
}

// Evaluate runs every rule over the snapshot and returns findings ordered by
// priority, ties broken by estimated size descending. It performs no I/O and
// is deterministic for identical input.
func Evaluate(snap *Snapshot, th Thresholds) []Finding {
	if snap == nil {
		return nil
	}

	var findings []Finding
	findings = append(findings, unusedIndexes(snap.Indexes, th)...)
	findings = append(findings, missingFKIndexes(snap, th)...)
	findings = append(findings, redundantIndexes(snap.Indexes)...)
	findings = append(findings, largeRarelyUsed(snap.Indexes, th)...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Priority != findings[j].Priority {
			return findings[i].Priority < findings[j].Priority
		}
		if findings[i].SizeBytes != findings[j].SizeBytes {
			return findings[i].SizeBytes > findings[j].SizeBytes
		}
		return findings[i].SchemaTable < findings[j].SchemaTable
	})

	return findings
}

func unusedIndexes(indexes []IndexStat, th Thresholds) []Finding {
	var out []Finding
	for _, idx := range indexes {
		if idx.Scans != 0 || idx.IsPrimaryKey || idx.SizeBytes < th.MinUnusedSizeBytes {
			continue
		}

		f := Finding{
			Category:    CategoryUnusedIndex,
			Priority:    PriorityHigh,
			SchemaTable: idx.Schema + "." + idx.Table,
			Description: fmt.Sprintf("index %s (%s) has never been scanned (selectivity: %s)",
				idx.Name, HumanSize(idx.SizeBytes), selectivityLabel(idx)),
			EstimatedImpact: fmt.Sprintf("reclaims %s of disk and removes write amplification on %s.%s",
				HumanSize(idx.SizeBytes), idx.Schema, idx.Table),
			SizeBytes: idx.SizeBytes,
		}

		if idx.IsUnique {
			// Unique indexes enforce a constraint even when never scanned;
			// dropping one changes semantics, so no statement is generated.
			f.RecommendedAction = "review: unique index is unused but enforces uniqueness; drop only if the constraint is obsolete"
		} else {
			f.RecommendedAction = "drop the unused index"
			f.Statement = &Statement{
				Kind:   StatementDropIndex,
				Schema: idx.Schema,
				Table:  idx.Table,
				Index:  idx.Name,
			}
		}
		out = append(out, f)
	}
	return out
}

func missingFKIndexes(snap *Snapshot, _ Thresholds) []Finding {
	var out []Finding
	for _, con := range snap.Constraints {
		if con.Type != ConstraintForeignKey || len(con.Columns) == 0 {
			continue
		}
		if hasCoveringIndex(snap.Indexes, con) {
			continue
		}

		name := fmt.Sprintf("idx_%s_%s", con.Table, strings.Join(con.Columns, "_"))
		out = append(out, Finding{
			Category:    CategoryMissingFKIndex,
			Priority:    PriorityMedium,
			SchemaTable: con.Schema + "." + con.Table,
			Description: fmt.Sprintf("foreign key %s on (%s) has no covering index; referencing-side lookups and cascades scan the table",
				con.Name, strings.Join(con.Columns, ", ")),
			RecommendedAction: "create an index on the referencing columns",
			Statement: &Statement{
				Kind:    StatementCreateIndex,
				Schema:  con.Schema,
				Table:   con.Table,
				Index:   name,
				Columns: con.Columns,
			},
			EstimatedImpact: fmt.Sprintf("speeds up joins and ON DELETE/UPDATE cascades via %s", con.Name),
		})
	}
	return out
}

// hasCoveringIndex reports whether any index's leading columns match the
// constraint's column list in order. Partial and expression indexes never
// count as covering.
func hasCoveringIndex(indexes []IndexStat, con ConstraintInfo) bool {
	for _, idx := range indexes {
		if idx.Schema != con.Schema || idx.Table != con.Table {
			continue
		}
		if idx.IsPartial || idx.HasExpression {
			continue
		}
		if isOrderedPrefix(con.Columns, idx.Columns) {
			return true
		}
	}
	return false
}

func redundantIndexes(indexes []IndexStat) []Finding {
	var out []Finding
	reported := make(map[string]bool)

	for _, a := range indexes {
		// Never suggest dropping constraint-backing indexes.
		if a.IsPrimaryKey || a.IsUnique || a.IsPartial || a.HasExpression {
			continue
		}
		key := a.Schema + "." + a.Name
		if reported[key] {
			continue
		}

		for _, b := range indexes {
			if a.Schema != b.Schema || a.Table != b.Table || a.Name == b.Name {
				continue
			}
			if b.IsPartial || b.HasExpression {
				continue
			}
			if !subsumedBy(a, b) {
				continue
			}

			reported[key] = true
			out = append(out, Finding{
				Category:    CategoryRedundantIndex,
				Priority:    PriorityMedium,
				SchemaTable: a.Schema + "." + a.Table,
				Description: fmt.Sprintf("index %s (%s) on (%s) is subsumed by %s on (%s)",
					a.Name, HumanSize(a.SizeBytes),
					strings.Join(a.Columns, ", "), b.Name, strings.Join(b.Columns, ", ")),
				RecommendedAction: "drop the subsumed index",
				Statement: &Statement{
					Kind:   StatementDropIndex,
					Schema: a.Schema,
					Table:  a.Table,
					Index:  a.Name,
				},
				EstimatedImpact: fmt.Sprintf("reclaims %s; %s already serves these lookups", HumanSize(a.SizeBytes), b.Name),
				SizeBytes:       a.SizeBytes,
			})
			break
		}
	}
	return out
}

// subsumedBy reports whether a's column list is an ordered prefix of (or
// equal to) b's. For exact duplicates only one of the pair is subsumed: the
// one with fewer scans, falling back to the greater name.
func subsumedBy(a, b IndexStat) bool {
	if !isOrderedPrefix(a.Columns, b.Columns) {
		return false
	}
	if len(a.Columns) < len(b.Columns) {
		return true
	}
	// Exact duplicates: b wins unless it is also a plain index losing the tiebreak.
	if b.IsPrimaryKey || b.IsUnique {
		return true
	}
	if a.Scans != b.Scans {
		return a.Scans < b.Scans
	}
	return a.Name > b.Name
}

func isOrderedPrefix(prefix, full []string) bool {
	if len(prefix) == 0 || len(prefix) > len(full) {
		return false
	}
	for i, col := range prefix {
		if full[i] != col {
			return false
		}
	}
	return true
}

func largeRarelyUsed(indexes []IndexStat, th Thresholds) []Finding {
	var out []Finding
	for _, idx := range indexes {
		if idx.Scans <= 0 || idx.Scans >= th.RarelyUsedMaxScans || idx.SizeBytes < th.LargeSizeBytes {
			continue
		}
		out = append(out, Finding{
			Category:    CategoryLargeRarelyUsed,
			Priority:    PriorityLow,
			SchemaTable: idx.Schema + "." + idx.Table,
			Description: fmt.Sprintf("index %s is %s but was scanned only %d times (selectivity: %s)",
				idx.Name, HumanSize(idx.SizeBytes), idx.Scans, selectivityLabel(idx)),
			RecommendedAction: "review whether the index earns its maintenance cost; no statement generated",
			EstimatedImpact:   fmt.Sprintf("potentially reclaims %s if the workload no longer needs it", HumanSize(idx.SizeBytes)),
			SizeBytes:         idx.SizeBytes,
		})
	}
	return out
}

func selectivityLabel(idx IndexStat) string {
	ratio, ok := idx.Selectivity()
	if !ok {
		return "no data"
	}
	return fmt.Sprintf("%.3f", ratio)
}
