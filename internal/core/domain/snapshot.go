package domain

import "time"

// ConstraintType mirrors pg_constraint.contype for the kinds the advisor
// cares about.
type ConstraintType string

const (
	ConstraintCheck      ConstraintType = "check"
	ConstraintForeignKey ConstraintType = "foreign_key"
	ConstraintUnique     ConstraintType = "unique"
	ConstraintExclusion  ConstraintType = "exclusion"
)

// IndexStat is a read-only view of one index taken from pg_stat_user_indexes
// joined with pg_index. Never mutated after collection.
type IndexStat struct {
	Schema        string   `json:"schema"`
	Table         string   `json:"table"`
	Name          string   `json:"name"`
	Columns       []string `json:"columns"`
	SizeBytes     int64    `json:"size_bytes"`
	Scans         int64    `json:"scans"`
	TuplesRead    int64    `json:"tuples_read"`
	TuplesFetched int64    `json:"tuples_fetched"`
	IsPrimaryKey  bool     `json:"is_primary_key"`
	IsUnique      bool     `json:"is_unique"`
	IsPartial     bool     `json:"is_partial"`
	HasExpression bool     `json:"has_expression"`
}

// Selectivity returns tuples_fetched / tuples_read and whether the ratio is
// defined. With zero tuples read there is no data to divide by.
func (s IndexStat) Selectivity() (float64, bool) {
	if s.TuplesRead == 0 {
		return 0, false
	}
	return float64(s.TuplesFetched) / float64(s.TuplesRead), true
}

// ConstraintInfo is a read-only view of one constraint from pg_constraint.
type ConstraintInfo struct {
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	Name            string         `json:"name"`
	Type            ConstraintType `json:"type"`
	Columns         []string       `json:"columns"`
	ReferencedTable string         `json:"referenced_table,omitempty"`
}

// Snapshot is everything the rule engine sees for one run. It is recreated
// on every run; nothing here persists between runs.
type Snapshot struct {
	Indexes     []IndexStat          `json:"indexes"`
	Constraints []ConstraintInfo     `json:"constraints"`
	Denied      []*SchemaAccessError `json:"-"`
	TakenAt     time.Time            `json:"taken_at"`
}
