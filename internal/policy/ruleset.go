// Package policy loads the operator ruleset: rule suppression and threshold
// overrides applied before findings are reported.
package policy

import (
	"fmt"
	"os"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Ruleset holds operator-controlled configuration loaded from a YAML file.
//
//	thresholds:
//	  min_unused_size_bytes: 2097152
//	  rarely_used_max_scans: 50
//	suppress:
//	  - large_rarely_used
//	tables:
//	  public.orders:
//	    suppress: [redundant_index]
type Ruleset struct {
	Thresholds ThresholdOverrides    `yaml:"thresholds"`
	Suppress   []string              `yaml:"suppress"`
	Tables     map[string]TableRules `yaml:"tables"`
}

// ThresholdOverrides override the built-in defaults. Pointer fields
// distinguish "not set" from zero.
type ThresholdOverrides struct {
	MinUnusedSizeBytes *int64 `yaml:"min_unused_size_bytes"`
	LargeSizeBytes     *int64 `yaml:"large_size_bytes"`
	RarelyUsedMaxScans *int64 `yaml:"rarely_used_max_scans"`
}

// TableRules scope suppression to one schema.table.
type TableRules struct {
	Suppress []string `yaml:"suppress"`
}

// LoadFromFile reads and validates a ruleset YAML file.
func LoadFromFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset file: %w", err)
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing ruleset file: %w", err)
	}

	for _, cat := range rs.Suppress {
		if !validCategory(cat) {
			return nil, fmt.Errorf("unknown rule category %q in suppress list", cat)
		}
	}
	for table, rules := range rs.Tables {
		for _, cat := range rules.Suppress {
			if !validCategory(cat) {
				return nil, fmt.Errorf("unknown rule category %q for table %q", cat, table)
			}
		}
	}

	return &rs, nil
}

func validCategory(s string) bool {
	switch domain.Category(s) {
	case domain.CategoryUnusedIndex, domain.CategoryMissingFKIndex,
		domain.CategoryRedundantIndex, domain.CategoryLargeRarelyUsed:
		return true
	}
	return false
}

// ApplyThresholds merges the ruleset's overrides into th.
func (r *Ruleset) ApplyThresholds(th domain.Thresholds) domain.Thresholds {
	if r == nil {
		return th
	}
	if r.Thresholds.MinUnusedSizeBytes != nil {
		th.MinUnusedSizeBytes = *r.Thresholds.MinUnusedSizeBytes
	}
	if r.Thresholds.LargeSizeBytes != nil {
		th.LargeSizeBytes = *r.Thresholds.LargeSizeBytes
	}
	if r.Thresholds.RarelyUsedMaxScans != nil {
		th.RarelyUsedMaxScans = *r.Thresholds.RarelyUsedMaxScans
	}
	return th
}

// Allowed reports whether a finding survives global and per-table suppression.
func (r *Ruleset) Allowed(f domain.Finding) bool {
	if r == nil {
		return true
	}
	for _, cat := range r.Suppress {
		if domain.Category(cat) == f.Category {
			return false
		}
	}
	if rules, ok := r.Tables[f.SchemaTable]; ok {
		for _, cat := range rules.Suppress {
			if domain.Category(cat) == f.Category {
				return false
			}
		}
	}
	return true
}
