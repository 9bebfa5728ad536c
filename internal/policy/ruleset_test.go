package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile_Valid(t *testing.T) {
	path := writeRuleset(t, `
thresholds:
  min_unused_size_bytes: 2097152
  rarely_used_max_scans: 50
suppress:
  - large_rarely_used
tables:
  public.orders:
    suppress: [redundant_index]
`)

	rs, err := LoadFromFile(path)
	require.NoError(t, err)

	require.NotNil(t, rs.Thresholds.MinUnusedSizeBytes)
	assert.Equal(t, int64(2097152), *rs.Thresholds.MinUnusedSizeBytes)
	assert.Nil(t, rs.Thresholds.LargeSizeBytes)
	assert.Equal(t, []string{"large_rarely_used"}, rs.Suppress)
}

func TestLoadFromFile_UnknownCategory(t *testing.T) {
	path := writeRuleset(t, "suppress:\n  - bogus_rule\n")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_rule")
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/ruleset.yaml")
	require.Error(t, err)
}

func TestApplyThresholds_MergesOverrides(t *testing.T) {
	size := int64(5 << 20)
	rs := &Ruleset{Thresholds: ThresholdOverrides{MinUnusedSizeBytes: &size}}

	th := rs.ApplyThresholds(domain.DefaultThresholds())
	assert.Equal(t, size, th.MinUnusedSizeBytes)
	assert.Equal(t, int64(domain.DefaultLargeSizeBytes), th.LargeSizeBytes)
}

func TestApplyThresholds_NilRuleset(t *testing.T) {
	var rs *Ruleset
	assert.Equal(t, domain.DefaultThresholds(), rs.ApplyThresholds(domain.DefaultThresholds()))
}

func TestAllowed_GlobalSuppression(t *testing.T) {
	rs := &Ruleset{Suppress: []string{"unused_index"}}

	assert.False(t, rs.Allowed(domain.Finding{Category: domain.CategoryUnusedIndex}))
	assert.True(t, rs.Allowed(domain.Finding{Category: domain.CategoryRedundantIndex}))
}

func TestAllowed_PerTableSuppression(t *testing.T) {
	rs := &Ruleset{Tables: map[string]TableRules{
		"public.orders": {Suppress: []string{"redundant_index"}},
	}}

	assert.False(t, rs.Allowed(domain.Finding{Category: domain.CategoryRedundantIndex, SchemaTable: "public.orders"}))
	assert.True(t, rs.Allowed(domain.Finding{Category: domain.CategoryRedundantIndex, SchemaTable: "public.users"}))
}

func TestAllowed_NilRulesetAllowsEverything(t *testing.T) {
	var rs *Ruleset
	assert.True(t, rs.Allowed(domain.Finding{Category: domain.CategoryUnusedIndex}))
}
