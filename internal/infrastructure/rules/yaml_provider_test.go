package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestYAMLProvider_LoadsOverridesAndDefaults(t *testing.T) {
	path := writeRulesFile(t, `
defaults:
  borrow_window_days: 10
  max_partial_fill: true
skus:
  - sku: SKU-1
    borrow_window_days: 3
    risky_depletion_enabled: true
    priority_class: HIGH
  - sku: SKU-2
    max_partial_fill: false
`)

	provider, err := NewYAMLProvider(path)
	require.NoError(t, err)

	rules, err := provider.GetRules(context.Background(), "SKU-1", domain.PriorityStandard)
	require.NoError(t, err)
	assert.Equal(t, 3, rules.BorrowWindowDays)
	assert.True(t, rules.RiskyDepletionEnabled)
	assert.Equal(t, domain.PriorityHigh, rules.PriorityClass)
	assert.True(t, rules.MaxPartialFill)

	rules, err = provider.GetRules(context.Background(), "SKU-2", domain.PriorityStandard)
	require.NoError(t, err)
	assert.Equal(t, 10, rules.BorrowWindowDays)
	assert.False(t, rules.MaxPartialFill)

	// Unconfigured SKUs fall back to the file defaults
	rules, err = provider.GetRules(context.Background(), "SKU-OTHER", domain.PriorityStandard)
	require.NoError(t, err)
	assert.Equal(t, "SKU-OTHER", rules.SKU)
	assert.Equal(t, 10, rules.BorrowWindowDays)
	assert.False(t, rules.RiskyDepletionEnabled)
}

func TestYAMLProvider_RejectsInvalidEntries(t *testing.T) {
	_, err := NewYAMLProvider(writeRulesFile(t, `
skus:
  - borrow_window_days: 3
`))
	assert.Error(t, err)

	_, err = NewYAMLProvider(writeRulesFile(t, `
skus:
  - sku: SKU-1
    priority_class: PLATINUM
`))
	assert.Error(t, err)

	_, err = NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
