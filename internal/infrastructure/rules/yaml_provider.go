package rules

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/promising-service/internal/domain"
)

// ruleFile is the on-disk layout: optional defaults plus per-SKU overrides
type ruleFile struct {
	Defaults *ruleEntry  `yaml:"defaults"`
	SKUs     []ruleEntry `yaml:"skus"`
}

type ruleEntry struct {
	SKU                   string `yaml:"sku"`
	BorrowWindowDays      *int   `yaml:"borrow_window_days"`
	RiskyDepletionEnabled *bool  `yaml:"risky_depletion_enabled"`
	PriorityClass         string `yaml:"priority_class"`
	MaxPartialFill        *bool  `yaml:"max_partial_fill"`
}

// YAMLProvider serves business rules from a YAML file loaded at startup.
// It backs deployments that configure promising policy statically instead
// of through the rules collection.
type YAMLProvider struct {
	defaults domain.BusinessRules
	bySKU    map[string]domain.BusinessRules
}

// NewYAMLProvider loads and validates the rule file
func NewYAMLProvider(path string) (*YAMLProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	defaults := *domain.DefaultRules("")
	if file.Defaults != nil {
		applyEntry(&defaults, file.Defaults)
	}

	provider := &YAMLProvider{
		defaults: defaults,
		bySKU:    make(map[string]domain.BusinessRules, len(file.SKUs)),
	}
	for i := range file.SKUs {
		entry := &file.SKUs[i]
		if entry.SKU == "" {
			return nil, fmt.Errorf("rules file entry %d has no sku", i)
		}
		rules := defaults
		rules.SKU = entry.SKU
		applyEntry(&rules, entry)
		if rules.BorrowWindowDays < 0 {
			return nil, fmt.Errorf("sku %s: borrow_window_days must be non-negative", entry.SKU)
		}
		if !rules.PriorityClass.IsValid() {
			return nil, fmt.Errorf("sku %s: unknown priority_class %q", entry.SKU, rules.PriorityClass)
		}
		provider.bySKU[entry.SKU] = rules
	}
	return provider, nil
}

func applyEntry(rules *domain.BusinessRules, entry *ruleEntry) {
	if entry.BorrowWindowDays != nil {
		rules.BorrowWindowDays = *entry.BorrowWindowDays
	}
	if entry.RiskyDepletionEnabled != nil {
		rules.RiskyDepletionEnabled = *entry.RiskyDepletionEnabled
	}
	if entry.PriorityClass != "" {
		rules.PriorityClass = domain.Priority(entry.PriorityClass)
	}
	if entry.MaxPartialFill != nil {
		rules.MaxPartialFill = *entry.MaxPartialFill
	}
}

func (p *YAMLProvider) GetRules(ctx context.Context, sku string, priority domain.Priority) (*domain.BusinessRules, error) {
	if rules, ok := p.bySKU[sku]; ok {
		copied := rules
		return &copied, nil
	}
	copied := p.defaults
	copied.SKU = sku
	return &copied, nil
}
