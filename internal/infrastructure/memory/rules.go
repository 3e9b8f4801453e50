package memory

import (
	"context"
	"sync"

	"github.com/wms-platform/promising-service/internal/domain"
)

// RulesProvider serves per-SKU promising rules from memory, falling back to
// defaults for unconfigured SKUs.
type RulesProvider struct {
	mu    sync.RWMutex
	rules map[string]*domain.BusinessRules
}

// NewRulesProvider creates a provider with no rules configured
func NewRulesProvider() *RulesProvider {
	return &RulesProvider{rules: make(map[string]*domain.BusinessRules)}
}

// SetRules configures the rules for a SKU
func (p *RulesProvider) SetRules(rules *domain.BusinessRules) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *rules
	p.rules[rules.SKU] = &copied
}

func (p *RulesProvider) GetRules(ctx context.Context, sku string, priority domain.Priority) (*domain.BusinessRules, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rules, ok := p.rules[sku]
	if !ok {
		return domain.DefaultRules(sku), nil
	}
	copied := *rules
	return &copied, nil
}
