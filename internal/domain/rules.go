package domain

// Priority is the request's service tier, used to gate risky depletion
type Priority string

const (
	PriorityStandard Priority = "STANDARD"
	PriorityHigh     Priority = "HIGH"
)

// rank orders priorities for gating comparisons
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityStandard:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the priority is a known tier
func (p Priority) IsValid() bool {
	return p.rank() > 0
}

// AtLeast reports whether p meets or exceeds the gate priority
func (p Priority) AtLeast(gate Priority) bool {
	return p.rank() >= gate.rank()
}

// BusinessRules are the per-SKU promising parameters supplied by the rules
// provider. Rules are resolved per call; caching and freshness are the
// provider's concern.
type BusinessRules struct {
	SKU                   string   `bson:"sku" json:"sku" yaml:"sku"`
	BorrowWindowDays      int      `bson:"borrowWindowDays" json:"borrowWindowDays" yaml:"borrow_window_days"`
	RiskyDepletionEnabled bool     `bson:"riskyDepletionEnabled" json:"riskyDepletionEnabled" yaml:"risky_depletion_enabled"`
	PriorityClass         Priority `bson:"priorityClass" json:"priorityClass" yaml:"priority_class"`
	MaxPartialFill        bool     `bson:"maxPartialFill" json:"maxPartialFill" yaml:"max_partial_fill"`
}

// DefaultBorrowWindowDays mirrors the fallback replenishment window applied
// when no rule is configured for a SKU.
const DefaultBorrowWindowDays = 7

// DefaultRules returns the parameters applied when the provider has no
// configuration for a SKU: conservative borrowing, no risky depletion,
// partial fills accepted.
func DefaultRules(sku string) *BusinessRules {
	return &BusinessRules{
		SKU:                   sku,
		BorrowWindowDays:      DefaultBorrowWindowDays,
		RiskyDepletionEnabled: false,
		PriorityClass:         PriorityHigh,
		MaxPartialFill:        true,
	}
}
