package memory

import (
	"context"
	"sync"

	"github.com/wms-platform/promising-service/internal/domain"
)

// AllocationRecordRepository keeps the audit trail in memory
type AllocationRecordRepository struct {
	mu      sync.RWMutex
	records []domain.AllocationResult
}

// NewAllocationRecordRepository creates an empty repository
func NewAllocationRecordRepository() *AllocationRecordRepository {
	return &AllocationRecordRepository{}
}

func (r *AllocationRecordRepository) Save(ctx context.Context, result *domain.AllocationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *result)
	return nil
}

func (r *AllocationRecordRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.AllocationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AllocationResult
	for _, rec := range r.records {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *AllocationRecordRepository) List(ctx context.Context, sku string, limit, offset int64) ([]domain.AllocationResult, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []domain.AllocationResult
	for _, rec := range r.records {
		if sku == "" || rec.SKU == sku {
			filtered = append(filtered, rec)
		}
	}

	// Newest first
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	total := int64(len(filtered))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}
