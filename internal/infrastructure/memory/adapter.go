package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/promising-service/internal/domain"
)

// InventoryAdapter is an in-process inventory system of record. It backs
// local development and tests; the versioned commit mirrors the optimistic
// re-check the MongoDB adapter performs.
type InventoryAdapter struct {
	mu        sync.RWMutex
	positions map[string]*domain.InventoryPosition
	shipments map[string][]domain.InboundShipment
	committed []domain.AllocationResult
}

// NewInventoryAdapter creates an empty in-memory adapter
func NewInventoryAdapter() *InventoryAdapter {
	return &InventoryAdapter{
		positions: make(map[string]*domain.InventoryPosition),
		shipments: make(map[string][]domain.InboundShipment),
	}
}

// SeedPosition registers a SKU's position
func (a *InventoryAdapter) SeedPosition(pos domain.InventoryPosition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := pos
	a.positions[pos.SKU] = &p
}

// SeedShipment registers an inbound shipment
func (a *InventoryAdapter) SeedShipment(s domain.InboundShipment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shipments[s.SKU] = append(a.shipments[s.SKU], s)
}

func (a *InventoryAdapter) GetInventoryPosition(ctx context.Context, sku string) (*domain.InventoryPosition, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pos, ok := a.positions[sku]
	if !ok {
		return nil, domain.ErrUnknownSKU
	}
	copied := *pos
	return &copied, nil
}

func (a *InventoryAdapter) GetInboundShipments(ctx context.Context, sku string) ([]domain.InboundShipment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.InboundShipment, 0, len(a.shipments[sku]))
	for _, s := range a.shipments[sku] {
		if s.Status == domain.ShipmentStatusInTransit {
			out = append(out, s)
		}
	}
	return out, nil
}

// SaveShipment inserts or replaces a shipment record
func (a *InventoryAdapter) SaveShipment(ctx context.Context, s *domain.InboundShipment) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.shipments[s.SKU]
	for i := range list {
		if list[i].ShipmentID == s.ShipmentID {
			list[i] = *s
			return nil
		}
	}
	a.shipments[s.SKU] = append(list, *s)
	return nil
}

// UpdateShipmentETA moves an open shipment's ETA
func (a *InventoryAdapter) UpdateShipmentETA(ctx context.Context, shipmentID string, eta time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.findOpenLocked(shipmentID)
	if s == nil {
		return domain.ErrShipmentNotFound
	}
	s.ETA = eta
	s.UpdatedAt = time.Now()
	return nil
}

// MarkShipmentReceived closes an open shipment and folds the received
// quantity into on-hand stock
func (a *InventoryAdapter) MarkShipmentReceived(ctx context.Context, shipmentID string, receivedQty int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.findOpenLocked(shipmentID)
	if s == nil {
		return domain.ErrShipmentNotFound
	}
	s.Status = domain.ShipmentStatusReceived
	s.UpdatedAt = time.Now()

	if receivedQty <= 0 {
		receivedQty = s.ExpectedQty
	}
	if pos, ok := a.positions[s.SKU]; ok {
		pos.OnHandQty += receivedQty
		pos.Version++
	}
	return nil
}

// findOpenLocked returns the open shipment with the given ID; callers hold mu
func (a *InventoryAdapter) findOpenLocked(shipmentID string) *domain.InboundShipment {
	for sku := range a.shipments {
		list := a.shipments[sku]
		for i := range list {
			if list[i].ShipmentID == shipmentID && list[i].Status == domain.ShipmentStatusInTransit {
				return &list[i]
			}
		}
	}
	return nil
}

func (a *InventoryAdapter) ExecuteAllocation(ctx context.Context, result *domain.AllocationResult, onHandDelta int, expectedVersion int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.positions[result.SKU]
	if !ok {
		return domain.ErrUnknownSKU
	}
	if pos.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	if onHandDelta > pos.OnHandQty {
		return domain.ErrConcurrentModification
	}
	pos.OnHandQty -= onHandDelta
	pos.Version++
	a.committed = append(a.committed, *result)
	return nil
}

// Committed returns the allocations recorded so far, oldest first
func (a *InventoryAdapter) Committed() []domain.AllocationResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.AllocationResult, len(a.committed))
	copy(out, a.committed)
	return out
}
