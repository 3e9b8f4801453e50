package domain

import "context"

// InventoryAdapter is the narrow contract to the inventory system of
// record. The engine reads a snapshot and commits deltas through it; it
// never mutates on-hand stock directly.
type InventoryAdapter interface {
	// GetInventoryPosition returns the current position for a SKU, or
	// ErrUnknownSKU.
	GetInventoryPosition(ctx context.Context, sku string) (*InventoryPosition, error)

	// GetInboundShipments returns the open inbound shipments for a SKU,
	// in no guaranteed order. Empty when none exist.
	GetInboundShipments(ctx context.Context, sku string) ([]InboundShipment, error)

	// ExecuteAllocation records the committed allocation atomically,
	// decrementing on-hand by onHandDelta. The expectedVersion is the
	// position version the decision was evaluated against; a mismatch
	// fails with ErrConcurrentModification and the caller retries the
	// whole allocation. Adapter failures surface as
	// ErrAdapterUnavailable, never as a business rejection.
	ExecuteAllocation(ctx context.Context, result *AllocationResult, onHandDelta int, expectedVersion int64) error
}

// RulesProvider resolves the promising parameters for a SKU and priority.
// Providers fall back to DefaultRules when nothing is configured.
type RulesProvider interface {
	GetRules(ctx context.Context, sku string, priority Priority) (*BusinessRules, error)
}

// LockLedger owns every reservation against inbound shipments. Lock
// re-validates the shipment's unlocked quantity at the instant of the call;
// Release is the only path that repays a borrow or cancels a promise.
type LockLedger interface {
	Lock(ctx context.Context, orderID, shipmentID, sku string, qty int) (*Lock, error)
	Release(ctx context.Context, lockID string) (*Lock, error)
	GetLock(ctx context.Context, lockID string) (*Lock, error)
	ActiveLocksForShipment(ctx context.Context, shipmentID string) ([]Lock, error)
}

// AllocationRecordRepository persists results as the audit trail.
type AllocationRecordRepository interface {
	Save(ctx context.Context, result *AllocationResult) error
	FindByOrderID(ctx context.Context, orderID string) ([]AllocationResult, error)

	// List returns a page of records, newest first, optionally filtered
	// by SKU, along with the total count for the filter.
	List(ctx context.Context, sku string, limit, offset int64) ([]AllocationResult, int64, error)
}
