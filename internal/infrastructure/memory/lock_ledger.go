package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/promising-service/internal/domain"
)

// LockLedger is an in-process ledger tracking reserved quantity per inbound
// shipment. It mutates the adapter's shipment records directly, so the
// unlocked counter has a single source of truth and is re-validated at the
// instant of every Lock call, never trusted from an earlier read.
type LockLedger struct {
	mu      sync.Mutex
	adapter *InventoryAdapter
	locks   map[string]*domain.Lock
}

// NewLockLedger creates a ledger over the adapter's shipment records
func NewLockLedger(adapter *InventoryAdapter) *LockLedger {
	return &LockLedger{
		adapter: adapter,
		locks:   make(map[string]*domain.Lock),
	}
}

func (l *LockLedger) Lock(ctx context.Context, orderID, shipmentID, sku string, qty int) (*domain.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lock *domain.Lock
	err := l.withShipment(sku, shipmentID, func(shipment *domain.InboundShipment) error {
		if qty > shipment.RemainingUnlockedQty {
			return domain.ErrInsufficientUnlockedQty
		}
		now := time.Now()
		lock = domain.NewLock(orderID, shipmentID, sku, qty, now)
		shipment.RemainingUnlockedQty -= qty
		shipment.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.locks[lock.LockID] = lock
	copied := *lock
	return &copied, nil
}

func (l *LockLedger) Release(ctx context.Context, lockID string) (*domain.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[lockID]
	if !ok {
		return nil, domain.ErrLockNotFound
	}
	now := time.Now()
	if err := lock.Release(now); err != nil {
		return nil, err
	}
	err := l.withShipment(lock.SKU, lock.ShipmentID, func(shipment *domain.InboundShipment) error {
		shipment.RemainingUnlockedQty += lock.LockedQty
		shipment.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	copied := *lock
	return &copied, nil
}

func (l *LockLedger) GetLock(ctx context.Context, lockID string) (*domain.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[lockID]
	if !ok {
		return nil, domain.ErrLockNotFound
	}
	copied := *lock
	return &copied, nil
}

func (l *LockLedger) ActiveLocksForShipment(ctx context.Context, shipmentID string) ([]domain.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Lock
	for _, lock := range l.locks {
		if lock.ShipmentID == shipmentID && lock.Status == domain.LockStatusActive {
			out = append(out, *lock)
		}
	}
	return out, nil
}

// withShipment runs fn against the live shipment record under the adapter's
// write lock, so readers never observe a partial mutation.
func (l *LockLedger) withShipment(sku, shipmentID string, fn func(*domain.InboundShipment) error) error {
	l.adapter.mu.Lock()
	defer l.adapter.mu.Unlock()
	shipments := l.adapter.shipments[sku]
	for i := range shipments {
		if shipments[i].ShipmentID == shipmentID {
			return fn(&shipments[i])
		}
	}
	return domain.ErrShipmentNotFound
}
