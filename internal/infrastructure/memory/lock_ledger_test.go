package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
)

func TestLockLedger_ReleaseRestoresUnlockedQty(t *testing.T) {
	adapter := NewInventoryAdapter()
	adapter.SeedShipment(*domain.NewInboundShipment("ship-1", "SKU-1", 50, time.Now().AddDate(0, 0, 3)))
	ledger := NewLockLedger(adapter)

	lock, err := ledger.Lock(context.Background(), "order-1", "ship-1", "SKU-1", 20)
	require.NoError(t, err)

	released, err := ledger.Release(context.Background(), lock.LockID)
	require.NoError(t, err)
	assert.Equal(t, domain.LockStatusReleased, released.Status)

	shipments, err := adapter.GetInboundShipments(context.Background(), "SKU-1")
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, 50, shipments[0].RemainingUnlockedQty)
}

func TestLockLedger_ReleaseFailsWhenShipmentGone(t *testing.T) {
	adapter := NewInventoryAdapter()
	adapter.SeedShipment(*domain.NewInboundShipment("ship-2", "SKU-2", 30, time.Now().AddDate(0, 0, 3)))
	ledger := NewLockLedger(adapter)

	lock, err := ledger.Lock(context.Background(), "order-2", "ship-2", "SKU-2", 10)
	require.NoError(t, err)

	adapter.mu.Lock()
	delete(adapter.shipments, "SKU-2")
	adapter.mu.Unlock()

	_, err = ledger.Release(context.Background(), lock.LockID)
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
}
