package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundShipment_ArrivesWithin(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s := NewInboundShipment("ASN-1", "SKU-1", 40, now.AddDate(0, 0, 5))

	assert.True(t, s.ArrivesWithin(now, 5))
	assert.True(t, s.ArrivesWithin(now, 6))
	assert.False(t, s.ArrivesWithin(now, 4))
}

func TestSortShipmentsByETA_TieBreaksOnID(t *testing.T) {
	now := time.Now()
	shipments := []InboundShipment{
		{ShipmentID: "ASN-3", ETA: now.AddDate(0, 0, 2)},
		{ShipmentID: "ASN-2", ETA: now.AddDate(0, 0, 1)},
		{ShipmentID: "ASN-1", ETA: now.AddDate(0, 0, 2)},
	}

	SortShipmentsByETA(shipments)

	assert.Equal(t, "ASN-2", shipments[0].ShipmentID)
	assert.Equal(t, "ASN-1", shipments[1].ShipmentID)
	assert.Equal(t, "ASN-3", shipments[2].ShipmentID)
}

func TestLock_ReleaseOnce(t *testing.T) {
	now := time.Now()
	lock := NewLock("ORD-1", "ASN-1", "SKU-1", 10, now)

	assert.Equal(t, "lock_ORD-1_ASN-1", lock.LockID)
	assert.Equal(t, LockStatusActive, lock.Status)

	require.NoError(t, lock.Release(now.Add(time.Hour)))
	assert.Equal(t, LockStatusReleased, lock.Status)
	require.NotNil(t, lock.ReleasedAt)

	assert.ErrorIs(t, lock.Release(now.Add(2*time.Hour)), ErrLockAlreadyReleased)
}

func TestAllocationRequest_Validate(t *testing.T) {
	req := &AllocationRequest{OrderID: "ORD-1", SKU: "SKU-1", RequestedQty: 1}
	require.NoError(t, req.Validate())

	assert.ErrorIs(t, (&AllocationRequest{SKU: "SKU-1", RequestedQty: 1}).Validate(), ErrMissingOrderID)
	assert.ErrorIs(t, (&AllocationRequest{OrderID: "O", SKU: "SKU-1"}).Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, (&AllocationRequest{OrderID: "O", SKU: "SKU-1", RequestedQty: -2}).Validate(), ErrInvalidQuantity)
}
