package domain

import (
	"fmt"
	"time"
)

// LockStatus tracks a lock's lifecycle: created alongside a commit,
// released only by an explicit repayment or cancellation.
type LockStatus string

const (
	LockStatusActive   LockStatus = "active"
	LockStatusReleased LockStatus = "released"
)

// Lock binds reserved quantity on an inbound shipment to the order that
// borrowed or backordered against it.
type Lock struct {
	LockID     string     `bson:"lockId" json:"lockId"`
	ShipmentID string     `bson:"shipmentId" json:"shipmentId"`
	OrderID    string     `bson:"orderId" json:"orderId"`
	SKU        string     `bson:"sku" json:"sku"`
	LockedQty  int        `bson:"lockedQty" json:"lockedQty"`
	Status     LockStatus `bson:"status" json:"status"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	ReleasedAt *time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}

// NewLockID derives the deterministic lock identifier for an order and
// shipment pair.
func NewLockID(orderID, shipmentID string) string {
	return fmt.Sprintf("lock_%s_%s", orderID, shipmentID)
}

// NewLock creates an active lock entry.
func NewLock(orderID, shipmentID, sku string, qty int, now time.Time) *Lock {
	return &Lock{
		LockID:     NewLockID(orderID, shipmentID),
		ShipmentID: shipmentID,
		OrderID:    orderID,
		SKU:        sku,
		LockedQty:  qty,
		Status:     LockStatusActive,
		CreatedAt:  now,
	}
}

// Release marks the lock released. Releasing twice is an error so repayment
// is never double-counted.
func (l *Lock) Release(now time.Time) error {
	if l.Status == LockStatusReleased {
		return ErrLockAlreadyReleased
	}
	l.Status = LockStatusReleased
	l.ReleasedAt = &now
	return nil
}
