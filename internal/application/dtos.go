package application

import "time"

// AllocationResultDTO represents an allocation decision in responses
type AllocationResultDTO struct {
	OrderID          string     `json:"orderId"`
	SKU              string     `json:"sku"`
	RequestedQty     int        `json:"requestedQty"`
	AllocatedQty     int        `json:"allocatedQty"`
	ShortfallQty     int        `json:"shortfallQty"`
	Strategy         string     `json:"strategy"`
	SourceShipmentID string     `json:"sourceShipmentId,omitempty"`
	PromisedETA      *time.Time `json:"promisedEta,omitempty"`
	LockID           string     `json:"lockId,omitempty"`
	DecidedAt        time.Time  `json:"decidedAt"`
}

// LockDTO represents a shipment lock in responses
type LockDTO struct {
	LockID     string     `json:"lockId"`
	ShipmentID string     `json:"shipmentId"`
	OrderID    string     `json:"orderId"`
	SKU        string     `json:"sku"`
	LockedQty  int        `json:"lockedQty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReleasedAt *time.Time `json:"releasedAt,omitempty"`
}

// PositionDTO represents a SKU's inventory position in responses
type PositionDTO struct {
	SKU            string `json:"sku"`
	OnHandQty      int    `json:"onHandQty"`
	SafetyStockQty int    `json:"safetyStockQty"`
	FreeQty        int    `json:"freeQty"`
}

// ShipmentDTO represents an inbound shipment in responses
type ShipmentDTO struct {
	ShipmentID           string    `json:"shipmentId"`
	SKU                  string    `json:"sku"`
	ExpectedQty          int       `json:"expectedQty"`
	ETA                  time.Time `json:"eta"`
	RemainingUnlockedQty int       `json:"remainingUnlockedQty"`
	Status               string    `json:"status"`
}
