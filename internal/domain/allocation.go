package domain

import (
	"time"
)

// Strategy identifies which allocation tier supplied the promise.
type Strategy string

const (
	StrategyFreeStock      Strategy = "FREE_STOCK"
	StrategySafetyBorrow   Strategy = "SAFETY_BORROW"
	StrategyRiskyDepletion Strategy = "RISKY_DEPLETION"
	StrategyDirectInbound  Strategy = "DIRECT_INBOUND"
	StrategyRejected       Strategy = "REJECTED"
)

// LocksShipment reports whether the strategy reserves quantity on an
// inbound shipment.
func (s Strategy) LocksShipment() bool {
	return s == StrategySafetyBorrow || s == StrategyDirectInbound
}

// CarriesETA reports whether the strategy promises against a future arrival.
func (s Strategy) CarriesETA() bool {
	return s == StrategySafetyBorrow || s == StrategyDirectInbound
}

// AllocationRequest is one order line asking for a promise on a single SKU.
type AllocationRequest struct {
	OrderID          string    `json:"orderId"`
	SKU              string    `json:"sku"`
	RequestedQty     int       `json:"requestedQty"`
	Priority         Priority  `json:"priority"`
	RequestTimestamp time.Time `json:"requestTimestamp"`
	// DueDate, when set, caps direct-inbound promises to shipments that
	// arrive on or before it.
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// Validate applies the input preconditions shared by every entry point.
func (r *AllocationRequest) Validate() error {
	if r.OrderID == "" {
		return ErrMissingOrderID
	}
	if r.RequestedQty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// AllocationResult is the engine's decision for a single request. Exactly
// one tier supplies the promise; SourceShipmentID and PromisedETA are set
// iff the strategy reserves against a shipment.
type AllocationResult struct {
	OrderID          string     `bson:"orderId" json:"orderId"`
	SKU              string     `bson:"sku" json:"sku"`
	RequestedQty     int        `bson:"requestedQty" json:"requestedQty"`
	AllocatedQty     int        `bson:"allocatedQty" json:"allocatedQty"`
	ShortfallQty     int        `bson:"shortfallQty" json:"shortfallQty"`
	Strategy         Strategy   `bson:"strategy" json:"strategy"`
	SourceShipmentID string     `bson:"sourceShipmentId,omitempty" json:"sourceShipmentId,omitempty"`
	PromisedETA      *time.Time `bson:"promisedEta,omitempty" json:"promisedEta,omitempty"`
	LockID           string     `bson:"lockId,omitempty" json:"lockId,omitempty"`
	DecidedAt        time.Time  `bson:"decidedAt" json:"decidedAt"`
}

// Rejected reports whether the request could not be promised at all.
func (r *AllocationResult) Rejected() bool {
	return r.Strategy == StrategyRejected
}
