package domain

import (
	"sort"
	"time"
)

// ShipmentStatus represents the lifecycle state of an inbound shipment
type ShipmentStatus string

const (
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusReceived  ShipmentStatus = "received"
)

// InboundShipment is a confirmed replenishment (ASN) expected to arrive at a
// known ETA. The lock ledger is the only writer of RemainingUnlockedQty; the
// engine never deletes a shipment record.
type InboundShipment struct {
	ShipmentID           string         `bson:"shipmentId" json:"shipmentId"`
	SKU                  string         `bson:"sku" json:"sku"`
	ExpectedQty          int            `bson:"expectedQty" json:"expectedQty"`
	ETA                  time.Time      `bson:"eta" json:"eta"`
	RemainingUnlockedQty int            `bson:"remainingUnlockedQty" json:"remainingUnlockedQty"`
	Status               ShipmentStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewInboundShipment creates an open shipment with its full quantity unlocked
func NewInboundShipment(shipmentID, sku string, expectedQty int, eta time.Time) *InboundShipment {
	now := time.Now()
	return &InboundShipment{
		ShipmentID:           shipmentID,
		SKU:                  sku,
		ExpectedQty:          expectedQty,
		ETA:                  eta,
		RemainingUnlockedQty: expectedQty,
		Status:               ShipmentStatusInTransit,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// HasUnlockedQty reports whether any quantity can still be locked
func (s *InboundShipment) HasUnlockedQty() bool {
	return s.RemainingUnlockedQty > 0
}

// ArrivesWithin reports whether the shipment ETA falls inside the borrow
// window measured from now
func (s *InboundShipment) ArrivesWithin(now time.Time, windowDays int) bool {
	horizon := now.AddDate(0, 0, windowDays)
	return !s.ETA.After(horizon)
}

// SortShipmentsByETA orders shipments earliest-ETA first; ties break on the
// lower shipment ID so candidate selection is reproducible across runs.
func SortShipmentsByETA(shipments []InboundShipment) {
	sort.SliceStable(shipments, func(i, j int) bool {
		if shipments[i].ETA.Equal(shipments[j].ETA) {
			return shipments[i].ShipmentID < shipments[j].ShipmentID
		}
		return shipments[i].ETA.Before(shipments[j].ETA)
	})
}
