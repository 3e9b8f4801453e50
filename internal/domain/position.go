package domain

// InventoryPosition is the engine's read model of a SKU's physical stock.
// The inventory adapter owns on-hand quantity as system of record; the engine
// reads a versioned snapshot and commits deltas back through the adapter.
type InventoryPosition struct {
	SKU            string `bson:"sku" json:"sku"`
	OnHandQty      int    `bson:"onHandQty" json:"onHandQty"`
	SafetyStockQty int    `bson:"safetyStockQty" json:"safetyStockQty"`

	// Version increments on every committed allocation. The commit step
	// compares it against the value read at evaluation start; a mismatch
	// surfaces as ErrConcurrentModification.
	Version int64 `bson:"version" json:"version"`
}

// FreeQty returns stock available above the safety threshold, floored at zero.
func (p *InventoryPosition) FreeQty() int {
	free := p.OnHandQty - p.SafetyStockQty
	if free < 0 {
		return 0
	}
	return free
}

// SKUSnapshot is the state an allocation is evaluated against: the versioned
// position plus all open inbound shipments for the SKU. Evaluation never
// mutates a snapshot.
type SKUSnapshot struct {
	Position  InventoryPosition
	Shipments []InboundShipment
}
