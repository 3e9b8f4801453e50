package domain

import "time"

// LockIntent is the single lock a decision asks the ledger to create at
// commit time.
type LockIntent struct {
	ShipmentID string
	Qty        int
}

// Decision is the outcome of evaluating one request against a snapshot:
// the result to return and persist, plus the side effects the commit step
// must apply. PositionVersion is the snapshot version the decision was made
// against, used for the optimistic re-check at commit.
type Decision struct {
	Result          *AllocationResult
	LockIntent      *LockIntent
	OnHandDelta     int
	PositionVersion int64
}

// CommitsStock reports whether the decision consumes physical on-hand units.
func (d *Decision) CommitsStock() bool {
	return d.OnHandDelta > 0
}

// Engine runs the ordered tier chain. Decide performs no I/O and mutates
// nothing, so concurrent callers can evaluate freely and race only on the
// commit.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Decide walks the tiers in strict priority order and selects the first
// proposal. Free stock must cover the request outright; the deeper tiers
// may fill partially, with the remainder reported as shortfall. When
// partial fills are disallowed and a shortfall remains, the whole request
// is rejected with no side effects.
func (e *Engine) Decide(req *AllocationRequest, snap *SKUSnapshot, rules *BusinessRules, now time.Time) *Decision {
	pos := &snap.Position

	proposal := EvaluateFreeStock(pos, req.RequestedQty)
	if proposal == nil {
		proposal = EvaluateSafetyBorrow(pos, req.RequestedQty, snap.Shipments, rules, now)
	}
	if proposal == nil {
		proposal = EvaluateRiskyDepletion(pos, req.RequestedQty, rules, req.Priority)
	}
	if proposal == nil {
		proposal = EvaluateDirectInbound(pos, req.RequestedQty, snap.Shipments, req.DueDate)
	}

	result := &AllocationResult{
		OrderID:      req.OrderID,
		SKU:          req.SKU,
		RequestedQty: req.RequestedQty,
		DecidedAt:    now,
	}

	rejected := proposal == nil || proposal.Qty <= 0 ||
		(proposal.Qty < req.RequestedQty && !rules.MaxPartialFill)
	if rejected {
		result.Strategy = StrategyRejected
		result.ShortfallQty = req.RequestedQty
		return &Decision{Result: result, PositionVersion: pos.Version}
	}

	result.Strategy = proposal.Strategy
	result.AllocatedQty = proposal.Qty
	result.ShortfallQty = req.RequestedQty - proposal.Qty
	if proposal.PromisedETA != nil {
		eta := *proposal.PromisedETA
		result.PromisedETA = &eta
	}

	decision := &Decision{
		Result:          result,
		OnHandDelta:     proposal.OnHandQty,
		PositionVersion: pos.Version,
	}
	if proposal.Shipment != nil {
		result.SourceShipmentID = proposal.Shipment.ShipmentID
		result.LockID = NewLockID(req.OrderID, proposal.Shipment.ShipmentID)
		decision.LockIntent = &LockIntent{ShipmentID: proposal.Shipment.ShipmentID, Qty: proposal.Qty}
	}
	return decision
}
