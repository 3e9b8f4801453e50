package domain

import "time"

// TierProposal is one evaluator's offer: a quantity and, for shipment-backed
// tiers, the shipment the quantity is reserved against. Evaluators never
// mutate shared state; the engine commits the winning proposal once.
type TierProposal struct {
	Strategy    Strategy
	Qty         int
	Shipment    *InboundShipment
	PromisedETA *time.Time
	// OnHandQty is the portion of Qty drawn from physical stock.
	OnHandQty int
}

func minQty(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// EvaluateFreeStock proposes stock above the safety threshold. The tier is
// strict: it offers nothing unless it can cover the whole request, since a
// later tier may still produce a full fill from the same pool.
func EvaluateFreeStock(pos *InventoryPosition, requestedQty int) *TierProposal {
	if pos.FreeQty() < requestedQty {
		return nil
	}
	return &TierProposal{Strategy: StrategyFreeStock, Qty: requestedQty, OnHandQty: requestedQty}
}

// EvaluateSafetyBorrow proposes filling from physical on-hand stock, dipping
// into the safety buffer, backed by a lock on the earliest shipment arriving
// inside the borrow window. Borrowing never splits across shipments; a
// remainder limited by the shipment's unlocked quantity becomes a shortfall.
func EvaluateSafetyBorrow(pos *InventoryPosition, requestedQty int, shipments []InboundShipment, rules *BusinessRules, now time.Time) *TierProposal {
	if pos.OnHandQty <= 0 {
		return nil
	}
	candidate := earliestEligible(shipments, func(s *InboundShipment) bool {
		return s.HasUnlockedQty() && s.ArrivesWithin(now, rules.BorrowWindowDays)
	})
	if candidate == nil {
		return nil
	}
	qty := minQty(requestedQty, minQty(pos.OnHandQty, candidate.RemainingUnlockedQty))
	if qty <= 0 {
		return nil
	}
	eta := candidate.ETA
	return &TierProposal{
		Strategy:    StrategySafetyBorrow,
		Qty:         qty,
		Shipment:    candidate,
		PromisedETA: &eta,
		OnHandQty:   qty,
	}
}

// EvaluateRiskyDepletion proposes draining on-hand below the safety
// threshold with no replenishment backing. It only activates when the rules
// enable it and the request's priority clears the gate; the engine never
// reaches it when a near-term borrow already locked a shipment.
func EvaluateRiskyDepletion(pos *InventoryPosition, requestedQty int, rules *BusinessRules, priority Priority) *TierProposal {
	if pos.OnHandQty <= 0 {
		return nil
	}
	if !rules.RiskyDepletionEnabled || !priority.AtLeast(rules.PriorityClass) {
		return nil
	}
	qty := minQty(requestedQty, pos.OnHandQty)
	return &TierProposal{Strategy: StrategyRiskyDepletion, Qty: qty, OnHandQty: qty}
}

// EvaluateDirectInbound promises against a future shipment once the physical
// pool is exhausted. Any ETA horizon qualifies unless the request carries a
// due date, which caps the arrival. Same single-shipment, earliest-ETA
// policy as borrowing.
func EvaluateDirectInbound(pos *InventoryPosition, requestedQty int, shipments []InboundShipment, dueDate *time.Time) *TierProposal {
	if pos.OnHandQty > 0 {
		return nil
	}
	candidate := earliestEligible(shipments, func(s *InboundShipment) bool {
		if !s.HasUnlockedQty() {
			return false
		}
		if dueDate != nil && s.ETA.After(*dueDate) {
			return false
		}
		return true
	})
	if candidate == nil {
		return nil
	}
	qty := minQty(requestedQty, candidate.RemainingUnlockedQty)
	eta := candidate.ETA
	return &TierProposal{
		Strategy:    StrategyDirectInbound,
		Qty:         qty,
		Shipment:    candidate,
		PromisedETA: &eta,
	}
}

// earliestEligible picks the eligible shipment with the earliest ETA,
// breaking ties on the lower shipment id.
func earliestEligible(shipments []InboundShipment, eligible func(*InboundShipment) bool) *InboundShipment {
	var best *InboundShipment
	for i := range shipments {
		s := &shipments[i]
		if !eligible(s) {
			continue
		}
		if best == nil || s.ETA.Before(best.ETA) ||
			(s.ETA.Equal(best.ETA) && s.ShipmentID < best.ShipmentID) {
			best = s
		}
	}
	return best
}
