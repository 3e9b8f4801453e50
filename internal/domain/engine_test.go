package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testRequest(qty int) *AllocationRequest {
	return &AllocationRequest{
		OrderID:          "ORD-1",
		SKU:              "SKU-1",
		RequestedQty:     qty,
		Priority:         PriorityStandard,
		RequestTimestamp: testNow,
	}
}

func testSnapshot(onHand, safety int, shipments ...InboundShipment) *SKUSnapshot {
	return &SKUSnapshot{
		Position: InventoryPosition{
			SKU:            "SKU-1",
			OnHandQty:      onHand,
			SafetyStockQty: safety,
			Version:        3,
		},
		Shipments: shipments,
	}
}

func testShipment(id string, etaDays int, unlocked int) InboundShipment {
	return InboundShipment{
		ShipmentID:           id,
		SKU:                  "SKU-1",
		ExpectedQty:          unlocked,
		ETA:                  testNow.AddDate(0, 0, etaDays),
		RemainingUnlockedQty: unlocked,
		Status:               ShipmentStatusInTransit,
	}
}

func TestEngine_FreeStockCoversRequest(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(100, 20, testShipment("ASN-1", 2, 50))

	d := engine.Decide(testRequest(50), snap, DefaultRules("SKU-1"), testNow)

	require.NotNil(t, d.Result)
	assert.Equal(t, StrategyFreeStock, d.Result.Strategy)
	assert.Equal(t, 50, d.Result.AllocatedQty)
	assert.Equal(t, 0, d.Result.ShortfallQty)
	assert.Nil(t, d.LockIntent)
	assert.Empty(t, d.Result.SourceShipmentID)
	assert.Equal(t, 50, d.OnHandDelta)
	assert.True(t, d.CommitsStock())
	assert.Equal(t, int64(3), d.PositionVersion)
}

func TestEngine_SafetyBorrowLocksNearTermShipment(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(25, 20, testShipment("ASN-1", 3, 50))
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}

	d := engine.Decide(testRequest(10), snap, rules, testNow)

	assert.Equal(t, StrategySafetyBorrow, d.Result.Strategy)
	assert.Equal(t, 10, d.Result.AllocatedQty)
	assert.Equal(t, 0, d.Result.ShortfallQty)
	assert.Equal(t, "ASN-1", d.Result.SourceShipmentID)
	require.NotNil(t, d.LockIntent)
	assert.Equal(t, 10, d.LockIntent.Qty)
	require.NotNil(t, d.Result.PromisedETA)
	assert.Equal(t, snap.Shipments[0].ETA, *d.Result.PromisedETA)
	assert.Equal(t, NewLockID("ORD-1", "ASN-1"), d.Result.LockID)
	assert.Equal(t, 10, d.OnHandDelta)
}

func TestEngine_DirectInboundWhenExhausted(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(0, 0, testShipment("ASN-9", 20, 30))
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}

	d := engine.Decide(testRequest(25), snap, rules, testNow)

	assert.Equal(t, StrategyDirectInbound, d.Result.Strategy)
	assert.Equal(t, 25, d.Result.AllocatedQty)
	assert.Equal(t, "ASN-9", d.Result.SourceShipmentID)
	require.NotNil(t, d.Result.PromisedETA)
	assert.Equal(t, snap.Shipments[0].ETA, *d.Result.PromisedETA)
	require.NotNil(t, d.LockIntent)
	assert.Equal(t, 25, d.LockIntent.Qty)
	assert.Equal(t, 0, d.OnHandDelta)
}

func TestEngine_DirectInboundPartialFill(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(0, 0, testShipment("ASN-9", 20, 30))
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}

	d := engine.Decide(testRequest(45), snap, rules, testNow)

	assert.Equal(t, StrategyDirectInbound, d.Result.Strategy)
	assert.Equal(t, 30, d.Result.AllocatedQty)
	assert.Equal(t, 15, d.Result.ShortfallQty)
}

func TestEngine_RejectsWithNoSupply(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(0, 0)

	d := engine.Decide(testRequest(5), snap, DefaultRules("SKU-1"), testNow)

	assert.Equal(t, StrategyRejected, d.Result.Strategy)
	assert.Equal(t, 0, d.Result.AllocatedQty)
	assert.Equal(t, 5, d.Result.ShortfallQty)
	assert.Nil(t, d.LockIntent)
	assert.Equal(t, 0, d.OnHandDelta)
	assert.False(t, d.CommitsStock())
}

func TestEngine_AllOrNothingRejectsPartial(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(0, 0, testShipment("ASN-1", 4, 30))
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: false}

	d := engine.Decide(testRequest(40), snap, rules, testNow)

	assert.Equal(t, StrategyRejected, d.Result.Strategy)
	assert.Equal(t, 0, d.Result.AllocatedQty)
	assert.Equal(t, 40, d.Result.ShortfallQty)
	assert.Nil(t, d.LockIntent)
	assert.Empty(t, d.Result.SourceShipmentID)
}

func TestEngine_FreeStockNeverSkippedForBorrowing(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(80, 10, testShipment("ASN-1", 1, 100))

	d := engine.Decide(testRequest(40), snap, DefaultRules("SKU-1"), testNow)

	assert.Equal(t, StrategyFreeStock, d.Result.Strategy)
	assert.Nil(t, d.LockIntent)
}

func TestEngine_BorrowPicksEarliestETALowestID(t *testing.T) {
	engine := NewEngine()
	later := testShipment("ASN-5", 4, 50)
	twinA := testShipment("ASN-2", 2, 50)
	twinB := testShipment("ASN-1", 2, 50)
	snap := testSnapshot(10, 20, later, twinA, twinB)
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 7, MaxPartialFill: true}

	d := engine.Decide(testRequest(8), snap, rules, testNow)

	assert.Equal(t, StrategySafetyBorrow, d.Result.Strategy)
	assert.Equal(t, "ASN-1", d.Result.SourceShipmentID)
}

func TestEngine_BorrowNeverSplitsAcrossShipments(t *testing.T) {
	engine := NewEngine()
	small := testShipment("ASN-1", 2, 4)
	big := testShipment("ASN-2", 3, 100)
	snap := testSnapshot(50, 45, small, big)
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 7, MaxPartialFill: true}

	d := engine.Decide(testRequest(20), snap, rules, testNow)

	// Only the earliest shipment backs the borrow; its 4 unlocked units cap
	// the fill and the remainder is a shortfall, never a second lock.
	assert.Equal(t, StrategySafetyBorrow, d.Result.Strategy)
	assert.Equal(t, 4, d.Result.AllocatedQty)
	assert.Equal(t, 16, d.Result.ShortfallQty)
	assert.Equal(t, "ASN-1", d.Result.SourceShipmentID)
	require.NotNil(t, d.LockIntent)
	assert.Equal(t, 4, d.LockIntent.Qty)
}

func TestEngine_RiskyDepletionRequiresEnablementAndPriority(t *testing.T) {
	engine := NewEngine()
	rules := &BusinessRules{
		SKU:                   "SKU-1",
		BorrowWindowDays:      5,
		RiskyDepletionEnabled: true,
		PriorityClass:         PriorityHigh,
		MaxPartialFill:        true,
	}

	standard := testRequest(20)
	d := engine.Decide(standard, testSnapshot(25, 25), rules, testNow)
	assert.Equal(t, StrategyRejected, d.Result.Strategy)

	high := testRequest(20)
	high.Priority = PriorityHigh
	d = engine.Decide(high, testSnapshot(25, 25), rules, testNow)
	assert.Equal(t, StrategyRiskyDepletion, d.Result.Strategy)
	assert.Equal(t, 20, d.Result.AllocatedQty)
	assert.Nil(t, d.LockIntent)
	assert.Equal(t, 20, d.OnHandDelta)
}

func TestEngine_RiskyDrainsToZeroNeverBelow(t *testing.T) {
	engine := NewEngine()
	rules := &BusinessRules{
		SKU:                   "SKU-1",
		BorrowWindowDays:      5,
		RiskyDepletionEnabled: true,
		PriorityClass:         PriorityStandard,
		MaxPartialFill:        true,
	}

	d := engine.Decide(testRequest(30), testSnapshot(25, 25), rules, testNow)

	assert.Equal(t, StrategyRiskyDepletion, d.Result.Strategy)
	assert.Equal(t, 25, d.Result.AllocatedQty)
	assert.Equal(t, 5, d.Result.ShortfallQty)
	assert.Equal(t, 25, d.OnHandDelta)
}

func TestEngine_RiskySkippedWhenDisabled(t *testing.T) {
	engine := NewEngine()
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}

	d := engine.Decide(testRequest(10), testSnapshot(8, 8), rules, testNow)

	assert.Equal(t, StrategyRejected, d.Result.Strategy)
	assert.Equal(t, 10, d.Result.ShortfallQty)
}

func TestEngine_DueDateGatesDirectInbound(t *testing.T) {
	engine := NewEngine()
	snap := testSnapshot(0, 0, testShipment("ASN-1", 20, 30))
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}

	due := testNow.AddDate(0, 0, 10)
	req := testRequest(5)
	req.DueDate = &due

	d := engine.Decide(req, snap, rules, testNow)
	assert.Equal(t, StrategyRejected, d.Result.Strategy)

	lateDue := testNow.AddDate(0, 0, 30)
	req.DueDate = &lateDue
	d = engine.Decide(req, snap, rules, testNow)
	assert.Equal(t, StrategyDirectInbound, d.Result.Strategy)
}

func TestEngine_LockQtyAlwaysMatchesAllocation(t *testing.T) {
	engine := NewEngine()
	rules := &BusinessRules{SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true}
	snapshots := []*SKUSnapshot{
		testSnapshot(25, 20, testShipment("ASN-1", 3, 50)),
		testSnapshot(0, 0, testShipment("ASN-2", 20, 30)),
		testSnapshot(12, 40, testShipment("ASN-3", 2, 3)),
	}
	for _, snap := range snapshots {
		for _, qty := range []int{1, 7, 33} {
			d := engine.Decide(testRequest(qty), snap, rules, testNow)
			if d.Result.Strategy.LocksShipment() {
				require.NotNil(t, d.LockIntent)
				assert.Equal(t, d.Result.AllocatedQty, d.LockIntent.Qty)
				assert.NotEmpty(t, d.Result.SourceShipmentID)
			}
			if d.Result.Strategy.CarriesETA() {
				require.NotNil(t, d.Result.PromisedETA)
			} else {
				assert.Nil(t, d.Result.PromisedETA)
			}
		}
	}
}

func TestEngine_AllocatedPlusShortfallEqualsRequested(t *testing.T) {
	engine := NewEngine()
	rules := &BusinessRules{
		SKU:                   "SKU-1",
		BorrowWindowDays:      5,
		RiskyDepletionEnabled: true,
		PriorityClass:         PriorityStandard,
		MaxPartialFill:        true,
	}
	snapshots := []*SKUSnapshot{
		testSnapshot(100, 20),
		testSnapshot(25, 20, testShipment("ASN-1", 3, 50)),
		testSnapshot(0, 0, testShipment("ASN-2", 20, 30)),
		testSnapshot(0, 0),
		testSnapshot(12, 40, testShipment("ASN-3", 2, 3)),
	}
	for _, snap := range snapshots {
		for _, qty := range []int{1, 7, 33, 250} {
			d := engine.Decide(testRequest(qty), snap, rules, testNow)
			assert.Equal(t, qty, d.Result.AllocatedQty+d.Result.ShortfallQty)
		}
	}
}
