package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
	"github.com/wms-platform/promising-service/internal/infrastructure/memory"
	apperrors "github.com/wms-platform/promising-service/pkg/errors"
	"github.com/wms-platform/promising-service/pkg/logging"
	"github.com/wms-platform/promising-service/pkg/metrics"
)

type promisingFixture struct {
	adapter *memory.InventoryAdapter
	ledger  *memory.LockLedger
	rules   *memory.RulesProvider
	records *memory.AllocationRecordRepository
	service *PromisingApplicationService
}

func newFixture(t *testing.T) *promisingFixture {
	t.Helper()
	adapter := memory.NewInventoryAdapter()
	ledger := memory.NewLockLedger(adapter)
	rules := memory.NewRulesProvider()
	records := memory.NewAllocationRecordRepository()
	logger := logging.New(logging.DefaultConfig("promising-test"))
	m := metrics.New(metrics.DefaultConfig("promising-test"))

	return &promisingFixture{
		adapter: adapter,
		ledger:  ledger,
		rules:   rules,
		records: records,
		service: NewPromisingApplicationService(adapter, rules, ledger, records, nil, nil, m, logger),
	}
}

func TestAllocate_FreeStock(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 100, SafetyStockQty: 20})

	dto, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-1", SKU: "SKU-1", Qty: 50,
	})

	require.NoError(t, err)
	assert.Equal(t, "FREE_STOCK", dto.Strategy)
	assert.Equal(t, 50, dto.AllocatedQty)
	assert.Equal(t, 0, dto.ShortfallQty)
	assert.Empty(t, dto.LockID)

	pos, err := f.adapter.GetInventoryPosition(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 50, pos.OnHandQty)
	assert.Equal(t, int64(1), pos.Version)

	records, err := f.records.FindByOrderID(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StrategyFreeStock, records[0].Strategy)
}

func TestAllocate_SafetyBorrowCreatesLock(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 25, SafetyStockQty: 20})
	shipment := domain.NewInboundShipment("ASN-1", "SKU-1", 50, time.Now().AddDate(0, 0, 3))
	f.adapter.SeedShipment(*shipment)
	f.rules.SetRules(&domain.BusinessRules{
		SKU: "SKU-1", BorrowWindowDays: 5, MaxPartialFill: true,
	})

	dto, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-2", SKU: "SKU-1", Qty: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, "SAFETY_BORROW", dto.Strategy)
	assert.Equal(t, 10, dto.AllocatedQty)
	assert.Equal(t, "ASN-1", dto.SourceShipmentID)
	require.NotEmpty(t, dto.LockID)

	lock, err := f.ledger.GetLock(context.Background(), dto.LockID)
	require.NoError(t, err)
	assert.Equal(t, 10, lock.LockedQty)
	assert.Equal(t, domain.LockStatusActive, lock.Status)

	shipments, err := f.adapter.GetInboundShipments(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 40, shipments[0].RemainingUnlockedQty)

	pos, _ := f.adapter.GetInventoryPosition(context.Background(), "SKU-1")
	assert.Equal(t, 15, pos.OnHandQty)
}

func TestAllocate_UnknownSKU(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-3", SKU: "NOPE", Qty: 5,
	})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestAllocate_InvalidQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-4", SKU: "SKU-1", Qty: 0,
	})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestAllocate_RejectionPersistsAuditRecord(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 0, SafetyStockQty: 0})

	dto, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-5", SKU: "SKU-1", Qty: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, "REJECTED", dto.Strategy)
	assert.Equal(t, 5, dto.ShortfallQty)

	// No commit happened
	assert.Empty(t, f.adapter.Committed())

	records, err := f.records.FindByOrderID(context.Background(), "ORD-5")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestAllocate_ConcurrentRequestsNeverOverAllocate(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 100, SafetyStockQty: 0})

	var wg sync.WaitGroup
	results := make([]*AllocationResultDTO, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.Allocate(context.Background(), AllocateCommand{
				OrderID: "ORD-C" + string(rune('A'+i)), SKU: "SKU-1", Qty: 60,
			})
		}(i)
	}
	wg.Wait()

	allocated := 0
	conflicts := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], domain.ErrConcurrentModification)
			conflicts++
			continue
		}
		if results[i].Strategy == "FREE_STOCK" {
			allocated += results[i].AllocatedQty
		}
	}
	assert.LessOrEqual(t, allocated, 100)

	pos, _ := f.adapter.GetInventoryPosition(context.Background(), "SKU-1")
	assert.GreaterOrEqual(t, pos.OnHandQty, 0)

	// A conflicting caller retries against fresh state and lands in a
	// different outcome, never a double allocation.
	if conflicts > 0 {
		dto, err := f.service.Allocate(context.Background(), AllocateCommand{
			OrderID: "ORD-RETRY", SKU: "SKU-1", Qty: 60,
		})
		require.NoError(t, err)
		assert.NotEqual(t, "FREE_STOCK", dto.Strategy)
	}
}

func TestReleaseLock_RestoresUnlockedQty(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 0, SafetyStockQty: 0})
	shipment := domain.NewInboundShipment("ASN-1", "SKU-1", 30, time.Now().AddDate(0, 0, 20))
	f.adapter.SeedShipment(*shipment)

	dto, err := f.service.Allocate(context.Background(), AllocateCommand{
		OrderID: "ORD-6", SKU: "SKU-1", Qty: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "DIRECT_INBOUND", dto.Strategy)
	require.NotEmpty(t, dto.LockID)

	released, err := f.service.ReleaseLock(context.Background(), ReleaseLockCommand{LockID: dto.LockID})
	require.NoError(t, err)
	assert.Equal(t, "released", released.Status)

	shipments, _ := f.adapter.GetInboundShipments(context.Background(), "SKU-1")
	assert.Equal(t, 30, shipments[0].RemainingUnlockedQty)

	// Releasing twice is a conflict
	_, err = f.service.ReleaseLock(context.Background(), ReleaseLockCommand{LockID: dto.LockID})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestReleaseLock_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ReleaseLock(context.Background(), ReleaseLockCommand{LockID: "lock_X_Y"})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestGetShipments_SortedByETA(t *testing.T) {
	f := newFixture(t)
	f.adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 0, SafetyStockQty: 0})
	f.adapter.SeedShipment(*domain.NewInboundShipment("ASN-2", "SKU-1", 10, time.Now().AddDate(0, 0, 9)))
	f.adapter.SeedShipment(*domain.NewInboundShipment("ASN-1", "SKU-1", 10, time.Now().AddDate(0, 0, 2)))

	shipments, err := f.service.GetShipments(context.Background(), GetPositionQuery{SKU: "SKU-1"})

	require.NoError(t, err)
	require.Len(t, shipments, 2)
	assert.Equal(t, "ASN-1", shipments[0].ShipmentID)
	assert.Equal(t, "ASN-2", shipments[1].ShipmentID)
}
