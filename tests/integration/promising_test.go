package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/promising-service/internal/application"
	"github.com/wms-platform/promising-service/internal/domain"
	mongoRepo "github.com/wms-platform/promising-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/promising-service/pkg/cloudevents"
	"github.com/wms-platform/promising-service/pkg/logging"
	"github.com/wms-platform/promising-service/pkg/metrics"
	sharedmongo "github.com/wms-platform/promising-service/pkg/mongodb"
	sharedtesting "github.com/wms-platform/promising-service/pkg/testing"
)

func setupTestDatabase(t *testing.T) (*mongo.Database, func()) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	db := client.Database("test_promising_db")

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
		if err := mongoContainer.Close(ctx); err != nil {
			t.Logf("Failed to close MongoDB container: %v", err)
		}
	}

	return db, cleanup
}

func seedPosition(t *testing.T, adapter *mongoRepo.InventoryAdapter, sku string, onHand, safety int) {
	t.Helper()
	err := adapter.SavePosition(context.Background(), &domain.InventoryPosition{
		SKU:            sku,
		OnHandQty:      onHand,
		SafetyStockQty: safety,
	})
	require.NoError(t, err)
}

func seedShipment(t *testing.T, adapter *mongoRepo.InventoryAdapter, shipmentID, sku string, qty int, eta time.Time) {
	t.Helper()
	err := adapter.SaveShipment(context.Background(), domain.NewInboundShipment(shipmentID, sku, qty, eta))
	require.NoError(t, err)
}

func TestInventoryAdapter_CommitAndReceive(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	adapter := mongoRepo.NewInventoryAdapter(db)
	seedPosition(t, adapter, "SKU-COMMIT", 100, 20)

	t.Run("commit decrements on-hand and bumps version", func(t *testing.T) {
		pos, err := adapter.GetInventoryPosition(ctx, "SKU-COMMIT")
		require.NoError(t, err)

		result := &domain.AllocationResult{OrderID: "order-1", SKU: "SKU-COMMIT"}
		err = adapter.ExecuteAllocation(ctx, result, 30, pos.Version)
		require.NoError(t, err)

		after, err := adapter.GetInventoryPosition(ctx, "SKU-COMMIT")
		require.NoError(t, err)
		assert.Equal(t, 70, after.OnHandQty)
		assert.Equal(t, pos.Version+1, after.Version)
	})

	t.Run("stale version surfaces as concurrent modification", func(t *testing.T) {
		pos, err := adapter.GetInventoryPosition(ctx, "SKU-COMMIT")
		require.NoError(t, err)

		result := &domain.AllocationResult{OrderID: "order-2", SKU: "SKU-COMMIT"}
		err = adapter.ExecuteAllocation(ctx, result, 10, pos.Version-1)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	})

	t.Run("unknown sku is not a conflict", func(t *testing.T) {
		result := &domain.AllocationResult{OrderID: "order-3", SKU: "SKU-MISSING"}
		err := adapter.ExecuteAllocation(ctx, result, 1, 0)
		assert.ErrorIs(t, err, domain.ErrUnknownSKU)
	})

	t.Run("received shipment folds into on-hand and closes", func(t *testing.T) {
		seedShipment(t, adapter, "ship-recv", "SKU-COMMIT", 40, time.Now().AddDate(0, 0, 2))

		err := adapter.MarkShipmentReceived(ctx, "ship-recv", 40)
		require.NoError(t, err)

		pos, err := adapter.GetInventoryPosition(ctx, "SKU-COMMIT")
		require.NoError(t, err)
		assert.Equal(t, 110, pos.OnHandQty)

		open, err := adapter.GetInboundShipments(ctx, "SKU-COMMIT")
		require.NoError(t, err)
		assert.Empty(t, open)

		// A second receipt of the same shipment is rejected
		err = adapter.MarkShipmentReceived(ctx, "ship-recv", 40)
		assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
	})

	t.Run("shipments return earliest ETA first", func(t *testing.T) {
		now := time.Now()
		seedShipment(t, adapter, "ship-late", "SKU-ETA", 10, now.AddDate(0, 0, 9))
		seedShipment(t, adapter, "ship-early", "SKU-ETA", 10, now.AddDate(0, 0, 2))

		shipments, err := adapter.GetInboundShipments(ctx, "SKU-ETA")
		require.NoError(t, err)
		require.Len(t, shipments, 2)
		assert.Equal(t, "ship-early", shipments[0].ShipmentID)
	})
}

func TestLockLedger_Mongo(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	adapter := mongoRepo.NewInventoryAdapter(db)
	ledger := mongoRepo.NewLockLedger(db)
	seedShipment(t, adapter, "ship-lock", "SKU-LOCK", 50, time.Now().AddDate(0, 0, 4))

	t.Run("lock reserves unlocked quantity", func(t *testing.T) {
		lock, err := ledger.Lock(ctx, "order-10", "ship-lock", "SKU-LOCK", 30)
		require.NoError(t, err)
		assert.Equal(t, 30, lock.LockedQty)
		assert.Equal(t, domain.LockStatusActive, lock.Status)

		shipments, err := adapter.GetInboundShipments(ctx, "SKU-LOCK")
		require.NoError(t, err)
		require.Len(t, shipments, 1)
		assert.Equal(t, 20, shipments[0].RemainingUnlockedQty)
	})

	t.Run("over-locking fails without side effects", func(t *testing.T) {
		_, err := ledger.Lock(ctx, "order-11", "ship-lock", "SKU-LOCK", 25)
		assert.ErrorIs(t, err, domain.ErrInsufficientUnlockedQty)

		shipments, err := adapter.GetInboundShipments(ctx, "SKU-LOCK")
		require.NoError(t, err)
		assert.Equal(t, 20, shipments[0].RemainingUnlockedQty)
	})

	t.Run("release restores quantity exactly once", func(t *testing.T) {
		lock, err := ledger.Lock(ctx, "order-12", "ship-lock", "SKU-LOCK", 20)
		require.NoError(t, err)

		released, err := ledger.Release(ctx, lock.LockID)
		require.NoError(t, err)
		assert.Equal(t, domain.LockStatusReleased, released.Status)
		require.NotNil(t, released.ReleasedAt)

		shipments, err := adapter.GetInboundShipments(ctx, "SKU-LOCK")
		require.NoError(t, err)
		assert.Equal(t, 20, shipments[0].RemainingUnlockedQty)

		_, err = ledger.Release(ctx, lock.LockID)
		assert.ErrorIs(t, err, domain.ErrLockAlreadyReleased)
	})

	t.Run("unknown lock", func(t *testing.T) {
		_, err := ledger.Release(ctx, "lock_nope_nope")
		assert.ErrorIs(t, err, domain.ErrLockNotFound)
	})
}

func TestRulesRepository_Mongo(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongoRepo.NewRulesRepository(db)

	t.Run("defaults when nothing configured", func(t *testing.T) {
		rules, err := repo.GetRules(ctx, "SKU-NONE", domain.PriorityStandard)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultBorrowWindowDays, rules.BorrowWindowDays)
		assert.False(t, rules.RiskyDepletionEnabled)
	})

	t.Run("item rule overrides global", func(t *testing.T) {
		require.NoError(t, repo.SaveRule(ctx, &mongoRepo.RuleRecord{
			RuleName: mongoRepo.RuleBorrowWindowDays, Scope: mongoRepo.ScopeGlobal, Value: "5",
		}))
		require.NoError(t, repo.SaveRule(ctx, &mongoRepo.RuleRecord{
			RuleName: mongoRepo.RuleBorrowWindowDays, Scope: mongoRepo.ScopeItem, SKU: "SKU-RULES", Value: "14",
		}))

		rules, err := repo.GetRules(ctx, "SKU-RULES", domain.PriorityStandard)
		require.NoError(t, err)
		assert.Equal(t, 14, rules.BorrowWindowDays)

		other, err := repo.GetRules(ctx, "SKU-OTHER", domain.PriorityStandard)
		require.NoError(t, err)
		assert.Equal(t, 5, other.BorrowWindowDays)
	})

	t.Run("expired dated rule is ignored", func(t *testing.T) {
		start := time.Now().AddDate(0, 0, -30)
		end := time.Now().AddDate(0, 0, -10)
		require.NoError(t, repo.SaveRule(ctx, &mongoRepo.RuleRecord{
			RuleName: mongoRepo.RuleRiskyDepletion, Scope: mongoRepo.ScopeItem, SKU: "SKU-DATED",
			StartDate: &start, EndDate: &end, Value: "true",
		}))

		rules, err := repo.GetRules(ctx, "SKU-DATED", domain.PriorityStandard)
		require.NoError(t, err)
		assert.False(t, rules.RiskyDepletionEnabled)
	})
}

func TestAllocationRepository_Mongo(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := mongoRepo.NewAllocationRepository(db)

	base := time.Now().Add(-time.Hour)
	for i, strategy := range []domain.Strategy{domain.StrategyFreeStock, domain.StrategySafetyBorrow, domain.StrategyRejected} {
		err := repo.Save(ctx, &domain.AllocationResult{
			OrderID:      "order-page",
			SKU:          "SKU-AUDIT",
			RequestedQty: 10,
			AllocatedQty: 10,
			Strategy:     strategy,
			DecidedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.Save(ctx, &domain.AllocationResult{
		OrderID:      "order-other",
		SKU:          "SKU-ELSE",
		RequestedQty: 5,
		AllocatedQty: 5,
		Strategy:     domain.StrategyFreeStock,
		DecidedAt:    base.Add(10 * time.Minute),
	}))

	t.Run("find by order", func(t *testing.T) {
		results, err := repo.FindByOrderID(ctx, "order-page")
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("list pages newest first", func(t *testing.T) {
		results, total, err := repo.List(ctx, "", 2, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, results, 2)
		assert.Equal(t, "order-other", results[0].OrderID)
	})

	t.Run("list filters by sku", func(t *testing.T) {
		results, total, err := repo.List(ctx, "SKU-AUDIT", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, results, 3)
	})
}

// TestPromisingService_EndToEnd drives the full allocate/release flow
// against MongoDB-backed infrastructure.
func TestPromisingService_EndToEnd(t *testing.T) {
	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	adapter := mongoRepo.NewInventoryAdapter(db)
	ledger := mongoRepo.NewLockLedger(db)
	records := mongoRepo.NewAllocationRepository(db)
	rules := mongoRepo.NewRulesRepository(db)

	logger := logging.New(logging.DefaultConfig("promising-test"))
	m := metrics.New(metrics.DefaultConfig("promising-test"))
	factory := cloudevents.NewEventFactory(cloudevents.SourcePromising)

	service := application.NewPromisingApplicationService(
		adapter, rules, ledger, records, nil, factory, m, logger,
	)

	seedPosition(t, adapter, "SKU-E2E", 5, 5)
	seedShipment(t, adapter, "ship-e2e", "SKU-E2E", 100, time.Now().AddDate(0, 0, 3))

	t.Run("borrow locks the covering shipment", func(t *testing.T) {
		result, err := service.Allocate(ctx, application.AllocateCommand{
			OrderID: "order-e2e-1", SKU: "SKU-E2E", Qty: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, string(domain.StrategySafetyBorrow), result.Strategy)
		assert.Equal(t, 3, result.AllocatedQty)
		assert.Equal(t, "ship-e2e", result.SourceShipmentID)
		require.NotEmpty(t, result.LockID)

		pos, err := service.GetPosition(ctx, application.GetPositionQuery{SKU: "SKU-E2E"})
		require.NoError(t, err)
		assert.Equal(t, 2, pos.OnHandQty)

		shipments, err := service.GetShipments(ctx, application.GetPositionQuery{SKU: "SKU-E2E"})
		require.NoError(t, err)
		require.Len(t, shipments, 1)
		assert.Equal(t, 97, shipments[0].RemainingUnlockedQty)

		lock, err := service.ReleaseLock(ctx, application.ReleaseLockCommand{LockID: result.LockID})
		require.NoError(t, err)
		assert.Equal(t, string(domain.LockStatusReleased), lock.Status)

		shipments, err = service.GetShipments(ctx, application.GetPositionQuery{SKU: "SKU-E2E"})
		require.NoError(t, err)
		assert.Equal(t, 100, shipments[0].RemainingUnlockedQty)
	})

	t.Run("direct inbound when out of stock", func(t *testing.T) {
		seedPosition(t, adapter, "SKU-OOS", 0, 0)
		seedShipment(t, adapter, "ship-oos", "SKU-OOS", 20, time.Now().AddDate(0, 0, 6))

		result, err := service.Allocate(ctx, application.AllocateCommand{
			OrderID: "order-e2e-2", SKU: "SKU-OOS", Qty: 8,
		})
		require.NoError(t, err)
		assert.Equal(t, string(domain.StrategyDirectInbound), result.Strategy)
		assert.Equal(t, 8, result.AllocatedQty)
		require.NotNil(t, result.PromisedETA)
	})

	t.Run("audit trail records every decision", func(t *testing.T) {
		results, err := service.GetAllocations(ctx, application.GetAllocationsQuery{OrderID: "order-e2e-1"})
		require.NoError(t, err)
		assert.Len(t, results, 1)

		_, total, err := service.ListAllocations(ctx, application.ListAllocationsQuery{Limit: 10})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(2))
	})
}

// TestPromisingService_InstrumentedClientPath drives the borrow and release
// flow through the circuit-breaker client the production wiring uses, so
// every repository runs on the wrapped collections.
func TestPromisingService_InstrumentedClientPath(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	defer mongoContainer.Close(ctx)

	logger := logging.New(logging.DefaultConfig("promising-test"))
	m := metrics.New(metrics.DefaultConfig("promising-test"))

	cfg := sharedmongo.DefaultConfig()
	cfg.URI = mongoContainer.URI
	cfg.Database = "test_promising_instrumented"
	client, err := sharedmongo.NewProductionClient(ctx, cfg, m, logger)
	require.NoError(t, err)
	defer client.Close(ctx)

	adapter := mongoRepo.NewInstrumentedInventoryAdapter(client)
	ledger := mongoRepo.NewInstrumentedLockLedger(client)
	records := mongoRepo.NewInstrumentedAllocationRepository(client)
	rules := mongoRepo.NewInstrumentedRulesRepository(client)

	factory := cloudevents.NewEventFactory(cloudevents.SourcePromising)
	service := application.NewPromisingApplicationService(
		adapter, rules, ledger, records, nil, factory, m, logger,
	)

	seedPosition(t, adapter, "SKU-INSTR", 4, 4)
	seedShipment(t, adapter, "ship-instr", "SKU-INSTR", 40, time.Now().AddDate(0, 0, 2))

	result, err := service.Allocate(ctx, application.AllocateCommand{
		OrderID: "order-instr-1", SKU: "SKU-INSTR", Qty: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StrategySafetyBorrow), result.Strategy)
	require.NotEmpty(t, result.LockID)

	shipments, err := adapter.GetInboundShipments(ctx, "SKU-INSTR")
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, 37, shipments[0].RemainingUnlockedQty)

	lock, err := service.ReleaseLock(ctx, application.ReleaseLockCommand{LockID: result.LockID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LockStatusReleased), lock.Status)
}
