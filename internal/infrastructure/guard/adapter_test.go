package guard

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
)

type flakyAdapter struct {
	err      error
	position *domain.InventoryPosition
}

func (f *flakyAdapter) GetInventoryPosition(ctx context.Context, sku string) (*domain.InventoryPosition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.position, nil
}

func (f *flakyAdapter) GetInboundShipments(ctx context.Context, sku string) ([]domain.InboundShipment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *flakyAdapter) ExecuteAllocation(ctx context.Context, result *domain.AllocationResult, onHandDelta int, expectedVersion int64) error {
	return f.err
}

func TestGuard_PassesThroughOnSuccess(t *testing.T) {
	inner := &flakyAdapter{position: &domain.InventoryPosition{SKU: "SKU-1", OnHandQty: 10}}
	adapter := NewAdapter(inner, slog.Default())

	pos, err := adapter.GetInventoryPosition(context.Background(), "SKU-1")

	require.NoError(t, err)
	assert.Equal(t, 10, pos.OnHandQty)
}

func TestGuard_BusinessOutcomesAreNotFailures(t *testing.T) {
	inner := &flakyAdapter{err: domain.ErrUnknownSKU}
	adapter := NewAdapter(inner, slog.Default())

	// Repeated business outcomes must neither trip the breaker nor be
	// remapped to collaborator errors.
	for i := 0; i < 20; i++ {
		_, err := adapter.GetInventoryPosition(context.Background(), "NOPE")
		assert.ErrorIs(t, err, domain.ErrUnknownSKU)
		assert.NotErrorIs(t, err, domain.ErrAdapterUnavailable)
	}
}

func TestGuard_MapsFailuresToAdapterUnavailable(t *testing.T) {
	inner := &flakyAdapter{err: errors.New("connection refused")}
	adapter := NewAdapter(inner, slog.Default())

	_, err := adapter.GetInventoryPosition(context.Background(), "SKU-1")

	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)
}

func TestGuard_OpenCircuitReportsUnavailable(t *testing.T) {
	inner := &flakyAdapter{err: errors.New("connection refused")}
	adapter := NewAdapter(inner, slog.Default())

	// Drive the breaker open, then verify calls still map to the
	// collaborator error taxonomy.
	for i := 0; i < 30; i++ {
		adapter.GetInventoryPosition(context.Background(), "SKU-1")
	}
	_, err := adapter.GetInventoryPosition(context.Background(), "SKU-1")
	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)

	err = adapter.ExecuteAllocation(context.Background(), &domain.AllocationResult{SKU: "SKU-1"}, 1, 0)
	assert.ErrorIs(t, err, domain.ErrAdapterUnavailable)
}

func TestGuard_ConcurrentModificationPassesThrough(t *testing.T) {
	inner := &flakyAdapter{err: domain.ErrConcurrentModification}
	adapter := NewAdapter(inner, slog.Default())

	err := adapter.ExecuteAllocation(context.Background(), &domain.AllocationResult{SKU: "SKU-1"}, 1, 0)

	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}
