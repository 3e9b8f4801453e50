package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wms-platform/promising-service/internal/domain"
	"github.com/wms-platform/promising-service/pkg/resilience"
)

// Adapter decorates an inventory adapter with a circuit breaker. Collaborator
// failures trip the breaker and surface as ErrAdapterUnavailable; business
// outcomes pass through untouched and never count as failures, so a burst of
// unknown SKUs or version conflicts cannot open the circuit.
type Adapter struct {
	inner   domain.InventoryAdapter
	breaker *resilience.CircuitBreaker
}

// NewAdapter wraps the adapter with the platform's default breaker settings
func NewAdapter(inner domain.InventoryAdapter, logger *slog.Logger) *Adapter {
	config := resilience.DefaultCircuitBreakerConfig("inventory-adapter")
	return &Adapter{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(config, logger),
	}
}

func (a *Adapter) GetInventoryPosition(ctx context.Context, sku string) (*domain.InventoryPosition, error) {
	var pos *domain.InventoryPosition
	err := a.execute(ctx, func() error {
		var err error
		pos, err = a.inner.GetInventoryPosition(ctx, sku)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (a *Adapter) GetInboundShipments(ctx context.Context, sku string) ([]domain.InboundShipment, error) {
	var shipments []domain.InboundShipment
	err := a.execute(ctx, func() error {
		var err error
		shipments, err = a.inner.GetInboundShipments(ctx, sku)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (a *Adapter) ExecuteAllocation(ctx context.Context, result *domain.AllocationResult, onHandDelta int, expectedVersion int64) error {
	return a.execute(ctx, func() error {
		return a.inner.ExecuteAllocation(ctx, result, onHandDelta, expectedVersion)
	})
}

// execute runs op through the breaker. Business outcomes are smuggled past
// the breaker as successes; everything else counts as a collaborator
// failure and maps to ErrAdapterUnavailable.
func (a *Adapter) execute(ctx context.Context, op func() error) error {
	var businessErr error
	_, err := a.breaker.Execute(ctx, func() (interface{}, error) {
		if err := op(); err != nil {
			if isBusinessOutcome(err) {
				businessErr = err
				return nil, nil
			}
			return nil, err
		}
		return nil, nil
	})
	if businessErr != nil {
		return businessErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrAdapterUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
	}
	return nil
}

func isBusinessOutcome(err error) bool {
	return errors.Is(err, domain.ErrUnknownSKU) ||
		errors.Is(err, domain.ErrConcurrentModification)
}
