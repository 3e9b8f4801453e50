package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/promising-service/pkg/cloudevents"
	apperrors "github.com/wms-platform/promising-service/pkg/errors"
	"github.com/wms-platform/promising-service/pkg/kafka"
	"github.com/wms-platform/promising-service/pkg/logging"
	"github.com/wms-platform/promising-service/pkg/metrics"
	"github.com/wms-platform/promising-service/pkg/tracing"

	"github.com/wms-platform/promising-service/internal/domain"
)

// EventPublisher is the outbound event boundary. Satisfied by the
// instrumented and circuit-breaker Kafka producers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// PromisingApplicationService handles order promising use cases. It owns the
// per-SKU commit boundary: evaluation runs lock-free against a snapshot, the
// commit step runs under the SKU's mutex and re-validates state.
type PromisingApplicationService struct {
	adapter      domain.InventoryAdapter
	rules        domain.RulesProvider
	ledger       domain.LockLedger
	records      domain.AllocationRecordRepository
	engine       *domain.Engine
	skuLocks     *skuMutex
	producer     EventPublisher
	eventFactory *cloudevents.EventFactory
	metrics      *metrics.Metrics
	logger       *logging.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewPromisingApplicationService creates a new PromisingApplicationService
func NewPromisingApplicationService(
	adapter domain.InventoryAdapter,
	rules domain.RulesProvider,
	ledger domain.LockLedger,
	records domain.AllocationRecordRepository,
	producer EventPublisher,
	eventFactory *cloudevents.EventFactory,
	m *metrics.Metrics,
	logger *logging.Logger,
) *PromisingApplicationService {
	return &PromisingApplicationService{
		adapter:      adapter,
		rules:        rules,
		ledger:       ledger,
		records:      records,
		engine:       domain.NewEngine(),
		skuLocks:     newSKUMutex(),
		producer:     producer,
		eventFactory: eventFactory,
		metrics:      m,
		logger:       logger,
		tracer:       otel.Tracer("promising-service"),
		now:          time.Now,
	}
}

// Allocate promises one order line. Retryable consistency failures
// (ErrConcurrentModification, ErrInsufficientUnlockedQty) surface to the
// caller; a retry re-runs the whole decision against fresh state.
func (s *PromisingApplicationService) Allocate(ctx context.Context, cmd AllocateCommand) (*AllocationResultDTO, error) {
	ctx, span := s.tracer.Start(ctx, "promising.allocate")
	defer span.End()

	start := s.now()

	req := &domain.AllocationRequest{
		OrderID:          cmd.OrderID,
		SKU:              cmd.SKU,
		RequestedQty:     cmd.Qty,
		Priority:         domain.Priority(cmd.Priority),
		RequestTimestamp: start,
		DueDate:          cmd.DueDate,
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityStandard
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	if !req.Priority.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("unknown priority %q", cmd.Priority))
	}

	rules, err := s.rules.GetRules(ctx, req.SKU, req.Priority)
	if err != nil {
		if errors.Is(err, domain.ErrRulesNotFound) {
			rules = domain.DefaultRules(req.SKU)
		} else {
			s.logger.WithError(err).Error("Failed to resolve business rules", "sku", req.SKU)
			return nil, fmt.Errorf("failed to resolve business rules: %w", err)
		}
	}

	snap, err := s.snapshot(ctx, req.SKU)
	if err != nil {
		return nil, err
	}

	decision := s.engine.Decide(req, snap, rules, start)
	result := decision.Result
	span.SetAttributes(tracing.AllocationSpanAttributes(result.OrderID, result.SKU, string(result.Strategy))...)

	if !result.Rejected() {
		if err := s.commit(ctx, decision); err != nil {
			return nil, err
		}
	}

	if err := s.records.Save(ctx, result); err != nil {
		// The commit already happened; failing the call now would push the
		// caller into a duplicate allocation retry.
		s.logger.WithError(err).Error("Failed to persist allocation record",
			"orderId", result.OrderID, "sku", result.SKU)
	}

	s.publishDecision(ctx, result)
	s.metrics.RecordAllocation(string(result.Strategy), result.RequestedQty, result.ShortfallQty, s.now().Sub(start))
	s.logger.AllocationDecision(ctx, result.OrderID, result.SKU, string(result.Strategy),
		result.AllocatedQty, result.ShortfallQty, s.now().Sub(start))

	return ToAllocationResultDTO(result), nil
}

// commit applies the decision's side effects under the SKU mutex: the
// ledger lock first (re-validated against the shipment's unlocked quantity),
// then the adapter commit (re-validated against the position version). A
// stale version rolls the just-created lock back before surfacing the
// conflict.
func (s *PromisingApplicationService) commit(ctx context.Context, decision *domain.Decision) error {
	result := decision.Result
	unlock := s.skuLocks.Lock(result.SKU)
	defer unlock()

	if decision.LockIntent != nil {
		if _, err := s.ledger.Lock(ctx, result.OrderID, decision.LockIntent.ShipmentID, result.SKU, decision.LockIntent.Qty); err != nil {
			if errors.Is(err, domain.ErrInsufficientUnlockedQty) {
				s.metrics.RecordAllocationConflict(result.SKU)
				return err
			}
			s.logger.WithError(err).Error("Failed to lock shipment",
				"shipmentId", decision.LockIntent.ShipmentID, "orderId", result.OrderID)
			return fmt.Errorf("failed to lock shipment: %w", err)
		}
		s.metrics.RecordLockCreated()
		s.logger.LockEvent(ctx, "created", result.LockID, decision.LockIntent.ShipmentID, decision.LockIntent.Qty)
	}

	if err := s.adapter.ExecuteAllocation(ctx, result, decision.OnHandDelta, decision.PositionVersion); err != nil {
		if decision.LockIntent != nil {
			if _, relErr := s.ledger.Release(ctx, result.LockID); relErr != nil {
				s.logger.WithError(relErr).Error("Failed to roll back lock after commit failure",
					"lockId", result.LockID)
			} else {
				s.metrics.RecordLockReleased()
			}
		}
		if errors.Is(err, domain.ErrConcurrentModification) {
			s.metrics.RecordAllocationConflict(result.SKU)
			return err
		}
		if errors.Is(err, domain.ErrAdapterUnavailable) {
			return err
		}
		s.logger.WithError(err).Error("Allocation commit failed",
			"orderId", result.OrderID, "sku", result.SKU)
		return fmt.Errorf("allocation commit failed: %w", err)
	}
	return nil
}

// ReleaseLock repays a borrow or cancels a promise, restoring the
// shipment's unlocked quantity.
func (s *PromisingApplicationService) ReleaseLock(ctx context.Context, cmd ReleaseLockCommand) (*LockDTO, error) {
	ctx, span := s.tracer.Start(ctx, "promising.release_lock")
	defer span.End()

	if cmd.LockID == "" {
		return nil, apperrors.ErrValidation("lock id is required")
	}

	lock, err := s.ledger.Release(ctx, cmd.LockID)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotFound) {
			return nil, apperrors.ErrNotFoundWithID("lock", cmd.LockID)
		}
		if errors.Is(err, domain.ErrLockAlreadyReleased) {
			return nil, apperrors.ErrConflict("lock has already been released")
		}
		s.logger.WithError(err).Error("Failed to release lock", "lockId", cmd.LockID)
		return nil, fmt.Errorf("failed to release lock: %w", err)
	}
	s.metrics.RecordLockReleased()
	span.SetAttributes(tracing.LockSpanAttributes(lock.LockID, lock.ShipmentID)...)

	if s.producer != nil {
		event := s.eventFactory.CreateLockReleasedEvent(ctx, lock.LockID, lock.ShipmentID, lock.SKU, lock.LockedQty)
		event.OrderID = lock.OrderID
		event.CorrelationID = logging.CorrelationIDFromContext(ctx)
		if err := s.producer.PublishEvent(ctx, kafka.TopicPromisingEvents, event); err != nil {
			s.logger.WithError(err).Error("Failed to publish lock released event", "lockId", cmd.LockID)
		}
	}

	s.logger.LockEvent(ctx, "released", lock.LockID, lock.ShipmentID, lock.LockedQty)
	return ToLockDTO(lock), nil
}

// GetAllocations returns the audit records for an order
func (s *PromisingApplicationService) GetAllocations(ctx context.Context, query GetAllocationsQuery) ([]AllocationResultDTO, error) {
	results, err := s.records.FindByOrderID(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load allocation records", "orderId", query.OrderID)
		return nil, fmt.Errorf("failed to load allocation records: %w", err)
	}
	dtos := make([]AllocationResultDTO, 0, len(results))
	for i := range results {
		dtos = append(dtos, *ToAllocationResultDTO(&results[i]))
	}
	return dtos, nil
}

// ListAllocations returns a page of the audit trail, newest first
func (s *PromisingApplicationService) ListAllocations(ctx context.Context, query ListAllocationsQuery) ([]AllocationResultDTO, int64, error) {
	results, total, err := s.records.List(ctx, query.SKU, query.Limit, query.Offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list allocation records", "sku", query.SKU)
		return nil, 0, fmt.Errorf("failed to list allocation records: %w", err)
	}
	dtos := make([]AllocationResultDTO, 0, len(results))
	for i := range results {
		dtos = append(dtos, *ToAllocationResultDTO(&results[i]))
	}
	return dtos, total, nil
}

// GetPosition returns the current position snapshot for a SKU
func (s *PromisingApplicationService) GetPosition(ctx context.Context, query GetPositionQuery) (*PositionDTO, error) {
	pos, err := s.adapter.GetInventoryPosition(ctx, query.SKU)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSKU) {
			return nil, apperrors.ErrNotFoundWithID("sku", query.SKU)
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	return ToPositionDTO(pos), nil
}

// GetShipments returns the open inbound shipments for a SKU, earliest first
func (s *PromisingApplicationService) GetShipments(ctx context.Context, query GetPositionQuery) ([]ShipmentDTO, error) {
	if _, err := s.adapter.GetInventoryPosition(ctx, query.SKU); err != nil {
		if errors.Is(err, domain.ErrUnknownSKU) {
			return nil, apperrors.ErrNotFoundWithID("sku", query.SKU)
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	shipments, err := s.adapter.GetInboundShipments(ctx, query.SKU)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipments: %w", err)
	}
	domain.SortShipmentsByETA(shipments)
	return ToShipmentDTOs(shipments), nil
}

func (s *PromisingApplicationService) snapshot(ctx context.Context, sku string) (*domain.SKUSnapshot, error) {
	pos, err := s.adapter.GetInventoryPosition(ctx, sku)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSKU) {
			return nil, apperrors.ErrNotFoundWithID("sku", sku)
		}
		if errors.Is(err, domain.ErrAdapterUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	shipments, err := s.adapter.GetInboundShipments(ctx, sku)
	if err != nil {
		if errors.Is(err, domain.ErrAdapterUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load shipments: %w", err)
	}
	return &domain.SKUSnapshot{Position: *pos, Shipments: shipments}, nil
}

func (s *PromisingApplicationService) publishDecision(ctx context.Context, result *domain.AllocationResult) {
	if s.producer == nil {
		return
	}
	data := cloudevents.AllocationRecordedData{
		OrderID:          result.OrderID,
		SKU:              result.SKU,
		RequestedQty:     result.RequestedQty,
		AllocatedQty:     result.AllocatedQty,
		ShortfallQty:     result.ShortfallQty,
		Strategy:         string(result.Strategy),
		SourceShipmentID: result.SourceShipmentID,
		PromisedETA:      result.PromisedETA,
		LockID:           result.LockID,
	}
	event := s.eventFactory.CreateAllocationRecordedEvent(ctx, data)
	if result.Rejected() {
		event = s.eventFactory.CreateAllocationRejectedEvent(ctx, data)
	}
	event.CorrelationID = logging.CorrelationIDFromContext(ctx)
	if err := s.producer.PublishEvent(ctx, kafka.TopicPromisingEvents, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish allocation event",
			"orderId", result.OrderID, "sku", result.SKU)
	}
}
