package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/promising-service/pkg/cloudevents"
	"github.com/wms-platform/promising-service/pkg/kafka"
	"github.com/wms-platform/promising-service/pkg/logging"

	"github.com/wms-platform/promising-service/internal/domain"
)

// ShipmentStore is the write surface the consumer needs to mirror the
// inbound service's shipment lifecycle locally.
type ShipmentStore interface {
	SaveShipment(ctx context.Context, s *domain.InboundShipment) error
	UpdateShipmentETA(ctx context.Context, shipmentID string, eta time.Time) error
	MarkShipmentReceived(ctx context.Context, shipmentID string, receivedQty int) error
}

// ShipmentConsumer projects inbound shipment lifecycle events into the
// local shipment store. The inbound service owns the shipment lifecycle;
// this consumer keeps the promising read model current so borrow and
// direct-inbound candidates reflect real ASNs.
type ShipmentConsumer struct {
	store  ShipmentStore
	logger *logging.Logger
}

func NewShipmentConsumer(store ShipmentStore, logger *logging.Logger) *ShipmentConsumer {
	return &ShipmentConsumer{store: store, logger: logger}
}

// Subscriber registers typed event handlers on a topic. Satisfied by the
// instrumented and circuit-breaker Kafka consumers.
type Subscriber interface {
	Subscribe(topic string, eventType string, handler kafka.EventHandler)
}

// Register subscribes the lifecycle handlers on the inbound shipments topic
func (sc *ShipmentConsumer) Register(consumer Subscriber) {
	consumer.Subscribe(kafka.TopicInboundShipments, cloudevents.ShipmentCreated, sc.handleCreated)
	consumer.Subscribe(kafka.TopicInboundShipments, cloudevents.ShipmentDelayed, sc.handleDelayed)
	consumer.Subscribe(kafka.TopicInboundShipments, cloudevents.ShipmentReceived, sc.handleReceived)
}

func (sc *ShipmentConsumer) handleCreated(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var data cloudevents.ShipmentCreatedData
	if err := decodeData(event, &data); err != nil {
		return err
	}
	if data.ShipmentID == "" || data.SKU == "" || data.ExpectedQty <= 0 {
		sc.logger.Warn("Dropping malformed shipment-created event", "eventId", event.ID)
		return nil
	}

	shipment := domain.NewInboundShipment(data.ShipmentID, data.SKU, data.ExpectedQty, data.ETA)
	if err := sc.store.SaveShipment(ctx, shipment); err != nil {
		return fmt.Errorf("failed to store shipment %s: %w", data.ShipmentID, err)
	}

	sc.logger.Info("Inbound shipment registered",
		"shipmentId", data.ShipmentID, "sku", data.SKU,
		"expectedQty", data.ExpectedQty, "eta", data.ETA)
	return nil
}

func (sc *ShipmentConsumer) handleDelayed(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var data cloudevents.ShipmentDelayedData
	if err := decodeData(event, &data); err != nil {
		return err
	}

	if err := sc.store.UpdateShipmentETA(ctx, data.ShipmentID, data.NewETA); err != nil {
		if errors.Is(err, domain.ErrShipmentNotFound) {
			// Delay notices can outrun the create event or reference a
			// shipment already received; neither is worth a redelivery.
			sc.logger.Warn("Delay event for unknown or closed shipment",
				"shipmentId", data.ShipmentID)
			return nil
		}
		return fmt.Errorf("failed to update shipment %s eta: %w", data.ShipmentID, err)
	}

	sc.logger.Info("Inbound shipment delayed",
		"shipmentId", data.ShipmentID, "newEta", data.NewETA)
	return nil
}

func (sc *ShipmentConsumer) handleReceived(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var data cloudevents.ShipmentReceivedData
	if err := decodeData(event, &data); err != nil {
		return err
	}

	if err := sc.store.MarkShipmentReceived(ctx, data.ShipmentID, data.ReceivedQty); err != nil {
		if errors.Is(err, domain.ErrShipmentNotFound) {
			sc.logger.Warn("Receipt event for unknown or closed shipment",
				"shipmentId", data.ShipmentID)
			return nil
		}
		return fmt.Errorf("failed to receive shipment %s: %w", data.ShipmentID, err)
	}

	sc.logger.Info("Inbound shipment received",
		"shipmentId", data.ShipmentID, "receivedQty", data.ReceivedQty)
	return nil
}

// decodeData re-marshals the event payload into a typed struct. Consumed
// events carry Data as a generic map after JSON parsing.
func decodeData(event *cloudevents.WMSCloudEvent, out interface{}) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	return nil
}
