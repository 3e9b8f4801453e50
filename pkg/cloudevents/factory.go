package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for promising domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	return event
}

// CreateAllocationRecordedEvent creates an AllocationRecorded event
func (f *EventFactory) CreateAllocationRecordedEvent(
	ctx context.Context,
	data AllocationRecordedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, AllocationRecorded, "allocation/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateAllocationRejectedEvent creates an AllocationRejected event
func (f *EventFactory) CreateAllocationRejectedEvent(
	ctx context.Context,
	data AllocationRecordedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, AllocationRejected, "allocation/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateLockReleasedEvent creates a LockReleased event
func (f *EventFactory) CreateLockReleasedEvent(
	ctx context.Context,
	lockID string,
	shipmentID string,
	sku string,
	qty int,
) *WMSCloudEvent {
	data := LockReleasedData{
		LockID:     lockID,
		ShipmentID: shipmentID,
		SKU:        sku,
		Qty:        qty,
	}
	return f.CreateEvent(ctx, LockReleased, "lock/"+lockID, data)
}

// CreateShipmentCreatedEvent creates a ShipmentCreated event
func (f *EventFactory) CreateShipmentCreatedEvent(
	ctx context.Context,
	shipmentID string,
	sku string,
	expectedQty int,
	eta time.Time,
) *WMSCloudEvent {
	data := ShipmentCreatedData{
		ShipmentID:  shipmentID,
		SKU:         sku,
		ExpectedQty: expectedQty,
		ETA:         eta,
	}
	return f.CreateEvent(ctx, ShipmentCreated, "shipment/"+shipmentID, data)
}
