package cloudevents

import (
	"time"
)

// EventType constants for promising domain events
const (
	// Allocation events
	AllocationRecorded = "wms.promising.allocation-recorded"
	AllocationRejected = "wms.promising.allocation-rejected"

	// Lock events
	LockReleased = "wms.promising.lock-released"

	// Inbound shipment events
	ShipmentCreated  = "wms.inbound.shipment-created"
	ShipmentDelayed  = "wms.inbound.shipment-delayed"
	ShipmentReceived = "wms.inbound.shipment-received"
)

// Source constants for event sources
const (
	SourcePromising = "/wms/promising-service"
	SourceInbound   = "/wms/inbound-service"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C Trace Context extensions
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// AllocationRecordedData represents the data payload for AllocationRecorded event
type AllocationRecordedData struct {
	OrderID          string     `json:"orderId"`
	SKU              string     `json:"sku"`
	RequestedQty     int        `json:"requestedQty"`
	AllocatedQty     int        `json:"allocatedQty"`
	ShortfallQty     int        `json:"shortfallQty"`
	Strategy         string     `json:"strategy"`
	SourceShipmentID string     `json:"sourceShipmentId,omitempty"`
	PromisedETA      *time.Time `json:"promisedEta,omitempty"`
	LockID           string     `json:"lockId,omitempty"`
}

// LockReleasedData represents the data payload for LockReleased event
type LockReleasedData struct {
	LockID     string `json:"lockId"`
	ShipmentID string `json:"shipmentId"`
	SKU        string `json:"sku"`
	Qty        int    `json:"qty"`
}

// ShipmentCreatedData represents the data payload for ShipmentCreated event
type ShipmentCreatedData struct {
	ShipmentID  string    `json:"shipmentId"`
	SKU         string    `json:"sku"`
	ExpectedQty int       `json:"expectedQty"`
	ETA         time.Time `json:"eta"`
}

// ShipmentDelayedData represents the data payload for ShipmentDelayed event
type ShipmentDelayedData struct {
	ShipmentID string    `json:"shipmentId"`
	SKU        string    `json:"sku"`
	NewETA     time.Time `json:"newEta"`
}

// ShipmentReceivedData represents the data payload for ShipmentReceived event
type ShipmentReceivedData struct {
	ShipmentID  string `json:"shipmentId"`
	SKU         string `json:"sku"`
	ReceivedQty int    `json:"receivedQty"`
}
