package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
	"github.com/wms-platform/promising-service/internal/infrastructure/memory"
	"github.com/wms-platform/promising-service/pkg/cloudevents"
	"github.com/wms-platform/promising-service/pkg/logging"
)

func newTestConsumer() (*ShipmentConsumer, *memory.InventoryAdapter) {
	adapter := memory.NewInventoryAdapter()
	logger := logging.New(logging.DefaultConfig("ingest-test"))
	return NewShipmentConsumer(adapter, logger), adapter
}

// event builds a consumed event the way the Kafka layer hands it over:
// the payload comes through as a generic map, not a typed struct.
func event(eventType string, data map[string]interface{}) *cloudevents.WMSCloudEvent {
	return &cloudevents.WMSCloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      "/wms/inbound-service",
		ID:          "evt-1",
		Time:        time.Now(),
		Data:        data,
	}
}

func TestShipmentConsumer_Created(t *testing.T) {
	sc, adapter := newTestConsumer()
	ctx := context.Background()

	eta := time.Now().AddDate(0, 0, 4).UTC().Truncate(time.Second)
	err := sc.handleCreated(ctx, event(cloudevents.ShipmentCreated, map[string]interface{}{
		"shipmentId":  "ship-100",
		"sku":         "SKU-ING",
		"expectedQty": 60,
		"eta":         eta.Format(time.RFC3339),
	}))
	require.NoError(t, err)

	shipments, err := adapter.GetInboundShipments(ctx, "SKU-ING")
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, "ship-100", shipments[0].ShipmentID)
	assert.Equal(t, 60, shipments[0].ExpectedQty)
	assert.Equal(t, 60, shipments[0].RemainingUnlockedQty)
	assert.True(t, shipments[0].ETA.Equal(eta))
}

func TestShipmentConsumer_CreatedMalformed(t *testing.T) {
	sc, adapter := newTestConsumer()
	ctx := context.Background()

	// Missing quantity drops the event instead of forcing a redelivery loop
	err := sc.handleCreated(ctx, event(cloudevents.ShipmentCreated, map[string]interface{}{
		"shipmentId": "ship-bad",
		"sku":        "SKU-ING",
	}))
	require.NoError(t, err)

	shipments, err := adapter.GetInboundShipments(ctx, "SKU-ING")
	require.NoError(t, err)
	assert.Empty(t, shipments)
}

func TestShipmentConsumer_Delayed(t *testing.T) {
	sc, adapter := newTestConsumer()
	ctx := context.Background()

	adapter.SeedShipment(*domain.NewInboundShipment("ship-101", "SKU-ING", 30, time.Now().AddDate(0, 0, 2)))

	newETA := time.Now().AddDate(0, 0, 9).UTC().Truncate(time.Second)
	err := sc.handleDelayed(ctx, event(cloudevents.ShipmentDelayed, map[string]interface{}{
		"shipmentId": "ship-101",
		"sku":        "SKU-ING",
		"newEta":     newETA.Format(time.RFC3339),
	}))
	require.NoError(t, err)

	shipments, err := adapter.GetInboundShipments(ctx, "SKU-ING")
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.True(t, shipments[0].ETA.Equal(newETA))
}

func TestShipmentConsumer_DelayedUnknownShipment(t *testing.T) {
	sc, _ := newTestConsumer()

	// Unknown shipment is logged and acked, not retried
	err := sc.handleDelayed(context.Background(), event(cloudevents.ShipmentDelayed, map[string]interface{}{
		"shipmentId": "ship-ghost",
		"newEta":     time.Now().Format(time.RFC3339),
	}))
	assert.NoError(t, err)
}

func TestShipmentConsumer_Received(t *testing.T) {
	sc, adapter := newTestConsumer()
	ctx := context.Background()

	adapter.SeedPosition(domain.InventoryPosition{SKU: "SKU-ING", OnHandQty: 10, SafetyStockQty: 5})
	adapter.SeedShipment(*domain.NewInboundShipment("ship-102", "SKU-ING", 25, time.Now().AddDate(0, 0, 1)))

	err := sc.handleReceived(ctx, event(cloudevents.ShipmentReceived, map[string]interface{}{
		"shipmentId":  "ship-102",
		"sku":         "SKU-ING",
		"receivedQty": 25,
	}))
	require.NoError(t, err)

	pos, err := adapter.GetInventoryPosition(ctx, "SKU-ING")
	require.NoError(t, err)
	assert.Equal(t, 35, pos.OnHandQty)

	shipments, err := adapter.GetInboundShipments(ctx, "SKU-ING")
	require.NoError(t, err)
	assert.Empty(t, shipments)
}
