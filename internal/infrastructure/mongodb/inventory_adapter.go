package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/promising-service/internal/domain"
	sharedmongo "github.com/wms-platform/promising-service/pkg/mongodb"
)

// InventoryAdapter is the MongoDB-backed inventory system of record. The
// commit path filters on the position version read at evaluation start, so
// a concurrent commit on the same SKU surfaces as ErrConcurrentModification
// instead of over-promising.
type InventoryAdapter struct {
	positions collection
	shipments collection
}

func NewInventoryAdapter(db *mongo.Database) *InventoryAdapter {
	ensureInventoryIndexes(context.Background(), db)
	return &InventoryAdapter{
		positions: db.Collection("inventory_positions"),
		shipments: db.Collection("inbound_shipments"),
	}
}

// NewInstrumentedInventoryAdapter routes position and shipment access through
// the instrumented circuit-breaker collections.
func NewInstrumentedInventoryAdapter(client *sharedmongo.CircuitBreakerClient) *InventoryAdapter {
	ensureInventoryIndexes(context.Background(), client.Database())
	return &InventoryAdapter{
		positions: client.Collection("inventory_positions"),
		shipments: client.Collection("inbound_shipments"),
	}
}

func ensureInventoryIndexes(ctx context.Context, db *mongo.Database) {
	db.Collection("inventory_positions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	db.Collection("inbound_shipments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shipmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// Candidate selection scans open shipments per SKU by ETA
		{Keys: bson.D{
			{Key: "sku", Value: 1},
			{Key: "status", Value: 1},
			{Key: "eta", Value: 1},
		}},
	})
}

func (a *InventoryAdapter) GetInventoryPosition(ctx context.Context, sku string) (*domain.InventoryPosition, error) {
	var pos domain.InventoryPosition
	err := a.positions.FindOne(ctx, bson.M{"sku": sku}).Decode(&pos)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrUnknownSKU
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read position: %v", domain.ErrAdapterUnavailable, err)
	}
	return &pos, nil
}

func (a *InventoryAdapter) GetInboundShipments(ctx context.Context, sku string) ([]domain.InboundShipment, error) {
	filter := bson.M{"sku": sku, "status": domain.ShipmentStatusInTransit}
	opts := options.Find().SetSort(bson.D{{Key: "eta", Value: 1}, {Key: "shipmentId", Value: 1}})

	cursor, err := a.shipments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: read shipments: %v", domain.ErrAdapterUnavailable, err)
	}
	defer cursor.Close(ctx)

	var shipments []domain.InboundShipment
	if err := cursor.All(ctx, &shipments); err != nil {
		return nil, fmt.Errorf("%w: read shipments: %v", domain.ErrAdapterUnavailable, err)
	}
	return shipments, nil
}

// ExecuteAllocation decrements on-hand and bumps the position version in a
// single filtered update. The version filter makes the commit atomic with
// respect to other commits on the same SKU; a zero match against an existing
// SKU means another allocation got there first.
func (a *InventoryAdapter) ExecuteAllocation(ctx context.Context, result *domain.AllocationResult, onHandDelta int, expectedVersion int64) error {
	filter := bson.M{
		"sku":       result.SKU,
		"version":   expectedVersion,
		"onHandQty": bson.M{"$gte": onHandDelta},
	}
	update := bson.M{
		"$inc": bson.M{"onHandQty": -onHandDelta, "version": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	res, err := a.positions.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: commit allocation: %v", domain.ErrAdapterUnavailable, err)
	}
	if res.MatchedCount == 0 {
		count, err := a.positions.CountDocuments(ctx, bson.M{"sku": result.SKU})
		if err != nil {
			return fmt.Errorf("%w: commit allocation: %v", domain.ErrAdapterUnavailable, err)
		}
		if count == 0 {
			return domain.ErrUnknownSKU
		}
		return domain.ErrConcurrentModification
	}
	return nil
}

// SavePosition upserts a position document; used by seeding and tests
func (a *InventoryAdapter) SavePosition(ctx context.Context, pos *domain.InventoryPosition) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"sku": pos.SKU}
	update := bson.M{"$set": pos}

	if _, err := a.positions.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// SaveShipment upserts a shipment document; used by seeding and tests
func (a *InventoryAdapter) SaveShipment(ctx context.Context, s *domain.InboundShipment) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shipmentId": s.ShipmentID}
	update := bson.M{"$set": s}

	if _, err := a.shipments.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save shipment: %w", err)
	}
	return nil
}

// UpdateShipmentETA moves an open shipment's ETA, keeping it visible to
// candidate selection under the new arrival date
func (a *InventoryAdapter) UpdateShipmentETA(ctx context.Context, shipmentID string, eta time.Time) error {
	filter := bson.M{"shipmentId": shipmentID, "status": domain.ShipmentStatusInTransit}
	update := bson.M{"$set": bson.M{"eta": eta, "updatedAt": time.Now()}}

	res, err := a.shipments.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update shipment eta: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

// MarkShipmentReceived closes an open shipment and folds the received
// quantity into on-hand stock. The version bump makes in-flight allocation
// commits on the SKU retry against the refreshed position.
func (a *InventoryAdapter) MarkShipmentReceived(ctx context.Context, shipmentID string, receivedQty int) error {
	filter := bson.M{"shipmentId": shipmentID, "status": domain.ShipmentStatusInTransit}
	update := bson.M{"$set": bson.M{"status": domain.ShipmentStatusReceived, "updatedAt": time.Now()}}

	var shipment domain.InboundShipment
	err := a.shipments.FindOneAndUpdate(ctx, filter, update).Decode(&shipment)
	if err == mongo.ErrNoDocuments {
		return domain.ErrShipmentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark shipment received: %w", err)
	}

	if receivedQty <= 0 {
		receivedQty = shipment.ExpectedQty
	}
	posUpdate := bson.M{
		"$inc": bson.M{"onHandQty": receivedQty, "version": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	if _, err := a.positions.UpdateOne(ctx, bson.M{"sku": shipment.SKU}, posUpdate); err != nil {
		return fmt.Errorf("failed to apply received quantity: %w", err)
	}
	return nil
}
