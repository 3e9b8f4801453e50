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

// LockLedger persists shipment locks in MongoDB. The unlocked counter lives
// on the shipment document and is decremented with a $gte-guarded update, so
// two concurrent locks can never reserve the same unit.
type LockLedger struct {
	locks     collection
	shipments collection
}

func NewLockLedger(db *mongo.Database) *LockLedger {
	ensureLockIndexes(context.Background(), db)
	return &LockLedger{
		locks:     db.Collection("replenishment_locks"),
		shipments: db.Collection("inbound_shipments"),
	}
}

// NewInstrumentedLockLedger routes ledger access through the instrumented
// circuit-breaker collections.
func NewInstrumentedLockLedger(client *sharedmongo.CircuitBreakerClient) *LockLedger {
	ensureLockIndexes(context.Background(), client.Database())
	return &LockLedger{
		locks:     client.Collection("replenishment_locks"),
		shipments: client.Collection("inbound_shipments"),
	}
}

func ensureLockIndexes(ctx context.Context, db *mongo.Database) {
	db.Collection("replenishment_locks").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lockId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "shipmentId", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
	})
}

// Lock reserves quantity on a shipment. The guarded decrement re-validates
// the remaining unlocked quantity at the instant of the call; the earlier
// evaluation read is never trusted.
func (l *LockLedger) Lock(ctx context.Context, orderID, shipmentID, sku string, qty int) (*domain.Lock, error) {
	now := time.Now()
	filter := bson.M{
		"shipmentId":           shipmentID,
		"remainingUnlockedQty": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"remainingUnlockedQty": -qty},
		"$set": bson.M{"updatedAt": now},
	}

	res, err := l.shipments.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve shipment quantity: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrInsufficientUnlockedQty
	}

	lock := domain.NewLock(orderID, shipmentID, sku, qty, now)
	if _, err := l.locks.InsertOne(ctx, lock); err != nil {
		// Undo the reservation so the shipment's counter stays consistent
		l.shipments.UpdateOne(ctx, bson.M{"shipmentId": shipmentID},
			bson.M{"$inc": bson.M{"remainingUnlockedQty": qty}})
		return nil, fmt.Errorf("failed to persist lock: %w", err)
	}
	return lock, nil
}

// Release repays a lock, restoring the shipment's unlocked quantity. Only
// an active lock can be released; a second release is reported distinctly
// so repayment is never double-counted.
func (l *LockLedger) Release(ctx context.Context, lockID string) (*domain.Lock, error) {
	now := time.Now()
	filter := bson.M{"lockId": lockID, "status": domain.LockStatusActive}
	update := bson.M{"$set": bson.M{
		"status":     domain.LockStatusReleased,
		"releasedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var lock domain.Lock
	err := l.locks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lock)
	if err == mongo.ErrNoDocuments {
		count, countErr := l.locks.CountDocuments(ctx, bson.M{"lockId": lockID})
		if countErr != nil {
			return nil, fmt.Errorf("failed to release lock: %w", countErr)
		}
		if count == 0 {
			return nil, domain.ErrLockNotFound
		}
		return nil, domain.ErrLockAlreadyReleased
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release lock: %w", err)
	}

	if _, err := l.shipments.UpdateOne(ctx, bson.M{"shipmentId": lock.ShipmentID},
		bson.M{"$inc": bson.M{"remainingUnlockedQty": lock.LockedQty}, "$set": bson.M{"updatedAt": now}}); err != nil {
		return nil, fmt.Errorf("failed to restore shipment quantity: %w", err)
	}
	return &lock, nil
}

func (l *LockLedger) GetLock(ctx context.Context, lockID string) (*domain.Lock, error) {
	var lock domain.Lock
	err := l.locks.FindOne(ctx, bson.M{"lockId": lockID}).Decode(&lock)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrLockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lock: %w", err)
	}
	return &lock, nil
}

func (l *LockLedger) ActiveLocksForShipment(ctx context.Context, shipmentID string) ([]domain.Lock, error) {
	filter := bson.M{"shipmentId": shipmentID, "status": domain.LockStatusActive}

	cursor, err := l.locks.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load locks: %w", err)
	}
	defer cursor.Close(ctx)

	var locks []domain.Lock
	if err := cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to load locks: %w", err)
	}
	return locks, nil
}
