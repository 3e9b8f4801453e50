package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/promising-service/internal/domain"
	sharedmongo "github.com/wms-platform/promising-service/pkg/mongodb"
)

// AllocationRepository persists allocation results as the audit trail
type AllocationRepository struct {
	collection collection
}

func NewAllocationRepository(db *mongo.Database) *AllocationRepository {
	ensureAllocationIndexes(context.Background(), db.Collection("allocations"))
	return &AllocationRepository{collection: db.Collection("allocations")}
}

// NewInstrumentedAllocationRepository routes audit reads and writes through
// the instrumented circuit-breaker collection.
func NewInstrumentedAllocationRepository(client *sharedmongo.CircuitBreakerClient) *AllocationRepository {
	ensureAllocationIndexes(context.Background(), client.Database().Collection("allocations"))
	return &AllocationRepository{collection: client.Collection("allocations")}
}

func ensureAllocationIndexes(ctx context.Context, collection *mongo.Collection) {
	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "orderId", Value: 1},
			{Key: "decidedAt", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "sku", Value: 1},
			{Key: "strategy", Value: 1},
		}},
	})
}

func (r *AllocationRepository) Save(ctx context.Context, result *domain.AllocationResult) error {
	if _, err := r.collection.InsertOne(ctx, result); err != nil {
		return fmt.Errorf("failed to save allocation record: %w", err)
	}
	return nil
}

func (r *AllocationRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.AllocationResult, error) {
	filter := bson.M{"orderId": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "decidedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation records: %w", err)
	}
	defer cursor.Close(ctx)

	var results []domain.AllocationResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to load allocation records: %w", err)
	}
	return results, nil
}

func (r *AllocationRepository) List(ctx context.Context, sku string, limit, offset int64) ([]domain.AllocationResult, int64, error) {
	filter := bson.M{}
	if sku != "" {
		filter["sku"] = sku
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count allocation records: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "decidedAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list allocation records: %w", err)
	}
	defer cursor.Close(ctx)

	var results []domain.AllocationResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("failed to list allocation records: %w", err)
	}
	return results, total, nil
}
