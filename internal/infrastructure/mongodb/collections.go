package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedmongo "github.com/wms-platform/promising-service/pkg/mongodb"
)

// collection is the subset of driver operations the promising repositories
// issue. Satisfied by *mongo.Collection and by the instrumented
// circuit-breaker collection, so the same repositories serve raw database
// handles in tests and the protected client in production.
type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

var (
	_ collection = (*mongo.Collection)(nil)
	_ collection = (*sharedmongo.CircuitBreakerCollection)(nil)
)
