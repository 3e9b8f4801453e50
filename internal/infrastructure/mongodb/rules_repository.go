package mongodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/promising-service/internal/domain"
	sharedmongo "github.com/wms-platform/promising-service/pkg/mongodb"
)

// Rule names resolved per SKU
const (
	RuleBorrowWindowDays   = "REPLENISH_WINDOW_DAYS"
	RuleRiskyDepletion     = "ALLOW_RISKY_DEPLETION"
	RuleRiskyPriorityClass = "RISKY_PRIORITY_CLASS"
	RuleMaxPartialFill     = "MAX_PARTIAL_FILL"
)

// Rule scopes
const (
	ScopeItem   = "ITEM"
	ScopeGlobal = "GLOBAL"
)

// RuleRecord is one configured rule value. ITEM-scoped records may carry a
// validity window; GLOBAL records apply to every SKU.
type RuleRecord struct {
	RuleName  string     `bson:"ruleName" json:"ruleName"`
	Scope     string     `bson:"scope" json:"scope"`
	SKU       string     `bson:"sku,omitempty" json:"sku,omitempty"`
	StartDate *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate   *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Value     string     `bson:"value" json:"value"`
}

// activeOn reports whether a dated record's validity window contains the day
func (r *RuleRecord) activeOn(day time.Time) bool {
	if r.StartDate != nil && day.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && day.After(*r.EndDate) {
		return false
	}
	return true
}

func (r *RuleRecord) dated() bool {
	return r.StartDate != nil || r.EndDate != nil
}

// RulesRepository resolves business rules from MongoDB with the precedence
// dated ITEM rule > undated ITEM rule > GLOBAL rule, per rule name. SKUs
// with no configuration fall back to defaults.
type RulesRepository struct {
	collection collection
	now        func() time.Time
}

func NewRulesRepository(db *mongo.Database) *RulesRepository {
	ensureRuleIndexes(context.Background(), db)
	return &RulesRepository{
		collection: db.Collection("business_rules"),
		now:        time.Now,
	}
}

// NewInstrumentedRulesRepository routes rule resolution through the
// instrumented circuit-breaker collection.
func NewInstrumentedRulesRepository(client *sharedmongo.CircuitBreakerClient) *RulesRepository {
	ensureRuleIndexes(context.Background(), client.Database())
	return &RulesRepository{
		collection: client.Collection("business_rules"),
		now:        time.Now,
	}
}

func ensureRuleIndexes(ctx context.Context, db *mongo.Database) {
	db.Collection("business_rules").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "ruleName", Value: 1},
			{Key: "sku", Value: 1},
		}},
		{Keys: bson.D{{Key: "scope", Value: 1}}},
	})
}

func (r *RulesRepository) GetRules(ctx context.Context, sku string, priority domain.Priority) (*domain.BusinessRules, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sku": sku, "scope": ScopeItem},
		bson.M{"scope": ScopeGlobal},
	}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	defer cursor.Close(ctx)

	var records []RuleRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	rules := domain.DefaultRules(sku)
	today := r.now()

	if v, ok := r.resolve(records, RuleBorrowWindowDays, today); ok {
		if days, err := strconv.Atoi(v); err == nil {
			rules.BorrowWindowDays = days
		}
	}
	if v, ok := r.resolve(records, RuleRiskyDepletion, today); ok {
		rules.RiskyDepletionEnabled = strings.EqualFold(v, "true")
	}
	if v, ok := r.resolve(records, RuleRiskyPriorityClass, today); ok {
		if p := domain.Priority(strings.ToUpper(v)); p.IsValid() {
			rules.PriorityClass = p
		}
	}
	if v, ok := r.resolve(records, RuleMaxPartialFill, today); ok {
		rules.MaxPartialFill = strings.EqualFold(v, "true")
	}
	return rules, nil
}

// resolve applies the precedence chain for one rule name
func (r *RulesRepository) resolve(records []RuleRecord, ruleName string, today time.Time) (string, bool) {
	for _, rec := range records {
		if rec.RuleName == ruleName && rec.Scope == ScopeItem && rec.dated() && rec.activeOn(today) {
			return rec.Value, true
		}
	}
	for _, rec := range records {
		if rec.RuleName == ruleName && rec.Scope == ScopeItem && !rec.dated() {
			return rec.Value, true
		}
	}
	for _, rec := range records {
		if rec.RuleName == ruleName && rec.Scope == ScopeGlobal {
			return rec.Value, true
		}
	}
	return "", false
}

// SaveRule upserts a rule record; used by seeding
func (r *RulesRepository) SaveRule(ctx context.Context, record *RuleRecord) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"ruleName": record.RuleName, "scope": record.Scope, "sku": record.SKU}
	update := bson.M{"$set": record}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}
