package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/promising-service/internal/domain"
	mongoRepo "github.com/wms-platform/promising-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/promising-service/pkg/cloudevents"
	"github.com/wms-platform/promising-service/pkg/kafka"
)

// Migration tool: creates the promising collections' indexes, optionally
// creates the Kafka topics, and optionally seeds demo positions, shipments
// and rules for local development.

var (
	mongoURI     = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName       = flag.String("db", "promising", "Database name")
	kafkaBrokers = flag.String("kafka-brokers", "", "Kafka broker address; when set, the promising topics are created")
	seed         = flag.Bool("seed", false, "Seed demo positions, shipments and rules")
)

func main() {
	flag.Parse()

	log.Printf("Starting promising migration...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Seed: %v", *seed)

	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	// Repository constructors create their indexes on startup
	adapter := mongoRepo.NewInventoryAdapter(db)
	mongoRepo.NewLockLedger(db)
	mongoRepo.NewAllocationRepository(db)
	rulesRepo := mongoRepo.NewRulesRepository(db)
	log.Println("Indexes ensured")

	if *kafkaBrokers != "" {
		if err := ensureTopics(*kafkaBrokers); err != nil {
			log.Fatalf("Topic creation failed: %v", err)
		}
		log.Println("Kafka topics ensured")
	}

	if *seed {
		shipments, err := seedDemoData(context.Background(), adapter, rulesRepo)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Demo data seeded")

		// Announce the seeded shipments so a running service ingests them too
		if *kafkaBrokers != "" {
			if err := publishShipmentEvents(context.Background(), *kafkaBrokers, shipments); err != nil {
				log.Fatalf("Shipment event publish failed: %v", err)
			}
			log.Println("Shipment events published")
		}
	}

	log.Println("Migration completed successfully!")
}

// ensureTopics creates the promising topics on the cluster controller.
// Existing topics are reported as TopicAlreadyExists, which is fine.
func ensureTopics(brokers string) error {
	conn, err := kafkago.Dial("tcp", brokers)
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, 0)
	for _, tc := range kafka.DefaultTopicConfigs() {
		topicConfigs = append(topicConfigs, kafkago.TopicConfig{
			Topic:             tc.Name,
			NumPartitions:     tc.Partitions,
			ReplicationFactor: tc.ReplicationFactor,
			ConfigEntries: []kafkago.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(tc.RetentionMs, 10)},
			},
		})
	}
	if err := controllerConn.CreateTopics(topicConfigs...); err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return err
	}
	return nil
}

func seedDemoData(ctx context.Context, adapter *mongoRepo.InventoryAdapter, rulesRepo *mongoRepo.RulesRepository) ([]*domain.InboundShipment, error) {
	now := time.Now()

	positions := []domain.InventoryPosition{
		{SKU: "WIDGET-STD-001", OnHandQty: 120, SafetyStockQty: 20},
		{SKU: "WIDGET-PRM-002", OnHandQty: 15, SafetyStockQty: 10},
		{SKU: "GADGET-OOS-003", OnHandQty: 0, SafetyStockQty: 5},
	}
	for i := range positions {
		if err := adapter.SavePosition(ctx, &positions[i]); err != nil {
			return nil, err
		}
	}

	shipments := []*domain.InboundShipment{
		domain.NewInboundShipment("ship_demo_001", "WIDGET-PRM-002", 50, now.AddDate(0, 0, 3)),
		domain.NewInboundShipment("ship_demo_002", "WIDGET-PRM-002", 80, now.AddDate(0, 0, 10)),
		domain.NewInboundShipment("ship_demo_003", "GADGET-OOS-003", 200, now.AddDate(0, 0, 5)),
	}
	for _, s := range shipments {
		if err := adapter.SaveShipment(ctx, s); err != nil {
			return nil, err
		}
	}

	rules := []*mongoRepo.RuleRecord{
		{RuleName: mongoRepo.RuleBorrowWindowDays, Scope: mongoRepo.ScopeGlobal, Value: "7"},
		{RuleName: mongoRepo.RuleRiskyDepletion, Scope: mongoRepo.ScopeGlobal, Value: "false"},
		{RuleName: mongoRepo.RuleRiskyDepletion, Scope: mongoRepo.ScopeItem, SKU: "WIDGET-PRM-002", Value: "true"},
		{RuleName: mongoRepo.RuleRiskyPriorityClass, Scope: mongoRepo.ScopeItem, SKU: "WIDGET-PRM-002", Value: "HIGH"},
		{RuleName: mongoRepo.RuleMaxPartialFill, Scope: mongoRepo.ScopeGlobal, Value: "true"},
	}
	for _, r := range rules {
		if err := rulesRepo.SaveRule(ctx, r); err != nil {
			return nil, err
		}
	}

	return shipments, nil
}

// publishShipmentEvents emits ShipmentCreated events for the seeded shipments.
// SaveShipment upserts by shipment ID, so the consumer re-ingesting them is harmless.
func publishShipmentEvents(ctx context.Context, brokers string, shipments []*domain.InboundShipment) error {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = []string{brokers}

	producer := kafka.NewProducer(cfg)
	defer producer.Close()

	factory := cloudevents.NewEventFactory(cloudevents.SourceInbound)
	for _, s := range shipments {
		event := factory.CreateShipmentCreatedEvent(ctx, s.ShipmentID, s.SKU, s.ExpectedQty, s.ETA)
		if err := producer.PublishEvent(ctx, kafka.TopicInboundShipments, event); err != nil {
			return err
		}
	}
	return nil
}
