package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/promising-service/pkg/api"
	"github.com/wms-platform/promising-service/pkg/cloudevents"
	"github.com/wms-platform/promising-service/pkg/errors"
	"github.com/wms-platform/promising-service/pkg/kafka"
	"github.com/wms-platform/promising-service/pkg/logging"
	"github.com/wms-platform/promising-service/pkg/metrics"
	"github.com/wms-platform/promising-service/pkg/middleware"
	"github.com/wms-platform/promising-service/pkg/mongodb"
	"github.com/wms-platform/promising-service/pkg/resilience"
	"github.com/wms-platform/promising-service/pkg/tracing"

	"github.com/wms-platform/promising-service/internal/application"
	"github.com/wms-platform/promising-service/internal/domain"
	"github.com/wms-platform/promising-service/internal/infrastructure/guard"
	mongoRepo "github.com/wms-platform/promising-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/promising-service/internal/infrastructure/rules"
	"github.com/wms-platform/promising-service/internal/ingest"
)

const serviceName = "promising-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting promising-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB behind instrumentation and a circuit breaker. The
	// database may still be coming up when the service starts, so the first
	// connection is retried with backoff.
	connectRetry := resilience.DefaultRetryConfig()
	connectRetry.MaxAttempts = 5
	connectRetry.MaxDelay = 10 * time.Second
	connectRetry.RetryableErrors = func(error) bool { return true }
	mongoClient, err := resilience.RetryWithResult(ctx, connectRetry, func() (*mongodb.CircuitBreakerClient, error) {
		return mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer behind instrumentation and a circuit breaker
	kafkaProducer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourcePromising)

	// Initialize the inventory adapter; the guard re-maps transport failures
	// so they never read as business rejections
	inventoryAdapter := mongoRepo.NewInstrumentedInventoryAdapter(mongoClient)
	guardedAdapter := guard.NewAdapter(inventoryAdapter, logger.Logger)

	// Lock ledger and audit trail
	lockLedger := mongoRepo.NewInstrumentedLockLedger(mongoClient)
	allocationRepo := mongoRepo.NewInstrumentedAllocationRepository(mongoClient)

	// Business rules: a YAML file takes precedence over the rules collection
	var rulesProvider domain.RulesProvider
	if config.RulesFile != "" {
		yamlProvider, err := rules.NewYAMLProvider(config.RulesFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load rules file", "path", config.RulesFile)
			os.Exit(1)
		}
		rulesProvider = yamlProvider
		logger.Info("Rules loaded from file", "path", config.RulesFile)
	} else {
		rulesProvider = mongoRepo.NewInstrumentedRulesRepository(mongoClient)
		logger.Info("Rules resolved from MongoDB")
	}

	// Initialize application service
	promisingService := application.NewPromisingApplicationService(
		guardedAdapter,
		rulesProvider,
		lockLedger,
		allocationRepo,
		kafkaProducer,
		eventFactory,
		m,
		logger,
	)

	// Project inbound shipment lifecycle events into the local read model
	if config.ConsumeShipments {
		kafkaConsumer := kafka.NewProductionConsumer(config.Kafka, m, logger)
		defer kafkaConsumer.Close()

		shipmentConsumer := ingest.NewShipmentConsumer(inventoryAdapter, logger)
		shipmentConsumer.Register(kafkaConsumer)

		consumerCtx, cancelConsumer := context.WithCancel(ctx)
		defer cancelConsumer()
		go func() {
			if err := kafkaConsumer.Start(consumerCtx); err != nil {
				logger.WithError(err).Error("Shipment consumer stopped")
			}
		}()
		logger.Info("Shipment consumer started", "topic", kafka.TopicInboundShipments)
	}

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Propagate order promising headers into handler context
	router.Use(middleware.CloudEvents())

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	apiGroup := router.Group("/api/v1/promising")
	{
		apiGroup.POST("/allocate", allocateHandler(promisingService, logger))
		apiGroup.POST("/locks/:lockId/release", releaseLockHandler(promisingService, logger))
		apiGroup.GET("/allocations", listAllocationsHandler(promisingService, logger))
		apiGroup.GET("/allocations/:orderId", getAllocationsHandler(promisingService, logger))
		apiGroup.GET("/positions/:sku", getPositionHandler(promisingService, logger))
		apiGroup.GET("/positions/:sku/shipments", getShipmentsHandler(promisingService, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr       string
	RulesFile        string
	ConsumeShipments bool
	MongoDB          *mongodb.Config
	Kafka            *kafka.Config
}

func loadConfig() *Config {
	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = getEnv("MONGODB_URI", mongoCfg.URI)
	mongoCfg.Database = getEnv("MONGODB_DATABASE", mongoCfg.Database)

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = []string{getEnv("KAFKA_BROKERS", kafkaCfg.Brokers[0])}

	return &Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":8010"),
		RulesFile:        getEnv("RULES_FILE", ""),
		ConsumeShipments: getEnv("SHIPMENT_CONSUMER_ENABLED", "true") == "true",
		MongoDB:          mongoCfg,
		Kafka:            kafkaCfg,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func allocateHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			OrderID  string     `json:"orderId" binding:"required,order_id"`
			SKU      string     `json:"sku" binding:"required,sku"`
			Qty      int        `json:"qty" binding:"required,gte=1"`
			Priority string     `json:"priority" binding:"omitempty,priority"`
			DueDate  *time.Time `json:"dueDate"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.AllocateCommand{
			OrderID:  req.OrderID,
			SKU:      req.SKU,
			Qty:      req.Qty,
			Priority: req.Priority,
			DueDate:  req.DueDate,
		}

		result, err := service.Allocate(c.Request.Context(), cmd)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondWithError(err)
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func releaseLockHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.ReleaseLockCommand{LockID: c.Param("lockId")}

		lock, err := service.ReleaseLock(c.Request.Context(), cmd)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondWithError(err)
			}
			return
		}

		c.JSON(http.StatusOK, lock)
	}
}

func getAllocationsHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetAllocationsQuery{OrderID: c.Param("orderId")}

		results, err := service.GetAllocations(c.Request.Context(), query)
		if err != nil {
			responder.RespondInternalError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":     query.OrderID,
			"allocations": results,
			"count":       len(results),
		})
	}
}

func listAllocationsHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		query := application.ListAllocationsQuery{
			SKU:    c.Query("sku"),
			Limit:  page.GetLimit(),
			Offset: page.GetOffset(),
		}

		results, total, err := service.ListAllocations(c.Request.Context(), query)
		if err != nil {
			responder.RespondInternalError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(results, page.Page, page.PageSize, total))
	}
}

func getPositionHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetPositionQuery{SKU: c.Param("sku")}

		position, err := service.GetPosition(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondWithError(err)
			}
			return
		}

		c.JSON(http.StatusOK, position)
	}
}

func getShipmentsHandler(service *application.PromisingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetPositionQuery{SKU: c.Param("sku")}

		shipments, err := service.GetShipments(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondWithError(err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"sku":       query.SKU,
			"shipments": shipments,
			"count":     len(shipments),
		})
	}
}
