package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cargoflow/tracking-service/pkg/api"
	"github.com/cargoflow/tracking-service/pkg/cloudevents"
	"github.com/cargoflow/tracking-service/pkg/idempotency"
	"github.com/cargoflow/tracking-service/pkg/kafka"
	"github.com/cargoflow/tracking-service/pkg/logging"
	"github.com/cargoflow/tracking-service/pkg/metrics"
	"github.com/cargoflow/tracking-service/pkg/middleware"
	"github.com/cargoflow/tracking-service/pkg/mongodb"
	"github.com/cargoflow/tracking-service/pkg/outbox"
	"github.com/cargoflow/tracking-service/pkg/tracing"

	"github.com/cargoflow/tracking-service/internal/application"
	"github.com/cargoflow/tracking-service/internal/domain"
	mongoRepo "github.com/cargoflow/tracking-service/internal/infrastructure/mongodb"
	"github.com/cargoflow/tracking-service/internal/infrastructure/notify"
)

const serviceName = "tracking-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting tracking-service API")

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

	// Initialize MongoDB with instrumentation and circuit breaker
	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation and circuit breaker
	producer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTracking)

	// Initialize repository with instrumented client and event factory
	repo := mongoRepo.NewShipmentRepository(mongoClient, eventFactory)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		repo.GetOutboxRepository(),
		producer.Underlying(),
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize change notifier
	notifier := notify.NewKafkaNotifier(producer, eventFactory, logger, m)

	// Initialize application service
	trackingService := application.NewTrackingApplicationService(repo, notifier, m, logger)

	// Initialize idempotency key storage
	idempotencyRepo := idempotency.NewMongoKeyRepository(mongoClient.Database())
	if err := idempotency.InitializeIndexes(ctx, mongoClient.Database()); err != nil {
		logger.WithError(err).Error("Failed to create idempotency indexes")
	}
	idempotencyConfig := idempotency.DefaultConfig(serviceName, idempotencyRepo)
	idempotencyConfig.UserIDExtractor = middleware.GetOperatorID
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry())

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Resolve operator identity from upstream headers
	router.Use(middleware.OperatorAuth(middleware.DefaultOperatorAuthConfig()))

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
	shipments := router.Group("/api/v1/shipments")
	{
		shipments.POST("", idempotency.Middleware(idempotencyConfig), bookShipmentHandler(trackingService, logger))
		shipments.GET("", listShipmentsHandler(trackingService, logger))
		shipments.GET("/:awb", getShipmentHandler(trackingService, logger))
		shipments.GET("/:awb/history", getHistoryHandler(trackingService, logger))
		shipments.PATCH("/:awb", middleware.RequireOperator(), recordEventHandler(trackingService, logger))
		shipments.POST("/:awb/cancel", middleware.RequireOperator(), cancelShipmentHandler(trackingService, logger))
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
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "cargoflow_tracking"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"omitempty,phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country" binding:"omitempty,country_code"`
}

type packageRequest struct {
	WeightKg   float64 `json:"weightKg" binding:"required,gt=0"`
	Dimensions struct {
		Length float64 `json:"length" binding:"gte=0"`
		Width  float64 `json:"width" binding:"gte=0"`
		Height float64 `json:"height" binding:"gte=0"`
	} `json:"dimensions"`
	DeclaredValue float64 `json:"declaredValue" binding:"gte=0"`
	Description   string  `json:"description"`
}

func bookShipmentHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			AWB      string         `json:"awb" binding:"required,awb"`
			Origin   string         `json:"origin" binding:"required"`
			Sender   contactRequest `json:"sender" binding:"required"`
			Receiver contactRequest `json:"receiver" binding:"required"`
			Package  packageRequest `json:"package" binding:"required"`
		}

		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cargoflow.awb": req.AWB,
			"origin":        req.Origin,
		})

		cmd := application.BookShipmentCommand{
			AWB:      req.AWB,
			Origin:   req.Origin,
			Sender:   toContact(req.Sender),
			Receiver: toContact(req.Receiver),
			Package:  toPackage(req.Package),
			BookedBy: middleware.GetOperatorID(c),
		}

		shipment, err := service.BookShipment(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, shipment)
	}
}

func getShipmentHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetShipmentQuery{AWB: c.Param("awb")}

		shipment, err := service.GetShipment(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, shipment)
	}
}

func getHistoryHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetHistoryQuery{AWB: c.Param("awb")}

		history, err := service.GetHistory(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"awb": query.AWB, "history": history})
	}
}

func recordEventHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Status      string `json:"status" binding:"required,shipment_status"`
			Location    string `json:"location" binding:"required"`
			Description string `json:"description" binding:"required"`
		}

		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		awb := c.Param("awb")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cargoflow.awb": awb,
			"status":        req.Status,
		})

		cmd := application.RecordTrackingEventCommand{
			AWB:         awb,
			Status:      req.Status,
			Location:    req.Location,
			Description: req.Description,
			RecordedBy:  middleware.GetOperatorID(c),
		}

		shipment, err := service.RecordTrackingEvent(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, shipment)
	}
}

func cancelShipmentHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Reason string `json:"reason"`
		}
		// Empty body is allowed; a default reason applies
		_ = c.ShouldBindJSON(&req)

		awb := c.Param("awb")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"cargoflow.awb": awb,
		})

		cmd := application.CancelShipmentCommand{
			AWB:         awb,
			Reason:      req.Reason,
			CancelledBy: middleware.GetOperatorID(c),
		}

		shipment, err := service.CancelShipment(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, shipment)
	}
}

func listShipmentsHandler(service *application.TrackingApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pagination := api.ParsePagination(c)
		query := application.ListByStatusQuery{
			Status:   c.Query("status"),
			Page:     int(pagination.Page),
			PageSize: int(pagination.PageSize),
		}

		list, err := service.ListByStatus(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(list.Items, int64(list.Page), int64(list.PageSize), list.Total))
	}
}

func toContact(req contactRequest) domain.Contact {
	return domain.Contact{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
		Country: req.Country,
	}
}

func toPackage(req packageRequest) domain.PackageDetails {
	return domain.PackageDetails{
		WeightKg: req.WeightKg,
		Dimensions: domain.Dimensions{
			Length: req.Dimensions.Length,
			Width:  req.Dimensions.Width,
			Height: req.Dimensions.Height,
		},
		DeclaredValue: req.DeclaredValue,
		Description:   req.Description,
	}
}
