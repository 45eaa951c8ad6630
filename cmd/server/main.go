package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soundbridge-live/service-bookings/internal/application"
	"github.com/soundbridge-live/service-bookings/internal/auth"
	"github.com/soundbridge-live/service-bookings/internal/config"
	"github.com/soundbridge-live/service-bookings/internal/database"
	bookingDomain "github.com/soundbridge-live/service-bookings/internal/domain/booking"
	bookingEvents "github.com/soundbridge-live/service-bookings/internal/events"
	"github.com/soundbridge-live/service-bookings/internal/handler"
	"github.com/soundbridge-live/service-bookings/internal/health"
	"github.com/soundbridge-live/service-bookings/internal/kafka"
	"github.com/soundbridge-live/service-bookings/internal/logger"
	"github.com/soundbridge-live/service-bookings/internal/middleware"
	"github.com/soundbridge-live/service-bookings/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-bookings")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-bookings",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.ActivityModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTTL,
		cfg.JWT.RefreshTTL,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	activityRepo := repository.NewGormActivityRepository(db)
	summaryRepo := repository.NewGormSummaryRepository(db)

	// Initialize fee and escrow hold policies
	feePolicy := bookingDomain.NewStandardFeePolicyWithRates(
		cfg.Fees.ServiceBps,
		cfg.Fees.VenueBps,
		cfg.Fees.CategoryBps,
	)
	holdPolicy := bookingDomain.NewStandardHoldPolicy(bookingRepo, bookingDomain.HoldPolicyConfig{
		StandardHoldDays:   cfg.Hold.StandardDays,
		TrustedHoldDays:    cfg.Hold.TrustedDays,
		TrustedThreshold:   cfg.Hold.TrustedThreshold,
		CountLookupTimeout: cfg.Hold.LookupTimeout,
	})

	// Initialize notification dispatcher
	dispatcher := bookingEvents.NewKafkaDispatcher(kafkaProducer, cfg.Kafka.NotificationsTopic, log)

	// Initialize application service
	bookingService := application.NewBookingService(
		bookingRepo,
		activityRepo,
		summaryRepo,
		feePolicy,
		holdPolicy,
		dispatcher,
		kafkaProducer,
		cfg.Kafka.EventsTopic,
		log,
	)

	// Initialize and start the notification worker in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.Kafka.GroupPrefix + "booking-notifications"
	notificationWorker := bookingEvents.NewNotificationWorker(
		cfg.Kafka.Brokers,
		groupID,
		cfg.Kafka.NotificationsTopic,
		bookingEvents.NewLogNotifier(log),
		log,
	)
	defer func() { _ = notificationWorker.Close() }()

	go func() {
		log.Info("starting notification worker", zap.String("group_id", groupID))
		if err := notificationWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Error("notification worker error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-bookings")
	healthHandler.RegisterRoutes(router)

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-bookings...")

	// Cancel the worker context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-bookings stopped")
}
