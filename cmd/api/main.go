package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sakashimaa/lesson-booking/internal/app"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/internal/service"
	transport "github.com/sakashimaa/lesson-booking/internal/transport/http"
	"github.com/sakashimaa/lesson-booking/internal/transport/http/handler"
	"github.com/sakashimaa/lesson-booking/pkg/config"
	"github.com/sakashimaa/lesson-booking/pkg/kafka"
	"github.com/sakashimaa/lesson-booking/pkg/metrics"
	"github.com/sakashimaa/lesson-booking/pkg/outbox/worker"
	"github.com/sakashimaa/lesson-booking/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := utils.InitTracer(ctx, utils.TracerConfig{
			ServiceName: "lesson-booking",
			Endpoint:    cfg.Tracing.Endpoint,
			Env:         cfg.Env,
		})
		if err != nil {
			logger.Fatal("Failed to init tracer", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down telemetry", zap.Error(err))
			}
		}()
	}

	m := metrics.New("lesson_booking")

	store, err := app.OpenStore(ctx, cfg, logger, app.StoreOptions{Degraded: true, Cache: true})
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("Error closing store", zap.Error(err))
		}
	}()

	catalog := service.NewCatalogService(store.Lessons, logger)
	orders := service.NewOrderService(store.Lessons, store.Orders, logger, service.WithMetrics(m))

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("Failed to create kafka producer", zap.Error(err))
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("Error closing kafka producer", zap.Error(err))
			}
		}()

		processor := worker.NewOutboxProcessor(
			repository.NewOrderOutbox(store.Orders, cfg.Kafka.Topic),
			producer,
			logger,
		)
		go processor.Start(ctx)
	} else {
		logger.Info("No kafka brokers configured, order events are not published")
	}

	fiberApp := transport.NewApp(transport.AppConfig{
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		LimiterMax:   cfg.Limiter.Max,
		LimiterReset: cfg.Limiter.Expiration,
	}, logger, m)

	handlers := &transport.Handlers{
		Lesson: handler.NewLessonHandler(catalog, logger, cfg.HTTP.Timeout),
		Order:  handler.NewOrderHandler(orders, logger, cfg.HTTP.Timeout),
		Image:  handler.NewImageHandler(cfg.HTTP.ImagesDir, logger),
		Health: handler.NewHealthHandler(catalog, store.Name, logger, cfg.HTTP.Timeout),
	}
	transport.RegisterRoutes(fiberApp, handlers, m)

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HTTP.Port), zap.String("store", cfg.Store.Driver))
		if err := fiberApp.Listen(cfg.HTTP.Port); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownTimeout := utils.ParseDurationWithFallback("SHUTDOWN_TIMEOUT", 5*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP app", zap.Error(err))
	} else {
		logger.Info("HTTP app stopped gracefully")
	}
}
