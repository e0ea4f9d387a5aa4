package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sakashimaa/lesson-booking/internal/app"
	"github.com/sakashimaa/lesson-booking/internal/seed"
	"github.com/sakashimaa/lesson-booking/pkg/config"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	logger, err := config.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger, app.StoreOptions{})
	if err != nil {
		logger.Fatal("Seed error", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("Error closing store", zap.Error(err))
		}
	}()

	n, err := seed.Run(ctx, store.Lessons, cfg.Seed.File)
	if err != nil {
		logger.Error("Seed error", zap.Error(err))
		return
	}

	if n == 0 {
		logger.Info("Lessons already present, nothing seeded", zap.String("store", store.Name))
		return
	}

	logger.Info("Seeded lessons", zap.Int("count", n), zap.String("store", store.Name))
}
