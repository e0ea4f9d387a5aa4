package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sakashimaa/lesson-booking/internal/app"
	"github.com/sakashimaa/lesson-booking/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	fmt.Println("STORE_DRIVER:", cfg.Store.Driver)
	fmt.Println("DB_NAME:", cfg.Mongo.Database)

	logger, err := config.NewLogger(config.LoggerConfig{Level: "warn", Env: cfg.Env})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ServerSelectionTimeout+5*time.Second)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger, app.StoreOptions{})
	if err == nil {
		err = store.Lessons.Ping(ctx)
		_ = store.Close(context.Background())
	}

	if err != nil {
		fmt.Println("connection failed:", err)
		os.Exit(1)
	}

	fmt.Printf("connection to %s successful\n", store.Name)
}
