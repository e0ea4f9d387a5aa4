package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/internal/seed"
	"github.com/sakashimaa/lesson-booking/pkg/config"
	"github.com/sakashimaa/lesson-booking/pkg/db"
	"go.uber.org/zap"
)

// Store bundles the repositories of the configured backend and whatever
// connections they hold.
type Store struct {
	Lessons repository.LessonRepository
	Orders  repository.OrderRepository
	Name    string

	closers []func(context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

type StoreOptions struct {
	// Degraded keeps going when MongoDB is unreachable and reconnects in
	// the background until ctx is done.
	Degraded bool
	// Cache wraps the lesson repository with redis when enabled in config.
	Cache bool
}

func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts StoreOptions) (*Store, error) {
	var (
		store *Store
		err   error
	)

	switch cfg.Store.Driver {
	case config.StoreMongo:
		store, err = openMongo(ctx, cfg, logger, opts.Degraded)
	case config.StorePostgres:
		store, err = openPostgres(ctx, cfg, logger)
	case config.StoreMemory:
		store, err = openMemory(ctx, cfg, logger)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Cache && cfg.Redis.Enabled {
		wrapWithCache(ctx, store, cfg, logger)
	}

	return store, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger *zap.Logger, degraded bool) (*Store, error) {
	conn := db.NewMongo(db.MongoConfig{
		URI:                    cfg.Mongo.URI,
		Database:               cfg.Mongo.Database,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
		SocketTimeout:          cfg.Mongo.SocketTimeout,
	}, logger)

	if _, err := conn.Init(ctx); err != nil {
		if !degraded {
			return nil, err
		}

		logger.Error(
			"MongoDB failed to initialise, serving in degraded mode",
			zap.Error(err),
		)
		logger.Warn("/health will report the Mongo error until it is fixed")

		go func() {
			if err := conn.KeepConnecting(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MongoDB reconnect loop stopped", zap.Error(err))
			}
		}()
	}

	return &Store{
		Lessons: repository.NewMongoLessonRepository(conn, logger),
		Orders:  repository.NewMongoOrderRepository(conn, logger),
		Name:    conn.Name(),
		closers: []func(context.Context) error{conn.Close},
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if err := db.RunMigrations(cfg.Postgres.URL, cfg.Postgres.Migrations); err != nil {
		return nil, err
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL, logger)
	if err != nil {
		return nil, err
	}

	return &Store{
		Lessons: repository.NewPostgresLessonRepository(pool, logger),
		Orders:  repository.NewPostgresOrderRepository(pool, logger),
		Name:    pool.Config().ConnConfig.Database,
		closers: []func(context.Context) error{
			func(context.Context) error {
				pool.Close()
				return nil
			},
		},
	}, nil
}

func openMemory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	store := &Store{
		Lessons: repository.NewMemoryLessonRepository(),
		Orders:  repository.NewMemoryOrderRepository(),
		Name:    config.StoreMemory,
	}

	if _, err := os.Stat(cfg.Seed.File); err != nil {
		logger.Warn("Seed file not found, starting with an empty catalog", zap.String("file", cfg.Seed.File))
		return store, nil
	}

	n, err := seed.Run(ctx, store.Lessons, cfg.Seed.File)
	if err != nil {
		return nil, err
	}

	logger.Info("Seeded in-memory catalog", zap.Int("lessons", n))
	return store, nil
}

func wrapWithCache(ctx context.Context, store *Store, cfg *config.Config, logger *zap.Logger) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, lesson cache disabled", zap.Error(err))
		_ = rdb.Close()
		return
	}

	store.Lessons = repository.NewCachedLessonRepository(store.Lessons, rdb, cfg.Redis.CacheTTL, logger)
	store.closers = append(store.closers, func(context.Context) error {
		return rdb.Close()
	})

	logger.Info("Lesson cache enabled", zap.String("addr", cfg.Redis.Addr))
}
