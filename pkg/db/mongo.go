package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	ErrStoreNotInitialized = errors.New("mongo not initialised, call Init first")
	ErrMissingURI          = errors.New("MONGODB_URI is missing, set it in your .env file")
)

type MongoConfig struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

// Mongo owns a single client and the database handle derived from it.
// It replaces a process-wide cached connection: construct one per process
// and inject it wherever a database is needed.
type Mongo struct {
	cfg    MongoConfig
	logger *zap.Logger

	// connectMu serialises connection attempts. mu only guards the
	// published handles, so readers never wait on a dial.
	connectMu sync.Mutex

	mu      sync.RWMutex
	client  *mongo.Client
	db      *mongo.Database
	lastErr error
}

func NewMongo(cfg MongoConfig, logger *zap.Logger) *Mongo {
	if cfg.ServerSelectionTimeout == 0 {
		cfg.ServerSelectionTimeout = 20 * time.Second
	}
	if cfg.SocketTimeout == 0 {
		cfg.SocketTimeout = 30 * time.Second
	}

	return &Mongo{
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects once. Repeated calls return the cached database.
func (m *Mongo) Init(ctx context.Context) (*mongo.Database, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if db, err := m.Database(); err == nil {
		return db, nil
	}

	client, err := m.connect(ctx)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.client = client
	m.db = client.Database(m.cfg.Database)
	m.lastErr = nil
	db := m.db
	m.mu.Unlock()

	m.logger.Info("Connected to MongoDB", zap.String("database", m.cfg.Database))
	return db, nil
}

func (m *Mongo) connect(ctx context.Context) (*mongo.Client, error) {
	if m.cfg.URI == "" {
		return nil, ErrMissingURI
	}

	opts := options.Client().
		ApplyURI(m.cfg.URI).
		SetServerSelectionTimeout(m.cfg.ServerSelectionTimeout).
		SetSocketTimeout(m.cfg.SocketTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return client, nil
}

// KeepConnecting retries Init with exponential backoff until it succeeds or
// ctx is cancelled. A missing URI ends it immediately.
func (m *Mongo) KeepConnecting(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	op := func() error {
		_, err := m.Init(ctx)
		if errors.Is(err, ErrMissingURI) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		m.logger.Warn(
			"MongoDB still unreachable",
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}

	return backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify)
}

func (m *Mongo) Database() (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return nil, m.notInitialized()
	}

	return m.db, nil
}

// notInitialized carries the last connection failure, if any. Callers
// must hold mu.
func (m *Mongo) notInitialized() error {
	if m.lastErr == nil {
		return ErrStoreNotInitialized
	}
	return fmt.Errorf("%w: %w", ErrStoreNotInitialized, m.lastErr)
}

func (m *Mongo) Name() string {
	return m.cfg.Database
}

func (m *Mongo) Ping(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	notInit := m.notInitialized()
	m.mu.RUnlock()

	if client == nil {
		return notInit
	}

	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects and resets the handle so a later Init reconnects.
func (m *Mongo) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	err := m.client.Disconnect(ctx)
	m.client = nil
	m.db = nil

	return err
}
