package testsuite

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/lesson-booking/pkg/db"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// BaseSuite boots the containers a test suite asks for. Each Setup* call
// is independent; TearDownInfrastructure stops whatever was started.
type BaseSuite struct {
	suite.Suite

	MongoContainer *mongodb.MongoDBContainer
	PgContainer    *postgres.PostgresContainer
	RedisContainer *tcredis.RedisContainer

	Mongo       *db.Mongo
	DbPool      *pgxpool.Pool
	PgURL       string
	RedisClient *redis.Client
	Ctx         context.Context
}

func (s *BaseSuite) skipShort() {
	if testing.Short() {
		s.T().Skip("skipping container tests in -short mode")
	}
	if s.Ctx == nil {
		s.Ctx = context.Background()
	}
}

func (s *BaseSuite) SetupMongo() {
	s.skipShort()

	var err error
	s.MongoContainer, err = mongodb.Run(s.Ctx, "mongo:7")
	s.Require().NoError(err)

	uri, err := s.MongoContainer.ConnectionString(s.Ctx)
	s.Require().NoError(err)

	s.Mongo = db.NewMongo(db.MongoConfig{
		URI:                    uri,
		Database:               "test_db",
		ServerSelectionTimeout: 10 * time.Second,
	}, zap.NewNop())

	_, err = s.Mongo.Init(s.Ctx)
	s.Require().NoError(err)
}

func (s *BaseSuite) SetupPostgres(migrationsRelPath string) {
	s.skipShort()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	s.PgURL, err = s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(db.RunMigrations(s.PgURL, migrationsRelPath))

	s.DbPool, err = db.NewPostgresDB(s.Ctx, s.PgURL, zap.NewNop())
	s.Require().NoError(err)
}

func (s *BaseSuite) SetupRedis() {
	s.skipShort()

	var err error
	s.RedisContainer, err = tcredis.Run(s.Ctx, "redis:7-alpine")
	s.Require().NoError(err)

	uri, err := s.RedisContainer.ConnectionString(s.Ctx)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(uri)
	s.Require().NoError(err)

	s.RedisClient = redis.NewClient(opts)
	s.Require().NoError(s.RedisClient.Ping(s.Ctx).Err())
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.Mongo != nil {
		_ = s.Mongo.Close(s.Ctx)
	}
	if s.RedisClient != nil {
		_ = s.RedisClient.Close()
	}

	if s.PgContainer != nil {
		if err := s.PgContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate postgres container: %v", err)
		}
	}
	if s.MongoContainer != nil {
		if err := s.MongoContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate mongo container: %v", err)
		}
	}
	if s.RedisContainer != nil {
		if err := s.RedisContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate redis container: %v", err)
		}
	}
}

func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s CASCADE", tableName))
	s.Require().NoError(err)
}

func (s *BaseSuite) DropCollection(name string) {
	database, err := s.Mongo.Database()
	s.Require().NoError(err)
	s.Require().NoError(database.Collection(name).Drop(s.Ctx))
}
