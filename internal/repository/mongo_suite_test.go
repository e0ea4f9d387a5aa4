package repository_test

import (
	"testing"

	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type MongoSuite struct {
	repositoryContract
}

func (s *MongoSuite) SetupSuite() {
	s.SetupMongo()

	logger := zap.NewNop()
	s.Lessons = repository.NewMongoLessonRepository(s.Mongo, logger)
	s.Orders = repository.NewMongoOrderRepository(s.Mongo, logger)
	s.reset = func() {
		s.DropCollection("lessons")
		s.DropCollection("orders")
	}
}

func (s *MongoSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *MongoSuite) TestPing() {
	s.Require().NoError(s.Lessons.Ping(s.Ctx))
}

func (s *MongoSuite) TestSeed_CreatesUniqueIndex() {
	database, err := s.Mongo.Database()
	s.Require().NoError(err)

	_, err = database.Collection("lessons").InsertOne(s.Ctx, seedLessons[0])
	s.Require().Error(err, "duplicate lesson id must be rejected")
}

func TestMongoSuite(t *testing.T) {
	suite.Run(t, new(MongoSuite))
}
