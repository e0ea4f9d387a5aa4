package repository_test

import (
	"testing"

	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type PostgresSuite struct {
	repositoryContract
}

func (s *PostgresSuite) SetupSuite() {
	s.SetupPostgres("../../migrations")

	logger := zap.NewNop()
	s.Lessons = repository.NewPostgresLessonRepository(s.DbPool, logger)
	s.Orders = repository.NewPostgresOrderRepository(s.DbPool, logger)
	s.reset = func() {
		s.TruncateTable("lessons")
		s.TruncateTable("orders")
	}
}

func (s *PostgresSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *PostgresSuite) TestSpaceNeverNegative() {
	_, err := s.DbPool.Exec(s.Ctx, `UPDATE lessons SET space = -1 WHERE id = 'Art-Hen-70'`)
	s.Require().Error(err)
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}
