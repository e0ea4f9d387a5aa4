package repository

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/sakashimaa/lesson-booking/internal/domain"
)

type LessonRepository interface {
	List(ctx context.Context) ([]domain.Lesson, error)
	GetByID(ctx context.Context, id string) (*domain.Lesson, error)
	Search(ctx context.Context, query string) ([]domain.Lesson, error)
	Update(ctx context.Context, id string, patch *domain.LessonPatch) (*domain.Lesson, error)
	ReserveSpace(ctx context.Context, id string, qty int) error
	ReleaseSpace(ctx context.Context, id string, qty int) error
	Seed(ctx context.Context, lessons []domain.Lesson) (int, error)
	Ping(ctx context.Context) error
}

// searchNumber reports whether query is a finite number, in which case
// search also matches price and space by equality.
func searchNumber(query string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(query), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
