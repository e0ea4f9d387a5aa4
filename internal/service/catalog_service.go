package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListLessons(ctx context.Context) ([]domain.Lesson, error)
	SearchLessons(ctx context.Context, query string) ([]domain.Lesson, error)
	GetLesson(ctx context.Context, id string) (*domain.Lesson, error)
	UpdateLesson(ctx context.Context, id string, fields map[string]any) (*domain.Lesson, error)
	Ping(ctx context.Context) error
}

type catalogService struct {
	lessonRepo repository.LessonRepository
	logger     *zap.Logger
}

func NewCatalogService(lessonRepo repository.LessonRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		lessonRepo: lessonRepo,
		logger:     logger,
	}
}

func (s *catalogService) ListLessons(ctx context.Context) ([]domain.Lesson, error) {
	return s.lessonRepo.List(ctx)
}

func (s *catalogService) SearchLessons(ctx context.Context, query string) ([]domain.Lesson, error) {
	return s.lessonRepo.Search(ctx, strings.TrimSpace(query))
}

func (s *catalogService) GetLesson(ctx context.Context, id string) (*domain.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrLessonNotFound) {
		return nil, &Error{Kind: ErrLessonNotFound, LessonID: id}
	}
	return lesson, err
}

func (s *catalogService) Ping(ctx context.Context) error {
	return s.lessonRepo.Ping(ctx)
}

var lessonFields = map[string]bool{
	"topic":    true,
	"location": true,
	"price":    true,
	"space":    true,
}

func (s *catalogService) UpdateLesson(ctx context.Context, id string, fields map[string]any) (*domain.Lesson, error) {
	patch, err := parseLessonPatch(id, fields)
	if err != nil {
		mylogger.Debug(ctx, s.logger, "Rejected lesson update", zap.String("lesson_id", id), zap.Error(err))
		return nil, err
	}

	lesson, err := s.lessonRepo.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrLessonNotFound) {
		return nil, &Error{Kind: ErrLessonNotFound, LessonID: id}
	}
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to update lesson", zap.String("lesson_id", id), zap.Error(err))
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Lesson updated", zap.String("lesson_id", id))
	return lesson, nil
}

// parseLessonPatch projects untrusted input onto the allow-listed lesson
// fields. fields is not modified.
func parseLessonPatch(id string, fields map[string]any) (*domain.LessonPatch, error) {
	if id == "" {
		return nil, newError(ErrInvalidField, "id", `Missing "id" parameter in URL`)
	}

	body := make(map[string]any, len(fields))
	for k, v := range fields {
		body[k] = v
	}

	if v, ok := body["id"]; ok {
		if s, isString := v.(string); !isString || s != id {
			return nil, newError(ErrInvalidField, "id", `Field "id" cannot be changed`)
		}
		delete(body, "id")
	}

	if v, ok := body["spaces"]; ok {
		if _, both := body["space"]; both {
			return nil, newError(ErrInvalidField, "spaces", `Fields "space" and "spaces" are mutually exclusive`)
		}
		body["space"] = v
		delete(body, "spaces")
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !lessonFields[k] {
			return nil, newError(ErrInvalidField, k, fmt.Sprintf("Field %q not allowed", k))
		}
	}

	patch := &domain.LessonPatch{}

	if v, ok := body["topic"]; ok {
		topic, isString := v.(string)
		if !isString {
			return nil, newError(ErrInvalidType, "topic", "topic must be a string")
		}
		patch.Topic = &topic
	}

	if v, ok := body["location"]; ok {
		location, isString := v.(string)
		if !isString {
			return nil, newError(ErrInvalidType, "location", "location must be a string")
		}
		patch.Location = &location
	}

	if v, ok := body["price"]; ok {
		price, isNumber := asNumber(v)
		if !isNumber || price < 0 {
			return nil, newError(ErrInvalidType, "price", "price must be a non-negative number")
		}
		patch.Price = &price
	}

	if v, ok := body["space"]; ok {
		n, isNumber := asNumber(v)
		if !isNumber || n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			return nil, newError(ErrInvalidType, "space", "space must be a non-negative whole number")
		}
		space := int(n)
		patch.Space = &space
	}

	return patch, nil
}

func asNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
