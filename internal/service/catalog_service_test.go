package service_test

import (
	"context"
	"testing"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalog() (service.CatalogService, repository.LessonRepository) {
	repo := repository.NewMemoryLessonRepository(
		domain.Lesson{ID: "Art-Hen-70", Topic: "Art", Location: "Hendon", Price: 70, Space: 5},
		domain.Lesson{ID: "Math-Lon-100", Topic: "Math", Location: "London", Price: 100, Space: 5},
	)
	return service.NewCatalogService(repo, zap.NewNop()), repo
}

func TestUpdateLesson_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		fields map[string]any
		kind   error
		field  string
	}{
		{"empty id", "", map[string]any{"space": 1.0}, service.ErrInvalidField, "id"},
		{"different body id", "Art-Hen-70", map[string]any{"id": "Other"}, service.ErrInvalidField, "id"},
		{"non string body id", "Art-Hen-70", map[string]any{"id": 7.0}, service.ErrInvalidField, "id"},
		{"space and spaces", "Art-Hen-70", map[string]any{"space": 1.0, "spaces": 2.0}, service.ErrInvalidField, "spaces"},
		{"unknown key", "Art-Hen-70", map[string]any{"instructor": "x"}, service.ErrInvalidField, "instructor"},
		{"first unknown key in order", "Art-Hen-70", map[string]any{"zeta": 1.0, "alpha": 1.0, "space": 1.0}, service.ErrInvalidField, "alpha"},
		{"string price", "Art-Hen-70", map[string]any{"price": "10"}, service.ErrInvalidType, "price"},
		{"negative price", "Art-Hen-70", map[string]any{"price": -1.0}, service.ErrInvalidType, "price"},
		{"string space", "Art-Hen-70", map[string]any{"space": "3"}, service.ErrInvalidType, "space"},
		{"fractional space", "Art-Hen-70", map[string]any{"space": 1.5}, service.ErrInvalidType, "space"},
		{"negative space", "Art-Hen-70", map[string]any{"space": -2.0}, service.ErrInvalidType, "space"},
		{"fractional spaces", "Art-Hen-70", map[string]any{"spaces": 0.5}, service.ErrInvalidType, "space"},
		{"numeric topic", "Art-Hen-70", map[string]any{"topic": 5.0}, service.ErrInvalidType, "topic"},
		{"null location", "Art-Hen-70", map[string]any{"location": nil}, service.ErrInvalidType, "location"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			catalog, repo := newCatalog()

			lesson, err := catalog.UpdateLesson(context.Background(), tc.id, tc.fields)
			require.Nil(t, lesson)
			require.ErrorIs(t, err, tc.kind)

			var svcErr *service.Error
			require.ErrorAs(t, err, &svcErr)
			require.Equal(t, tc.field, svcErr.Field)

			unchanged, err := repo.GetByID(context.Background(), "Art-Hen-70")
			require.NoError(t, err)
			require.Equal(t, 5, unchanged.Space)
			require.Equal(t, 70.0, unchanged.Price)
		})
	}
}

func TestUpdateLesson_AppliesPatch(t *testing.T) {
	catalog, _ := newCatalog()
	ctx := context.Background()

	lesson, err := catalog.UpdateLesson(ctx, "Art-Hen-70", map[string]any{
		"id":       "Art-Hen-70",
		"topic":    "Fine Art",
		"location": "Hendon Campus",
		"price":    72.5,
		"space":    9.0,
	})
	require.NoError(t, err)
	require.Equal(t, domain.Lesson{
		ID:       "Art-Hen-70",
		Topic:    "Fine Art",
		Location: "Hendon Campus",
		Price:    72.5,
		Space:    9,
	}, *lesson)
}

func TestUpdateLesson_SpacesSynonym(t *testing.T) {
	catalog, _ := newCatalog()

	fields := map[string]any{"spaces": 4.0}
	lesson, err := catalog.UpdateLesson(context.Background(), "Art-Hen-70", fields)
	require.NoError(t, err)
	require.Equal(t, 4, lesson.Space)
	require.Equal(t, map[string]any{"spaces": 4.0}, fields, "caller input must not be modified")
}

func TestUpdateLesson_ZeroSpaceAllowed(t *testing.T) {
	catalog, _ := newCatalog()

	lesson, err := catalog.UpdateLesson(context.Background(), "Art-Hen-70", map[string]any{"space": 0.0, "price": 0.0})
	require.NoError(t, err)
	require.Equal(t, 0, lesson.Space)
	require.Equal(t, 0.0, lesson.Price)
}

func TestUpdateLesson_EmptyPatchReturnsCurrent(t *testing.T) {
	catalog, _ := newCatalog()

	lesson, err := catalog.UpdateLesson(context.Background(), "Art-Hen-70", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, 5, lesson.Space)
}

func TestUpdateLesson_NotFound(t *testing.T) {
	catalog, _ := newCatalog()

	_, err := catalog.UpdateLesson(context.Background(), "Ghost-1", map[string]any{"space": 1.0})
	require.ErrorIs(t, err, service.ErrLessonNotFound)
	require.NotErrorIs(t, err, service.ErrInvalidField)
}

func TestListLessons_Idempotent(t *testing.T) {
	catalog, _ := newCatalog()
	ctx := context.Background()

	first, err := catalog.ListLessons(ctx)
	require.NoError(t, err)
	second, err := catalog.ListLessons(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 2)
	require.Equal(t, "Art-Hen-70", first[0].ID)
}

func TestSearchLessons(t *testing.T) {
	catalog, _ := newCatalog()
	ctx := context.Background()

	res, err := catalog.SearchLessons(ctx, "  lond ")
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "Math-Lon-100", res[0].ID)

	res, err = catalog.SearchLessons(ctx, "70")
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "Art-Hen-70", res[0].ID)

	res, err = catalog.SearchLessons(ctx, "")
	require.NoError(t, err)
	require.Len(t, res, 2)

	res, err = catalog.SearchLessons(ctx, "(")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestGetLesson_NotFound(t *testing.T) {
	catalog, _ := newCatalog()

	_, err := catalog.GetLesson(context.Background(), "Ghost-1")
	require.ErrorIs(t, err, service.ErrLessonNotFound)
}
