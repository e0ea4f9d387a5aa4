package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type pgLessonRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPostgresLessonRepository(pool *pgxpool.Pool, logger *zap.Logger) LessonRepository {
	return &pgLessonRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/lesson_postgres"),
	}
}

const lessonColumns = `id, topic, location, price, space`

func (r *pgLessonRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Lesson, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable(err)
	}

	lessons, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Lesson])
	if err != nil {
		return nil, unavailable(err)
	}
	if lessons == nil {
		lessons = []domain.Lesson{}
	}

	return lessons, nil
}

func (r *pgLessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.List")
	defer span.End()

	lessons, err := r.query(ctx, `SELECT `+lessonColumns+` FROM lessons ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list lessons", zap.Error(err))
		return nil, err
	}

	return lessons, nil
}

func (r *pgLessonRepo) Search(ctx context.Context, query string) ([]domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Search")
	defer span.End()

	span.SetAttributes(attribute.String("query", query))

	if query == "" {
		return r.List(ctx)
	}

	var number *float64
	if n, ok := searchNumber(query); ok {
		number = &n
	}

	// strpos keeps the match literal; LIKE would treat % and _ as wildcards
	sql := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE strpos(lower(topic), lower($1)) > 0
			OR strpos(lower(location), lower($1)) > 0
			OR price = $2::float8
			OR space::float8 = $2::float8
		ORDER BY created_at, id
	`

	lessons, err := r.query(ctx, sql, query, number)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to search lessons", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	return lessons, nil
}

func (r *pgLessonRepo) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	var l domain.Lesson
	err := r.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.Topic, &l.Location, &l.Price, &l.Space)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get lesson", zap.String("id", id), zap.Error(err))
		return nil, unavailable(err)
	}

	return &l, nil
}

func (r *pgLessonRepo) Update(ctx context.Context, id string, patch *domain.LessonPatch) (*domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var args []interface{}
	var updates []string
	argId := 1

	if patch.Topic != nil {
		updates = append(updates, fmt.Sprintf("topic = $%d", argId))
		args = append(args, *patch.Topic)
		argId++
	}
	if patch.Location != nil {
		updates = append(updates, fmt.Sprintf("location = $%d", argId))
		args = append(args, *patch.Location)
		argId++
	}
	if patch.Price != nil {
		updates = append(updates, fmt.Sprintf("price = $%d", argId))
		args = append(args, *patch.Price)
		argId++
	}
	if patch.Space != nil {
		updates = append(updates, fmt.Sprintf("space = $%d", argId))
		args = append(args, *patch.Space)
		argId++
	}

	updates = append(updates, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE lessons SET %s WHERE id = $%d RETURNING `+lessonColumns,
		strings.Join(updates, ", "),
		argId,
	)

	var l domain.Lesson
	err := r.pool.QueryRow(ctx, query, args...).Scan(&l.ID, &l.Topic, &l.Location, &l.Price, &l.Space)
	if errors.Is(err, pgx.ErrNoRows) {
		mylogger.Warn(ctx, r.logger, "Lesson not found", zap.String("lesson_id", id))
		return nil, ErrLessonNotFound
	}
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update lesson", zap.String("id", id), zap.Error(err))
		return nil, unavailable(err)
	}

	return &l, nil
}

func (r *pgLessonRepo) ReserveSpace(ctx context.Context, id string, qty int) error {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.ReserveSpace")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id),
		attribute.Int("quantity", qty),
	)

	query := `
		UPDATE lessons
		SET space = space - $2, updated_at = NOW()
		WHERE id = $1
			AND space >= $2
	`

	commandTag, err := r.pool.Exec(ctx, query, id, qty)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			r.logger,
			"Error reserving space",
			zap.String("id", id),
			zap.Int("quantity", qty),
			zap.Error(err),
		)
		return unavailable(err)
	}

	if commandTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1)`, id).Scan(&exists); err != nil {
		return unavailable(err)
	}
	if !exists {
		return ErrLessonNotFound
	}

	return ErrInsufficientSpace
}

func (r *pgLessonRepo) ReleaseSpace(ctx context.Context, id string, qty int) error {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.ReleaseSpace")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id),
		attribute.Int("quantity", qty),
	)

	query := `
		UPDATE lessons
		SET space = space + $2, updated_at = NOW()
		WHERE id = $1
	`
	commandTag, err := r.pool.Exec(ctx, query, id, qty)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to release space", zap.Error(err))
		return unavailable(err)
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(ctx, r.logger, "Lesson not found", zap.String("lesson_id", id))
		return ErrLessonNotFound
	}

	return nil
}

func (r *pgLessonRepo) Seed(ctx context.Context, lessons []domain.Lesson) (int, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Seed")
	defer span.End()

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lessons`).Scan(&count); err != nil {
		return 0, unavailable(err)
	}
	if count > 0 || len(lessons) == 0 {
		mylogger.Info(ctx, r.logger, "Lessons already seeded", zap.Int64("count", count))
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, unavailable(err)
	}
	defer tx.Rollback(ctx)

	// one statement per row keeps created_at strictly increasing in input order
	for _, l := range lessons {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO lessons (id, topic, location, price, space, created_at)
			 VALUES ($1, $2, $3, $4, $5, clock_timestamp())`,
			l.ID, l.Topic, l.Location, l.Price, l.Space,
		)
		if err != nil {
			span.RecordError(err)
			return 0, unavailable(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, unavailable(err)
	}

	return len(lessons), nil
}

func (r *pgLessonRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}
