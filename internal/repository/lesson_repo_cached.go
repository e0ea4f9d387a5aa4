package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.uber.org/zap"
)

const lessonsListKey = "lessons:list"

func lessonKey(id string) string {
	return fmt.Sprintf("lesson:%s", id)
}

// cachedLessonRepo reads lessons through redis. Every mutation goes to the
// wrapped repository and then drops the affected keys. Redis failures are
// logged and never surface to the caller.
type cachedLessonRepo struct {
	next        LessonRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedLessonRepository(next LessonRepository, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) LessonRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &cachedLessonRepo{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
		logger:      logger,
	}
}

func (r *cachedLessonRepo) get(ctx context.Context, key string, dst any) bool {
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			mylogger.Warn(ctx, r.logger, "Redis get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(val, dst); err != nil {
		mylogger.Warn(ctx, r.logger, "Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		r.redisClient.Del(ctx, key)
		return false
	}

	return true
}

// set is plain cache-aside: a read that loaded v before a concurrent
// invalidate can still write the stale v back after the Del. Such an entry
// lives at most cacheTTL.
func (r *cachedLessonRepo) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := r.redisClient.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
		mylogger.Warn(ctx, r.logger, "Redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *cachedLessonRepo) invalidate(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	if err := r.redisClient.Del(ctx, lessonsListKey, lessonKey(id)).Err(); err != nil {
		mylogger.Warn(ctx, r.logger, "Redis invalidation failed", zap.String("lesson_id", id), zap.Error(err))
	}
}

func (r *cachedLessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	if r.get(ctx, lessonsListKey, &lessons) {
		return lessons, nil
	}

	lessons, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}

	r.set(ctx, lessonsListKey, lessons)
	return lessons, nil
}

func (r *cachedLessonRepo) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	var lesson domain.Lesson
	if r.get(ctx, lessonKey(id), &lesson) {
		return &lesson, nil
	}

	l, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.set(ctx, lessonKey(id), l)
	return l, nil
}

func (r *cachedLessonRepo) Search(ctx context.Context, query string) ([]domain.Lesson, error) {
	return r.next.Search(ctx, query)
}

func (r *cachedLessonRepo) Update(ctx context.Context, id string, patch *domain.LessonPatch) (*domain.Lesson, error) {
	l, err := r.next.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, id)
	return l, nil
}

func (r *cachedLessonRepo) ReserveSpace(ctx context.Context, id string, qty int) error {
	if err := r.next.ReserveSpace(ctx, id, qty); err != nil {
		return err
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *cachedLessonRepo) ReleaseSpace(ctx context.Context, id string, qty int) error {
	if err := r.next.ReleaseSpace(ctx, id, qty); err != nil {
		return err
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *cachedLessonRepo) Seed(ctx context.Context, lessons []domain.Lesson) (int, error) {
	n, err := r.next.Seed(ctx, lessons)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.redisClient.Del(context.WithoutCancel(ctx), lessonsListKey)
	}
	return n, nil
}

func (r *cachedLessonRepo) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
