package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/sakashimaa/lesson-booking/internal/domain"
)

const memoryStripes = 64

// memoryLessonRepo keeps lessons in process. mu guards the index, each
// lesson's fields are guarded by its stripe in locks. Lock order is always
// mu first, then the stripe.
type memoryLessonRepo struct {
	mu      sync.RWMutex
	order   []string
	lessons map[string]*domain.Lesson
	locks   *stripedLock
}

func NewMemoryLessonRepository(lessons ...domain.Lesson) LessonRepository {
	r := &memoryLessonRepo{
		lessons: make(map[string]*domain.Lesson),
		locks:   newStripedLock(memoryStripes),
	}
	r.insert(lessons)
	return r
}

func (r *memoryLessonRepo) insert(lessons []domain.Lesson) int {
	inserted := 0
	for _, l := range lessons {
		if _, ok := r.lessons[l.ID]; ok {
			continue
		}
		lesson := l
		r.lessons[l.ID] = &lesson
		r.order = append(r.order, l.ID)
		inserted++
	}
	return inserted
}

func (r *memoryLessonRepo) snapshot(id string) (domain.Lesson, bool) {
	l, ok := r.lessons[id]
	if !ok {
		return domain.Lesson{}, false
	}

	m := r.locks.forKey(id)
	m.Lock()
	defer m.Unlock()

	return *l, true
}

func (r *memoryLessonRepo) filter(ctx context.Context, match func(domain.Lesson) bool) ([]domain.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	lessons := make([]domain.Lesson, 0, len(r.order))
	for _, id := range r.order {
		l, _ := r.snapshot(id)
		if match == nil || match(l) {
			lessons = append(lessons, l)
		}
	}

	return lessons, nil
}

func (r *memoryLessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	return r.filter(ctx, nil)
}

func (r *memoryLessonRepo) Search(ctx context.Context, query string) ([]domain.Lesson, error) {
	if query == "" {
		return r.List(ctx)
	}

	needle := strings.ToLower(query)
	n, numeric := searchNumber(query)

	return r.filter(ctx, func(l domain.Lesson) bool {
		if strings.Contains(strings.ToLower(l.Topic), needle) ||
			strings.Contains(strings.ToLower(l.Location), needle) {
			return true
		}
		return numeric && (l.Price == n || float64(l.Space) == n)
	})
}

func (r *memoryLessonRepo) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.snapshot(id)
	if !ok {
		return nil, ErrLessonNotFound
	}

	return &l, nil
}

// mutate runs fn on the live lesson while holding its stripe.
func (r *memoryLessonRepo) mutate(ctx context.Context, id string, fn func(l *domain.Lesson) error) (domain.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return domain.Lesson{}, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lessons[id]
	if !ok {
		return domain.Lesson{}, ErrLessonNotFound
	}

	m := r.locks.forKey(id)
	m.Lock()
	defer m.Unlock()

	if err := fn(l); err != nil {
		return domain.Lesson{}, err
	}

	return *l, nil
}

func (r *memoryLessonRepo) Update(ctx context.Context, id string, patch *domain.LessonPatch) (*domain.Lesson, error) {
	l, err := r.mutate(ctx, id, func(l *domain.Lesson) error {
		patch.Apply(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *memoryLessonRepo) ReserveSpace(ctx context.Context, id string, qty int) error {
	_, err := r.mutate(ctx, id, func(l *domain.Lesson) error {
		if l.Space < qty {
			return ErrInsufficientSpace
		}
		l.Space -= qty
		return nil
	})
	return err
}

func (r *memoryLessonRepo) ReleaseSpace(ctx context.Context, id string, qty int) error {
	_, err := r.mutate(ctx, id, func(l *domain.Lesson) error {
		l.Space += qty
		return nil
	})
	return err
}

func (r *memoryLessonRepo) Seed(ctx context.Context, lessons []domain.Lesson) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lessons) > 0 {
		return 0, nil
	}

	return r.insert(lessons), nil
}

func (r *memoryLessonRepo) Ping(ctx context.Context) error {
	return unavailable(ctx.Err())
}
