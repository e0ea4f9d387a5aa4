package repository_test

import (
	"errors"
	"sync"
	"time"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/pkg/testsuite"
)

var seedLessons = []domain.Lesson{
	{ID: "Art-Hen-70", Topic: "Art", Location: "Hendon", Price: 70, Space: 5},
	{ID: "Math-Lon-100", Topic: "Math", Location: "London", Price: 100, Space: 2},
	{ID: "Cpp-Bar-40", Topic: "C++ (Intro)", Location: "Barnet", Price: 40, Space: 1},
}

// repositoryContract holds the behaviour every backend must share. Backend
// suites embed it and set reset, which must leave both repositories empty.
type repositoryContract struct {
	testsuite.BaseSuite

	Lessons repository.LessonRepository
	Orders  repository.OrderRepository
	reset   func()
}

func (s *repositoryContract) SetupTest() {
	s.reset()

	n, err := s.Lessons.Seed(s.Ctx, seedLessons)
	s.Require().NoError(err)
	s.Require().Equal(len(seedLessons), n)
}

func (s *repositoryContract) ids(lessons []domain.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func (s *repositoryContract) TestSeed_OnlyWhenEmpty() {
	n, err := s.Lessons.Seed(s.Ctx, []domain.Lesson{{ID: "Extra-1", Space: 1}})
	s.Require().NoError(err)
	s.Require().Zero(n)

	_, err = s.Lessons.GetByID(s.Ctx, "Extra-1")
	s.Require().ErrorIs(err, repository.ErrLessonNotFound)
}

func (s *repositoryContract) TestList_InsertionOrder() {
	lessons, err := s.Lessons.List(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(seedLessons, lessons)

	again, err := s.Lessons.List(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(lessons, again)
}

func (s *repositoryContract) TestGetByID() {
	l, err := s.Lessons.GetByID(s.Ctx, "Math-Lon-100")
	s.Require().NoError(err)
	s.Require().Equal(seedLessons[1], *l)

	_, err = s.Lessons.GetByID(s.Ctx, "Ghost-1")
	s.Require().ErrorIs(err, repository.ErrLessonNotFound)
}

func (s *repositoryContract) TestSearch() {
	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Art-Hen-70", "Math-Lon-100", "Cpp-Bar-40"}},
		{"HEN", []string{"Art-Hen-70"}},
		{"lon", []string{"Math-Lon-100"}},
		{"++", []string{"Cpp-Bar-40"}},
		{"(intro)", []string{"Cpp-Bar-40"}},
		{".*", []string{}},
		{"100", []string{"Math-Lon-100"}},
		{"2", []string{"Math-Lon-100"}},
		{"nothing", []string{}},
	}

	for _, tc := range cases {
		lessons, err := s.Lessons.Search(s.Ctx, tc.query)
		s.Require().NoError(err, tc.query)
		s.Require().Equal(tc.want, s.ids(lessons), "query %q", tc.query)
	}
}

func (s *repositoryContract) TestUpdate() {
	topic := "Fine Art"
	space := 0
	l, err := s.Lessons.Update(s.Ctx, "Art-Hen-70", &domain.LessonPatch{Topic: &topic, Space: &space})
	s.Require().NoError(err)
	s.Require().Equal(domain.Lesson{ID: "Art-Hen-70", Topic: "Fine Art", Location: "Hendon", Price: 70, Space: 0}, *l)

	stored, err := s.Lessons.GetByID(s.Ctx, "Art-Hen-70")
	s.Require().NoError(err)
	s.Require().Equal(*l, *stored)

	same, err := s.Lessons.Update(s.Ctx, "Art-Hen-70", &domain.LessonPatch{})
	s.Require().NoError(err)
	s.Require().Equal(*l, *same)

	_, err = s.Lessons.Update(s.Ctx, "Ghost-1", &domain.LessonPatch{Space: &space})
	s.Require().ErrorIs(err, repository.ErrLessonNotFound)
}

func (s *repositoryContract) TestReserveAndRelease() {
	s.Require().NoError(s.Lessons.ReserveSpace(s.Ctx, "Art-Hen-70", 2))
	s.Require().ErrorIs(s.Lessons.ReserveSpace(s.Ctx, "Art-Hen-70", 4), repository.ErrInsufficientSpace)
	s.Require().ErrorIs(s.Lessons.ReserveSpace(s.Ctx, "Ghost-1", 1), repository.ErrLessonNotFound)

	l, err := s.Lessons.GetByID(s.Ctx, "Art-Hen-70")
	s.Require().NoError(err)
	s.Require().Equal(3, l.Space)

	s.Require().NoError(s.Lessons.ReserveSpace(s.Ctx, "Art-Hen-70", 3))
	s.Require().NoError(s.Lessons.ReleaseSpace(s.Ctx, "Art-Hen-70", 5))
	s.Require().ErrorIs(s.Lessons.ReleaseSpace(s.Ctx, "Ghost-1", 1), repository.ErrLessonNotFound)

	l, err = s.Lessons.GetByID(s.Ctx, "Art-Hen-70")
	s.Require().NoError(err)
	s.Require().Equal(5, l.Space)
}

func (s *repositoryContract) TestReserve_ConcurrentLastSeat() {
	const workers = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Lessons.ReserveSpace(s.Ctx, "Cpp-Bar-40", 1)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, repository.ErrInsufficientSpace) {
				refused++
			}
		}()
	}
	wg.Wait()

	s.Require().Equal(1, ok)
	s.Require().Equal(workers-1, refused)

	l, err := s.Lessons.GetByID(s.Ctx, "Cpp-Bar-40")
	s.Require().NoError(err)
	s.Require().Zero(l.Space)
}

func (s *repositoryContract) TestOrders_Lifecycle() {
	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	order := &domain.Order{
		Name:      "Jane Doe",
		Phone:     "5551234",
		Items:     []domain.OrderItem{{LessonID: "Art-Hen-70", Qty: 2}},
		CreatedAt: createdAt,
	}

	id, err := s.Orders.Create(s.Ctx, order)
	s.Require().NoError(err)
	s.Require().NotEmpty(id)
	s.Require().Equal(id, order.ID)

	got, err := s.Orders.GetByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Require().Equal(order.Name, got.Name)
	s.Require().Equal(order.Phone, got.Phone)
	s.Require().Equal(order.Items, got.Items)
	s.Require().True(createdAt.Equal(got.CreatedAt), "created_at %v != %v", createdAt, got.CreatedAt)

	_, err = s.Orders.GetByID(s.Ctx, "not-an-id")
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)

	pending, err := s.Orders.ListUnpublished(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Require().Equal(id, pending[0].ID)

	s.Require().NoError(s.Orders.MarkFailed(s.Ctx, id, "broker down"))
	got, err = s.Orders.GetByID(s.Ctx, id)
	s.Require().NoError(err)
	s.Require().Equal(1, got.Attempts)
	s.Require().NotNil(got.LastError)
	s.Require().Equal("broker down", *got.LastError)

	s.Require().NoError(s.Orders.MarkPublished(s.Ctx, id))
	pending, err = s.Orders.ListUnpublished(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Empty(pending)
}

func (s *repositoryContract) TestOrders_ListUnpublishedLimit() {
	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Orders.Create(s.Ctx, &domain.Order{
			Name:      "Jane Doe",
			Phone:     "5551234",
			Items:     []domain.OrderItem{{LessonID: "Art-Hen-70", Qty: 1}},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	for _, limit := range []int{0, -1} {
		all, err := s.Orders.ListUnpublished(s.Ctx, limit)
		s.Require().NoError(err)
		s.Require().Len(all, 3, "limit %d", limit)
	}

	two, err := s.Orders.ListUnpublished(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(two, 2)
	s.Require().Equal(ids[0], two[0].ID)
	s.Require().Equal(ids[1], two[1].ID)
}
