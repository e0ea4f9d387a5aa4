package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/sakashimaa/lesson-booking/pkg/metrics"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type OrderServiceSuite struct {
	suite.Suite

	Ctx     context.Context
	Lessons repository.LessonRepository
	Orders  repository.OrderRepository
	Metrics *metrics.Metrics
	Service service.OrderService
}

func (s *OrderServiceSuite) SetupTest() {
	s.Ctx = context.Background()
	s.Lessons = repository.NewMemoryLessonRepository(
		domain.Lesson{ID: "Art-Hen-70", Topic: "Art", Location: "Hendon", Price: 10, Space: 5},
		domain.Lesson{ID: "Math-Lon-100", Topic: "Math", Location: "London", Price: 100, Space: 2},
		domain.Lesson{ID: "Solo-Bar-1", Topic: "Chess", Location: "Barnet", Price: 50, Space: 1},
	)
	s.Orders = repository.NewMemoryOrderRepository()
	s.Metrics = metrics.New("test")
	s.Service = s.newService(s.Lessons, s.Orders)
}

func (s *OrderServiceSuite) newService(lessons repository.LessonRepository, orders repository.OrderRepository) service.OrderService {
	return service.NewOrderService(
		lessons,
		orders,
		zap.NewNop(),
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithMetrics(s.Metrics),
	)
}

func (s *OrderServiceSuite) space(id string) int {
	l, err := s.Lessons.GetByID(s.Ctx, id)
	s.Require().NoError(err)
	return l.Space
}

func (s *OrderServiceSuite) TestSubmitOrder_EndToEnd() {
	order, err := s.Service.SubmitOrder(s.Ctx, "Jane Doe", "5551234", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 2},
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(order.ID)
	s.Require().Equal(fixedNow, order.CreatedAt)
	s.Require().Equal(3, s.space("Art-Hen-70"))

	stored, err := s.Orders.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal("Jane Doe", stored.Name)
	s.Require().Equal([]domain.OrderItem{{LessonID: "Art-Hen-70", Qty: 2}}, stored.Items)

	_, err = s.Service.SubmitOrder(s.Ctx, "Jane Doe", "5551234", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 4},
	})
	s.Require().ErrorIs(err, service.ErrInsufficientSpace)
	s.Require().Equal(3, s.space("Art-Hen-70"))

	s.Require().Equal(float64(1), testutil.ToFloat64(s.Metrics.Orders.WithLabelValues("accepted")))
	s.Require().Equal(float64(1), testutil.ToFloat64(s.Metrics.Orders.WithLabelValues("insufficient_space")))
	s.Require().Equal(float64(2), testutil.ToFloat64(s.Metrics.SeatsReserved))
}

func (s *OrderServiceSuite) TestSubmitOrder_Validation() {
	valid := []service.OrderLine{{LessonID: "Art-Hen-70", Qty: 1}}

	cases := []struct {
		name  string
		cName string
		phone string
		items []service.OrderLine
		kind  error
		field string
	}{
		{"empty name", "", "123", valid, service.ErrInvalidName, "name"},
		{"blank name", "   ", "123", valid, service.ErrInvalidName, "name"},
		{"name with digits", "Jane 2", "123", valid, service.ErrInvalidName, "name"},
		{"name checked before phone", "J@ne", "abc", nil, service.ErrInvalidName, "name"},
		{"empty phone", "Jane", "", valid, service.ErrInvalidPhone, "phone"},
		{"phone with dash", "Jane", "555-1234", valid, service.ErrInvalidPhone, "phone"},
		{"phone checked before items", "Jane", "+44", nil, service.ErrInvalidPhone, "phone"},
		{"no items", "Jane", "123", nil, service.ErrInvalidItems, "items"},
		{"zero qty", "Jane", "123", []service.OrderLine{{LessonID: "Art-Hen-70", Qty: 0}}, service.ErrInvalidItems, "items[0].qty"},
		{"negative qty", "Jane", "123", []service.OrderLine{{LessonID: "Art-Hen-70", Qty: -1}}, service.ErrInvalidItems, "items[0].qty"},
		{"fractional qty", "Jane", "123", []service.OrderLine{{LessonID: "Art-Hen-70", Qty: 1.5}}, service.ErrInvalidItems, "items[0].qty"},
		{"empty lesson id", "Jane", "123", []service.OrderLine{valid[0], {LessonID: "", Qty: 1}}, service.ErrInvalidItems, "items[1].id"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			order, err := s.Service.SubmitOrder(s.Ctx, tc.cName, tc.phone, tc.items)
			s.Require().Nil(order)
			s.Require().ErrorIs(err, tc.kind)

			var svcErr *service.Error
			s.Require().ErrorAs(err, &svcErr)
			s.Require().Equal(tc.field, svcErr.Field)
		})
	}

	s.Require().Equal(5, s.space("Art-Hen-70"), "validation failures must not touch inventory")
}

func (s *OrderServiceSuite) TestSubmitOrder_AcceptsUnicodeName() {
	_, err := s.Service.SubmitOrder(s.Ctx, "Zoë Ångström", "07700900123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 1},
	})
	s.Require().NoError(err)
}

func (s *OrderServiceSuite) TestSubmitOrder_UnknownLesson() {
	_, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 1},
		{LessonID: "Nope-1", Qty: 1},
	})
	s.Require().ErrorIs(err, service.ErrUnknownLesson)

	var svcErr *service.Error
	s.Require().ErrorAs(err, &svcErr)
	s.Require().Equal("Nope-1", svcErr.LessonID)
	s.Require().Equal(5, s.space("Art-Hen-70"))
}

func (s *OrderServiceSuite) TestSubmitOrder_InsufficientSpaceLeavesLessonUnchanged() {
	_, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Math-Lon-100", Qty: 3},
	})
	s.Require().ErrorIs(err, service.ErrInsufficientSpace)
	s.Require().Equal(2, s.space("Math-Lon-100"))
}

func (s *OrderServiceSuite) TestSubmitOrder_RollsBackEarlierItems() {
	_, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 2},
		{LessonID: "Math-Lon-100", Qty: 1},
		{LessonID: "Solo-Bar-1", Qty: 2},
	})
	s.Require().ErrorIs(err, service.ErrInsufficientSpace)

	var svcErr *service.Error
	s.Require().ErrorAs(err, &svcErr)
	s.Require().Equal("Solo-Bar-1", svcErr.LessonID)

	s.Require().Equal(5, s.space("Art-Hen-70"))
	s.Require().Equal(2, s.space("Math-Lon-100"))
	s.Require().Equal(1, s.space("Solo-Bar-1"))

	pending, err := s.Orders.ListUnpublished(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Empty(pending, "no order must be persisted")
}

func (s *OrderServiceSuite) TestSubmitOrder_RepeatedLessonReservesCumulatively() {
	_, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Math-Lon-100", Qty: 1},
		{LessonID: "Math-Lon-100", Qty: 2},
	})
	s.Require().ErrorIs(err, service.ErrInsufficientSpace)
	s.Require().Equal(2, s.space("Math-Lon-100"))
}

func (s *OrderServiceSuite) TestSubmitOrder_StoreFailureDuringReserve() {
	lessons := &flakyLessons{LessonRepository: s.Lessons, failReserveOn: "Math-Lon-100"}
	svc := s.newService(lessons, s.Orders)

	_, err := svc.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 2},
		{LessonID: "Math-Lon-100", Qty: 1},
	})
	s.Require().ErrorIs(err, service.ErrStoreUnavailable)
	s.Require().Equal(5, s.space("Art-Hen-70"))
}

func (s *OrderServiceSuite) TestSubmitOrder_CompensationSurvivesCancellation() {
	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	lessons := &flakyLessons{LessonRepository: s.Lessons, failReserveOn: "Math-Lon-100", cancel: cancel}
	svc := s.newService(lessons, s.Orders)

	_, err := svc.SubmitOrder(ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 2},
		{LessonID: "Math-Lon-100", Qty: 1},
	})
	s.Require().Error(err)
	s.Require().Error(ctx.Err())
	s.Require().Equal(5, s.space("Art-Hen-70"))
}

func (s *OrderServiceSuite) TestSubmitOrder_PersistFailureReleasesSeats() {
	svc := s.newService(s.Lessons, failingOrders{OrderRepository: s.Orders})

	_, err := svc.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 2},
		{LessonID: "Math-Lon-100", Qty: 2},
	})
	s.Require().ErrorIs(err, service.ErrStoreUnavailable)
	s.Require().Equal(5, s.space("Art-Hen-70"))
	s.Require().Equal(2, s.space("Math-Lon-100"))
}

func (s *OrderServiceSuite) TestSubmitOrder_ConcurrentLastSeat() {
	const workers = 20

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		accepted     int
		insufficient int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
				{LessonID: "Solo-Bar-1", Qty: 1},
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, service.ErrInsufficientSpace):
				insufficient++
			}
		}()
	}
	wg.Wait()

	s.Require().Equal(1, accepted)
	s.Require().Equal(workers-1, insufficient)
	s.Require().Equal(0, s.space("Solo-Bar-1"))
}

func (s *OrderServiceSuite) TestGetOrder() {
	order, err := s.Service.SubmitOrder(s.Ctx, "Jane", "123", []service.OrderLine{
		{LessonID: "Art-Hen-70", Qty: 1},
	})
	s.Require().NoError(err)

	got, err := s.Service.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(order.ID, got.ID)

	_, err = s.Service.GetOrder(s.Ctx, "missing")
	s.Require().ErrorIs(err, service.ErrOrderNotFound)
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

var errBoom = errors.New("boom")

// flakyLessons fails ReserveSpace for one lesson with a store error and
// optionally cancels the caller's context first.
type flakyLessons struct {
	repository.LessonRepository
	failReserveOn string
	cancel        context.CancelFunc
}

func (f *flakyLessons) ReserveSpace(ctx context.Context, id string, qty int) error {
	if id == f.failReserveOn {
		if f.cancel != nil {
			f.cancel()
		}
		return errors.Join(repository.ErrStoreUnavailable, errBoom)
	}
	return f.LessonRepository.ReserveSpace(ctx, id, qty)
}

type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(context.Context, *domain.Order) (string, error) {
	return "", errors.Join(repository.ErrStoreUnavailable, errBoom)
}
