package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/TaxiOrders/internal/broker/messages"
	cachemocks "github.com/BearBump/TaxiOrders/internal/cache/mocks"
	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	ordersmocks "github.com/BearBump/TaxiOrders/internal/services/orders/mocks"
)

type ServiceSuite struct {
	suite.Suite

	repo   *ordersmocks.MockRepository
	schema *ordersmocks.MockSchema
	pub    *ordersmocks.MockPublisher
	cache  *cachemocks.MockBytesCache
	svc    *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &ordersmocks.MockRepository{}
	s.schema = &ordersmocks.MockSchema{}
	s.pub = &ordersmocks.MockPublisher{}
	s.cache = &cachemocks.MockBytesCache{}
	s.svc = New(s.repo, s.schema, s.cache, time.Minute).WithEvents(s.pub, "orders.changed")
}

func (s *ServiceSuite) TestList_CacheHit_NoDB() {
	b, _ := json.Marshal([]*models.Order{{ID: 4, DriverName: "A", CarNumber: "X", ClientPhone: "1"}})
	s.cache.On("Get", mock.Anything, generationKey).Return([]byte("3"), true, nil).Once()
	s.cache.On("Get", mock.Anything, "orders:v3:"+Query{}.cacheKey()).Return(b, true, nil).Once()

	out, err := s.svc.ListAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Require().Equal(int64(4), out[0].ID)

	// БД не трогаем
	s.repo.AssertNotCalled(s.T(), "ListAll", mock.Anything)
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestList_CacheMiss_StoresSnapshot() {
	q := Query{Status: models.StatusWaiting}
	s.cache.On("Get", mock.Anything, generationKey).Return([]byte(nil), false, nil).Once()
	s.cache.On("Get", mock.Anything, "orders:v0:"+q.cacheKey()).Return([]byte(nil), false, nil).Once()
	s.repo.On("FindByStatus", mock.Anything, models.StatusWaiting).
		Return([]*models.Order{{ID: 1}, {ID: 2}}, nil).
		Once()
	// ошибка Set игнорируется
	s.cache.On("Set", mock.Anything, "orders:v0:"+q.cacheKey(), mock.Anything, time.Minute).
		Return(errors.New("set failed")).
		Once()

	out, err := s.svc.FindByStatus(context.Background(), models.StatusWaiting)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.repo.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestList_GenerationUnreadable_BypassesCache() {
	s.cache.On("Get", mock.Anything, generationKey).Return([]byte(nil), false, errors.New("redis down")).Once()
	s.repo.On("ListSortedByID", mock.Anything, false).Return([]*models.Order{{ID: 2}, {ID: 1}}, nil).Once()

	out, err := s.svc.ListSortedByID(context.Background(), false)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.cache.AssertNotCalled(s.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestList_RepoErrorNotCached() {
	want := errors.Wrap(models.ErrStoreUnavailable, "select orders")
	s.cache.On("Get", mock.Anything, mock.Anything).Return([]byte(nil), false, nil)
	s.repo.On("ListAll", mock.Anything).Return(nil, want).Once()

	_, err := s.svc.ListAll(context.Background())
	s.Require().ErrorIs(err, models.ErrStoreUnavailable)
	s.cache.AssertNotCalled(s.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestList_CacheDisabledWhenTTLZero() {
	svc := New(s.repo, s.schema, s.cache, 0)
	s.repo.On("ListAll", mock.Anything).Return([]*models.Order{}, nil).Once()

	out, err := svc.ListAll(context.Background())
	s.Require().NoError(err)
	s.Require().NotNil(out)
	s.cache.AssertNotCalled(s.T(), "Get", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestInsert_ValidationStopsBeforeRepo() {
	bad := []models.Order{
		{CarNumber: "X", ClientPhone: "1"},
		{DriverName: "A", ClientPhone: "1"},
		{DriverName: "A", CarNumber: "X", ClientPhone: "   "},
		{DriverName: "A", CarNumber: "X", ClientPhone: "123456789012345"},
		{DriverName: "A", CarNumber: "X", ClientPhone: "1", OrderStatus: "in progress"},
	}
	for _, o := range bad {
		_, err := s.svc.Insert(context.Background(), o)
		s.Require().ErrorIs(err, models.ErrConstraintViolation)
	}
	s.repo.AssertNotCalled(s.T(), "Insert", mock.Anything, mock.Anything)
	s.pub.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestInsert_BumpsGenerationAndPublishes() {
	o := models.Order{DriverName: "A", CarNumber: "X001", ClientPhone: "111", OrderStatus: models.StatusWaiting}
	s.repo.On("Insert", mock.Anything, o).Return(int64(7), nil).Once()
	s.cache.On("Incr", mock.Anything, generationKey).Return(int64(1), nil).Once()
	s.pub.On("Publish", mock.Anything, "orders.changed", []byte("7"), mock.MatchedBy(func(b []byte) bool {
		var ev messages.OrderChanged
		if json.Unmarshal(b, &ev) != nil {
			return false
		}
		return ev.Op == messages.OpCreated && ev.OrderID == 7 && ev.Order != nil && ev.Order.CarNumber == "X001"
	})).Return(nil).Once()

	id, err := s.svc.Insert(context.Background(), o)
	s.Require().NoError(err)
	s.Require().Equal(int64(7), id)
	s.repo.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
	s.pub.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestInsert_PublishFailureDoesNotFailWrite() {
	o := models.Order{DriverName: "A", CarNumber: "X", ClientPhone: "1"}
	s.repo.On("Insert", mock.Anything, o).Return(int64(1), nil).Once()
	s.cache.On("Incr", mock.Anything, generationKey).Return(int64(0), errors.New("redis down")).Once()
	s.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	id, err := s.svc.Insert(context.Background(), o)
	s.Require().NoError(err)
	s.Require().Equal(int64(1), id)
}

func (s *ServiceSuite) TestUpdate_NotFound_NoSideEffects() {
	o := models.Order{ID: 99, DriverName: "A", CarNumber: "X", ClientPhone: "1"}
	s.repo.On("Update", mock.Anything, o).Return(errors.Wrap(models.ErrNotFound, "order 99")).Once()

	err := s.svc.Update(context.Background(), o)
	s.Require().ErrorIs(err, models.ErrNotFound)
	s.cache.AssertNotCalled(s.T(), "Incr", mock.Anything, mock.Anything)
	s.pub.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestUpdate_RejectsNonPositiveID() {
	err := s.svc.Update(context.Background(), models.Order{DriverName: "A", CarNumber: "X", ClientPhone: "1"})
	s.Require().ErrorIs(err, models.ErrConstraintViolation)
	s.repo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestDelete_PublishesDeleted() {
	s.repo.On("Delete", mock.Anything, int64(5)).Return(nil).Once()
	s.cache.On("Incr", mock.Anything, generationKey).Return(int64(2), nil).Once()
	s.pub.On("Publish", mock.Anything, "orders.changed", []byte("5"), mock.MatchedBy(func(b []byte) bool {
		var ev messages.OrderChanged
		return json.Unmarshal(b, &ev) == nil && ev.Op == messages.OpDeleted && ev.Order == nil
	})).Return(nil).Once()

	s.Require().NoError(s.svc.Delete(context.Background(), 5))
	s.pub.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestCreateDatabase_BumpsOnlyOnSuccess() {
	s.schema.On("CreateDatabase", mock.Anything).Return(nil).Once()
	s.cache.On("Incr", mock.Anything, generationKey).Return(int64(1), nil).Once()
	s.Require().NoError(s.svc.CreateDatabase(context.Background()))

	s.schema.On("CreateDatabase", mock.Anything).Return(errors.Wrap(models.ErrAlreadyExists, "database")).Once()
	s.Require().ErrorIs(s.svc.CreateDatabase(context.Background()), models.ErrAlreadyExists)

	s.cache.AssertNumberOfCalls(s.T(), "Incr", 1)
}

func (s *ServiceSuite) TestDropDatabase_Passthrough() {
	s.schema.On("DropDatabase", mock.Anything).Return(errors.Wrap(models.ErrNotFound, "database")).Once()
	s.Require().ErrorIs(s.svc.DropDatabase(context.Background()), models.ErrNotFound)

	s.schema.On("DatabaseExists", mock.Anything).Return(true, nil).Once()
	ok, err := s.svc.DatabaseExists(context.Background())
	s.Require().NoError(err)
	s.Require().True(ok)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
