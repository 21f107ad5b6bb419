package mocks

import (
	"context"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func orders(v any) []*models.Order {
	if v == nil {
		return nil
	}
	return v.([]*models.Order)
}

func (m *MockRepository) ListAll(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	return orders(args.Get(0)), args.Error(1)
}

func (m *MockRepository) ListSortedByID(ctx context.Context, ascending bool) ([]*models.Order, error) {
	args := m.Called(ctx, ascending)
	return orders(args.Get(0)), args.Error(1)
}

func (m *MockRepository) FindByCarNumber(ctx context.Context, plate string) ([]*models.Order, error) {
	args := m.Called(ctx, plate)
	return orders(args.Get(0)), args.Error(1)
}

func (m *MockRepository) FindByStatus(ctx context.Context, status string) ([]*models.Order, error) {
	args := m.Called(ctx, status)
	return orders(args.Get(0)), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	var o *models.Order
	if v := args.Get(0); v != nil {
		o = v.(*models.Order)
	}
	return o, args.Error(1)
}

func (m *MockRepository) Insert(ctx context.Context, o models.Order) (int64, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, o models.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSchema struct {
	mock.Mock
}

func (m *MockSchema) DatabaseExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchema) CreateDatabase(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSchema) DropDatabase(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}
