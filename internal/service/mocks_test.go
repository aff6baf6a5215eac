package service

import (
	"context"

	"agenda/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockShowRepo struct {
	mock.Mock
}

func (m *mockShowRepo) CreateShow(ctx context.Context, s *models.Show) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil && s.ID == 0 {
		s.ID = 100
	}
	return args.Error(0)
}
func (m *mockShowRepo) UpdateShow(ctx context.Context, s *models.Show) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockShowRepo) DeleteShow(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockShowRepo) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}
func (m *mockShowRepo) ListShows(ctx context.Context) ([]models.Show, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Show), args.Error(1)
}
func (m *mockShowRepo) ListShowsByDate(ctx context.Context, d string) ([]models.Show, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Show), args.Error(1)
}
func (m *mockShowRepo) ListShowsBetween(ctx context.Context, from, to string) ([]models.Show, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Show), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueUpsert(ctx context.Context, s *models.Show) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockWorker) EnqueueDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
