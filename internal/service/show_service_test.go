package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"agenda/internal/database"
	"agenda/internal/events"
	"agenda/internal/models"
	"agenda/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newShowService(t *testing.T, now time.Time) (*ShowService, *mockShowRepo, *mockEventBus, *mockWorker) {
	t.Helper()
	repo := new(mockShowRepo)
	bus := new(mockEventBus)
	worker := new(mockWorker)
	logger := zerolog.New(io.Discard)
	return NewShowService(repo, bus, worker, schedule.FixedClock(now), &logger), repo, bus, worker
}

func TestShowService_SaveShow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateDerivesDuration", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		show := &models.Show{Location: " Bar do Zé ", Date: "2025-11-12", StartTime: "22:00", EndTime: "01:30", Fee: 1500}

		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{}, nil).Once()
		repo.On("CreateShow", ctx, show).Return(nil).Once()
		bus.On("PublishJSON", events.EventShowCreated, mock.Anything).Return(nil).Once()
		worker.On("EnqueueUpsert", ctx, show).Return(nil).Once()

		require.NoError(t, svc.SaveShow(ctx, show))
		assert.Equal(t, "Bar do Zé", show.Location)
		assert.Equal(t, 210, show.Duration)
		assert.Equal(t, models.ShowScheduled, show.Status)
		assert.Equal(t, int64(100), show.ID)
		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
		worker.AssertExpectations(t)
	})

	t.Run("EndFromDuration", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		show := &models.Show{Location: "Bar", Date: "2025-11-12", StartTime: "23:00", Duration: 90}

		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{}, nil).Once()
		repo.On("CreateShow", ctx, show).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
		worker.On("EnqueueUpsert", ctx, show).Return(nil)

		require.NoError(t, svc.SaveShow(ctx, show))
		assert.Equal(t, "00:30", show.EndTime)
	})

	t.Run("ConflictRejectsWithoutWrite", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		existing := models.Show{ID: 7, Location: "Casa", Date: "2025-11-12", StartTime: "20:00", EndTime: "22:00"}
		show := &models.Show{Location: "Bar", Date: "2025-11-12", StartTime: "22:15", EndTime: "23:00"}

		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{existing}, nil).Once()
		bus.On("PublishJSON", events.EventShowConflict, mock.Anything).Return(nil).Once()

		err := svc.SaveShow(ctx, show)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeConflict))
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(7), conflict.With.ID)

		repo.AssertNotCalled(t, "CreateShow", mock.Anything, mock.Anything)
		worker.AssertNotCalled(t, "EnqueueUpsert", mock.Anything, mock.Anything)
	})

	t.Run("ExactMarginIsAccepted", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		existing := models.Show{ID: 7, Location: "Casa", Date: "2025-11-12", StartTime: "20:00", EndTime: "22:00"}
		show := &models.Show{Location: "Bar", Date: "2025-11-12", StartTime: "22:30", EndTime: "23:30"}

		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{existing}, nil).Once()
		repo.On("CreateShow", ctx, show).Return(nil).Once()
		bus.On("PublishJSON", events.EventShowCreated, mock.Anything).Return(nil).Once()
		worker.On("EnqueueUpsert", ctx, show).Return(nil).Once()

		require.NoError(t, svc.SaveShow(ctx, show))
	})

	t.Run("UpdateIgnoresItself", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		created := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
		stored := &models.Show{ID: 9, Location: "Bar", Date: "2025-11-12", StartTime: "20:00", EndTime: "22:00", CreatedAt: created}
		show := &models.Show{ID: 9, Location: "Bar", Date: "2025-11-12", StartTime: "20:30", EndTime: "22:30", Status: models.ShowConfirmed}

		repo.On("GetShow", ctx, int64(9)).Return(stored, nil).Once()
		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{*stored}, nil).Once()
		repo.On("UpdateShow", ctx, show).Return(nil).Once()
		bus.On("PublishJSON", events.EventShowUpdated, mock.Anything).Return(nil).Once()
		worker.On("EnqueueUpsert", ctx, show).Return(nil).Once()

		require.NoError(t, svc.SaveShow(ctx, show))
		assert.Equal(t, created, show.CreatedAt)
		repo.AssertExpectations(t)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		svc, repo, _, _ := newShowService(t, now)
		repo.On("GetShow", ctx, int64(42)).Return(nil, database.ErrShowNotFound).Once()

		err := svc.SaveShow(ctx, &models.Show{ID: 42, Location: "Bar", Date: "2025-11-12"})
		assert.ErrorIs(t, err, database.ErrShowNotFound)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _, _, _ := newShowService(t, now)
		cases := []models.Show{
			{Date: "2025-11-12"},
			{Location: "Bar", Date: "12/11/2025"},
			{Location: "Bar", Date: "2025-11-12", StartTime: "25:00"},
			{Location: "Bar", Date: "2025-11-12", Fee: -1},
			{Location: "Bar", Date: "2025-11-12", Status: "Talvez"},
		}
		for _, c := range cases {
			show := c
			assert.ErrorIs(t, svc.SaveShow(ctx, &show), ErrInvalidShow)
		}
	})

	t.Run("EnqueueFailureIsNotFatal", func(t *testing.T) {
		svc, repo, bus, worker := newShowService(t, now)
		show := &models.Show{Location: "Bar", Date: "2025-11-13"}

		repo.On("ListShowsByDate", ctx, "2025-11-13").Return([]models.Show{}, nil).Once()
		repo.On("CreateShow", ctx, show).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus down")).Once()
		worker.On("EnqueueUpsert", ctx, show).Return(errors.New("queue down")).Once()

		assert.NoError(t, svc.SaveShow(ctx, show))
	})
}

func TestShowService_DeleteShow(t *testing.T) {
	ctx := context.Background()
	svc, repo, bus, worker := newShowService(t, time.Now())

	repo.On("DeleteShow", ctx, int64(5)).Return(nil).Once()
	bus.On("PublishJSON", events.EventShowDeleted, mock.Anything).Return(nil).Once()
	worker.On("EnqueueDelete", ctx, int64(5)).Return(nil).Once()
	require.NoError(t, svc.DeleteShow(ctx, 5))

	repo.On("DeleteShow", ctx, int64(6)).Return(database.ErrShowNotFound).Once()
	assert.ErrorIs(t, svc.DeleteShow(ctx, 6), database.ErrShowNotFound)

	worker.AssertExpectations(t)
}

func TestShowService_Queries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 12, 21, 0, 0, 0, time.UTC)
	svc, repo, _, _ := newShowService(t, now)

	shows := []models.Show{
		{ID: 1, Location: "Bar", Date: "2025-11-20", StartTime: "20:00", EndTime: "22:00", Fee: 1000, Advance: 200},
		{ID: 2, Location: "Casa", Date: "2025-11-12", StartTime: "20:00", EndTime: "22:00", Fee: 500},
		{ID: 3, Location: "Bar", Date: "2025-10-01", StartTime: "20:00", EndTime: "22:00", Fee: 300, Status: models.ShowConfirmed},
	}

	t.Run("ListShowsSorted", func(t *testing.T) {
		repo.On("ListShows", ctx).Return(append([]models.Show(nil), shows...), nil).Once()
		got, err := svc.ListShows(ctx, schedule.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{3, 2, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("ListShowsFiltered", func(t *testing.T) {
		repo.On("ListShows", ctx).Return(append([]models.Show(nil), shows...), nil).Once()
		got, err := svc.ListShows(ctx, schedule.Filter{Period: schedule.PeriodUpcoming, Location: "Bar"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ID)
	})

	t.Run("StatusByID", func(t *testing.T) {
		repo.On("GetShow", ctx, int64(2)).Return(&shows[1], nil).Once()
		info, err := svc.StatusByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, models.LabelInProgress, info.Label)
	})

	t.Run("StatsDefaultsToCurrentYear", func(t *testing.T) {
		repo.On("ListShowsBetween", ctx, "2025-01-01", "2025-12-31").Return(shows, nil).Once()
		stats, err := svc.Stats(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 2025, stats.Year)
		assert.Equal(t, 3, stats.TotalShows)
		assert.InDelta(t, 1800, stats.TotalRevenue, 0.001)
		assert.InDelta(t, 1600, stats.Balance, 0.001)
	})

	t.Run("CheckConflict", func(t *testing.T) {
		repo.On("ListShowsByDate", ctx, "2025-11-12").Return([]models.Show{shows[1]}, nil).Once()
		other, err := svc.CheckConflict(ctx, models.Show{Date: "2025-11-12", StartTime: "21:00", EndTime: "23:00"})
		require.NoError(t, err)
		require.NotNil(t, other)
		assert.Equal(t, int64(2), other.ID)
	})

	t.Run("MonthGroups", func(t *testing.T) {
		repo.On("ListShows", ctx).Return(append([]models.Show(nil), shows...), nil).Once()
		groups, err := svc.MonthGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, time.October, groups[0].Month)
		assert.Len(t, groups[1].Shows, 2)
	})
}
