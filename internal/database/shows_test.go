package database

import (
	"context"
	"testing"

	"agenda/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowsCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	show := &models.Show{
		Location:  "Bar do Zé",
		Date:      "2025-06-10",
		StartTime: "20:00",
		EndTime:   "22:00",
		Duration:  120,
		Fee:       800,
		Advance:   200,
		Status:    models.ShowScheduled,
		Notes:     "levar pedestal",
	}
	require.NoError(t, db.CreateShow(ctx, show))
	require.NotZero(t, show.ID)
	assert.False(t, show.CreatedAt.IsZero())

	got, err := db.GetShow(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bar do Zé", got.Location)
	assert.Equal(t, models.ShowScheduled, got.Status)
	assert.Equal(t, 600.0, got.BalanceDue())

	got.Status = models.ShowConfirmed
	got.Fee = 900
	require.NoError(t, db.UpdateShow(ctx, got))

	got, err = db.GetShow(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShowConfirmed, got.Status)
	assert.Equal(t, 900.0, got.Fee)
	assert.Equal(t, show.ID, got.ID)

	require.NoError(t, db.DeleteShow(ctx, show.ID))
	_, err = db.GetShow(ctx, show.ID)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShows_NotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.UpdateShow(ctx, &models.Show{ID: 99}), ErrShowNotFound)
	assert.ErrorIs(t, db.DeleteShow(ctx, 99), ErrShowNotFound)
}

func TestShows_Listing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, s := range []models.Show{
		{Location: "C", Date: "2025-07-01", StartTime: "21:00"},
		{Location: "A", Date: "2025-06-10", StartTime: "20:00"},
		{Location: "B", Date: "2025-06-10", StartTime: "18:00"},
		{Location: "D", Date: "2025-08-01"},
	} {
		s := s
		s.Status = models.ShowScheduled
		require.NoError(t, db.CreateShow(ctx, &s))
	}

	all, err := db.ListShows(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"B", "A", "C", "D"}, []string{all[0].Location, all[1].Location, all[2].Location, all[3].Location})

	day, err := db.ListShowsByDate(ctx, "2025-06-10")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	between, err := db.ListShowsBetween(ctx, "2025-06-11", "2025-07-31")
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, "C", between[0].Location)

	empty, err := db.ListShowsByDate(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
