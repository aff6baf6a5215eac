package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agenda/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgendaClient_CreateShow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "e", r.Header.Get("x-api-extra"))
		assert.Equal(t, http.MethodPost, r.Method)

		var show models.Show
		require.NoError(t, json.NewDecoder(r.Body).Decode(&show))
		w.Header().Set("Content-Type", "application/json")
		if show.Location == "Ocupado" {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "time conflict", "conflict": models.Show{ID: 7, Location: "Bar"}})
			return
		}
		show.ID = 11
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(show)
	}))
	defer srv.Close()

	c := NewAgendaClient(srv.URL, "k", "e")
	ctx := context.Background()

	show := models.Show{Location: "Teatro", Date: "2025-12-01"}
	require.NoError(t, c.CreateShow(ctx, &show))
	assert.Equal(t, int64(11), show.ID)

	err := c.CreateShow(ctx, &models.Show{Location: "Ocupado", Date: "2025-12-01"})
	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(7), conflict.With.ID)
}

func TestAgendaClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	}))
	defer srv.Close()

	_, err := NewAgendaClient(srv.URL, "", "").ListShows(context.Background(), "upcoming")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "permission denied", statusErr.Message)
}

func TestAgendaClient_RedisCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/v1/shows/3/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.NewStatusInfo(models.LabelConfirmed))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewAgendaClient(srv.URL, "", "")
	c.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := c.Status(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Confirmado", info.Text)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, mr.Exists("status:3"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Status(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAgendaClient_CheckConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/shows/conflicts", r.URL.Path)
		_, _ = w.Write([]byte(`{"conflict":true,"with":{"id":2,"location":"Bar"}}`))
	}))
	defer srv.Close()

	res, err := NewAgendaClient(srv.URL, "", "").CheckConflict(context.Background(), models.Show{Date: "2025-12-01"})
	require.NoError(t, err)
	assert.True(t, res.Conflict)
	require.NotNil(t, res.With)
	assert.Equal(t, "Bar", res.With.Location)
}
