package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"agenda/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrConflict is returned by CreateShow when the agenda rejects the show.
var ErrConflict = errors.New("schedule conflict")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// ConflictError carries the show that blocked a CreateShow.
type ConflictError struct {
	With models.Show
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with show #%d", ErrConflict.Error(), e.With.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// AgendaClient calls the agenda HTTP API.
type AgendaClient struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewAgendaClient constructs a client with baseURL, API key and extra header.
func NewAgendaClient(baseURL, apiKey, apiExtra string) *AgendaClient {
	return &AgendaClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for location and status lookups.
func (c *AgendaClient) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ConflictResult answers whether a candidate show collides with a booked one.
type ConflictResult struct {
	Conflict bool         `json:"conflict"`
	With     *models.Show `json:"with,omitempty"`
}

func (c *AgendaClient) CheckConflict(ctx context.Context, show models.Show) (*ConflictResult, error) {
	var resp ConflictResult
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/v1/shows/conflicts", show, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateShow saves show and fills its ID. A conflict yields *ConflictError.
func (c *AgendaClient) CreateShow(ctx context.Context, show *models.Show) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/v1/shows", show, show)
}

// ListShows returns shows for period ("all", "upcoming", "past"); empty means all.
func (c *AgendaClient) ListShows(ctx context.Context, period string) ([]models.Show, error) {
	endpoint := c.baseURL + "/api/v1/shows"
	if period != "" {
		endpoint += "?period=" + url.QueryEscape(period)
	}
	var shows []models.Show
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

func (c *AgendaClient) Status(ctx context.Context, id int64) (*models.StatusInfo, error) {
	cacheKey := "status:" + strconv.FormatInt(id, 10)
	var info models.StatusInfo
	if c.readCache(ctx, cacheKey, &info) {
		return &info, nil
	}
	endpoint := fmt.Sprintf("%s/api/v1/shows/%d/status", c.baseURL, id)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &info); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, info)
	return &info, nil
}

func (c *AgendaClient) ListLocations(ctx context.Context) ([]models.Location, error) {
	cacheKey := "locations"
	var locations []models.Location
	if c.readCache(ctx, cacheKey, &locations) {
		return locations, nil
	}
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v1/locations", nil, &locations); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, locations)
	return locations, nil
}

func (c *AgendaClient) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *AgendaClient) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *AgendaClient) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *AgendaClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error    string       `json:"error"`
			Conflict *models.Show `json:"conflict"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusConflict && apiErr.Conflict != nil {
			return &ConflictError{With: *apiErr.Conflict}
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *AgendaClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}
