package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"agenda/internal/config"
	"agenda/internal/database"
	"agenda/internal/metrics"
	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/service"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// SheetsPublisher rewrites the spreadsheet mirror from scratch.
type SheetsPublisher interface {
	ReplaceShows(ctx context.Context, shows []models.Show) error
}

// AgendaSender shares the agenda text in a chat.
type AgendaSender interface {
	SendAgenda(artist models.ArtistInfo, shows []models.Show) error
}

// Services are the application services behind the HTTP API. Sheets and
// Notifier are optional.
type Services struct {
	Shows     *service.ShowService
	Auth      *service.AuthService
	Locations *service.LocationService
	Artist    *service.ArtistService
	Sheets    SheetsPublisher
	Notifier  AgendaSender
	Clock     schedule.Clock
}

// HTTPServer exposes the agenda over JSON/HTTP.
type HTTPServer struct {
	cfg            config.APIConfig
	svc            Services
	requireSession bool
	keys           *keyring
	limiter        *rateLimiter
	server         *http.Server
	log            zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc Services, requireSession bool, logger *zerolog.Logger) *HTTPServer {
	if svc.Clock == nil {
		svc.Clock = schedule.RealClock{}
	}
	srv := &HTTPServer{
		cfg:            *cfg,
		svc:            svc,
		requireSession: requireSession,
		keys:           newKeyring(cfg.Auth),
		limiter:        newRateLimiter(cfg.RateLimit),
		log:            zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Routes with sessionGate require an admin or active user session when
// auth.require_session is on.
const (
	sessionGate = true
	noGate      = false
)

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /api/v1/healthz", "", noGate, s.handleHealth)

	s.handle(mux, "GET /api/v1/shows", permReadShows, sessionGate, s.handleListShows)
	s.handle(mux, "POST /api/v1/shows", permWriteShows, sessionGate, s.handleCreateShow)
	s.handle(mux, "GET /api/v1/shows/months", permReadShows, sessionGate, s.handleMonths)
	s.handle(mux, "POST /api/v1/shows/conflicts", permReadShows, sessionGate, s.handleCheckConflict)
	s.handle(mux, "GET /api/v1/shows/{id}", permReadShows, sessionGate, s.handleGetShow)
	s.handle(mux, "PUT /api/v1/shows/{id}", permWriteShows, sessionGate, s.handleUpdateShow)
	s.handle(mux, "DELETE /api/v1/shows/{id}", permWriteShows, sessionGate, s.handleDeleteShow)
	s.handle(mux, "GET /api/v1/shows/{id}/status", permReadShows, sessionGate, s.handleShowStatus)
	s.handle(mux, "GET /api/v1/stats", permReadShows, sessionGate, s.handleStats)
	s.handle(mux, "GET /api/v1/share", permReadShows, sessionGate, s.handleShare)
	s.handle(mux, "POST /api/v1/share/telegram", permWriteShows, sessionGate, s.handleShareTelegram)
	s.handle(mux, "GET /api/v1/export", permReadShows, sessionGate, s.handleExport)
	s.handle(mux, "POST /api/v1/export/sheets", permWriteShows, sessionGate, s.handleExportSheets)

	s.handle(mux, "GET /api/v1/locations", permReadShows, sessionGate, s.handleListLocations)
	s.handle(mux, "POST /api/v1/locations", permWriteShows, sessionGate, s.handleCreateLocation)
	s.handle(mux, "PUT /api/v1/locations/{id}", permWriteShows, sessionGate, s.handleRenameLocation)
	s.handle(mux, "DELETE /api/v1/locations/{id}", permWriteShows, sessionGate, s.handleDeleteLocation)

	s.handle(mux, "GET /api/v1/artist", permReadShows, sessionGate, s.handleGetArtist)
	s.handle(mux, "PUT /api/v1/artist", permWriteShows, sessionGate, s.handleUpdateArtist)

	s.handle(mux, "GET /api/v1/auth/session", "", noGate, s.handleSession)
	s.handle(mux, "POST /api/v1/auth/admin", "", noGate, s.handleRegisterAdmin)
	s.handle(mux, "POST /api/v1/auth/admin/login", "", noGate, s.handleLoginAdmin)
	s.handle(mux, "POST /api/v1/auth/admin/logout", "", noGate, s.handleLogoutAdmin)
	s.handle(mux, "POST /api/v1/auth/register", "", noGate, s.handleRegisterUser)
	s.handle(mux, "POST /api/v1/auth/login", "", noGate, s.handleLogin)
	s.handle(mux, "POST /api/v1/auth/logout", "", noGate, s.handleLogout)

	s.handle(mux, "GET /api/v1/users", permAdminUsers, noGate, s.handleListUsers)
	s.handle(mux, "POST /api/v1/users", permAdminUsers, noGate, s.handleAddUser)
	s.handle(mux, "POST /api/v1/users/expire", permAdminUsers, noGate, s.handleExpire)
	s.handle(mux, "DELETE /api/v1/users/{cpf}", permAdminUsers, noGate, s.handleDeleteUser)
	s.handle(mux, "POST /api/v1/users/{cpf}/block", permAdminUsers, noGate, s.handleBlockUser)
	s.handle(mux, "POST /api/v1/users/{cpf}/unblock", permAdminUsers, noGate, s.handleUnblockUser)
	s.handle(mux, "PUT /api/v1/users/{cpf}/subscription", permAdminUsers, noGate, s.handleSubscription)
	s.handle(mux, "GET /api/v1/users/{cpf}/subscription", permAdminUsers, noGate, s.handleCheckSubscription)
}

// handle registers h behind API-key auth, rate limiting, the optional
// session gate and per-route metrics.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern, permission string, gate bool, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.IncHTTP(pattern)
		defer func() { metrics.ObserveHTTP(pattern, time.Since(start)) }()

		if s.cfg.Enabled && s.cfg.Auth.Enabled {
			keyHeader, extraHeader := s.keys.headers()
			if err := s.keys.check(r.Header.Get(keyHeader), r.Header.Get(extraHeader), permission); err != nil {
				code := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					code = http.StatusForbidden
				}
				writeError(w, code, err.Error())
				return
			}
		}
		if !s.limiter.allow(s.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}
		if gate && s.requireSession {
			session, err := s.svc.Auth.Session(r.Context())
			if err != nil {
				s.serviceError(w, err)
				return
			}
			if !session.Admin && session.ActiveUser == "" {
				writeError(w, http.StatusForbidden, "login required")
				return
			}
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		h(w, r)
	})
}

func (s *HTTPServer) clientKey(r *http.Request) string {
	keyHeader, _ := s.keys.headers()
	if apiKey := r.Header.Get(keyHeader); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serviceError maps service and storage errors to HTTP responses.
func (s *HTTPServer) serviceError(w http.ResponseWriter, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    service.ErrTimeConflict.Error(),
			"conflict": conflict.With,
		})
	case errors.Is(err, service.ErrInvalidShow), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrShowNotFound),
		errors.Is(err, database.ErrLocationNotFound),
		errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrLocationExists), errors.Is(err, database.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", service.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
