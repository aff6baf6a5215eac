package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agenda/internal/database"
	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/metrics"
	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/share"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// LoginResult is the outcome of a regular user login attempt.
type LoginResult string

const (
	LoginSuccess LoginResult = "success"
	LoginBlocked LoginResult = "blocked"
	LoginInvalid LoginResult = "invalid"
)

// SubscriptionCheck is the outcome of checking one user's subscription.
type SubscriptionCheck string

const (
	SubscriptionActive   SubscriptionCheck = "active"
	SubscriptionBlocked  SubscriptionCheck = "blocked"
	SubscriptionNotFound SubscriptionCheck = "notFound"
)

const adminName = "Admin"

// AuthService is the access gate: one admin, any number of regular users
// and at most one active regular session.
type AuthService struct {
	users      domain.UserRepository
	sessions   domain.KVStore
	eventBus   domain.EventPublisher
	clock      schedule.Clock
	loc        *time.Location
	cost       int
	sessionTTL time.Duration
	logger     *zerolog.Logger
}

type AuthOptions struct {
	BcryptCost int
	SessionTTL time.Duration
	Location   *time.Location
}

func NewAuthService(
	users domain.UserRepository,
	sessions domain.KVStore,
	eventBus domain.EventPublisher,
	clock schedule.Clock,
	opts AuthOptions,
	logger *zerolog.Logger,
) *AuthService {
	if clock == nil {
		clock = schedule.RealClock{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		eventBus:   eventBus,
		clock:      clock,
		loc:        opts.Location,
		cost:       opts.BcryptCost,
		sessionTTL: opts.SessionTTL,
		logger:     logger,
	}
}

func secret(cpf string, yearOfBirth int) []byte {
	return []byte(cpf + ":" + strconv.Itoa(yearOfBirth))
}

func (s *AuthService) hash(cpf string, yearOfBirth int) (string, error) {
	h, err := bcrypt.GenerateFromPassword(secret(cpf, yearOfBirth), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash credentials: %w", err)
	}
	return string(h), nil
}

func matches(user *models.User, cpf string, yearOfBirth int) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), secret(cpf, yearOfBirth)) == nil
}

// RegisterAdmin creates the admin account on first use. Once an admin exists
// it behaves exactly like LoginAdmin.
func (s *AuthService) RegisterAdmin(ctx context.Context, cpf string, yearOfBirth int) (bool, error) {
	cpf = share.Digits(cpf)
	if cpf == "" || yearOfBirth <= 0 {
		return false, nil
	}

	_, err := s.users.GetAdmin(ctx)
	switch {
	case err == nil:
		return s.LoginAdmin(ctx, cpf, yearOfBirth)
	case !errors.Is(err, database.ErrUserNotFound):
		return false, err
	}

	hash, err := s.hash(cpf, yearOfBirth)
	if err != nil {
		return false, err
	}
	admin := &models.User{Name: adminName, CPF: cpf, YearOfBirth: yearOfBirth, CredentialHash: hash, IsAdmin: true}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info().Msg("admin registered")
	return true, s.setAdminSession(ctx, true)
}

func (s *AuthService) LoginAdmin(ctx context.Context, cpf string, yearOfBirth int) (bool, error) {
	cpf = share.Digits(cpf)
	admin, err := s.users.GetAdmin(ctx)
	if errors.Is(err, database.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if admin.CPF != cpf || !matches(admin, cpf, yearOfBirth) {
		return false, nil
	}
	return true, s.setAdminSession(ctx, true)
}

func (s *AuthService) LogoutAdmin(ctx context.Context) error {
	return s.setAdminSession(ctx, false)
}

// AddUser registers a regular user without a subscription.
func (s *AuthService) AddUser(ctx context.Context, name, cpf string, yearOfBirth int) (*models.User, error) {
	name = strings.TrimSpace(name)
	cpf = share.Digits(cpf)
	if name == "" || cpf == "" || yearOfBirth <= 0 {
		return nil, invalidInput("name, cpf and year of birth are required")
	}
	hash, err := s.hash(cpf, yearOfBirth)
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: name, CPF: cpf, YearOfBirth: yearOfBirth, CredentialHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AuthService) DeleteUser(ctx context.Context, cpf string) error {
	cpf = share.Digits(cpf)
	if err := s.users.DeleteUser(ctx, cpf); err != nil {
		return err
	}
	return s.logoutIfActive(ctx, cpf)
}

func (s *AuthService) BlockUser(ctx context.Context, cpf string) error {
	cpf = share.Digits(cpf)
	if err := s.users.SetUserBlocked(ctx, cpf, true); err != nil {
		return err
	}
	metrics.IncUserBlocked("manual")
	s.publishEvent(events.EventUserBlocked, events.UserEventPayload{CPF: cpf, Reason: "manual"})
	return s.logoutIfActive(ctx, cpf)
}

func (s *AuthService) UnblockUser(ctx context.Context, cpf string) error {
	cpf = share.Digits(cpf)
	if err := s.users.SetUserBlocked(ctx, cpf, false); err != nil {
		return err
	}
	s.publishEvent(events.EventUserUnblocked, events.UserEventPayload{CPF: cpf, Reason: "manual"})
	return nil
}

// NewSubscription starts a default-length subscription on start.
func NewSubscription(start time.Time, monthlyValue float64) *models.Subscription {
	return &models.Subscription{
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, models.SubscriptionDays),
		MonthlyValue:  monthlyValue,
		PaymentStatus: models.PaymentPending,
	}
}

// UpdateSubscription replaces the subscription of cpf. The user is unblocked
// when the new subscription ends today or later and blocked otherwise,
// including when sub is nil.
func (s *AuthService) UpdateSubscription(ctx context.Context, cpf string, sub *models.Subscription) (SubscriptionCheck, error) {
	cpf = share.Digits(cpf)
	if _, err := s.users.GetUserByCPF(ctx, cpf); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return SubscriptionNotFound, nil
		}
		return "", err
	}

	if sub != nil && sub.PaymentStatus == "" {
		sub.PaymentStatus = models.PaymentPending
	}
	active := sub != nil && !s.expired(sub)
	if err := s.users.SetSubscription(ctx, cpf, sub, !active); err != nil {
		return "", err
	}
	s.publishEvent(events.EventSubscriptionEdit, events.UserEventPayload{CPF: cpf})

	if active {
		return SubscriptionActive, nil
	}
	metrics.IncUserBlocked("subscription")
	if err := s.logoutIfActive(ctx, cpf); err != nil {
		return "", err
	}
	return SubscriptionBlocked, nil
}

// CheckSubscription blocks cpf when its subscription ended before today and
// reports whether the user is blocked afterwards.
func (s *AuthService) CheckSubscription(ctx context.Context, cpf string) (SubscriptionCheck, error) {
	user, err := s.users.GetUserByCPF(ctx, share.Digits(cpf))
	if errors.Is(err, database.ErrUserNotFound) {
		return SubscriptionNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if _, err := s.blockIfExpired(ctx, user); err != nil {
		return "", err
	}
	if user.IsBlocked {
		return SubscriptionBlocked, nil
	}
	return SubscriptionActive, nil
}

// ExpireSubscriptions sweeps every regular user and returns how many were blocked.
func (s *AuthService) ExpireSubscriptions(ctx context.Context) (int, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range users {
		blocked, err := s.blockIfExpired(ctx, &users[i])
		if err != nil {
			return count, err
		}
		if blocked {
			count++
		}
	}
	if count > 0 {
		s.logger.Info().Int("blocked", count).Msg("expired subscriptions blocked")
	}
	return count, nil
}

// RegisterUser logs an existing user in, or creates the user and opens
// their session.
func (s *AuthService) RegisterUser(ctx context.Context, name, cpf string, yearOfBirth int) (bool, error) {
	cpf = share.Digits(cpf)
	if strings.TrimSpace(name) == "" || cpf == "" || yearOfBirth <= 0 {
		return false, nil
	}

	_, err := s.users.GetUserByCPF(ctx, cpf)
	switch {
	case err == nil:
		result, err := s.Login(ctx, cpf, yearOfBirth)
		return result == LoginSuccess, err
	case !errors.Is(err, database.ErrUserNotFound):
		return false, err
	}

	if _, err := s.AddUser(ctx, name, cpf, yearOfBirth); err != nil {
		return false, err
	}
	return true, s.setActiveUser(ctx, cpf)
}

// Login checks the subscription and the blocked flag before the credentials.
func (s *AuthService) Login(ctx context.Context, cpf string, yearOfBirth int) (LoginResult, error) {
	cpf = share.Digits(cpf)
	user, err := s.users.GetUserByCPF(ctx, cpf)
	if errors.Is(err, database.ErrUserNotFound) {
		return LoginInvalid, nil
	}
	if err != nil {
		return "", err
	}

	blocked, err := s.blockIfExpired(ctx, user)
	if err != nil {
		return "", err
	}
	if blocked || user.IsBlocked {
		return LoginBlocked, nil
	}
	if !matches(user, cpf, yearOfBirth) {
		return LoginInvalid, nil
	}
	return LoginSuccess, s.setActiveUser(ctx, cpf)
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Delete(ctx, models.KeyActiveUserCPF)
}

func (s *AuthService) Session(ctx context.Context) (models.Session, error) {
	var session models.Session
	admin, ok, err := s.sessions.Get(ctx, models.KeyAdminSession)
	if err != nil {
		return session, err
	}
	session.Admin = ok && admin == "true"

	cpf, ok, err := s.sessions.Get(ctx, models.KeyActiveUserCPF)
	if err != nil {
		return session, err
	}
	if ok {
		session.ActiveUser = cpf
	}
	return session, nil
}

func (s *AuthService) blockIfExpired(ctx context.Context, user *models.User) (bool, error) {
	if user.IsBlocked || user.Subscription == nil || !s.expired(user.Subscription) {
		return false, nil
	}
	if err := s.users.SetUserBlocked(ctx, user.CPF, true); err != nil {
		return false, err
	}
	user.IsBlocked = true
	metrics.IncUserBlocked("subscription")
	s.publishEvent(events.EventUserBlocked, events.UserEventPayload{CPF: user.CPF, Reason: "subscription"})
	s.logger.Info().Str("cpf", share.FormatCPF(user.CPF)).Msg("subscription expired, user blocked")
	return true, s.logoutIfActive(ctx, user.CPF)
}

// expired compares calendar days only, ignoring the time of day.
func (s *AuthService) expired(sub *models.Subscription) bool {
	return s.today().After(dayOf(sub.EndDate, s.loc))
}

func (s *AuthService) today() time.Time {
	return dayOf(s.clock.Now(), s.loc)
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (s *AuthService) logoutIfActive(ctx context.Context, cpf string) error {
	active, ok, err := s.sessions.Get(ctx, models.KeyActiveUserCPF)
	if err != nil {
		return err
	}
	if ok && active == cpf {
		return s.Logout(ctx)
	}
	return nil
}

func (s *AuthService) setAdminSession(ctx context.Context, on bool) error {
	if !on {
		return s.sessions.Delete(ctx, models.KeyAdminSession)
	}
	return s.sessions.Set(ctx, models.KeyAdminSession, "true", s.sessionTTL)
}

func (s *AuthService) setActiveUser(ctx context.Context, cpf string) error {
	return s.sessions.Set(ctx, models.KeyActiveUserCPF, cpf, s.sessionTTL)
}

func (s *AuthService) publishEvent(eventType string, payload events.UserEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
