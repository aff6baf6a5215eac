package service

import (
	"context"
	"io"
	"testing"
	"time"

	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mutableClock struct {
	now time.Time
}

func (c *mutableClock) Now() time.Time { return c.now }

func newAuthService(t *testing.T, now time.Time) (*AuthService, *database.DB, *mutableClock) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &mutableClock{now: now}
	svc := NewAuthService(db, repository.NewMemoryKVStore(), nil, clock, AuthOptions{
		BcryptCost: bcrypt.MinCost,
		SessionTTL: time.Hour,
		Location:   time.UTC,
	}, &logger)
	return svc, db, clock
}

func TestAuthService_Admin(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newAuthService(t, time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC))

	ok, err := svc.RegisterAdmin(ctx, "", 1990)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RegisterAdmin(ctx, "123.456.789-00", 1990)
	require.NoError(t, err)
	assert.True(t, ok)

	admin, err := db.GetAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12345678900", admin.CPF)
	assert.Equal(t, "Admin", admin.Name)
	assert.NotContains(t, admin.CredentialHash, "1990")

	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.True(t, session.Admin)

	require.NoError(t, svc.LogoutAdmin(ctx))
	session, err = svc.Session(ctx)
	require.NoError(t, err)
	assert.False(t, session.Admin)

	// second registration acts as login
	ok, err = svc.RegisterAdmin(ctx, "12345678900", 1991)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.LoginAdmin(ctx, "99999999999", 1990)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RegisterAdmin(ctx, "123.456.789-00", 1990)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_AdminIsNotARegularUser(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newAuthService(t, time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC))

	ok, err := svc.RegisterAdmin(ctx, "12345678900", 1990)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := svc.Login(ctx, "12345678900", 1990)
	require.NoError(t, err)
	assert.Equal(t, LoginInvalid, result)

	assert.ErrorIs(t, svc.BlockUser(ctx, "12345678900"), database.ErrUserNotFound)
	check, err := svc.UpdateSubscription(ctx, "12345678900", nil)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionNotFound, check)

	user, err := svc.AddUser(ctx, "Maria", "12345678900", 1985)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)

	admin, err := db.GetAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, admin.IsBlocked)
	assert.Nil(t, admin.Subscription)

	ok, err = svc.LoginAdmin(ctx, "12345678900", 1990)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_LoginAdminWithoutAdmin(t *testing.T) {
	svc, _, _ := newAuthService(t, time.Now())
	ok, err := svc.LoginAdmin(context.Background(), "123", 1990)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthService_Users(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthService(t, time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC))

	_, err := svc.AddUser(ctx, "", "111", 1990)
	assert.ErrorIs(t, err, ErrInvalidInput)

	user, err := svc.AddUser(ctx, "Maria", "111.222.333-44", 1995)
	require.NoError(t, err)
	assert.Equal(t, "11122233344", user.CPF)
	assert.False(t, user.IsBlocked)
	assert.Nil(t, user.Subscription)

	_, err = svc.AddUser(ctx, "Outra", "11122233344", 1980)
	assert.ErrorIs(t, err, database.ErrUserExists)

	result, err := svc.Login(ctx, "11122233344", 1994)
	require.NoError(t, err)
	assert.Equal(t, LoginInvalid, result)

	result, err = svc.Login(ctx, "11122233344", 1995)
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, result)

	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "11122233344", session.ActiveUser)

	require.NoError(t, svc.BlockUser(ctx, "11122233344"))
	session, err = svc.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.ActiveUser)

	result, err = svc.Login(ctx, "11122233344", 1995)
	require.NoError(t, err)
	assert.Equal(t, LoginBlocked, result)

	require.NoError(t, svc.UnblockUser(ctx, "11122233344"))
	result, err = svc.Login(ctx, "11122233344", 1995)
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, result)

	assert.ErrorIs(t, svc.BlockUser(ctx, "000"), database.ErrUserNotFound)
	assert.ErrorIs(t, svc.UnblockUser(ctx, "000"), database.ErrUserNotFound)

	require.NoError(t, svc.DeleteUser(ctx, "11122233344"))
	session, err = svc.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.ActiveUser)

	result, err = svc.Login(ctx, "11122233344", 1995)
	require.NoError(t, err)
	assert.Equal(t, LoginInvalid, result)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthService(t, time.Now())

	ok, err := svc.RegisterUser(ctx, "", "123", 1990)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RegisterUser(ctx, "João", "123", 1990)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Logout(ctx))

	ok, err = svc.RegisterUser(ctx, "João", "123", 1991)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RegisterUser(ctx, "Qualquer", "123", 1990)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_Subscriptions(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)
	svc, db, clock := newAuthService(t, today)

	_, err := svc.AddUser(ctx, "Ana", "555", 1990)
	require.NoError(t, err)

	check, err := svc.UpdateSubscription(ctx, "404", nil)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionNotFound, check)

	// ends today: still active
	sub := &models.Subscription{StartDate: today.AddDate(0, -1, 0), EndDate: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC), MonthlyValue: 50}
	check, err = svc.UpdateSubscription(ctx, "555", sub)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionActive, check)

	user, err := db.GetUserByCPF(ctx, "555")
	require.NoError(t, err)
	require.NotNil(t, user.Subscription)
	assert.Equal(t, models.PaymentPending, user.Subscription.PaymentStatus)
	assert.False(t, user.IsBlocked)

	result, err := svc.Login(ctx, "555", 1990)
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, result)

	// next day the subscription has expired
	clock.now = today.AddDate(0, 0, 1)
	check, err = svc.CheckSubscription(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionBlocked, check)

	session, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.ActiveUser)

	check, err = svc.CheckSubscription(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionBlocked, check)

	result, err = svc.Login(ctx, "555", 1990)
	require.NoError(t, err)
	assert.Equal(t, LoginBlocked, result)

	renewed := NewSubscription(clock.now, 50)
	check, err = svc.UpdateSubscription(ctx, "555", renewed)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionActive, check)

	result, err = svc.Login(ctx, "555", 1990)
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, result)

	check, err = svc.UpdateSubscription(ctx, "555", nil)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionBlocked, check)

	session, err = svc.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.ActiveUser)
}

func TestAuthService_ExpireSubscriptions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	svc, db, _ := newAuthService(t, now)

	for _, cpf := range []string{"1", "2", "3"} {
		_, err := svc.AddUser(ctx, "User "+cpf, cpf, 1990)
		require.NoError(t, err)
	}
	expired := &models.Subscription{StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, 0, -3), PaymentStatus: models.PaymentOverdue}
	require.NoError(t, db.SetSubscription(ctx, "1", expired, false))
	require.NoError(t, db.SetSubscription(ctx, "2", NewSubscription(now, 30), false))

	count, err := svc.ExpireSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	user, err := db.GetUserByCPF(ctx, "1")
	require.NoError(t, err)
	assert.True(t, user.IsBlocked)

	user, err = db.GetUserByCPF(ctx, "3")
	require.NoError(t, err)
	assert.False(t, user.IsBlocked)
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	got := dayOf(time.Date(2025, 11, 11, 1, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, 10, got.Day())
	assert.Equal(t, 0, got.Hour())
}
