package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	pkgauth "github.com/BradenHooton/fintrack/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough"
	testPassword = "CorrectHorse42!"
	testIP       = "203.0.113.9"
)

type authFixture struct {
	svc    *AuthService
	mon    *monitor.Monitor
	store  *MockAuditStore
	clock  *fakeClock
	repo   *MockUserRepository
	hasher *pkgauth.Hasher
	users  map[string]*models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		store:  &MockAuditStore{},
		clock:  newFakeClock(),
		hasher: pkgauth.NewHasher(bcrypt.MinCost),
		users:  map[string]*models.User{},
	}
	f.repo = &MockUserRepository{
		GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			if u, ok := f.users[email]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(_ context.Context, u *models.User) (*models.User, error) {
			created := *u
			created.ID = "user-" + u.Email
			f.users[u.Email] = &created
			return &created, nil
		},
	}

	audit := NewAuditService(f.store, discardLogger(), nil)
	audit.now = f.clock.Now
	f.mon = monitor.New(monitor.Config{
		FailureThreshold: 5,
		FailureWindow:    5 * time.Minute,
		RateThreshold:    100,
		RateWindow:       time.Minute,
	}, monitor.WithClock(f.clock.Now), monitor.WithAlertSink(audit), monitor.WithLogger(discardLogger()))

	f.svc = NewAuthService(AuthServiceDeps{
		Users:   f.repo,
		Tokens:  auth.NewTokenManager(testSecret, 15*time.Minute),
		Monitor: f.mon,
		Audit:   audit,
		Hasher:  f.hasher,
		Logger:  discardLogger(),
	})
	f.svc.now = f.clock.Now
	return f
}

func (f *authFixture) addUser(t *testing.T, email string, active bool) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	u := &models.User{ID: "id-" + email, Email: email, PasswordHash: hash, Role: models.RoleUser, IsActive: active}
	f.users[email] = u
	return u
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", true)

	resp, err := f.svc.Login(context.Background(), "  Alice@Example.com ", testPassword, testIP)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.TokenTypeBearer, resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Contains(t, f.store.types(), models.EventSuccessfulLogin)
	assert.Zero(t, f.mon.FailureCount(monitor.IdentityKey("alice@example.com")))
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", true)
	f.addUser(t, "carol@example.com", false)
	f.addUser(t, "dave@example.com", true)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testPassword},
		{"wrong password", "alice@example.com", "Wrong-Password-1"},
		{"inactive account", "carol@example.com", testPassword},
		{"empty password", "dave@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Login(context.Background(), tt.email, tt.password, testIP)
			assert.Nil(t, resp)
			assert.Same(t, models.ErrUnauthorized, err)
			assert.Equal(t, 1, f.mon.FailureCount(monitor.IdentityKey(tt.email)))
		})
	}
	assert.Equal(t, len(tests), f.mon.FailureCount(monitor.OriginKey(testIP)))
}

func TestAuthService_Login_BlocksAfterThreshold(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, "alice@example.com", "Wrong-Password-1", testIP)
		require.ErrorIs(t, err, models.ErrUnauthorized)
		f.clock.Advance(time.Second)
	}

	_, err := f.svc.Login(ctx, "alice@example.com", testPassword, testIP)
	require.ErrorIs(t, err, models.ErrTooManyAttempts)
	var lockout *LockoutError
	require.True(t, errors.As(err, &lockout))
	assert.Greater(t, lockout.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, lockout.RetryAfter, 5*time.Minute)

	alerts := f.mon.QueryAlerts(time.Time{}, f.clock.Now())
	require.Len(t, alerts, 2)
	sources := []string{alerts[0].Source, alerts[1].Source}
	assert.ElementsMatch(t, []string{"ip:" + testIP, "user:alice@example.com"}, sources)
	for _, a := range alerts {
		assert.Equal(t, models.EventBruteForceAttempt, a.Type)
		assert.Equal(t, models.SeverityHigh, a.Severity)
	}

	// The blocked attempt is not counted again.
	assert.Equal(t, 5, f.mon.FailureCount(monitor.IdentityKey("alice@example.com")))

	f.clock.Advance(5 * time.Minute)
	resp, err := f.svc.Login(ctx, "alice@example.com", testPassword, "198.51.100.1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_Login_RepositoryError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.GetByEmailFunc = func(context.Context, string) (*models.User, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.svc.Login(context.Background(), "alice@example.com", testPassword, testIP)
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Zero(t, f.mon.FailureCount(monitor.OriginKey(testIP)))
}

func TestAuthService_Register(t *testing.T) {
	t.Run("creates user with default role", func(t *testing.T) {
		f := newAuthFixture(t)
		user, err := f.svc.Register(context.Background(), RegisterInput{
			Email:    " Bob@Example.com",
			Password: testPassword,
			FullName: " Bob ",
		}, testIP)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", user.Email)
		assert.Equal(t, "Bob", user.FullName)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, testPassword, user.PasswordHash)
		assert.NoError(t, f.hasher.Compare(user.PasswordHash, testPassword))
		assert.Contains(t, f.store.types(), models.EventUserCreated)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, "bob@example.com", true)
		_, err := f.svc.Register(context.Background(), RegisterInput{Email: "BOB@example.com", Password: testPassword}, testIP)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.Register(context.Background(), RegisterInput{Email: "bob@example.com", Password: "short"}, testIP)
		require.ErrorIs(t, err, models.ErrWeakPassword)
		var pve *pkgauth.PasswordValidationError
		require.True(t, errors.As(err, &pve))
		assert.NotEmpty(t, pve.Errors)
		assert.Empty(t, f.users)
	})
}

func TestAuthService_Authorize(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", true)
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, "alice@example.com", testPassword, testIP)
	require.NoError(t, err)

	user, err := f.svc.Authorize(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.Authorize(ctx, "not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.svc.Authorize(ctx, resp.AccessToken[:len(resp.AccessToken)-2]+"xx")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	f.users["alice@example.com"].IsActive = false
	_, err = f.svc.Authorize(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	delete(f.users, "alice@example.com")
	_, err = f.svc.Authorize(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", true)
	ctx := context.Background()

	var stored string
	f.repo.UpdatePasswordFunc = func(_ context.Context, id, hash string) error {
		assert.Equal(t, user.ID, id)
		stored = hash
		return nil
	}

	err := f.svc.ChangePassword(ctx, user, "Wrong-Password-1", "BrandNewPass7!", testIP)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, 1, f.mon.FailureCount(monitor.IdentityKey(user.Email)))

	err = f.svc.ChangePassword(ctx, user, testPassword, "weak", testIP)
	assert.ErrorIs(t, err, models.ErrWeakPassword)
	assert.Empty(t, stored)

	require.NoError(t, f.svc.ChangePassword(ctx, user, testPassword, "BrandNewPass7!", testIP))
	assert.NoError(t, f.hasher.Compare(stored, "BrandNewPass7!"))
	assert.Contains(t, f.store.types(), models.EventPasswordChanged)
}

func TestAuthService_ChangePassword_RejectedWhileLockedOut(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", true)
	ctx := context.Background()

	updated := false
	f.repo.UpdatePasswordFunc = func(context.Context, string, string) error {
		updated = true
		return nil
	}

	// Spread the guesses over addresses so only the identity key trips.
	for i := 0; i < 5; i++ {
		ip := "198.51.100." + string(rune('1'+i))
		err := f.svc.ChangePassword(ctx, user, "Wrong-Password-1", "BrandNewPass7!", ip)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
	require.True(t, f.mon.IsBlocked(monitor.IdentityKey(user.Email)))

	err := f.svc.ChangePassword(ctx, user, testPassword, "BrandNewPass7!", "192.0.2.77")
	var lockout *LockoutError
	require.True(t, errors.As(err, &lockout))
	assert.ErrorIs(t, err, models.ErrTooManyAttempts)
	assert.True(t, lockout.RetryAfter > 0)
	assert.False(t, updated)
	assert.Equal(t, 5, f.mon.FailureCount(monitor.IdentityKey(user.Email)))

	f.clock.Advance(5 * time.Minute)
	require.NoError(t, f.svc.ChangePassword(ctx, user, testPassword, "BrandNewPass7!", "192.0.2.77"))
	assert.True(t, updated)
}

func TestAuthService_ChangePassword_RejectedFromBlockedOrigin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.mon.RecordFailure(ctx, monitor.OriginKey(testIP), f.clock.Now())
	}

	err := f.svc.ChangePassword(ctx, user, testPassword, "BrandNewPass7!", testIP)
	assert.ErrorIs(t, err, models.ErrTooManyAttempts)
}

func TestAuthService_Register_LongPasswordIsWeak(t *testing.T) {
	f := newAuthFixture(t)

	// Compliant in every rule except bcrypt's 72-byte input limit.
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "Aa1!" + strings.Repeat("x", 76),
	}, testIP)
	require.ErrorIs(t, err, models.ErrWeakPassword)
	assert.NotErrorIs(t, err, models.ErrInternalServer)
	assert.Empty(t, f.users)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "Aa1!" + strings.Repeat("x", 68),
	}, testIP)
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(user.PasswordHash, "Aa1!"+strings.Repeat("x", 68)))
}

func TestLockoutError(t *testing.T) {
	err := &LockoutError{RetryAfter: 90 * time.Second}
	assert.ErrorIs(t, err, models.ErrTooManyAttempts)
	assert.True(t, strings.Contains(err.Error(), "1m30s"))
}
