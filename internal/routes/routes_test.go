package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/handlers"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	"github.com/BradenHooton/fintrack/internal/routes"
	"github.com/BradenHooton/fintrack/internal/services"
	pkgauth "github.com/BradenHooton/fintrack/pkg/auth"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "CorrectHorse42!"

// memoryUsers is an in-memory credential store.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *services.MockUserRepository {
	m := &memoryUsers{users: map[string]*models.User{}}
	return &services.MockUserRepository{
		GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if u, ok := m.users[email]; ok {
				c := *u
				return &c, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(_ context.Context, u *models.User) (*models.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.users[u.Email]; ok {
				return nil, models.ErrConflict
			}
			c := *u
			c.ID = uuid.NewString()
			c.CreatedAt = time.Now()
			m.users[c.Email] = &c
			out := c
			return &out, nil
		},
		UpdateRoleFunc: func(_ context.Context, id, role string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.users {
				if u.ID == id {
					u.Role = role
					return nil
				}
			}
			return models.ErrNotFound
		},
	}
}

type testServer struct {
	handler http.Handler
	monitor *monitor.Monitor
	auth    *services.AuthService
	users   *services.UserService
	clock   *skewClock
}

// skewClock runs at wall-clock speed from a movable offset.
type skewClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *skewClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *skewClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := newMemoryUsers()
	audit := services.NewAuditService(&services.MockAuditStore{}, logger, nil)
	reg := prometheus.NewRegistry()
	clock := &skewClock{}
	mon := monitor.New(monitor.Config{
		FailureThreshold: 5,
		FailureWindow:    5 * time.Minute,
		RateThreshold:    1000,
		RateWindow:       time.Minute,
	}, monitor.WithClock(clock.Now), monitor.WithAlertSink(audit), monitor.WithMetrics(monitor.NewMetrics(reg)), monitor.WithLogger(logger))

	authSvc := services.NewAuthService(services.AuthServiceDeps{
		Users:   users,
		Tokens:  auth.NewTokenManager("routes-test-secret-0123456789", 30*time.Minute),
		Monitor: mon,
		Audit:   audit,
		Hasher:  pkgauth.NewHasher(bcrypt.MinCost),
		Logger:  logger,
	})
	userSvc := services.NewUserService(users, audit, logger)
	cardSvc := services.NewCardService(&services.MockCardRepository{}, audit, logger)
	txSvc := services.NewTransactionService(&services.MockTransactionRepository{}, cardSvc, audit, logger)

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authSvc, mon),
		Users:        handlers.NewUserHandler(authSvc, userSvc),
		Cards:        handlers.NewCardHandler(cardSvc, mon),
		Transactions: handlers.NewTransactionHandler(txSvc, mon),
		Security:     handlers.NewSecurityHandler(services.NewSecurityService(mon, audit, logger)),
	}

	router := routes.NewRouter(routes.RouterConfig{
		Env:           "test",
		Guard:         middleware.GuardConfig{MaxBodyBytes: 1 << 20},
		Monitor:       mon,
		Authorizer:    authSvc,
		AuthRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 1000},
		Metrics:       reg,
		Logger:        logger,
	}, h)

	return &testServer{handler: router, monitor: mon, auth: authSvc, users: userSvc, clock: clock}
}

func (s *testServer) do(req *http.Request, ip string) *httptest.ResponseRecorder {
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email, ip string) {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + strongPassword + `","full_name":"Test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req, ip)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), strongPassword)
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func (s *testServer) login(email, password, ip string) *httptest.ResponseRecorder {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, ip)
}

func (s *testServer) get(path, token, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req, ip)
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func TestBruteForceLockout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice@example.com", "198.51.100.1")

	// The account works before any failures.
	accessToken(t, s.login("alice@example.com", strongPassword, "198.51.100.1"))

	var firstBody string
	for i := 1; i <= 4; i++ {
		rec := s.login("alice@example.com", "Wrong-guess-1", "203.0.113.5")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		if firstBody == "" {
			firstBody = rec.Body.String()
		}
		assert.Equal(t, firstBody, rec.Body.String())
	}
	assert.False(t, s.monitor.IsBlocked(monitor.IdentityKey("alice@example.com")))
	assert.False(t, s.monitor.IsBlocked(monitor.OriginKey("203.0.113.5")))

	// The fifth failure still answers 401 and reaches the threshold.
	rec := s.login("alice@example.com", "Wrong-guess-1", "203.0.113.5")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, firstBody, rec.Body.String())
	assert.True(t, s.monitor.IsBlocked(monitor.IdentityKey("alice@example.com")))

	// The account is locked even with the right password from a fresh address.
	rec = s.login("alice@example.com", strongPassword, "198.51.100.77")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too_many_attempts")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	// The attacking address is blocked by the guard on every route.
	rec = s.get("/health", "", "203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	alerts := s.monitor.QueryAlerts(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	var bruteForce []string
	for _, a := range alerts {
		if a.Type == models.EventBruteForceAttempt {
			bruteForce = append(bruteForce, a.Source)
		}
	}
	assert.ElementsMatch(t, []string{"ip:203.0.113.5", "user:alice@example.com"}, bruteForce)

	// Once the failures age out of the window both blocks lift.
	s.clock.Advance(5*time.Minute + time.Second)
	assert.False(t, s.monitor.IsBlocked(monitor.IdentityKey("alice@example.com")))

	rec = s.get("/health", "", "203.0.113.5")
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	accessToken(t, s.login("alice@example.com", strongPassword, "198.51.100.77"))
}

func TestUnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice@example.com", "198.51.100.1")

	wrong := s.login("alice@example.com", "Wrong-guess-1", "203.0.113.10")
	unknown := s.login("mallory@example.com", "Wrong-guess-1", "203.0.113.11")

	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, wrong.Header().Get("WWW-Authenticate"), unknown.Header().Get("WWW-Authenticate"))
}

func TestAuthenticatedProfileAndAdminViews(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice@example.com", "198.51.100.1")

	token := accessToken(t, s.login("alice@example.com", strongPassword, "198.51.100.1"))

	rec := s.get("/api/v1/users/me", token, "198.51.100.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.get("/api/v1/users/me", "", "198.51.100.1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.get("/api/v1/security/alerts", token, "198.51.100.1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, s.users.EnsureAdmin(context.Background(), s.auth, "root@example.com", strongPassword))
	adminToken := accessToken(t, s.login("root@example.com", strongPassword, "198.51.100.2"))

	rec = s.get("/api/v1/security/audit", adminToken, "198.51.100.2")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	types := make([]models.EventType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, models.EventUserCreated)
	assert.Contains(t, types, models.EventSuccessfulLogin)

	rec = s.get("/api/v1/security/alerts", adminToken, "198.51.100.2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOversizedBodyRejected(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"email":"` + strings.Repeat("a", 2<<20) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/", body)
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req, "198.51.100.3")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.login("nobody@example.com", "x", "198.51.100.4")

	rec := s.get("/metrics", "", "198.51.100.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fintrack_monitor_failures_recorded_total")
}
