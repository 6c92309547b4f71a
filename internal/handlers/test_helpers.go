package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	"github.com/BradenHooton/fintrack/internal/services"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewFormRequest creates a form-encoded POST request for testing
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// WithUser adds an authenticated user to the request context
func WithUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), user))
}

// WithURLParams sets chi route parameters on the request
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface and PasswordChanger for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, sourceIP string) (*models.TokenResponse, error)
	RegisterFunc       func(ctx context.Context, in services.RegisterInput, sourceIP string) (*models.User, error)
	ChangePasswordFunc func(ctx context.Context, user *models.User, current, next, sourceIP string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, sourceIP string) (*models.TokenResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, sourceIP)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput, sourceIP string) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in, sourceIP)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, user *models.User, current, next, sourceIP string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, user, current, next, sourceIP)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	DeleteAccountFunc func(ctx context.Context, user *models.User, sourceIP string) error
}

func (m *MockUserService) DeleteAccount(ctx context.Context, user *models.User, sourceIP string) error {
	if m.DeleteAccountFunc == nil {
		return nil
	}
	return m.DeleteAccountFunc(ctx, user, sourceIP)
}

// MockCardService implements CardServiceInterface for testing
type MockCardService struct {
	CreateFunc func(ctx context.Context, ownerID string, in services.CreateCardInput, sourceIP string) (*models.Card, error)
	ListFunc   func(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error)
	GetFunc    func(ctx context.Context, ownerID, cardID string) (*models.Card, error)
	DeleteFunc func(ctx context.Context, ownerID, cardID, sourceIP string) error
}

func (m *MockCardService) Create(ctx context.Context, ownerID string, in services.CreateCardInput, sourceIP string) (*models.Card, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, ownerID, in, sourceIP)
}

func (m *MockCardService) List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error) {
	if m.ListFunc == nil {
		return []*models.Card{}, nil
	}
	return m.ListFunc(ctx, ownerID, limit, offset)
}

func (m *MockCardService) Get(ctx context.Context, ownerID, cardID string) (*models.Card, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, ownerID, cardID)
}

func (m *MockCardService) Delete(ctx context.Context, ownerID, cardID, sourceIP string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, ownerID, cardID, sourceIP)
}

// MockTransactionService implements TransactionServiceInterface for testing
type MockTransactionService struct {
	CreateFunc     func(ctx context.Context, ownerID, cardID string, in services.CreateTransactionInput, sourceIP string) (*models.Transaction, error)
	ListByCardFunc func(ctx context.Context, ownerID, cardID string, limit, offset int) ([]*models.Transaction, error)
	DeleteFunc     func(ctx context.Context, ownerID, txID, sourceIP string) error
}

func (m *MockTransactionService) Create(ctx context.Context, ownerID, cardID string, in services.CreateTransactionInput, sourceIP string) (*models.Transaction, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, ownerID, cardID, in, sourceIP)
}

func (m *MockTransactionService) ListByCard(ctx context.Context, ownerID, cardID string, limit, offset int) ([]*models.Transaction, error) {
	if m.ListByCardFunc == nil {
		return []*models.Transaction{}, nil
	}
	return m.ListByCardFunc(ctx, ownerID, cardID, limit, offset)
}

func (m *MockTransactionService) Delete(ctx context.Context, ownerID, txID, sourceIP string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, ownerID, txID, sourceIP)
}

// MockSecurityService implements SecurityServiceInterface for testing
type MockSecurityService struct {
	AlertsFunc     func(start, end time.Time) []models.Alert
	AuditTrailFunc func(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error)
}

func (m *MockSecurityService) Alerts(start, end time.Time) []models.Alert {
	if m.AlertsFunc == nil {
		return []models.Alert{}
	}
	return m.AlertsFunc(start, end)
}

func (m *MockSecurityService) AuditTrail(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	if m.AuditTrailFunc == nil {
		return []models.AuditEntry{}, nil
	}
	return m.AuditTrailFunc(ctx, start, end)
}

// RecordingSuspicionRecorder collects suspicious-activity reports.
type RecordingSuspicionRecorder struct {
	mu      sync.Mutex
	Reports []string
}

func (r *RecordingSuspicionRecorder) RecordSuspicious(_ context.Context, key monitor.SourceKey, kind, detail string) models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, string(key)+" "+kind+": "+detail)
	return models.Alert{Type: models.EventSuspiciousActivity, Severity: models.SeverityMedium, Source: string(key)}
}

func (r *RecordingSuspicionRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Reports)
}
