package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/stretchr/testify/assert"
)

type authorizerFunc func(ctx context.Context, token string) (*models.User, error)

func (f authorizerFunc) Authorize(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

func okHandler(t *testing.T, wantRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if assert.NotNil(t, user) && wantRole != "" {
			assert.Equal(t, wantRole, user.Role)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	authz := authorizerFunc(func(ctx context.Context, token string) (*models.User, error) {
		if token == "good" {
			return &models.User{ID: "u1", Email: "alice@example.com", Role: models.RoleUser}, nil
		}
		return nil, ErrInvalidToken
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(authz)(okHandler(t, "")).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		user   *models.User
		status int
	}{
		{"admin allowed", &models.User{Role: models.RoleAdmin}, http.StatusOK},
		{"user forbidden", &models.User{Role: models.RoleUser}, http.StatusForbidden},
		{"no user", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/security/alerts", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			w := httptest.NewRecorder()

			RequireRole(models.RoleAdmin)(okHandler(t, models.RoleAdmin)).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
