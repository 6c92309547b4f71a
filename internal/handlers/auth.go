package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/services"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, sourceIP string) (*models.TokenResponse, error)
	Register(ctx context.Context, in services.RegisterInput, sourceIP string) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service   AuthServiceInterface
	suspicion SuspicionRecorder
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, suspicion SuspicionRecorder) *AuthHandler {
	return &AuthHandler{
		service:   service,
		suspicion: suspicion,
	}
}

// TokenRequest is the OAuth2 password-grant form. The username is the
// account email.
type TokenRequest struct {
	Username string `form:"username" validate:"required,max=254"`
	Password string `form:"password" validate:"required,max=128"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	FullName string `json:"full_name" validate:"max=100"`
}

// Token handles login
// @Summary Exchange credentials for a bearer token
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			pkghttp.WritePayloadTooLarge(w, "Request body too large")
			return
		}
		pkghttp.WriteBadRequest(w, "Invalid form body")
		return
	}

	req := TokenRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	if fields := ValidateRequest(req); fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return
	}
	reportProbe(r, h.suspicion, "username", req.Username)

	resp, err := h.service.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			// Same body for unknown accounts and wrong passwords.
			pkghttp.WriteUnauthorized(w, "Incorrect email or password")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Register handles user registration
// @Summary Create an account
// @Accept json
// @Produce json
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 422 {object} pkghttp.ErrorResponse
// @Router /users/ [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reportProbe(r, h.suspicion, "email", req.Email)

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteBadRequest(w, "Email already registered")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}
