package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
)

// PasswordChanger is the part of the auth service the user routes need.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, user *models.User, current, next, sourceIP string) error
}

// UserServiceInterface defines the interface for account lifecycle logic
type UserServiceInterface interface {
	DeleteAccount(ctx context.Context, user *models.User, sourceIP string) error
}

// UserHandler serves the caller's own account.
type UserHandler struct {
	passwords PasswordChanger
	users     UserServiceInterface
}

func NewUserHandler(passwords PasswordChanger, users UserServiceInterface) *UserHandler {
	return &UserHandler{passwords: passwords, users: users}
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, user.ToResponse())
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.passwords.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.users.DeleteAccount(r.Context(), user, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
