package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/services"
	pkgauth "github.com/BradenHooton/fintrack/pkg/auth"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
)

const lockoutMessage = "Too many failed attempts, try again later"

// writeServiceError maps a service error onto the API's status codes. Any
// error it does not recognise becomes a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		lockout *services.LockoutError
		verr    *models.ValidationError
		pve     *pkgauth.PasswordValidationError
		maxErr  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &lockout):
		pkghttp.WriteTooManyAttempts(w, lockoutMessage, lockout.RetryAfter)
	case errors.Is(err, models.ErrTooManyAttempts):
		pkghttp.WriteTooManyAttempts(w, lockoutMessage, 0)
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", 0)
	case errors.As(err, &verr):
		fields := make([]pkghttp.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, pkghttp.FieldError{Field: f.Field, Message: f.Message})
		}
		pkghttp.WriteValidationError(w, fields)
	case errors.Is(err, models.ErrWeakPassword):
		details := ""
		if errors.As(err, &pve) {
			details = pve.Error()
		}
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "weak_password",
			"Password does not meet strength requirements", details)
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Could not validate credentials")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Not allowed to access this resource")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteBadRequest(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.As(err, &maxErr), errors.Is(err, models.ErrPayloadTooLarge):
		pkghttp.WritePayloadTooLarge(w, "Request body too large")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
