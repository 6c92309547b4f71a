package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
)

const defaultSecurityRange = 24 * time.Hour

// SecurityServiceInterface defines the admin views of the security state.
type SecurityServiceInterface interface {
	Alerts(start, end time.Time) []models.Alert
	AuditTrail(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error)
}

// SecurityHandler serves alerts and the audit trail to administrators.
type SecurityHandler struct {
	service SecurityServiceInterface
	now     func() time.Time
}

func NewSecurityHandler(service SecurityServiceInterface) *SecurityHandler {
	return &SecurityHandler{service: service, now: time.Now}
}

// parseRange reads RFC 3339 start and end query parameters. Missing bounds
// default to the last 24 hours.
func (h *SecurityHandler) parseRange(r *http.Request) (time.Time, time.Time, []pkghttp.FieldError) {
	var fields []pkghttp.FieldError
	q := r.URL.Query()

	end := h.now()
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fields = append(fields, pkghttp.FieldError{Field: "end", Message: "must be an RFC 3339 timestamp"})
		} else {
			end = t
		}
	}

	start := end.Add(-defaultSecurityRange)
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fields = append(fields, pkghttp.FieldError{Field: "start", Message: "must be an RFC 3339 timestamp"})
		} else {
			start = t
		}
	}

	if fields == nil && start.After(end) {
		fields = append(fields, pkghttp.FieldError{Field: "start", Message: "must not be after end"})
	}
	return start, end, fields
}

// Alerts lists security alerts raised in the requested range.
func (h *SecurityHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	start, end, fields := h.parseRange(r)
	if fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, h.service.Alerts(start, end))
}

// Audit lists audit entries recorded in the requested range.
func (h *SecurityHandler) Audit(w http.ResponseWriter, r *http.Request) {
	start, end, fields := h.parseRange(r)
	if fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, entries)
}
