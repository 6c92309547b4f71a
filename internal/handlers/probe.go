package handlers

import (
	"context"
	"net/http"
	"net/url"
	"regexp"

	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	"github.com/google/uuid"
)

// SuspicionRecorder receives inputs that look like attack probes.
type SuspicionRecorder interface {
	RecordSuspicious(ctx context.Context, key monitor.SourceKey, kind, detail string) models.Alert
}

var probePattern = regexp.MustCompile(`(?i)('|--|;|/\*|\*/|\bunion\b\s+\bselect\b|\bor\b\s+\d+\s*=\s*\d+|<\s*script|\.\./|%00|\bsleep\s*\()`)

// looksLikeProbe reports whether s carries SQL or script injection markers.
func looksLikeProbe(s string) bool {
	return probePattern.MatchString(s)
}

// reportProbe records s against the request origin if it looks like a probe.
func reportProbe(r *http.Request, rec SuspicionRecorder, field, s string) {
	if rec == nil || !looksLikeProbe(s) {
		return
	}
	detail := field + " contained injection markers"
	rec.RecordSuspicious(r.Context(), monitor.OriginKey(middleware.ClientIP(r)), "injection_probe", detail)
}

// pathID parses a UUID path parameter. A malformed ID is reported as not
// found; probe-shaped ones are also recorded.
func pathID(r *http.Request, rec SuspicionRecorder, field, raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		if unescaped, uerr := url.PathUnescape(raw); uerr == nil {
			raw = unescaped
		}
		reportProbe(r, rec, field, raw)
		return "", false
	}
	return id.String(), true
}
