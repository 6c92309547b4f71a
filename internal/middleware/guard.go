package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// RequestMonitor is the part of the Security Monitor the guard consults.
type RequestMonitor interface {
	IsBlocked(key monitor.SourceKey) bool
	BlockedFor(key monitor.SourceKey) time.Duration
	IsRateLimited(key monitor.SourceKey) bool
	RateLimitedFor(key monitor.SourceKey) time.Duration
	RecordRequest(ctx context.Context, key monitor.SourceKey, at time.Time) *models.Alert
}

// GuardConfig holds Access Guard configuration
type GuardConfig struct {
	MaxBodyBytes int64
	IPConfig     *pkghttp.IPConfig
}

// Guard screens every request before it reaches a handler:
//  1. a declared body above MaxBodyBytes is rejected with 413, and the body
//     reader is capped so undeclared bodies cannot exceed it either;
//  2. a blocked or rate-limited origin is rejected with 429;
//  3. otherwise the request is forwarded.
//
// Every request, rejected or not, is recorded against its origin once the
// response has been written.
func Guard(mon RequestMonitor, config GuardConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			arrived := time.Now()
			ip := pkghttp.ExtractClientIP(r, config.IPConfig)
			key := monitor.OriginKey(ip)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)

			defer mon.RecordRequest(context.WithoutCancel(ctx), key, arrived)

			if config.MaxBodyBytes > 0 {
				if r.ContentLength > config.MaxBodyBytes {
					logger.Warn("request body too large",
						slog.String("client_ip", ip),
						slog.Int64("content_length", r.ContentLength))
					pkghttp.WritePayloadTooLarge(w, "Request body too large")
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
			}

			if mon.IsBlocked(key) {
				logger.Warn("request rejected: origin blocked", slog.String("client_ip", ip))
				pkghttp.WriteTooManyAttempts(w, "Too many failed attempts, try again later", mon.BlockedFor(key))
				return
			}
			if mon.IsRateLimited(key) {
				logger.Warn("request rejected: origin rate limited", slog.String("client_ip", ip))
				pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", mon.RateLimitedFor(key))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address the guard resolved for r, falling back to
// the direct peer when the guard did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok {
		return ip
	}
	return pkghttp.ExtractClientIP(r, nil)
}
