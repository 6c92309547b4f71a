// Package monitor tracks authentication failures and request volume per
// source over trailing time windows and raises security alerts when
// thresholds are crossed.
//
// All state lives in memory and is lost on restart. Alerts are mirrored to an
// AlertSink, normally the audit trail, which is the durable record.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
)

const (
	DefaultFailureThreshold   = 5
	DefaultFailureWindow      = 5 * time.Minute
	DefaultRateThreshold      = 100
	DefaultRateWindow         = time.Minute
	DefaultSuspiciousPerKey   = 100
	DefaultSuspiciousLifetime = 24 * time.Hour
)

// Key prefixes
const (
	OriginPrefix   = "ip:"
	IdentityPrefix = "user:"
)

// SourceKey buckets monitoring counters by origin.
type SourceKey string

// OriginKey keys activity by network address.
func OriginKey(ip string) SourceKey {
	return SourceKey(OriginPrefix + ip)
}

// IdentityKey keys activity by account email, normalized.
func IdentityKey(email string) SourceKey {
	return SourceKey(IdentityPrefix + strings.ToLower(strings.TrimSpace(email)))
}

// SplitSource breaks a key (or an alert's Source) into its prefix and value.
// A string without a known prefix returns an empty prefix.
func SplitSource(source string) (prefix, value string) {
	for _, p := range []string{OriginPrefix, IdentityPrefix} {
		if v, ok := strings.CutPrefix(source, p); ok {
			return p, v
		}
	}
	return "", source
}

// Config holds the monitor thresholds. Zero fields take the defaults.
type Config struct {
	FailureThreshold   int
	FailureWindow      time.Duration
	RateThreshold      int
	RateWindow         time.Duration
	SuspiciousPerKey   int
	SuspiciousLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = DefaultFailureWindow
	}
	if c.RateThreshold <= 0 {
		c.RateThreshold = DefaultRateThreshold
	}
	if c.RateWindow <= 0 {
		c.RateWindow = DefaultRateWindow
	}
	if c.SuspiciousPerKey <= 0 {
		c.SuspiciousPerKey = DefaultSuspiciousPerKey
	}
	if c.SuspiciousLifetime <= 0 {
		c.SuspiciousLifetime = DefaultSuspiciousLifetime
	}
	return c
}

// AlertSink receives every alert after it has been recorded in memory.
type AlertSink interface {
	RecordAlert(ctx context.Context, alert models.Alert)
}

// SuspiciousEvent is one anomaly reported by an upstream layer.
type SuspiciousEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
}

type Option func(*Monitor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithAlertSink(sink AlertSink) Option {
	return func(m *Monitor) { m.sink = sink }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// Monitor is safe for concurrent use. One mutex guards both window tracks,
// the suspicious-activity log and the alert list, so a threshold check is
// atomic with the mutation that triggered it.
type Monitor struct {
	cfg     Config
	now     func() time.Time
	sink    AlertSink
	metrics *Metrics
	logger  *slog.Logger

	mu         sync.Mutex
	failures   map[SourceKey]*window
	requests   map[SourceKey]*window
	suspicious map[SourceKey][]SuspiciousEvent
	alerts     []models.Alert
}

func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		logger:     slog.Default(),
		failures:   make(map[SourceKey]*window),
		requests:   make(map[SourceKey]*window),
		suspicious: make(map[SourceKey][]SuspiciousEvent),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective thresholds.
func (m *Monitor) Config() Config {
	return m.cfg
}

// RecordFailure adds a failed authentication at time at. A timestamp already
// outside the failure window is ignored. The first failure that brings the
// key to the threshold raises a brute_force_attempt alert, which is returned;
// further failures while the key stays blocked raise nothing.
func (m *Monitor) RecordFailure(ctx context.Context, key SourceKey, at time.Time) *models.Alert {
	m.mu.Lock()
	now := m.now()
	w := track(m.failures, key)
	w.prune(now, m.cfg.FailureWindow)

	if now.Sub(at) >= m.cfg.FailureWindow {
		m.mu.Unlock()
		return nil
	}

	before := w.len()
	w.insert(at)
	after := w.len()
	m.metrics.incFailures()

	var alert *models.Alert
	if before < m.cfg.FailureThreshold && after >= m.cfg.FailureThreshold {
		alert = m.raiseLocked(now, models.EventBruteForceAttempt, models.SeverityHigh, key,
			fmt.Sprintf("%d failed login attempts from %s within %s", after, key, m.cfg.FailureWindow))
	}
	m.mu.Unlock()

	m.mirror(ctx, alert)
	return alert
}

// RecordRequest adds a request at time at to the volume track. The request
// that first takes the key above the rate threshold raises a
// rate_limit_exceeded alert.
func (m *Monitor) RecordRequest(ctx context.Context, key SourceKey, at time.Time) *models.Alert {
	m.mu.Lock()
	now := m.now()
	w := track(m.requests, key)
	w.prune(now, m.cfg.RateWindow)

	if now.Sub(at) >= m.cfg.RateWindow {
		m.mu.Unlock()
		return nil
	}

	before := w.len()
	w.insert(at)
	after := w.len()
	m.metrics.incRequests()

	var alert *models.Alert
	if before <= m.cfg.RateThreshold && after > m.cfg.RateThreshold {
		alert = m.raiseLocked(now, models.EventRateLimitExceeded, models.SeverityMedium, key,
			fmt.Sprintf("%d requests from %s within %s", after, key, m.cfg.RateWindow))
	}
	m.mu.Unlock()

	m.mirror(ctx, alert)
	return alert
}

// RecordSuspicious always raises a suspicious_activity alert and appends to
// the key's suspicious-activity log.
func (m *Monitor) RecordSuspicious(ctx context.Context, key SourceKey, kind, detail string) models.Alert {
	m.mu.Lock()
	now := m.now()
	events := append(m.suspicious[key], SuspiciousEvent{Timestamp: now, Kind: kind, Detail: detail})
	if len(events) > m.cfg.SuspiciousPerKey {
		events = append(events[:0:0], events[len(events)-m.cfg.SuspiciousPerKey:]...)
	}
	m.suspicious[key] = events
	alert := m.raiseLocked(now, models.EventSuspiciousActivity, models.SeverityMedium, key,
		fmt.Sprintf("suspicious activity (%s) from %s: %s", kind, key, detail))
	m.mu.Unlock()

	m.mirror(ctx, alert)
	return *alert
}

// raiseLocked appends an alert to the in-memory list. Callers hold m.mu.
func (m *Monitor) raiseLocked(now time.Time, typ models.EventType, sev models.Severity, key SourceKey, desc string) *models.Alert {
	alert := models.Alert{
		Timestamp:   now,
		Type:        typ,
		Description: desc,
		Severity:    sev,
		Source:      string(key),
	}
	m.alerts = append(m.alerts, alert)
	m.metrics.incAlert(typ)
	return &alert
}

// mirror logs the alert and passes it to the sink. It runs after m.mu is
// released and before the recording call returns.
func (m *Monitor) mirror(ctx context.Context, alert *models.Alert) {
	if alert == nil {
		return
	}
	m.logger.WarnContext(ctx, "security alert raised",
		slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.String("source", alert.Source),
	)
	if m.sink != nil {
		m.sink.RecordAlert(ctx, *alert)
	}
}

// FailureCount returns the failures for key inside the trailing window.
func (m *Monitor) FailureCount(key SourceKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(m.failures, key, m.cfg.FailureWindow)
}

// RequestCount returns the requests for key inside the trailing window.
func (m *Monitor) RequestCount(key SourceKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(m.requests, key, m.cfg.RateWindow)
}

func (m *Monitor) countLocked(tracks map[SourceKey]*window, key SourceKey, span time.Duration) int {
	w, ok := tracks[key]
	if !ok {
		return 0
	}
	w.prune(m.now(), span)
	return w.len()
}

// IsBlocked reports whether key has reached the failure threshold. It is
// derived from the window on every call; there is no separate lock flag.
func (m *Monitor) IsBlocked(key SourceKey) bool {
	return m.FailureCount(key) >= m.cfg.FailureThreshold
}

// IsRateLimited reports whether key is already above the rate threshold.
func (m *Monitor) IsRateLimited(key SourceKey) bool {
	return m.RequestCount(key) > m.cfg.RateThreshold
}

// BlockedFor returns how long key stays blocked, or zero if it is not.
func (m *Monitor) BlockedFor(key SourceKey) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.countLocked(m.failures, key, m.cfg.FailureWindow)
	if n < m.cfg.FailureThreshold {
		return 0
	}
	// Unblocks once the count drops below the threshold.
	return m.failures[key].expiresIn(n-m.cfg.FailureThreshold, m.now(), m.cfg.FailureWindow)
}

// RateLimitedFor returns how long key stays above the rate threshold.
func (m *Monitor) RateLimitedFor(key SourceKey) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.countLocked(m.requests, key, m.cfg.RateWindow)
	if n <= m.cfg.RateThreshold {
		return 0
	}
	return m.requests[key].expiresIn(n-m.cfg.RateThreshold-1, m.now(), m.cfg.RateWindow)
}

// QueryAlerts returns alerts with start <= timestamp <= end in the order
// they were raised.
func (m *Monitor) QueryAlerts(start, end time.Time) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Alert, 0)
	for _, a := range m.alerts {
		if a.Timestamp.Before(start) || a.Timestamp.After(end) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SuspiciousActivity returns a copy of the suspicious-activity log for key.
func (m *Monitor) SuspiciousActivity(key SourceKey) []SuspiciousEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SuspiciousEvent(nil), m.suspicious[key]...)
}

// SweepResult summarizes one Sweep call.
type SweepResult struct {
	Evicted int
	Tracked int
}

// Sweep prunes every window and drops keys with no live entries. Lazy
// pruning keeps counts correct; Sweep only bounds memory for sources that
// never come back.
func (m *Monitor) Sweep() SweepResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var res SweepResult
	res.Evicted += sweepTrack(m.failures, now, m.cfg.FailureWindow)
	res.Evicted += sweepTrack(m.requests, now, m.cfg.RateWindow)

	for key, events := range m.suspicious {
		i := 0
		for i < len(events) && now.Sub(events[i].Timestamp) >= m.cfg.SuspiciousLifetime {
			i++
		}
		if i == len(events) {
			delete(m.suspicious, key)
			res.Evicted++
			continue
		}
		m.suspicious[key] = events[i:]
	}

	res.Tracked = len(m.failures) + len(m.requests) + len(m.suspicious)
	m.metrics.setTracked(res.Tracked)
	m.metrics.addEvicted(res.Evicted)
	return res
}

func sweepTrack(tracks map[SourceKey]*window, now time.Time, span time.Duration) int {
	evicted := 0
	for key, w := range tracks {
		w.prune(now, span)
		if w.len() == 0 {
			delete(tracks, key)
			evicted++
		}
	}
	return evicted
}

func track(tracks map[SourceKey]*window, key SourceKey) *window {
	w, ok := tracks[key]
	if !ok {
		w = &window{}
		tracks[key] = w
	}
	return w
}
