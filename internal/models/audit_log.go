package models

import (
	"time"
)

// EventType identifies a security or account event.
type EventType string

// Alert types raised by the security monitor
const (
	EventBruteForceAttempt  EventType = "brute_force_attempt"
	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventSuspiciousActivity EventType = "suspicious_activity"
)

// Audit-only event types
const (
	EventFailedLogin        EventType = "failed_login_attempt"
	EventSuccessfulLogin    EventType = "successful_login"
	EventUserCreated        EventType = "user_created"
	EventUserDeleted        EventType = "user_deleted"
	EventPasswordChanged    EventType = "password_changed"
	EventCardCreated        EventType = "card_created"
	EventCardDeleted        EventType = "card_deleted"
	EventTransactionCreated EventType = "transaction_created"
	EventTransactionDeleted EventType = "transaction_deleted"
	EventAccessDenied       EventType = "access_denied"
)

// Severity orders events from routine to urgent.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a comparable weight; unknown severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity returns the matching severity or false.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	return sev, sev.Rank() > 0
}

// Alert is a security event raised by the monitor.
type Alert struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Source      string    `json:"source"`
}

// AuditEntry is one record in the audit trail. The JSON form is the on-disk
// line format of the file backend.
type AuditEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	SourceIP    *string   `json:"source_ip,omitempty"`
	UserID      *string   `json:"user_id,omitempty"`
}

// Valid reports whether the entry has the fields required for persistence.
func (e *AuditEntry) Valid() bool {
	return !e.Timestamp.IsZero() && e.Type != "" && e.Severity.Rank() > 0
}
