package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	pkglogger "github.com/BradenHooton/fintrack/pkg/logger"
)

// AuditService writes every security-relevant event twice: a structured log
// line first, then the durable audit store. Store failures are logged and
// swallowed; auditing never fails the operation being audited.
type AuditService struct {
	store    AuditStore
	secLog   *pkglogger.SecurityLogger
	notifier AlertNotifier
	users    UserLookup
	now      func() time.Time
}

// UserLookup resolves an e-mail to the account it belongs to.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

func NewAuditService(store AuditStore, logger *slog.Logger, notifier AlertNotifier) *AuditService {
	return &AuditService{
		store:    store,
		secLog:   pkglogger.NewSecurityLogger(logger),
		notifier: notifier,
		now:      time.Now,
	}
}

// SetUserLookup lets RecordAlert turn identity-keyed alert sources into user
// IDs. Without it such alerts carry no user ID.
func (s *AuditService) SetUserLookup(users UserLookup) {
	s.users = users
}

// Record appends entry. A zero timestamp is filled with the current time.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	event := pkglogger.SecurityEvent{
		Type:        string(entry.Type),
		Severity:    string(entry.Severity),
		Description: entry.Description,
	}
	if entry.SourceIP != nil {
		event.SourceIP = *entry.SourceIP
	}
	if entry.UserID != nil {
		event.UserID = *entry.UserID
	}

	s.secLog.Log(ctx, event)

	if err := s.store.Append(ctx, entry); err != nil {
		s.secLog.LogWriteFailure(ctx, event, err)
	}
}

// RecordEvent is Record for the common case. Empty sourceIP or userID are
// omitted from the entry.
func (s *AuditService) RecordEvent(ctx context.Context, typ models.EventType, sev models.Severity, desc, sourceIP, userID string) {
	s.Record(ctx, models.AuditEntry{
		Type:        typ,
		Description: desc,
		Severity:    sev,
		SourceIP:    optional(sourceIP),
		UserID:      optional(userID),
	})
}

// RecordAlert mirrors a monitor alert into the audit trail and forwards it to
// the notifier. It satisfies monitor.AlertSink.
func (s *AuditService) RecordAlert(ctx context.Context, alert models.Alert) {
	entry := models.AuditEntry{
		Timestamp:   alert.Timestamp,
		Type:        alert.Type,
		Description: alert.Description,
		Severity:    alert.Severity,
	}
	switch prefix, value := monitor.SplitSource(alert.Source); prefix {
	case monitor.OriginPrefix:
		entry.SourceIP = optional(value)
	case monitor.IdentityPrefix:
		entry.UserID = s.resolveUserID(ctx, value)
	}

	s.Record(ctx, entry)

	if s.notifier != nil {
		s.notifier.Notify(ctx, alert)
	}
}

// resolveUserID maps an alert identity to a user ID. Unknown identities stay
// in the description only, so user_id always holds an account ID.
func (s *AuditService) resolveUserID(ctx context.Context, email string) *string {
	if s.users == nil || email == "" {
		return nil
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil
	}
	return optional(user.ID)
}

// Query reads back the trail for [start, end].
func (s *AuditService) Query(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	return s.store.Query(ctx, start, end)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
