package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
)

// AlertSource is the read side of the Security Monitor.
type AlertSource interface {
	QueryAlerts(start, end time.Time) []models.Alert
}

// SecurityService serves the admin views of alerts and the audit trail.
type SecurityService struct {
	alerts AlertSource
	audit  *AuditService
	logger *slog.Logger
}

func NewSecurityService(alerts AlertSource, audit *AuditService, logger *slog.Logger) *SecurityService {
	return &SecurityService{alerts: alerts, audit: audit, logger: logger}
}

// Alerts returns in-memory alerts raised within [start, end].
func (s *SecurityService) Alerts(start, end time.Time) []models.Alert {
	alerts := s.alerts.QueryAlerts(start, end)
	if alerts == nil {
		return []models.Alert{}
	}
	return alerts
}

// AuditTrail returns persisted audit entries within [start, end].
func (s *SecurityService) AuditTrail(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	entries, err := s.audit.Query(ctx, start, end)
	if err != nil {
		s.logger.Error("failed to query audit log", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if entries == nil {
		return []models.AuditEntry{}, nil
	}
	return entries, nil
}
