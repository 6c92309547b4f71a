package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/fintrack/internal/database"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository is the Postgres audit backend. Rows are insert-only.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditEntryRow(row rowScanner) (models.AuditEntry, error) {
	var e models.AuditEntry
	if err := row.Scan(&e.Timestamp, &e.Type, &e.Description, &e.Severity, &e.SourceIP, &e.UserID); err != nil {
		return models.AuditEntry{}, database.MapPostgresError(err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

func scanAuditEntryRows(rows pgx.Rows) ([]models.AuditEntry, error) {
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		e, err := scanAuditEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}

// Append inserts one entry.
func (r *AuditLogRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	if !entry.Valid() {
		return fmt.Errorf("%w: entry missing timestamp, type or severity", models.ErrAuditWrite)
	}

	query := `
		INSERT INTO audit_entries (occurred_at, type, description, severity, source_ip, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.Timestamp.UTC(), string(entry.Type), entry.Description, string(entry.Severity),
		entry.SourceIP, entry.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrAuditWrite, database.MapPostgresError(err))
	}
	return nil
}

// Query returns entries with start <= occurred_at <= end in insertion order
// among equal timestamps.
func (r *AuditLogRepository) Query(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error) {
	query := `
		SELECT occurred_at, type, description, severity, source_ip, user_id
		FROM audit_entries
		WHERE occurred_at BETWEEN $1 AND $2
		ORDER BY occurred_at, id
	`

	rows, err := r.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return scanAuditEntryRows(rows)
}
