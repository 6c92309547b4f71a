package services

import (
	"context"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
)

// UserRepository is the credential store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
}

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) (*models.Card, error)
	GetByID(ctx context.Context, id string) (*models.Card, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error)
	Delete(ctx context.Context, id string) error
}

type TransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	ListByCard(ctx context.Context, cardID string, limit, offset int) ([]*models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// AuditStore is the durable audit backend: the JSON Lines file or Postgres.
type AuditStore interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Query(ctx context.Context, start, end time.Time) ([]models.AuditEntry, error)
}
