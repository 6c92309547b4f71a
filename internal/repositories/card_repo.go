package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/fintrack/internal/database"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cardColumns = `id, owner_id, card_number, card_name, bank_name, created_at`

type CardRepository struct {
	pool *pgxpool.Pool
}

func NewCardRepository(db *database.DB) *CardRepository {
	return &CardRepository{pool: db.Pool}
}

func scanCardRow(scanner rowScanner) (*models.Card, error) {
	var c models.Card
	if err := scanner.Scan(&c.ID, &c.OwnerID, &c.CardNumber, &c.CardName, &c.BankName, &c.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func scanCardRows(rows pgx.Rows) ([]*models.Card, error) {
	defer rows.Close()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		c, err := scanCardRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

func (r *CardRepository) Create(ctx context.Context, card *models.Card) (*models.Card, error) {
	card.ID = uuid.New().String()
	card.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO cards (id, owner_id, card_number, card_name, bank_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + cardColumns

	created, err := scanCardRow(r.pool.QueryRow(ctx, query,
		card.ID, card.OwnerID, card.CardNumber, card.CardName, card.BankName, card.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	return created, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	return scanCardRow(r.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
}

func (r *CardRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	return scanCardRows(rows)
}

func (r *CardRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
