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

const transactionColumns = `id, card_id, amount, description, type, date, created_at`

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{pool: db.Pool}
}

func scanTransactionRow(scanner rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	if err := scanner.Scan(&t.ID, &t.CardID, &t.Amount, &t.Description, &t.Type, &t.Date, &t.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

func scanTransactionRows(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	txs := make([]*models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO transactions (id, card_id, amount, description, type, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + transactionColumns

	created, err := scanTransactionRow(r.pool.QueryRow(ctx, query,
		t.ID, t.CardID, t.Amount, t.Description, t.Type, t.Date, t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTransactionRow(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// ListByCard returns newest first.
func (r *TransactionRepository) ListByCard(ctx context.Context, cardID string, limit, offset int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE card_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, cardID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return scanTransactionRows(rows)
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
