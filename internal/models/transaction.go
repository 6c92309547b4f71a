package models

import "time"

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is a signed amount attached to a card.
type Transaction struct {
	ID          string    `json:"id"`
	CardID      string    `json:"card_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}
