package models

import (
	"strings"
	"time"
)

// Card is a payment card owned by exactly one user.
type Card struct {
	ID         string
	OwnerID    string
	CardNumber string
	CardName   string
	BankName   string
	CreatedAt  time.Time
}

// CardResponse is the API representation; the number is always masked.
type CardResponse struct {
	ID         string    `json:"id"`
	CardNumber string    `json:"card_number"`
	CardName   string    `json:"card_name"`
	BankName   string    `json:"bank_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// MaskCardNumber replaces every digit except the last four with '*'.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func (c *Card) ToResponse() CardResponse {
	return CardResponse{
		ID:         c.ID,
		CardNumber: MaskCardNumber(c.CardNumber),
		CardName:   c.CardName,
		BankName:   c.BankName,
		CreatedAt:  c.CreatedAt,
	}
}
