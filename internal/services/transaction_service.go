package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/fintrack/internal/models"
)

// CreateTransactionInput is a new transaction request. A zero Date means now.
type CreateTransactionInput struct {
	Amount      float64
	Description string
	Type        string
	Date        time.Time
}

// TransactionService manages transactions through the cards that own them.
type TransactionService struct {
	repo   TransactionRepository
	cards  *CardService
	audit  Auditor
	logger *slog.Logger
	now    func() time.Time
}

func NewTransactionService(repo TransactionRepository, cards *CardService, audit Auditor, logger *slog.Logger) *TransactionService {
	return &TransactionService{repo: repo, cards: cards, audit: audit, logger: logger, now: time.Now}
}

func (s *TransactionService) Create(ctx context.Context, ownerID, cardID string, in CreateTransactionInput, sourceIP string) (*models.Transaction, error) {
	if _, err := s.cards.Get(ctx, ownerID, cardID); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	t, err := s.repo.Create(ctx, &models.Transaction{
		CardID:      cardID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Date:        date.UTC(),
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		s.logger.Error("failed to create transaction", slog.String("card_id", cardID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.RecordEvent(ctx, models.EventTransactionCreated, models.SeverityLow,
		fmt.Sprintf("transaction %s created on card %s", t.ID, cardID), sourceIP, ownerID)
	return t, nil
}

// ListByCard returns the card's transactions, newest first.
func (s *TransactionService) ListByCard(ctx context.Context, ownerID, cardID string, limit, offset int) ([]*models.Transaction, error) {
	if _, err := s.cards.Get(ctx, ownerID, cardID); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	txs, err := s.repo.ListByCard(ctx, cardID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list transactions", slog.String("card_id", cardID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return txs, nil
}

// Delete removes a transaction. Deleting one on another user's card is
// forbidden and audited.
func (s *TransactionService) Delete(ctx context.Context, ownerID, txID, sourceIP string) error {
	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get transaction", slog.String("transaction_id", txID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.cards.Get(ctx, ownerID, t.CardID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.RecordEvent(ctx, models.EventAccessDenied, models.SeverityMedium,
				fmt.Sprintf("attempt to delete transaction %s on a foreign card", txID), sourceIP, ownerID)
			return models.ErrForbidden
		}
		return err
	}

	if err := s.repo.Delete(ctx, txID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete transaction", slog.String("transaction_id", txID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.RecordEvent(ctx, models.EventTransactionDeleted, models.SeverityLow,
		fmt.Sprintf("transaction %s deleted", txID), sourceIP, ownerID)
	return nil
}
