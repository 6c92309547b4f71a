package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/fintrack/internal/models"
)

// CreateCardInput is a new card request.
type CreateCardInput struct {
	CardNumber string
	CardName   string
	BankName   string
}

// CardService scopes every card operation to its owner. A card owned by
// someone else is reported as not found.
type CardService struct {
	repo   CardRepository
	audit  Auditor
	logger *slog.Logger
}

func NewCardService(repo CardRepository, audit Auditor, logger *slog.Logger) *CardService {
	return &CardService{repo: repo, audit: audit, logger: logger}
}

func (s *CardService) Create(ctx context.Context, ownerID string, in CreateCardInput, sourceIP string) (*models.Card, error) {
	card, err := s.repo.Create(ctx, &models.Card{
		OwnerID:    ownerID,
		CardNumber: strings.ReplaceAll(strings.TrimSpace(in.CardNumber), " ", ""),
		CardName:   strings.TrimSpace(in.CardName),
		BankName:   strings.TrimSpace(in.BankName),
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		s.logger.Error("failed to create card", slog.String("user_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.RecordEvent(ctx, models.EventCardCreated, models.SeverityLow,
		fmt.Sprintf("card %s created", card.ID), sourceIP, ownerID)
	return card, nil
}

func (s *CardService) List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error) {
	limit, offset = clampPage(limit, offset)
	cards, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list cards", slog.String("user_id", ownerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return cards, nil
}

// Get returns the card if ownerID owns it.
func (s *CardService) Get(ctx context.Context, ownerID, cardID string) (*models.Card, error) {
	card, err := s.repo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get card", slog.String("card_id", cardID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if card.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	return card, nil
}

func (s *CardService) Delete(ctx context.Context, ownerID, cardID, sourceIP string) error {
	if _, err := s.Get(ctx, ownerID, cardID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, cardID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete card", slog.String("card_id", cardID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.RecordEvent(ctx, models.EventCardDeleted, models.SeverityLow,
		fmt.Sprintf("card %s deleted", cardID), sourceIP, ownerID)
	return nil
}
