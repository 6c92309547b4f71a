package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/services"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/go-chi/chi/v5"
)

// CardServiceInterface defines the interface for card business logic
type CardServiceInterface interface {
	Create(ctx context.Context, ownerID string, in services.CreateCardInput, sourceIP string) (*models.Card, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*models.Card, error)
	Get(ctx context.Context, ownerID, cardID string) (*models.Card, error)
	Delete(ctx context.Context, ownerID, cardID, sourceIP string) error
}

// CardHandler handles the caller's payment cards.
type CardHandler struct {
	service   CardServiceInterface
	suspicion SuspicionRecorder
}

func NewCardHandler(service CardServiceInterface, suspicion SuspicionRecorder) *CardHandler {
	return &CardHandler{service: service, suspicion: suspicion}
}

// CreateCardRequest represents the request body for adding a card
type CreateCardRequest struct {
	CardNumber string `json:"card_number" validate:"required,numeric,min=12,max=19"`
	CardName   string `json:"card_name" validate:"required,max=100"`
	BankName   string `json:"bank_name" validate:"required,max=100"`
}

func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req CreateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reportProbe(r, h.suspicion, "card_name", req.CardName)
	reportProbe(r, h.suspicion, "bank_name", req.BankName)

	card, err := h.service.Create(r.Context(), user.ID, services.CreateCardInput{
		CardNumber: req.CardNumber,
		CardName:   req.CardName,
		BankName:   req.BankName,
	}, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, card.ToResponse())
}

func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	limit, offset, fields := parsePage(r)
	if fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return
	}

	cards, err := h.service.List(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]models.CardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, c.ToResponse())
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	id, ok := pathID(r, h.suspicion, "card_id", chi.URLParam(r, "cardID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Card not found")
		return
	}

	card, err := h.service.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, card.ToResponse())
}

func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	id, ok := pathID(r, h.suspicion, "card_id", chi.URLParam(r, "cardID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Card not found")
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
