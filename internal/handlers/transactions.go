package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/services"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/go-chi/chi/v5"
)

// TransactionServiceInterface defines the interface for transaction business logic
type TransactionServiceInterface interface {
	Create(ctx context.Context, ownerID, cardID string, in services.CreateTransactionInput, sourceIP string) (*models.Transaction, error)
	ListByCard(ctx context.Context, ownerID, cardID string, limit, offset int) ([]*models.Transaction, error)
	Delete(ctx context.Context, ownerID, txID, sourceIP string) error
}

type TransactionHandler struct {
	service   TransactionServiceInterface
	suspicion SuspicionRecorder
}

func NewTransactionHandler(service TransactionServiceInterface, suspicion SuspicionRecorder) *TransactionHandler {
	return &TransactionHandler{service: service, suspicion: suspicion}
}

// CreateTransactionRequest represents the request body for a transaction
type CreateTransactionRequest struct {
	Amount      float64    `json:"amount" validate:"gt=0"`
	Description string     `json:"description" validate:"max=255"`
	Type        string     `json:"type" validate:"required,oneof=income expense"`
	Date        *time.Time `json:"date"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	cardID, ok := pathID(r, h.suspicion, "card_id", chi.URLParam(r, "cardID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Card not found")
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reportProbe(r, h.suspicion, "description", req.Description)

	in := services.CreateTransactionInput{
		Amount:      req.Amount,
		Description: req.Description,
		Type:        req.Type,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	t, err := h.service.Create(r.Context(), user.ID, cardID, in, middleware.ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, t)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	cardID, ok := pathID(r, h.suspicion, "card_id", chi.URLParam(r, "cardID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Card not found")
		return
	}

	limit, offset, fields := parsePage(r)
	if fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return
	}

	txs, err := h.service.ListByCard(r.Context(), user.ID, cardID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	id, ok := pathID(r, h.suspicion, "transaction_id", chi.URLParam(r, "transactionID"))
	if !ok {
		pkghttp.WriteNotFound(w, "Transaction not found")
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id, middleware.ClientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
