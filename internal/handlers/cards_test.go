package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/fintrack/internal/handlers"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardID = "0b8e4f7a-2222-4000-8000-000000000002"

func TestCreateCard_MasksNumber(t *testing.T) {
	svc := &handlers.MockCardService{
		CreateFunc: func(_ context.Context, ownerID string, in services.CreateCardInput, _ string) (*models.Card, error) {
			assert.Equal(t, alice.ID, ownerID)
			return &models.Card{ID: cardID, OwnerID: ownerID, CardNumber: in.CardNumber, CardName: in.CardName, BankName: in.BankName, CreatedAt: time.Now()}, nil
		},
	}
	handler := handlers.NewCardHandler(svc, nil)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/v1/cards/", handlers.CreateCardRequest{
		CardNumber: "4111111111111111", CardName: "Everyday", BankName: "First Bank",
	})
	w := httptest.NewRecorder()
	handler.Create(w, handlers.WithUser(req, alice))

	var resp models.CardResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "************1111", resp.CardNumber)
	assert.NotContains(t, w.Body.String(), "4111111111111111")
}

func TestCreateCard_Validation(t *testing.T) {
	handler := handlers.NewCardHandler(&handlers.MockCardService{}, nil)

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/v1/cards/", handlers.CreateCardRequest{
		CardNumber: "41x1", CardName: "", BankName: "First Bank",
	})
	w := httptest.NewRecorder()
	handler.Create(w, handlers.WithUser(req, alice))

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "validation_error")
	assert.GreaterOrEqual(t, len(resp.Fields), 2)
}

func TestGetCard(t *testing.T) {
	svc := &handlers.MockCardService{
		GetFunc: func(_ context.Context, ownerID, id string) (*models.Card, error) {
			if ownerID == alice.ID && id == cardID {
				return &models.Card{ID: id, OwnerID: ownerID, CardNumber: "5500000000000004"}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	rec := &handlers.RecordingSuspicionRecorder{}
	handler := handlers.NewCardHandler(svc, rec)

	t.Run("own card", func(t *testing.T) {
		req := handlers.WithURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/cards/"+cardID, nil), map[string]string{"cardID": cardID})
		w := httptest.NewRecorder()
		handler.Get(w, handlers.WithUser(req, alice))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("foreign card", func(t *testing.T) {
		other := "9d9d9d9d-3333-4000-8000-000000000003"
		req := handlers.WithURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/cards/"+other, nil), map[string]string{"cardID": other})
		w := httptest.NewRecorder()
		handler.Get(w, handlers.WithUser(req, alice))
		handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("probe id", func(t *testing.T) {
		req := handlers.WithURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/cards/x", nil), map[string]string{"cardID": "1%27%20OR%201%3D1--"})
		w := httptest.NewRecorder()
		handler.Get(w, handlers.WithUser(req, alice))
		handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
		require.Equal(t, 1, rec.Count())
	})
}

func TestListCards_BadPaging(t *testing.T) {
	handler := handlers.NewCardHandler(&handlers.MockCardService{}, nil)

	w := httptest.NewRecorder()
	handler.List(w, handlers.WithUser(httptest.NewRequest(http.MethodGet, "/api/v1/cards/?skip=-1&limit=abc", nil), alice))

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "validation_error")
	assert.Len(t, resp.Fields, 2)
}

func TestDeleteTransaction_Foreign(t *testing.T) {
	const txID = "7c7c7c7c-4444-4000-8000-000000000004"
	svc := &handlers.MockTransactionService{
		DeleteFunc: func(_ context.Context, ownerID, id, _ string) error {
			assert.Equal(t, txID, id)
			return models.ErrForbidden
		},
	}
	handler := handlers.NewTransactionHandler(svc, nil)

	req := handlers.WithURLParams(httptest.NewRequest(http.MethodDelete, "/api/v1/transactions/"+txID, nil), map[string]string{"transactionID": txID})
	w := httptest.NewRecorder()
	handler.Delete(w, handlers.WithUser(req, alice))

	handlers.AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
}
