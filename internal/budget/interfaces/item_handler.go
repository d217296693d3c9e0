package interfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/bank"
	"github.com/mzielinski/BudgetSync/internal/budget/application"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type SyncServiceInterface interface {
	CreateLinkToken(userID, itemID string) (string, error)
	ExchangePublicToken(userID, publicToken, institutionID, institutionName string) (*domain.LinkedItem, error)
	SyncUser(userID, itemID string) (*application.SyncResult, error)
	RefreshBalances(userID string) error
	ItemsForUser(userID string) ([]domain.LinkedItem, error)
}

type ItemHandler struct {
	service      SyncServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewItemHandler(
	service SyncServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *ItemHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &ItemHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *ItemHandler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		ItemID string `json:"item_id"`
	}
	if r.Body != nil {
		// Body is optional: item_id switches the token into re-link mode.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	linkToken, err := h.service.CreateLinkToken(userID, req.ItemID)
	if err != nil {
		if errors.Is(err, budgetErrors.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "Linked item not found")
			return
		}
		log.Println("Error creating link token:", err.Error())
		h.respondError(w, http.StatusBadGateway, "Failed to create link token")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"link_token": linkToken},
	})
}

func (h *ItemHandler) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		PublicToken     string `json:"public_token"`
		InstitutionID   string `json:"institution_id"`
		InstitutionName string `json:"institution_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PublicToken == "" {
		h.respondError(w, http.StatusBadRequest, "public_token is required")
		return
	}

	item, err := h.service.ExchangePublicToken(userID, req.PublicToken, req.InstitutionID, req.InstitutionName)
	if err != nil {
		log.Println("Error exchanging public token:", err.Error())
		h.respondError(w, http.StatusBadGateway, "Failed to link bank account")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Bank account linked successfully.",
		"data":    item,
	})
}

func (h *ItemHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		ItemID string `json:"item_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.SyncUser(userID, req.ItemID)
	if err != nil {
		if errors.Is(err, budgetErrors.ErrItemNotFound) {
			h.respondError(w, http.StatusNotFound, "Linked item not found")
			return
		}
		log.Println("Error during manual sync:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Sync completed.",
		"data":    result,
	})
}

func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.ItemsForUser(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve linked items")
		return
	}
	if items == nil {
		items = []domain.LinkedItem{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   items,
	})
}

func (h *ItemHandler) RefreshBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.RefreshBalances(userID); err != nil {
		if errors.Is(err, bank.ErrCredentialInvalid) {
			h.respondError(w, http.StatusConflict, "Bank connection requires re-authentication")
			return
		}
		log.Println("Error refreshing balances:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to refresh balances")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Balances refreshed.",
	})
}
