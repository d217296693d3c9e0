package interfaces

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

type AccountServiceInterface interface {
	FindByUser(userID string) ([]domain.Account, error)
	SetHidden(accountID, userID string, hidden bool) error
}

type AccountHandler struct {
	service      AccountServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewAccountHandler(
	service AccountServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *AccountHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &AccountHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accounts, err := h.service.FindByUser(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   accounts,
	})
}

// SetHidden toggles an account's visibility in listings; hidden accounts
// keep syncing.
func (h *AccountHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetHidden(r.PathValue("accountID"), userID, req.Hidden); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to update account")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Account updated.",
	})
}
