package interfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/budget/application"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type BudgetServiceInterface interface {
	CreateBudget(userID string, month time.Time, plannedIncome int64) (*domain.Budget, error)
	GetBudget(userID string, month time.Time) (*domain.Budget, error)
	GetSummary(userID string, month time.Time) (*application.BudgetSummary, error)
	SetPlannedIncome(budgetID, userID string, plannedIncome int64) error
	AddGroup(group *domain.CategoryGroup) error
	AddLineItem(item *domain.LineItem) error
	UpdateLineItem(item *domain.LineItem) error
	DeleteLineItem(lineItemID, userID string) error
}

type BudgetHandler struct {
	service      BudgetServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewBudgetHandler(
	service BudgetServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *BudgetHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &BudgetHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

// parseMonth reads the month query parameter in YYYY-MM format, defaulting to
// the current month.
func parseMonth(r *http.Request) (time.Time, error) {
	monthStr := r.URL.Query().Get("month")
	if monthStr == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse("2006-01", monthStr)
	if err != nil {
		return time.Time{}, budgetErrors.NewValidationError("Month must use YYYY-MM format")
	}
	return month, nil
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Month         string `json:"month"`
		PlannedIncome int64  `json:"planned_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Month must use YYYY-MM format")
		return
	}

	budget, err := h.service.CreateBudget(userID, month, req.PlannedIncome)
	if err != nil {
		log.Println("Error creating budget:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to create budget")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Budget successfully created.",
		"data":    budget,
	})
}

func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := h.service.GetBudget(userID, month)
	if err != nil {
		if errors.Is(err, budgetErrors.ErrBudgetNotFound) {
			h.respondError(w, http.StatusNotFound, "No budget for this month")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve budget")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   budget,
	})
}

func (h *BudgetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.GetSummary(userID, month)
	if err != nil {
		if errors.Is(err, budgetErrors.ErrBudgetNotFound) {
			h.respondError(w, http.StatusNotFound, "No budget for this month")
			return
		}
		log.Println("Error computing budget summary:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to compute budget summary")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

func (h *BudgetHandler) SetPlannedIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		PlannedIncome int64 `json:"planned_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetPlannedIncome(r.PathValue("budgetID"), userID, req.PlannedIncome); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to update planned income")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Planned income updated.",
	})
}

func (h *BudgetHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var group domain.CategoryGroup
	if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	group.BudgetID = r.PathValue("budgetID")

	if err := h.service.AddGroup(&group); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Group successfully created.",
		"data":    group,
	})
}

func (h *BudgetHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var item domain.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item.GroupID = r.PathValue("groupID")

	if err := h.service.AddLineItem(&item); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to create line item")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Line item successfully created.",
		"data":    item,
	})
}

func (h *BudgetHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var item domain.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item.ID = r.PathValue("lineItemID")

	if err := h.service.UpdateLineItem(&item); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to update line item")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Line item successfully updated.",
		"data":    item,
	})
}

// DeleteLineItem removes a budgeted category. Entries that referenced it stay
// in the ledger and simply become uncategorized.
func (h *BudgetHandler) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteLineItem(r.PathValue("lineItemID"), userID); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete line item")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Line item successfully deleted.",
	})
}
