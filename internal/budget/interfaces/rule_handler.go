package interfaces

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type RuleServiceInterface interface {
	CreateRule(rule *domain.CategorizationRule) error
	UpdateRule(rule *domain.CategorizationRule) error
	DeleteRule(ruleID, userID string) error
	ListRules(userID string) ([]domain.CategorizationRule, error)
}

type RuleHandler struct {
	service      RuleServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewRuleHandler(
	service RuleServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *RuleHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &RuleHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type ruleRequest struct {
	Field      string `json:"field"`
	Mode       string `json:"mode"`
	MatchText  string `json:"match_text"`
	LineItemID string `json:"line_item_id"`
	Priority   int    `json:"priority"`
	Active     *bool  `json:"active"`
}

func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule := domain.CategorizationRule{
		UserID:     userID,
		Field:      domain.RuleField(req.Field),
		Mode:       domain.RuleMode(req.Mode),
		MatchText:  req.MatchText,
		LineItemID: req.LineItemID,
		Priority:   req.Priority,
	}
	if err := h.service.CreateRule(&rule); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("Error creating rule:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Rule successfully created.",
		"data":    rule,
	})
}

func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	rule := domain.CategorizationRule{
		ID:         r.PathValue("ruleID"),
		UserID:     userID,
		Field:      domain.RuleField(req.Field),
		Mode:       domain.RuleMode(req.Mode),
		MatchText:  req.MatchText,
		LineItemID: req.LineItemID,
		Priority:   req.Priority,
		Active:     active,
	}
	if err := h.service.UpdateRule(&rule); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Rule successfully updated.",
		"data":    rule,
	})
}

func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteRule(r.PathValue("ruleID"), userID); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Rule successfully deleted.",
	})
}

func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rules, err := h.service.ListRules(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve rules")
		return
	}
	if rules == nil {
		rules = []domain.CategorizationRule{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   rules,
	})
}
