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

type LedgerServiceInterface interface {
	CreateEntry(entry *domain.LedgerEntry) error
	GetEntries(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error)
	GetSplitChildren(entryID, userID string) ([]domain.LedgerEntry, error)
	UpdateEntry(entry *domain.LedgerEntry) error
	DeleteEntry(entryID, userID string) error
	SetCategory(entryID, userID string, lineItemID *string) error
	SetExcluded(entryID, userID string, excluded bool) error
	SuggestCategory(userID string, record domain.RuleRecord) (*string, error)
	SplitEntry(entryID, userID string, parts []application.SplitPart) ([]domain.LedgerEntry, error)
}

type LedgerHandler struct {
	service      LedgerServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewLedgerHandler(
	service LedgerServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *LedgerHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &LedgerHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type entryRequest struct {
	AccountID    *string `json:"account_id"`
	Amount       int64   `json:"amount"`
	MerchantName string  `json:"merchant_name"`
	Description  string  `json:"description"`
	Date         string  `json:"date"`
	Pending      bool    `json:"pending"`
	Type         string  `json:"type"`
	LineItemID   *string `json:"line_item_id"`
	Excluded     bool    `json:"excluded"`
}

func (req *entryRequest) toEntry(userID string) (*domain.LedgerEntry, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, budgetErrors.NewValidationError("Date must use YYYY-MM-DD format")
	}
	return &domain.LedgerEntry{
		UserID:       userID,
		AccountID:    req.AccountID,
		Amount:       req.Amount,
		MerchantName: req.MerchantName,
		Description:  req.Description,
		Date:         date,
		Pending:      req.Pending,
		Type:         domain.EntryType(req.Type),
		LineItemID:   req.LineItemID,
		Excluded:     req.Excluded,
	}, nil
}

func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.Source = domain.SourceManual

	if err := h.service.CreateEntry(entry); err != nil {
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("Error creating ledger entry:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to create entry")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Entry successfully created.",
		"data":    entry,
	})
}

func (h *LedgerHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.service.GetEntries(userID, startDate, endDate)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve entries")
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   entries,
	})
}

func (h *LedgerHandler) GetSplitChildren(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	entryID := r.PathValue("entryID")

	children, err := h.service.GetSplitChildren(entryID, userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve split parts")
		return
	}
	if children == nil {
		children = []domain.LedgerEntry{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   children,
	})
}

func (h *LedgerHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.ID = r.PathValue("entryID")

	if err := h.service.UpdateEntry(entry); err != nil {
		if errors.Is(err, budgetErrors.ErrEntryNotFound) {
			h.respondError(w, http.StatusNotFound, "Entry not found")
			return
		}
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("Error updating ledger entry:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to update entry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Entry successfully updated.",
		"data":    entry,
	})
}

func (h *LedgerHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteEntry(r.PathValue("entryID"), userID); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to delete entry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Entry successfully deleted.",
	})
}

func (h *LedgerHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		LineItemID *string `json:"line_item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetCategory(r.PathValue("entryID"), userID, req.LineItemID); err != nil {
		if errors.Is(err, budgetErrors.ErrEntryNotFound) {
			h.respondError(w, http.StatusNotFound, "Entry not found")
			return
		}
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Category updated.",
	})
}

func (h *LedgerHandler) SetExcluded(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Excluded bool `json:"excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetExcluded(r.PathValue("entryID"), userID, req.Excluded); err != nil {
		if errors.Is(err, budgetErrors.ErrEntryNotFound) {
			h.respondError(w, http.StatusNotFound, "Entry not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to update entry")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Entry updated.",
	})
}

func (h *LedgerHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	record := domain.RuleRecord{
		MerchantName: r.URL.Query().Get("merchant_name"),
		Description:  r.URL.Query().Get("description"),
	}
	lineItemID, err := h.service.SuggestCategory(userID, record)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to evaluate rules")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]*string{"line_item_id": lineItemID},
	})
}

func (h *LedgerHandler) SplitEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Parts []struct {
			Amount     int64   `json:"amount"`
			LineItemID *string `json:"line_item_id"`
		} `json:"parts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	parts := make([]application.SplitPart, 0, len(req.Parts))
	for _, part := range req.Parts {
		parts = append(parts, application.SplitPart{Amount: part.Amount, LineItemID: part.LineItemID})
	}

	children, err := h.service.SplitEntry(r.PathValue("entryID"), userID, parts)
	if err != nil {
		if errors.Is(err, budgetErrors.ErrEntryNotFound) {
			h.respondError(w, http.StatusNotFound, "Entry not found")
			return
		}
		if budgetErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Println("Error splitting entry:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to split entry")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Entry successfully split.",
		"data":    children,
	})
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	startDateStr := r.URL.Query().Get("start_date")
	endDateStr := r.URL.Query().Get("end_date")

	var startDate, endDate time.Time
	var err error

	if startDateStr == "" {
		now := time.Now().UTC()
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		startDate, err = time.Parse("2006-01-02", startDateStr)
		if err != nil {
			return time.Time{}, time.Time{}, budgetErrors.NewValidationError("Invalid start date format")
		}
	}

	if endDateStr == "" {
		endDate = time.Now().UTC()
	} else {
		endDate, err = time.Parse("2006-01-02", endDateStr)
		if err != nil {
			return time.Time{}, time.Time{}, budgetErrors.NewValidationError("Invalid end date format")
		}
	}
	return startDate, endDate, nil
}
