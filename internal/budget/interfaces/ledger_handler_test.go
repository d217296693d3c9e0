package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "user-1")
	return req.WithContext(ctx)
}

func TestCreateEntry_Success(t *testing.T) {
	service := &MockLedgerService{}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/entries", `{"amount":1250,"merchant_name":"Coffee Place","date":"2026-08-10","type":"expense"}`)
	handler.CreateEntry(w, req)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.NotNil(t, service.CreatedEntry)
	assert.Equal(t, "user-1", service.CreatedEntry.UserID)
	assert.Equal(t, domain.SourceManual, service.CreatedEntry.Source)
	assert.Equal(t, int64(1250), service.CreatedEntry.Amount)
}

func TestCreateEntry_RejectsBadDate(t *testing.T) {
	service := &MockLedgerService{}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/entries", `{"amount":1250,"date":"10-08-2026","type":"expense"}`)
	handler.CreateEntry(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	assert.Nil(t, service.CreatedEntry)
}

func TestCreateEntry_RequiresAuth(t *testing.T) {
	service := &MockLedgerService{}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{}`))
	handler.CreateEntry(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestSplitEntry_ReturnsChildren(t *testing.T) {
	parentID := "entry-1"
	service := &MockLedgerService{
		Children: []domain.LedgerEntry{
			{ID: "child-1", ParentID: &parentID, Amount: 60000},
			{ID: "child-2", ParentID: &parentID, Amount: 40000},
		},
	}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/entries/entry-1/split", `{"parts":[{"amount":60000,"line_item_id":"li-1"},{"amount":40000,"line_item_id":"li-2"}]}`)
	req.SetPathValue("entryID", "entry-1")
	handler.SplitEntry(w, req)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Len(t, service.SplitParts, 2)
	assert.Equal(t, int64(60000), service.SplitParts[0].Amount)

	var response struct {
		Data []domain.LedgerEntry `json:"data"`
	}
	err := json.NewDecoder(w.Result().Body).Decode(&response)
	assert.NoError(t, err)
	assert.Len(t, response.Data, 2)
}

func TestSplitEntry_ValidationErrorReturns400(t *testing.T) {
	service := &MockLedgerService{Err: budgetErrors.ErrSplitAmountMismatch}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/entries/entry-1/split", `{"parts":[{"amount":50000},{"amount":40000}]}`)
	req.SetPathValue("entryID", "entry-1")
	handler.SplitEntry(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)

	var response map[string]interface{}
	err := json.NewDecoder(w.Result().Body).Decode(&response)
	assert.NoError(t, err)
	assert.Equal(t, budgetErrors.ErrSplitAmountMismatch.Error(), response["message"])
}

func TestSplitEntry_UnknownEntryReturns404(t *testing.T) {
	service := &MockLedgerService{Err: budgetErrors.ErrEntryNotFound}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/entries/missing/split", `{"parts":[{"amount":1},{"amount":2}]}`)
	req.SetPathValue("entryID", "missing")
	handler.SplitEntry(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestGetEntries_ReturnsEmptyArrayNotNull(t *testing.T) {
	service := &MockLedgerService{}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodGet, "/entries?start_date=2026-08-01&end_date=2026-08-31", "")
	handler.GetEntries(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	body := w.Body.String()
	assert.Contains(t, body, `"data":[]`)
}

func TestSuggestCategory_ReturnsMatch(t *testing.T) {
	lineItemID := "li-streaming"
	service := &MockLedgerService{Suggestion: &lineItemID}
	handler := NewLedgerHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodGet, "/entries/suggest-category?merchant_name=Netflix", "")
	handler.SuggestCategory(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "li-streaming")
}
