package interfaces

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzielinski/BudgetSync/internal/budget/application"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

func TestCreateLinkToken_ReturnsToken(t *testing.T) {
	service := &MockSyncService{LinkToken: "link-sandbox-token"}
	handler := NewItemHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/items/link-token", `{}`)
	handler.CreateLinkToken(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "link-sandbox-token")
}

func TestExchangePublicToken_RequiresToken(t *testing.T) {
	service := &MockSyncService{}
	handler := NewItemHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/items/exchange", `{"institution_id":"inst-1"}`)
	handler.ExchangePublicToken(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestExchangePublicToken_ReturnsLinkedItem(t *testing.T) {
	service := &MockSyncService{
		Item: &domain.LinkedItem{ID: "item-1", Status: domain.ItemStatusActive, InstitutionName: "First Bank"},
	}
	handler := NewItemHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/items/exchange", `{"public_token":"public-abc","institution_id":"inst-1","institution_name":"First Bank"}`)
	handler.ExchangePublicToken(w, req)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "First Bank")
}

func TestSyncNow_PassesItemID(t *testing.T) {
	service := &MockSyncService{
		Result: &application.SyncResult{Added: 3, ItemStatuses: map[string]domain.ItemStatus{"item-1": domain.ItemStatusActive}},
	}
	handler := NewItemHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodPost, "/items/sync", `{"item_id":"item-1"}`)
	handler.SyncNow(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "item-1", service.SyncedItemID)
}

func TestGetItems_ReturnsEmptyArrayNotNull(t *testing.T) {
	service := &MockSyncService{}
	handler := NewItemHandler(service, respondJSON, respondError)
	w := httptest.NewRecorder()

	req := authedRequest(http.MethodGet, "/items", "")
	handler.GetItems(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}
