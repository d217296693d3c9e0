package interfaces

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testWebhookSecret = "whsec_test"

func webhookRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/plaid", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	return req
}

func TestHandleWebhook_RejectsMissingSecret(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"ext-1"}`, ""))

	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
	assert.Empty(t, service.DeltaItemID)
}

func TestHandleWebhook_RejectsWrongSecret(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"item_id":"ext-1"}`, "wrong"))

	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestHandleWebhook_DispatchesTransactionsDelta(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"ext-1"}`, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "ext-1", service.DeltaItemID)
}

func TestHandleWebhook_DispatchesRemovedTransactions(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"TRANSACTIONS","webhook_code":"TRANSACTIONS_REMOVED","item_id":"ext-1","removed_transactions":["tx-1","tx-2"]}`, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "ext-1", service.RemovedItemID)
	assert.Equal(t, []string{"tx-1", "tx-2"}, service.RemovedIDs)
}

func TestHandleWebhook_DispatchesItemError(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"ITEM","webhook_code":"ERROR","item_id":"ext-1","error":{"error_code":"ITEM_LOGIN_REQUIRED"}}`, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "ext-1", service.ErrorItemID)
	assert.Equal(t, "ITEM_LOGIN_REQUIRED", service.ErrorCode)
}

func TestHandleWebhook_DispatchesConsentExpiration(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"ITEM","webhook_code":"PENDING_EXPIRATION","item_id":"ext-1","consent_expiration_time":"2026-09-30T00:00:00Z"}`, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "ext-1", service.ConsentItemID)
	assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), service.ConsentAt)
}

func TestHandleWebhook_AcknowledgesUnknownCode(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"TRANSACTIONS","webhook_code":"SOME_NEW_CODE","item_id":"ext-1"}`, testWebhookSecret))

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Empty(t, service.DeltaItemID)
}

func TestHandleWebhook_RequiresItemID(t *testing.T) {
	service := &MockWebhookService{}
	handler := NewWebhookHandler(service, testWebhookSecret, respondJSON, respondError)
	w := httptest.NewRecorder()

	handler.HandleWebhook(w, webhookRequest(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE"}`, testWebhookSecret))

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
