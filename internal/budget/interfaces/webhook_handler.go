package interfaces

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type WebhookSyncService interface {
	HandleTransactionsDelta(externalItemID string) error
	HandleTransactionsRemoved(externalItemID string, removedIDs []string) error
	HandleItemError(externalItemID, errorCode string) error
	HandleConsentExpiration(externalItemID string, expiresAt time.Time) error
}

// WebhookHandler receives the aggregator's push notifications. The endpoint is
// public, so every request must carry the shared secret agreed with the
// provider; anything else is dropped with 401 before the body is even parsed.
type WebhookHandler struct {
	service      WebhookSyncService
	sharedSecret string
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewWebhookHandler(
	service WebhookSyncService,
	sharedSecret string,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *WebhookHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	if sharedSecret == "" {
		log.Fatal("Webhook shared secret must not be empty")
		return nil
	}
	return &WebhookHandler{
		service:      service,
		sharedSecret: sharedSecret,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type webhookPayload struct {
	WebhookType         string   `json:"webhook_type"`
	WebhookCode         string   `json:"webhook_code"`
	ItemID              string   `json:"item_id"`
	RemovedTransactions []string `json:"removed_transactions"`
	Error               *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
	ConsentExpirationTime string `json:"consent_expiration_time"`
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.sharedSecret)) != 1 {
		h.respondError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.ItemID == "" {
		h.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	if err := h.dispatch(payload); err != nil {
		if errors.Is(err, budgetErrors.ErrItemNotFound) {
			// Unknown item: acknowledge so the provider stops retrying.
			log.Printf("Webhook for unknown item %s ignored", payload.ItemID)
			h.respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		log.Printf("Webhook %s/%s failed for item %s: %v", payload.WebhookType, payload.WebhookCode, payload.ItemID, err)
		h.respondError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (h *WebhookHandler) dispatch(payload webhookPayload) error {
	switch payload.WebhookType {
	case "TRANSACTIONS":
		switch payload.WebhookCode {
		case "SYNC_UPDATES_AVAILABLE", "DEFAULT_UPDATE", "INITIAL_UPDATE", "HISTORICAL_UPDATE":
			return h.service.HandleTransactionsDelta(payload.ItemID)
		case "TRANSACTIONS_REMOVED":
			return h.service.HandleTransactionsRemoved(payload.ItemID, payload.RemovedTransactions)
		}
	case "ITEM":
		switch payload.WebhookCode {
		case "ERROR":
			errorCode := ""
			if payload.Error != nil {
				errorCode = payload.Error.ErrorCode
			}
			return h.service.HandleItemError(payload.ItemID, errorCode)
		case "PENDING_EXPIRATION":
			expiresAt, err := time.Parse(time.RFC3339, payload.ConsentExpirationTime)
			if err != nil {
				return budgetErrors.NewValidationError("Invalid consent_expiration_time")
			}
			return h.service.HandleConsentExpiration(payload.ItemID, expiresAt)
		}
	}
	// Unrecognized codes are acknowledged without action; the provider adds
	// new codes over time and retrying them would never succeed.
	log.Printf("Ignoring webhook %s/%s", payload.WebhookType, payload.WebhookCode)
	return nil
}
