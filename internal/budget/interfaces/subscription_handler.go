package interfaces

import (
	"errors"
	"log"
	"net/http"

	"github.com/mzielinski/BudgetSync/internal/auth"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type SubscriptionServiceInterface interface {
	ListSubscriptions(userID string, includeDismissed bool) ([]domain.DetectedSubscription, error)
	Confirm(subscriptionID, userID string) error
	Dismiss(subscriptionID, userID string) error
	DetectForUser(userID string) (int, error)
}

type SubscriptionHandler struct {
	service      SubscriptionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewSubscriptionHandler(
	service SubscriptionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *SubscriptionHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	return &SubscriptionHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	includeDismissed := r.URL.Query().Get("include_dismissed") == "true"

	subscriptions, err := h.service.ListSubscriptions(userID, includeDismissed)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve subscriptions")
		return
	}
	if subscriptions == nil {
		subscriptions = []domain.DetectedSubscription{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   subscriptions,
	})
}

func (h *SubscriptionHandler) ConfirmSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Confirm(r.PathValue("subscriptionID"), userID); err != nil {
		if errors.Is(err, budgetErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to confirm subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscription confirmed.",
	})
}

func (h *SubscriptionHandler) DismissSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Dismiss(r.PathValue("subscriptionID"), userID); err != nil {
		if errors.Is(err, budgetErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to dismiss subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscription dismissed.",
	})
}

func (h *SubscriptionHandler) DetectNow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	created, err := h.service.DetectForUser(userID)
	if err != nil {
		log.Println("Error running subscription detection:", err.Error())
		h.respondError(w, http.StatusInternalServerError, "Failed to run detection")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Detection completed.",
		"data":    map[string]int{"created": created},
	})
}
