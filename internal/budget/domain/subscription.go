package domain

import "time"

type SubscriptionFrequency string

const (
	FrequencyWeekly    SubscriptionFrequency = "weekly"
	FrequencyBiweekly  SubscriptionFrequency = "biweekly"
	FrequencyMonthly   SubscriptionFrequency = "monthly"
	FrequencyQuarterly SubscriptionFrequency = "quarterly"
	FrequencyAnnual    SubscriptionFrequency = "annual"
)

// DetectedSubscription is the detector's output for one recurring merchant.
// Confirmed and Dismissed belong to the user and are never written by the
// detector job.
type DetectedSubscription struct {
	ID              string
	UserID          string // user UUID
	MerchantName    string
	EstimatedAmount int64 // minor units
	Frequency       SubscriptionFrequency
	LastChargedAt   time.Time
	NextExpectedAt  time.Time
	Confirmed       bool
	Dismissed       bool
}

type SubscriptionRepository interface {
	// UpsertByMerchant inserts or refreshes the record matched by
	// case-insensitive merchant name. Returns true when a new row was created.
	UpsertByMerchant(sub DetectedSubscription) (bool, error)
	FindByUser(userID string, includeDismissed bool) ([]DetectedSubscription, error)
	SetConfirmed(subscriptionID, userID string, confirmed bool) error
	SetDismissed(subscriptionID, userID string, dismissed bool) error
}
