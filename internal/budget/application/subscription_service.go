package application

import (
	"log"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

const (
	detectionWindowDays = 90
	amountTolerance     = 0.10
	detectConcurrency   = 4
)

// UserLister supplies the user population for the nightly detection sweep.
type UserLister interface {
	ListUserIDs() ([]string, error)
}

type SubscriptionService struct {
	subscriptions domain.SubscriptionRepository
	ledger        domain.LedgerRepository
	users         UserLister
	now           func() time.Time
}

func NewSubscriptionService(subscriptions domain.SubscriptionRepository, ledger domain.LedgerRepository, users UserLister) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		ledger:        ledger,
		users:         users,
		now:           time.Now,
	}
}

func (s *SubscriptionService) ListSubscriptions(userID string, includeDismissed bool) ([]domain.DetectedSubscription, error) {
	return s.subscriptions.FindByUser(userID, includeDismissed)
}

func (s *SubscriptionService) Confirm(subscriptionID, userID string) error {
	return s.subscriptions.SetConfirmed(subscriptionID, userID, true)
}

func (s *SubscriptionService) Dismiss(subscriptionID, userID string) error {
	return s.subscriptions.SetDismissed(subscriptionID, userID, true)
}

// DetectForUser scans the trailing 90 days of expense entries for merchants
// that charge a consistent amount on a regular cadence. Matches are upserted
// by merchant name so re-running refreshes amounts and dates without
// duplicating rows or touching user confirmations.
func (s *SubscriptionService) DetectForUser(userID string) (int, error) {
	since := s.now().AddDate(0, 0, -detectionWindowDays)
	entries, err := s.ledger.FindExpensesSince(userID, since)
	if err != nil {
		return 0, err
	}

	byMerchant := make(map[string][]domain.LedgerEntry)
	for _, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry.MerchantName))
		if key == "" {
			continue
		}
		byMerchant[key] = append(byMerchant[key], entry)
	}

	created := 0
	for _, charges := range byMerchant {
		candidate, ok := s.analyze(userID, charges)
		if !ok {
			continue
		}
		isNew, err := s.subscriptions.UpsertByMerchant(candidate)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// DetectAllUsers runs the detector across every user with bounded
// concurrency. Per-user failures are logged and do not stop the sweep.
func (s *SubscriptionService) DetectAllUsers() (int, error) {
	userIDs, err := s.users.ListUserIDs()
	if err != nil {
		return 0, err
	}

	var totalCreated int64
	var g errgroup.Group
	g.SetLimit(detectConcurrency)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			created, err := s.DetectForUser(userID)
			if err != nil {
				log.Printf("subscription detection failed for user %s: %v", userID, err)
				return nil
			}
			atomic.AddInt64(&totalCreated, int64(created))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(totalCreated), err
	}
	return int(totalCreated), nil
}

// analyze decides whether one merchant's charges look like a subscription.
// It requires at least two charges, every amount within 10% of the mean,
// and an average gap that lands in a recognized cadence bucket.
func (s *SubscriptionService) analyze(userID string, charges []domain.LedgerEntry) (domain.DetectedSubscription, bool) {
	if len(charges) < 2 {
		return domain.DetectedSubscription{}, false
	}

	var sum float64
	amounts := make([]float64, len(charges))
	for i, charge := range charges {
		amount := charge.Amount
		if amount < 0 {
			amount = -amount
		}
		amounts[i] = float64(amount)
		sum += amounts[i]
	}
	mean := sum / float64(len(charges))
	if mean <= 0 {
		return domain.DetectedSubscription{}, false
	}
	for _, amount := range amounts {
		if math.Abs(amount-mean) > amountTolerance*mean {
			return domain.DetectedSubscription{}, false
		}
	}

	sorted := make([]domain.LedgerEntry, len(charges))
	copy(sorted, charges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var gapSum float64
	for i := 1; i < len(sorted); i++ {
		gapSum += sorted[i].Date.Sub(sorted[i-1].Date).Hours() / 24
	}
	avgGap := gapSum / float64(len(sorted)-1)

	frequency, ok := classifyGap(avgGap)
	if !ok {
		return domain.DetectedSubscription{}, false
	}

	last := sorted[len(sorted)-1]
	return domain.DetectedSubscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		MerchantName:    strings.TrimSpace(last.MerchantName),
		EstimatedAmount: int64(math.Round(mean)),
		Frequency:       frequency,
		LastChargedAt:   last.Date,
		NextExpectedAt:  projectNext(last.Date, frequency),
	}, true
}

func classifyGap(avgGapDays float64) (domain.SubscriptionFrequency, bool) {
	switch {
	case avgGapDays >= 5 && avgGapDays <= 9:
		return domain.FrequencyWeekly, true
	case avgGapDays >= 12 && avgGapDays <= 16:
		return domain.FrequencyBiweekly, true
	case avgGapDays >= 25 && avgGapDays <= 35:
		return domain.FrequencyMonthly, true
	case avgGapDays >= 85 && avgGapDays <= 95:
		return domain.FrequencyQuarterly, true
	case avgGapDays >= 350 && avgGapDays <= 380:
		return domain.FrequencyAnnual, true
	default:
		return "", false
	}
}

func projectNext(lastCharged time.Time, frequency domain.SubscriptionFrequency) time.Time {
	switch frequency {
	case domain.FrequencyWeekly:
		return lastCharged.AddDate(0, 0, 7)
	case domain.FrequencyBiweekly:
		return lastCharged.AddDate(0, 0, 14)
	case domain.FrequencyMonthly:
		return lastCharged.AddDate(0, 1, 0)
	case domain.FrequencyQuarterly:
		return lastCharged.AddDate(0, 3, 0)
	default:
		return lastCharged.AddDate(1, 0, 0)
	}
}
