package infrastructure

import (
	"database/sql"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// UpsertByMerchant refreshes the detector-owned fields of the record matched
// case-insensitively by merchant name. Confirmed and dismissed are left alone.
func (r *SubscriptionRepository) UpsertByMerchant(sub domain.DetectedSubscription) (bool, error) {
	var existingID string
	err := r.db.QueryRow(
		`SELECT id FROM detected_subscriptions WHERE user_id = $1 AND lower(merchant_name) = lower($2)`,
		sub.UserID, sub.MerchantName,
	).Scan(&existingID)

	if err == sql.ErrNoRows {
		_, err = r.db.Exec(
			`INSERT INTO detected_subscriptions
			(id, user_id, merchant_name, estimated_amount, frequency, last_charged_at, next_expected_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, lower(merchant_name)) DO UPDATE SET
				estimated_amount = EXCLUDED.estimated_amount,
				frequency = EXCLUDED.frequency,
				last_charged_at = EXCLUDED.last_charged_at,
				next_expected_at = EXCLUDED.next_expected_at,
				updated_at = now()`,
			sub.ID, sub.UserID, sub.MerchantName, sub.EstimatedAmount,
			sub.Frequency, sub.LastChargedAt, sub.NextExpectedAt,
		)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	_, err = r.db.Exec(
		`UPDATE detected_subscriptions
		 SET merchant_name = $1, estimated_amount = $2, frequency = $3,
		     last_charged_at = $4, next_expected_at = $5, updated_at = now()
		 WHERE id = $6`,
		sub.MerchantName, sub.EstimatedAmount, sub.Frequency,
		sub.LastChargedAt, sub.NextExpectedAt, existingID,
	)
	return false, err
}

func (r *SubscriptionRepository) FindByUser(userID string, includeDismissed bool) ([]domain.DetectedSubscription, error) {
	query := `SELECT id, user_id, merchant_name, estimated_amount, frequency,
	                 last_charged_at, next_expected_at, confirmed, dismissed
	          FROM detected_subscriptions WHERE user_id = $1`
	if !includeDismissed {
		query += ` AND dismissed = FALSE`
	}
	query += ` ORDER BY next_expected_at`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.DetectedSubscription
	for rows.Next() {
		var sub domain.DetectedSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.MerchantName, &sub.EstimatedAmount,
			&sub.Frequency, &sub.LastChargedAt, &sub.NextExpectedAt, &sub.Confirmed, &sub.Dismissed); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) SetConfirmed(subscriptionID, userID string, confirmed bool) error {
	result, err := r.db.Exec(
		`UPDATE detected_subscriptions SET confirmed = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
		confirmed, subscriptionID, userID,
	)
	if err != nil {
		return err
	}
	return requireSubscriptionRow(result)
}

func (r *SubscriptionRepository) SetDismissed(subscriptionID, userID string, dismissed bool) error {
	result, err := r.db.Exec(
		`UPDATE detected_subscriptions SET dismissed = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
		dismissed, subscriptionID, userID,
	)
	if err != nil {
		return err
	}
	return requireSubscriptionRow(result)
}

func requireSubscriptionRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return budgetErrors.ErrSubscriptionNotFound
	}
	return nil
}
