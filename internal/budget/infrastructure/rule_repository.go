package infrastructure

import (
	"database/sql"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Save(rule domain.CategorizationRule) error {
	_, err := r.db.Exec(
		`INSERT INTO categorization_rules
		(id, user_id, match_field, match_mode, match_text, line_item_id, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rule.ID, rule.UserID, rule.Field, rule.Mode, rule.MatchText,
		rule.LineItemID, rule.Priority, rule.Active,
	)
	return err
}

func (r *RuleRepository) Update(rule domain.CategorizationRule) error {
	_, err := r.db.Exec(
		`UPDATE categorization_rules
		 SET match_field = $1, match_mode = $2, match_text = $3, line_item_id = $4, priority = $5, active = $6
		 WHERE id = $7 AND user_id = $8`,
		rule.Field, rule.Mode, rule.MatchText, rule.LineItemID, rule.Priority, rule.Active,
		rule.ID, rule.UserID,
	)
	return err
}

func (r *RuleRepository) Delete(ruleID, userID string) error {
	_, err := r.db.Exec(
		`DELETE FROM categorization_rules WHERE id = $1 AND user_id = $2`,
		ruleID, userID,
	)
	return err
}

func (r *RuleRepository) FindByUser(userID string) ([]domain.CategorizationRule, error) {
	rows, err := r.db.Query(
		`SELECT id, user_id, match_field, match_mode, match_text, line_item_id, priority, active
		 FROM categorization_rules WHERE user_id = $1 ORDER BY priority DESC, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.CategorizationRule
	for rows.Next() {
		var rule domain.CategorizationRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Field, &rule.Mode, &rule.MatchText,
			&rule.LineItemID, &rule.Priority, &rule.Active); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
