package infrastructure

import (
	"database/sql"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type BudgetRepository struct {
	db *sql.DB
}

func NewBudgetRepository(db *sql.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Save(budget domain.Budget) error {
	_, err := r.db.Exec(
		`INSERT INTO budgets (id, user_id, month, planned_income) VALUES ($1, $2, $3, $4)`,
		budget.ID, budget.UserID, budget.Month, budget.PlannedIncome,
	)
	return err
}

// FindByMonth loads the budget with its ordered groups and line items.
func (r *BudgetRepository) FindByMonth(userID string, month time.Time) (*domain.Budget, error) {
	var budget domain.Budget
	err := r.db.QueryRow(
		`SELECT id, user_id, month, planned_income FROM budgets WHERE user_id = $1 AND month = $2`,
		userID, month,
	).Scan(&budget.ID, &budget.UserID, &budget.Month, &budget.PlannedIncome)
	if err == sql.ErrNoRows {
		return nil, budgetErrors.ErrBudgetNotFound
	}
	if err != nil {
		return nil, err
	}

	groupRows, err := r.db.Query(
		`SELECT id, budget_id, name, is_income, position
		 FROM category_groups WHERE budget_id = $1 ORDER BY position`,
		budget.ID,
	)
	if err != nil {
		return nil, err
	}
	defer groupRows.Close()

	groupIndex := make(map[string]int)
	for groupRows.Next() {
		var group domain.CategoryGroup
		if err := groupRows.Scan(&group.ID, &group.BudgetID, &group.Name, &group.IsIncome, &group.Position); err != nil {
			return nil, err
		}
		groupIndex[group.ID] = len(budget.Groups)
		budget.Groups = append(budget.Groups, group)
	}
	if err := groupRows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.db.Query(
		`SELECT li.id, li.group_id, li.name, li.planned_amount, li.position
		 FROM line_items li
		 JOIN category_groups cg ON cg.id = li.group_id
		 WHERE cg.budget_id = $1
		 ORDER BY li.position`,
		budget.ID,
	)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.LineItem
		if err := itemRows.Scan(&item.ID, &item.GroupID, &item.Name, &item.PlannedAmount, &item.Position); err != nil {
			return nil, err
		}
		if idx, ok := groupIndex[item.GroupID]; ok {
			budget.Groups[idx].Items = append(budget.Groups[idx].Items, item)
		}
	}
	return &budget, itemRows.Err()
}

func (r *BudgetRepository) UpdatePlannedIncome(budgetID, userID string, plannedIncome int64) error {
	_, err := r.db.Exec(
		`UPDATE budgets SET planned_income = $1 WHERE id = $2 AND user_id = $3`,
		plannedIncome, budgetID, userID,
	)
	return err
}

func (r *BudgetRepository) SaveGroup(group domain.CategoryGroup) error {
	_, err := r.db.Exec(
		`INSERT INTO category_groups (id, budget_id, name, is_income, position) VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.BudgetID, group.Name, group.IsIncome, group.Position,
	)
	return err
}

func (r *BudgetRepository) SaveLineItem(item domain.LineItem) error {
	_, err := r.db.Exec(
		`INSERT INTO line_items (id, group_id, name, planned_amount, position) VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.GroupID, item.Name, item.PlannedAmount, item.Position,
	)
	return err
}

func (r *BudgetRepository) UpdateLineItem(item domain.LineItem) error {
	_, err := r.db.Exec(
		`UPDATE line_items SET name = $1, planned_amount = $2, position = $3 WHERE id = $4`,
		item.Name, item.PlannedAmount, item.Position, item.ID,
	)
	return err
}

// DeleteLineItem removes the line item; referencing ledger entries fall back
// to uncategorized through the ON DELETE SET NULL constraint.
func (r *BudgetRepository) DeleteLineItem(lineItemID, userID string) error {
	_, err := r.db.Exec(
		`DELETE FROM line_items li
		 USING category_groups cg, budgets b
		 WHERE li.id = $1 AND li.group_id = cg.id AND cg.budget_id = b.id AND b.user_id = $2`,
		lineItemID, userID,
	)
	return err
}

func (r *BudgetRepository) DoesLineItemBelongToUser(lineItemID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(
			SELECT 1 FROM line_items li
			JOIN category_groups cg ON cg.id = li.group_id
			JOIN budgets b ON b.id = cg.budget_id
			WHERE li.id = $1 AND b.user_id = $2
		)`,
		lineItemID, userID,
	).Scan(&exists)
	return exists, err
}
