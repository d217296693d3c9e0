package domain

import (
	"strings"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/errors"
)

// Budget is one month's plan. Spent and remaining figures are never stored,
// they are recomputed from the ledger at read time.
type Budget struct {
	ID            string
	UserID        string // user UUID
	Month         time.Time
	PlannedIncome int64 // minor units
	Groups        []CategoryGroup
}

type CategoryGroup struct {
	ID       string
	BudgetID string
	Name     string
	IsIncome bool
	Position int
	Items    []LineItem
}

type LineItem struct {
	ID            string
	GroupID       string
	Name          string
	PlannedAmount int64 // minor units
	Position      int
}

func (g *CategoryGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.NewValidationError("Group name must not be empty")
	}
	return nil
}

func (li *LineItem) Validate() error {
	if strings.TrimSpace(li.Name) == "" {
		return errors.NewValidationError("Line item name must not be empty")
	}
	if li.PlannedAmount < 0 {
		return errors.NewValidationError("Planned amount must not be negative")
	}
	return nil
}

type BudgetRepository interface {
	Save(budget Budget) error
	FindByMonth(userID string, month time.Time) (*Budget, error)
	UpdatePlannedIncome(budgetID, userID string, plannedIncome int64) error
	SaveGroup(group CategoryGroup) error
	SaveLineItem(item LineItem) error
	UpdateLineItem(item LineItem) error
	DeleteLineItem(lineItemID, userID string) error
	DoesLineItemBelongToUser(lineItemID, userID string) (bool, error)
}
