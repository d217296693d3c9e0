package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

// LineItemSummary is one budgeted category with its month-to-date actuals.
type LineItemSummary struct {
	LineItem     domain.LineItem
	Spent        int64
	Remaining    int64
	PercentSpent float64
}

type GroupSummary struct {
	ID       string
	Name     string
	IsIncome bool
	Position int
	Planned  int64
	Spent    int64
	Items    []LineItemSummary
}

// BudgetSummary is the fully aggregated month view. All figures are computed
// from the ledger on every read, nothing here is persisted.
type BudgetSummary struct {
	BudgetID      string
	Month         time.Time
	PlannedIncome int64
	TotalPlanned  int64
	TotalSpent    int64
	LeftToBudget  int64
	LeftToSpend   int64
	PercentSpent  float64
	Groups        []GroupSummary
}

type BudgetService struct {
	budgets domain.BudgetRepository
	ledger  domain.LedgerRepository
}

func NewBudgetService(budgets domain.BudgetRepository, ledger domain.LedgerRepository) *BudgetService {
	return &BudgetService{budgets: budgets, ledger: ledger}
}

func (s *BudgetService) CreateBudget(userID string, month time.Time, plannedIncome int64) (*domain.Budget, error) {
	budget := domain.Budget{
		ID:            uuid.NewString(),
		UserID:        userID,
		Month:         normalizeMonth(month),
		PlannedIncome: plannedIncome,
	}
	if err := s.budgets.Save(budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

func (s *BudgetService) GetBudget(userID string, month time.Time) (*domain.Budget, error) {
	return s.budgets.FindByMonth(userID, normalizeMonth(month))
}

func (s *BudgetService) SetPlannedIncome(budgetID, userID string, plannedIncome int64) error {
	return s.budgets.UpdatePlannedIncome(budgetID, userID, plannedIncome)
}

func (s *BudgetService) AddGroup(group *domain.CategoryGroup) error {
	group.ID = uuid.NewString()
	if err := group.Validate(); err != nil {
		return err
	}
	return s.budgets.SaveGroup(*group)
}

func (s *BudgetService) AddLineItem(item *domain.LineItem) error {
	item.ID = uuid.NewString()
	if err := item.Validate(); err != nil {
		return err
	}
	return s.budgets.SaveLineItem(*item)
}

func (s *BudgetService) UpdateLineItem(item *domain.LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.budgets.UpdateLineItem(*item)
}

// DeleteLineItem removes a budgeted category. Ledger entries that pointed at
// it keep their rows and fall back to uncategorized via the schema's
// ON DELETE SET NULL.
func (s *BudgetService) DeleteLineItem(lineItemID, userID string) error {
	return s.budgets.DeleteLineItem(lineItemID, userID)
}

// GetSummary aggregates the month's ledger activity onto the budget plan.
// Excluded entries and split parents are skipped; split children count
// against their own line items.
func (s *BudgetService) GetSummary(userID string, month time.Time) (*BudgetSummary, error) {
	month = normalizeMonth(month)
	budget, err := s.budgets.FindByMonth(userID, month)
	if err != nil {
		return nil, err
	}

	start := month
	end := month.AddDate(0, 1, -1)
	entries, err := s.ledger.FindInDateRange(userID, start, end)
	if err != nil {
		return nil, err
	}

	spentByItem := make(map[string]int64)
	for _, entry := range entries {
		if entry.Excluded || entry.IsSplit || entry.LineItemID == nil {
			continue
		}
		amount := entry.Amount
		if amount < 0 {
			amount = -amount
		}
		spentByItem[*entry.LineItemID] += amount
	}

	summary := &BudgetSummary{
		BudgetID:      budget.ID,
		Month:         budget.Month,
		PlannedIncome: budget.PlannedIncome,
		Groups:        make([]GroupSummary, 0, len(budget.Groups)),
	}
	for _, group := range budget.Groups {
		gs := GroupSummary{
			ID:       group.ID,
			Name:     group.Name,
			IsIncome: group.IsIncome,
			Position: group.Position,
			Items:    make([]LineItemSummary, 0, len(group.Items)),
		}
		for _, item := range group.Items {
			spent := spentByItem[item.ID]
			gs.Planned += item.PlannedAmount
			gs.Spent += spent
			gs.Items = append(gs.Items, LineItemSummary{
				LineItem:     item,
				Spent:        spent,
				Remaining:    item.PlannedAmount - spent,
				PercentSpent: percentSpent(spent, item.PlannedAmount),
			})
		}
		if !group.IsIncome {
			summary.TotalPlanned += gs.Planned
			summary.TotalSpent += gs.Spent
		}
		summary.Groups = append(summary.Groups, gs)
	}

	summary.LeftToBudget = summary.PlannedIncome - summary.TotalPlanned
	summary.LeftToSpend = summary.TotalPlanned - summary.TotalSpent
	summary.PercentSpent = percentSpent(summary.TotalSpent, summary.TotalPlanned)
	return summary, nil
}

// percentSpent is capped at 1.0 so progress bars never overflow; the signed
// Remaining figure is what shows overspend.
func percentSpent(spent, planned int64) float64 {
	if planned <= 0 {
		return 0
	}
	p := float64(spent) / float64(planned)
	if p > 1.0 {
		return 1.0
	}
	return p
}

func normalizeMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
