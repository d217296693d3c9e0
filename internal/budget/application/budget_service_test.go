package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	"github.com/mzielinski/BudgetSync/internal/budget/infrastructure"
)

func newBudgetFixture() (*BudgetService, *infrastructure.MockBudgetRepository, *infrastructure.MockLedgerRepository) {
	budgets := &infrastructure.MockBudgetRepository{}
	ledger := &infrastructure.MockLedgerRepository{}
	return NewBudgetService(budgets, ledger), budgets, ledger
}

func augustEntry(id string, amount int64, lineItemID *string) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:         id,
		UserID:     testUserID,
		Amount:     amount,
		Date:       time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Type:       domain.EntryTypeExpense,
		Source:     domain.SourcePlaid,
		LineItemID: lineItemID,
	}
}

func TestGetSummary_ComputesBudgetFigures(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month, PlannedIncome: 500000,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Essentials",
				Items: []domain.LineItem{
					{ID: "li-groceries", GroupID: "group-1", Name: "Groceries", PlannedAmount: 150000},
					{ID: "li-transport", GroupID: "group-1", Name: "Transport", PlannedAmount: 10000},
				},
			},
		},
	})

	groceries := "li-groceries"
	transport := "li-transport"
	ledger.Entries = append(ledger.Entries,
		augustEntry("e1", 150000, &groceries),
		augustEntry("e2", 20000, &transport),
	)

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	assert.Equal(t, int64(160000), summary.TotalPlanned)
	assert.Equal(t, int64(170000), summary.TotalSpent)
	assert.Equal(t, int64(500000-160000), summary.LeftToBudget)
	assert.Equal(t, int64(-10000), summary.LeftToSpend)
	assert.Equal(t, 1.0, summary.PercentSpent)

	items := summary.Groups[0].Items
	assert.Equal(t, int64(0), items[0].Remaining)
	assert.Equal(t, 1.0, items[0].PercentSpent)
	// Overspent line item: percent caps at 1.0, remaining goes negative.
	assert.Equal(t, int64(-10000), items[1].Remaining)
	assert.Equal(t, 1.0, items[1].PercentSpent)
}

func TestGetSummary_SkipsExcludedAndSplitParents(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month, PlannedIncome: 500000,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Essentials",
				Items: []domain.LineItem{
					{ID: "li-groceries", GroupID: "group-1", Name: "Groceries", PlannedAmount: 100000},
				},
			},
		},
	})

	groceries := "li-groceries"
	excluded := augustEntry("e1", 30000, &groceries)
	excluded.Excluded = true
	// A split parent keeps its original amount but its children carry the
	// category; counting both would double the spend.
	parent := augustEntry("e2", 60000, nil)
	parent.IsSplit = true
	parentID := "e2"
	child := augustEntry("e3", 60000, &groceries)
	child.ParentID = &parentID
	uncategorized := augustEntry("e4", 9999, nil)

	ledger.Entries = append(ledger.Entries, excluded, parent, child, uncategorized)

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	assert.Equal(t, int64(60000), summary.TotalSpent)
	assert.Equal(t, int64(60000), summary.Groups[0].Items[0].Spent)
}

func TestGetSummary_OverspentBudgetCapsPercentSpent(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Essentials",
				Items: []domain.LineItem{
					{ID: "li-groceries", GroupID: "group-1", Name: "Groceries", PlannedAmount: 10000},
				},
			},
		},
	})
	groceries := "li-groceries"
	ledger.Entries = append(ledger.Entries, augustEntry("e1", 20000, &groceries))

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	// The progress figure caps at 1.0; the overspend shows in left_to_spend.
	assert.Equal(t, 1.0, summary.PercentSpent)
	assert.Equal(t, int64(-10000), summary.LeftToSpend)
}

func TestGetSummary_UnderBudgetPercentIsFractional(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Essentials",
				Items: []domain.LineItem{
					{ID: "li-groceries", GroupID: "group-1", Name: "Groceries", PlannedAmount: 40000},
				},
			},
		},
	})
	groceries := "li-groceries"
	ledger.Entries = append(ledger.Entries, augustEntry("e1", 10000, &groceries))

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	assert.Equal(t, 0.25, summary.PercentSpent)
}

func TestGetSummary_CountsIncomeGroupSeparately(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month, PlannedIncome: 500000,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-income", BudgetID: "budget-1", Name: "Income", IsIncome: true,
				Items: []domain.LineItem{
					{ID: "li-salary", GroupID: "group-income", Name: "Salary", PlannedAmount: 500000},
				},
			},
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Essentials",
				Items: []domain.LineItem{
					{ID: "li-rent", GroupID: "group-1", Name: "Rent", PlannedAmount: 200000},
				},
			},
		},
	})

	salary := "li-salary"
	rent := "li-rent"
	salaryEntry := augustEntry("e1", -500000, &salary)
	salaryEntry.Type = domain.EntryTypeIncome
	ledger.Entries = append(ledger.Entries, salaryEntry, augustEntry("e2", 200000, &rent))

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	// Income group figures stay out of the spending totals.
	assert.Equal(t, int64(200000), summary.TotalPlanned)
	assert.Equal(t, int64(200000), summary.TotalSpent)
	assert.Equal(t, int64(300000), summary.LeftToBudget)
	assert.Equal(t, int64(500000), summary.Groups[0].Spent)
}

func TestGetSummary_ZeroPlannedItemHasZeroPercent(t *testing.T) {
	service, budgets, ledger := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month,
		Groups: []domain.CategoryGroup{
			{
				ID: "group-1", BudgetID: "budget-1", Name: "Misc",
				Items: []domain.LineItem{
					{ID: "li-misc", GroupID: "group-1", Name: "Misc", PlannedAmount: 0},
				},
			},
		},
	})
	misc := "li-misc"
	ledger.Entries = append(ledger.Entries, augustEntry("e1", 2500, &misc))

	summary, err := service.GetSummary(testUserID, month)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.Groups[0].Items[0].PercentSpent)
	assert.Equal(t, int64(-2500), summary.Groups[0].Items[0].Remaining)
}

func TestGetSummary_NormalizesMonth(t *testing.T) {
	service, budgets, _ := newBudgetFixture()
	month := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	budgets.Budgets = append(budgets.Budgets, domain.Budget{
		ID: "budget-1", UserID: testUserID, Month: month,
	})

	summary, err := service.GetSummary(testUserID, time.Date(2026, 8, 19, 13, 45, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Equal(t, month, summary.Month)
}
