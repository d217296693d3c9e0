package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
	"github.com/mzielinski/BudgetSync/internal/budget/infrastructure"
)

func newLedgerFixture() (*LedgerService, *infrastructure.MockLedgerRepository, *infrastructure.MockBudgetRepository) {
	ledger := &infrastructure.MockLedgerRepository{}
	budgets := &infrastructure.MockBudgetRepository{}
	rules := &infrastructure.MockRuleRepository{}
	return NewLedgerService(ledger, budgets, rules), ledger, budgets
}

func budgetWithLineItems(userID string, itemIDs ...string) domain.Budget {
	group := domain.CategoryGroup{ID: "group-1", BudgetID: "budget-1", Name: "Essentials"}
	for _, id := range itemIDs {
		group.Items = append(group.Items, domain.LineItem{ID: id, GroupID: "group-1", Name: "Item " + id})
	}
	return domain.Budget{
		ID:     "budget-1",
		UserID: userID,
		Month:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Groups: []domain.CategoryGroup{group},
	}
}

func expenseEntry(id string, amount int64) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:           id,
		UserID:       testUserID,
		Amount:       amount,
		MerchantName: "Amazon",
		Date:         time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Type:         domain.EntryTypeExpense,
		Source:       domain.SourceManual,
	}
}

func TestCreateEntry_RejectsForeignLineItem(t *testing.T) {
	service, _, budgets := newLedgerFixture()
	budgets.Budgets = append(budgets.Budgets, budgetWithLineItems("someone-else", "li-1"))

	lineItemID := "li-1"
	entry := expenseEntry("", 1000)
	entry.LineItemID = &lineItemID

	err := service.CreateEntry(&entry)

	assert.Equal(t, budgetErrors.ErrInvalidLineItem, err)
}

func TestSplitEntry_DividesIntoChildren(t *testing.T) {
	service, ledger, budgets := newLedgerFixture()
	budgets.Budgets = append(budgets.Budgets, budgetWithLineItems(testUserID, "li-groceries", "li-household"))
	ledger.Entries = append(ledger.Entries, expenseEntry("entry-1", 100000))

	groceries := "li-groceries"
	household := "li-household"
	children, err := service.SplitEntry("entry-1", testUserID, []SplitPart{
		{Amount: 60000, LineItemID: &groceries},
		{Amount: 40000, LineItemID: &household},
	})

	assert.NoError(t, err)
	assert.Len(t, children, 2)
	assert.Equal(t, int64(60000), children[0].Amount)
	assert.Equal(t, int64(40000), children[1].Amount)
	assert.Equal(t, "entry-1", *children[0].ParentID)
	assert.Equal(t, "Amazon", children[0].MerchantName)

	parent, err := ledger.FindByID("entry-1", testUserID)
	assert.NoError(t, err)
	assert.True(t, parent.IsSplit)
	assert.Nil(t, parent.LineItemID)
	assert.Len(t, ledger.Entries, 3)
}

func TestSplitEntry_KeepsSignOfIncomeParent(t *testing.T) {
	service, ledger, budgets := newLedgerFixture()
	budgets.Budgets = append(budgets.Budgets, budgetWithLineItems(testUserID, "li-salary", "li-bonus"))
	income := expenseEntry("entry-1", -100000)
	income.Type = domain.EntryTypeIncome
	ledger.Entries = append(ledger.Entries, income)

	salary := "li-salary"
	bonus := "li-bonus"
	children, err := service.SplitEntry("entry-1", testUserID, []SplitPart{
		{Amount: 70000, LineItemID: &salary},
		{Amount: 30000, LineItemID: &bonus},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(-70000), children[0].Amount)
	assert.Equal(t, int64(-30000), children[1].Amount)
}

func TestSplitEntry_RejectsAmountMismatch(t *testing.T) {
	service, ledger, budgets := newLedgerFixture()
	budgets.Budgets = append(budgets.Budgets, budgetWithLineItems(testUserID, "li-1", "li-2"))
	ledger.Entries = append(ledger.Entries, expenseEntry("entry-1", 100000))

	li1, li2 := "li-1", "li-2"
	_, err := service.SplitEntry("entry-1", testUserID, []SplitPart{
		{Amount: 50000, LineItemID: &li1},
		{Amount: 40000, LineItemID: &li2},
	})

	assert.Equal(t, budgetErrors.ErrSplitAmountMismatch, err)
	assert.Len(t, ledger.Entries, 1)
	assert.False(t, ledger.Entries[0].IsSplit)
}

func TestSplitEntry_RejectsSinglePart(t *testing.T) {
	service, ledger, _ := newLedgerFixture()
	ledger.Entries = append(ledger.Entries, expenseEntry("entry-1", 100000))

	_, err := service.SplitEntry("entry-1", testUserID, []SplitPart{{Amount: 100000}})

	assert.Equal(t, budgetErrors.ErrSplitTooFewParts, err)
}

func TestSplitEntry_RejectsAlreadySplitParent(t *testing.T) {
	service, ledger, _ := newLedgerFixture()
	entry := expenseEntry("entry-1", 100000)
	entry.IsSplit = true
	ledger.Entries = append(ledger.Entries, entry)

	_, err := service.SplitEntry("entry-1", testUserID, []SplitPart{
		{Amount: 60000}, {Amount: 40000},
	})

	assert.Equal(t, budgetErrors.ErrSplitAlreadySplit, err)
}

func TestSplitEntry_RejectsSplittingChild(t *testing.T) {
	service, ledger, _ := newLedgerFixture()
	parentID := "entry-parent"
	child := expenseEntry("entry-child", 60000)
	child.ParentID = &parentID
	ledger.Entries = append(ledger.Entries, child)

	_, err := service.SplitEntry("entry-child", testUserID, []SplitPart{
		{Amount: 30000}, {Amount: 30000},
	})

	assert.Equal(t, budgetErrors.ErrSplitNestedChild, err)
}

func TestUpdateEntry_PreservesStructuralFields(t *testing.T) {
	service, ledger, _ := newLedgerFixture()
	externalID := "tx-1"
	entry := expenseEntry("entry-1", 5000)
	entry.ExternalID = &externalID
	entry.Source = domain.SourcePlaid
	ledger.Entries = append(ledger.Entries, entry)

	edited := expenseEntry("entry-1", 5000)
	edited.Description = "Lunch with team"
	edited.Source = domain.SourceManual
	edited.ExternalID = nil

	err := service.UpdateEntry(&edited)

	assert.NoError(t, err)
	assert.Equal(t, "Lunch with team", ledger.Entries[0].Description)
	assert.Equal(t, domain.SourcePlaid, ledger.Entries[0].Source)
	assert.Equal(t, "tx-1", *ledger.Entries[0].ExternalID)
}

func TestSuggestCategory_UsesRules(t *testing.T) {
	ledger := &infrastructure.MockLedgerRepository{}
	budgets := &infrastructure.MockBudgetRepository{}
	rules := &infrastructure.MockRuleRepository{}
	rules.Rules = append(rules.Rules, domain.CategorizationRule{
		ID: "rule-1", UserID: testUserID,
		Field: domain.RuleFieldMerchantName, Mode: domain.RuleModeContains,
		MatchText: "spotify", LineItemID: "li-music", Priority: 5, Active: true,
	})
	service := NewLedgerService(ledger, budgets, rules)

	suggestion, err := service.SuggestCategory(testUserID, domain.RuleRecord{MerchantName: "Spotify USA"})

	assert.NoError(t, err)
	assert.Equal(t, "li-music", *suggestion)
}
