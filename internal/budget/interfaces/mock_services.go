package interfaces

import (
	"errors"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/application"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

// Mock services for handler tests.

type MockSyncService struct {
	LinkToken  string
	Item       *domain.LinkedItem
	Result     *application.SyncResult
	Items      []domain.LinkedItem
	ShouldFail bool

	SyncedItemID string
}

var errMockFailure = errors.New("mock failure")

func (m *MockSyncService) CreateLinkToken(userID, itemID string) (string, error) {
	if m.ShouldFail {
		return "", errMockFailure
	}
	return m.LinkToken, nil
}

func (m *MockSyncService) ExchangePublicToken(userID, publicToken, institutionID, institutionName string) (*domain.LinkedItem, error) {
	if m.ShouldFail {
		return nil, errMockFailure
	}
	return m.Item, nil
}

func (m *MockSyncService) SyncUser(userID, itemID string) (*application.SyncResult, error) {
	if m.ShouldFail {
		return nil, errMockFailure
	}
	m.SyncedItemID = itemID
	return m.Result, nil
}

func (m *MockSyncService) RefreshBalances(userID string) error {
	if m.ShouldFail {
		return errMockFailure
	}
	return nil
}

func (m *MockSyncService) ItemsForUser(userID string) ([]domain.LinkedItem, error) {
	if m.ShouldFail {
		return nil, errMockFailure
	}
	return m.Items, nil
}

type MockLedgerService struct {
	Entries    []domain.LedgerEntry
	Children   []domain.LedgerEntry
	Suggestion *string
	Err        error

	CreatedEntry *domain.LedgerEntry
	SplitParts   []application.SplitPart
}

func (m *MockLedgerService) CreateEntry(entry *domain.LedgerEntry) error {
	if m.Err != nil {
		return m.Err
	}
	m.CreatedEntry = entry
	return nil
}

func (m *MockLedgerService) GetEntries(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	return m.Entries, m.Err
}

func (m *MockLedgerService) GetSplitChildren(entryID, userID string) ([]domain.LedgerEntry, error) {
	return m.Children, m.Err
}

func (m *MockLedgerService) UpdateEntry(entry *domain.LedgerEntry) error {
	return m.Err
}

func (m *MockLedgerService) DeleteEntry(entryID, userID string) error {
	return m.Err
}

func (m *MockLedgerService) SetCategory(entryID, userID string, lineItemID *string) error {
	return m.Err
}

func (m *MockLedgerService) SetExcluded(entryID, userID string, excluded bool) error {
	return m.Err
}

func (m *MockLedgerService) SuggestCategory(userID string, record domain.RuleRecord) (*string, error) {
	return m.Suggestion, m.Err
}

func (m *MockLedgerService) SplitEntry(entryID, userID string, parts []application.SplitPart) ([]domain.LedgerEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.SplitParts = parts
	return m.Children, nil
}

type MockBudgetService struct {
	Budget  *domain.Budget
	Summary *application.BudgetSummary
	Err     error
}

func (m *MockBudgetService) CreateBudget(userID string, month time.Time, plannedIncome int64) (*domain.Budget, error) {
	return m.Budget, m.Err
}

func (m *MockBudgetService) GetBudget(userID string, month time.Time) (*domain.Budget, error) {
	return m.Budget, m.Err
}

func (m *MockBudgetService) GetSummary(userID string, month time.Time) (*application.BudgetSummary, error) {
	return m.Summary, m.Err
}

func (m *MockBudgetService) SetPlannedIncome(budgetID, userID string, plannedIncome int64) error {
	return m.Err
}

func (m *MockBudgetService) AddGroup(group *domain.CategoryGroup) error {
	return m.Err
}

func (m *MockBudgetService) AddLineItem(item *domain.LineItem) error {
	return m.Err
}

func (m *MockBudgetService) UpdateLineItem(item *domain.LineItem) error {
	return m.Err
}

func (m *MockBudgetService) DeleteLineItem(lineItemID, userID string) error {
	return m.Err
}

type MockWebhookService struct {
	Err error

	DeltaItemID   string
	RemovedItemID string
	RemovedIDs    []string
	ErrorItemID   string
	ErrorCode     string
	ConsentItemID string
	ConsentAt     time.Time
}

func (m *MockWebhookService) HandleTransactionsDelta(externalItemID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.DeltaItemID = externalItemID
	return nil
}

func (m *MockWebhookService) HandleTransactionsRemoved(externalItemID string, removedIDs []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.RemovedItemID = externalItemID
	m.RemovedIDs = removedIDs
	return nil
}

func (m *MockWebhookService) HandleItemError(externalItemID, errorCode string) error {
	if m.Err != nil {
		return m.Err
	}
	m.ErrorItemID = externalItemID
	m.ErrorCode = errorCode
	return nil
}

func (m *MockWebhookService) HandleConsentExpiration(externalItemID string, expiresAt time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.ConsentItemID = externalItemID
	m.ConsentAt = expiresAt
	return nil
}
