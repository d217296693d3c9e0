package infrastructure

import (
	"sort"
	"strings"
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

// In-memory repository implementations used by application-layer tests.
// They mirror the SQL repositories' semantics, including the upsert conflict
// behaviour the sync path depends on.

type MockLinkedItemRepository struct {
	Items []domain.LinkedItem
}

func (m *MockLinkedItemRepository) Save(item domain.LinkedItem) error {
	m.Items = append(m.Items, item)
	return nil
}

func (m *MockLinkedItemRepository) FindByID(itemID, userID string) (*domain.LinkedItem, error) {
	for i := range m.Items {
		if m.Items[i].ID == itemID && m.Items[i].UserID == userID {
			item := m.Items[i]
			return &item, nil
		}
	}
	return nil, budgetErrors.ErrItemNotFound
}

func (m *MockLinkedItemRepository) FindByExternalID(externalItemID string) (*domain.LinkedItem, error) {
	for i := range m.Items {
		if m.Items[i].ExternalItemID == externalItemID {
			item := m.Items[i]
			return &item, nil
		}
	}
	return nil, budgetErrors.ErrItemNotFound
}

func (m *MockLinkedItemRepository) FindByUser(userID string) ([]domain.LinkedItem, error) {
	var items []domain.LinkedItem
	for _, item := range m.Items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MockLinkedItemRepository) FindAllActive() ([]domain.LinkedItem, error) {
	var items []domain.LinkedItem
	for _, item := range m.Items {
		if item.Status == domain.ItemStatusActive {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MockLinkedItemRepository) UpdateCursor(itemID, cursor string) error {
	for i := range m.Items {
		if m.Items[i].ID == itemID {
			m.Items[i].SyncCursor = cursor
		}
	}
	return nil
}

func (m *MockLinkedItemRepository) UpdateStatus(itemID string, status domain.ItemStatus, errorCode string) error {
	for i := range m.Items {
		if m.Items[i].ID == itemID {
			m.Items[i].Status = status
			m.Items[i].LastErrorCode = errorCode
		}
	}
	return nil
}

func (m *MockLinkedItemRepository) UpdateLastSynced(itemID string, syncedAt time.Time) error {
	for i := range m.Items {
		if m.Items[i].ID == itemID {
			t := syncedAt
			m.Items[i].LastSyncedAt = &t
		}
	}
	return nil
}

func (m *MockLinkedItemRepository) UpdateConsentExpiry(itemID string, expiresAt time.Time) error {
	for i := range m.Items {
		if m.Items[i].ID == itemID {
			t := expiresAt
			m.Items[i].ConsentExpiresAt = &t
		}
	}
	return nil
}

type MockAccountRepository struct {
	Accounts []domain.Account
}

func (m *MockAccountRepository) SaveAll(accounts []domain.Account) error {
	for _, account := range accounts {
		replaced := false
		for i := range m.Accounts {
			if m.Accounts[i].ItemID == account.ItemID && m.Accounts[i].ExternalAccountID == account.ExternalAccountID {
				hidden := m.Accounts[i].Hidden
				id := m.Accounts[i].ID
				m.Accounts[i] = account
				m.Accounts[i].ID = id
				m.Accounts[i].Hidden = hidden
				replaced = true
				break
			}
		}
		if !replaced {
			m.Accounts = append(m.Accounts, account)
		}
	}
	return nil
}

func (m *MockAccountRepository) FindByUser(userID string) ([]domain.Account, error) {
	var accounts []domain.Account
	for _, account := range m.Accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) FindByItem(itemID string) ([]domain.Account, error) {
	var accounts []domain.Account
	for _, account := range m.Accounts {
		if account.ItemID == itemID {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) SetHidden(accountID, userID string, hidden bool) error {
	for i := range m.Accounts {
		if m.Accounts[i].ID == accountID && m.Accounts[i].UserID == userID {
			m.Accounts[i].Hidden = hidden
		}
	}
	return nil
}

func (m *MockAccountRepository) UpdateBalances(itemID string, balances []domain.AccountBalance) error {
	for _, balance := range balances {
		for i := range m.Accounts {
			if m.Accounts[i].ItemID == itemID && m.Accounts[i].ExternalAccountID == balance.ExternalAccountID {
				m.Accounts[i].CurrentBalance = balance.CurrentBalance
				m.Accounts[i].AvailableBalance = balance.AvailableBalance
			}
		}
	}
	return nil
}

type MockLedgerRepository struct {
	Entries []domain.LedgerEntry
}

func (m *MockLedgerRepository) findByExternalID(userID, externalID string) int {
	for i := range m.Entries {
		if m.Entries[i].UserID == userID && m.Entries[i].ExternalID != nil && *m.Entries[i].ExternalID == externalID {
			return i
		}
	}
	return -1
}

func (m *MockLedgerRepository) UpsertBatch(entries []domain.LedgerEntry) error {
	for _, entry := range entries {
		idx := -1
		if entry.ExternalID != nil {
			idx = m.findByExternalID(entry.UserID, *entry.ExternalID)
		}
		if idx == -1 {
			m.Entries = append(m.Entries, entry)
			continue
		}
		// Same conflict behaviour as the SQL upsert: keep the row id and any
		// category already assigned.
		existing := m.Entries[idx]
		entry.ID = existing.ID
		if existing.LineItemID != nil {
			entry.LineItemID = existing.LineItemID
		}
		entry.IsSplit = existing.IsSplit
		entry.ParentID = existing.ParentID
		entry.Excluded = existing.Excluded
		m.Entries[idx] = entry
	}
	return nil
}

func (m *MockLedgerRepository) UpdateSyncedFields(userID string, fields []domain.SyncedFields) error {
	for _, f := range fields {
		idx := m.findByExternalID(userID, f.ExternalID)
		if idx == -1 {
			continue
		}
		m.Entries[idx].Amount = f.Amount
		m.Entries[idx].MerchantName = f.MerchantName
		m.Entries[idx].Description = f.Description
		m.Entries[idx].Date = f.Date
		m.Entries[idx].Pending = f.Pending
	}
	return nil
}

func (m *MockLedgerRepository) DeleteByExternalIDs(userID string, externalIDs []string) error {
	for _, externalID := range externalIDs {
		idx := m.findByExternalID(userID, externalID)
		if idx == -1 {
			continue
		}
		m.Entries = append(m.Entries[:idx], m.Entries[idx+1:]...)
	}
	return nil
}

func (m *MockLedgerRepository) Save(entry domain.LedgerEntry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockLedgerRepository) Update(entry domain.LedgerEntry) error {
	for i := range m.Entries {
		if m.Entries[i].ID == entry.ID && m.Entries[i].UserID == entry.UserID {
			m.Entries[i] = entry
			return nil
		}
	}
	return budgetErrors.ErrEntryNotFound
}

func (m *MockLedgerRepository) Delete(entryID, userID string) error {
	for i := range m.Entries {
		if m.Entries[i].ID == entryID && m.Entries[i].UserID == userID {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockLedgerRepository) FindByID(entryID, userID string) (*domain.LedgerEntry, error) {
	for i := range m.Entries {
		if m.Entries[i].ID == entryID && m.Entries[i].UserID == userID {
			entry := m.Entries[i]
			return &entry, nil
		}
	}
	return nil, budgetErrors.ErrEntryNotFound
}

func (m *MockLedgerRepository) FindTopLevelByUser(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for _, entry := range m.Entries {
		if entry.UserID == userID && entry.ParentID == nil &&
			!entry.Date.Before(startDate) && !entry.Date.After(endDate) {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

func (m *MockLedgerRepository) FindChildren(parentID, userID string) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for _, entry := range m.Entries {
		if entry.UserID == userID && entry.ParentID != nil && *entry.ParentID == parentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *MockLedgerRepository) FindExpensesSince(userID string, since time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for _, entry := range m.Entries {
		if entry.UserID == userID && entry.Type == domain.EntryTypeExpense &&
			!entry.Date.Before(since) && strings.TrimSpace(entry.MerchantName) != "" &&
			entry.ParentID == nil {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

func (m *MockLedgerRepository) FindInDateRange(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for _, entry := range m.Entries {
		if entry.UserID == userID && !entry.Date.Before(startDate) && !entry.Date.After(endDate) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *MockLedgerRepository) ApplySplit(parent domain.LedgerEntry, children []domain.LedgerEntry) error {
	for i := range m.Entries {
		if m.Entries[i].ID == parent.ID && m.Entries[i].UserID == parent.UserID {
			m.Entries[i].IsSplit = true
			m.Entries[i].LineItemID = nil
		}
	}
	m.Entries = append(m.Entries, children...)
	return nil
}

type MockRuleRepository struct {
	Rules []domain.CategorizationRule
}

func (m *MockRuleRepository) Save(rule domain.CategorizationRule) error {
	m.Rules = append(m.Rules, rule)
	return nil
}

func (m *MockRuleRepository) Update(rule domain.CategorizationRule) error {
	for i := range m.Rules {
		if m.Rules[i].ID == rule.ID && m.Rules[i].UserID == rule.UserID {
			m.Rules[i] = rule
			return nil
		}
	}
	return budgetErrors.ErrRuleNotFound
}

func (m *MockRuleRepository) Delete(ruleID, userID string) error {
	for i := range m.Rules {
		if m.Rules[i].ID == ruleID && m.Rules[i].UserID == userID {
			m.Rules = append(m.Rules[:i], m.Rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockRuleRepository) FindByUser(userID string) ([]domain.CategorizationRule, error) {
	var rules []domain.CategorizationRule
	for _, rule := range m.Rules {
		if rule.UserID == userID {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

type MockBudgetRepository struct {
	Budgets []domain.Budget
}

func (m *MockBudgetRepository) Save(budget domain.Budget) error {
	m.Budgets = append(m.Budgets, budget)
	return nil
}

func (m *MockBudgetRepository) FindByMonth(userID string, month time.Time) (*domain.Budget, error) {
	for i := range m.Budgets {
		if m.Budgets[i].UserID == userID && m.Budgets[i].Month.Equal(month) {
			budget := m.Budgets[i]
			return &budget, nil
		}
	}
	return nil, budgetErrors.ErrBudgetNotFound
}

func (m *MockBudgetRepository) UpdatePlannedIncome(budgetID, userID string, plannedIncome int64) error {
	for i := range m.Budgets {
		if m.Budgets[i].ID == budgetID && m.Budgets[i].UserID == userID {
			m.Budgets[i].PlannedIncome = plannedIncome
		}
	}
	return nil
}

func (m *MockBudgetRepository) SaveGroup(group domain.CategoryGroup) error {
	for i := range m.Budgets {
		if m.Budgets[i].ID == group.BudgetID {
			m.Budgets[i].Groups = append(m.Budgets[i].Groups, group)
		}
	}
	return nil
}

func (m *MockBudgetRepository) SaveLineItem(item domain.LineItem) error {
	for i := range m.Budgets {
		for j := range m.Budgets[i].Groups {
			if m.Budgets[i].Groups[j].ID == item.GroupID {
				m.Budgets[i].Groups[j].Items = append(m.Budgets[i].Groups[j].Items, item)
			}
		}
	}
	return nil
}

func (m *MockBudgetRepository) UpdateLineItem(item domain.LineItem) error {
	for i := range m.Budgets {
		for j := range m.Budgets[i].Groups {
			for k := range m.Budgets[i].Groups[j].Items {
				if m.Budgets[i].Groups[j].Items[k].ID == item.ID {
					m.Budgets[i].Groups[j].Items[k] = item
				}
			}
		}
	}
	return nil
}

func (m *MockBudgetRepository) DeleteLineItem(lineItemID, userID string) error {
	for i := range m.Budgets {
		if m.Budgets[i].UserID != userID {
			continue
		}
		for j := range m.Budgets[i].Groups {
			items := m.Budgets[i].Groups[j].Items
			for k := range items {
				if items[k].ID == lineItemID {
					m.Budgets[i].Groups[j].Items = append(items[:k], items[k+1:]...)
					return nil
				}
			}
		}
	}
	return nil
}

func (m *MockBudgetRepository) DoesLineItemBelongToUser(lineItemID, userID string) (bool, error) {
	for i := range m.Budgets {
		if m.Budgets[i].UserID != userID {
			continue
		}
		for _, group := range m.Budgets[i].Groups {
			for _, item := range group.Items {
				if item.ID == lineItemID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

type MockSubscriptionRepository struct {
	Subscriptions []domain.DetectedSubscription
}

func (m *MockSubscriptionRepository) UpsertByMerchant(sub domain.DetectedSubscription) (bool, error) {
	for i := range m.Subscriptions {
		if m.Subscriptions[i].UserID == sub.UserID &&
			strings.EqualFold(m.Subscriptions[i].MerchantName, sub.MerchantName) {
			m.Subscriptions[i].MerchantName = sub.MerchantName
			m.Subscriptions[i].EstimatedAmount = sub.EstimatedAmount
			m.Subscriptions[i].Frequency = sub.Frequency
			m.Subscriptions[i].LastChargedAt = sub.LastChargedAt
			m.Subscriptions[i].NextExpectedAt = sub.NextExpectedAt
			return false, nil
		}
	}
	m.Subscriptions = append(m.Subscriptions, sub)
	return true, nil
}

func (m *MockSubscriptionRepository) FindByUser(userID string, includeDismissed bool) ([]domain.DetectedSubscription, error) {
	var subs []domain.DetectedSubscription
	for _, sub := range m.Subscriptions {
		if sub.UserID != userID {
			continue
		}
		if sub.Dismissed && !includeDismissed {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (m *MockSubscriptionRepository) SetConfirmed(subscriptionID, userID string, confirmed bool) error {
	for i := range m.Subscriptions {
		if m.Subscriptions[i].ID == subscriptionID && m.Subscriptions[i].UserID == userID {
			m.Subscriptions[i].Confirmed = confirmed
			return nil
		}
	}
	return budgetErrors.ErrSubscriptionNotFound
}

func (m *MockSubscriptionRepository) SetDismissed(subscriptionID, userID string, dismissed bool) error {
	for i := range m.Subscriptions {
		if m.Subscriptions[i].ID == subscriptionID && m.Subscriptions[i].UserID == userID {
			m.Subscriptions[i].Dismissed = dismissed
			return nil
		}
	}
	return budgetErrors.ErrSubscriptionNotFound
}
