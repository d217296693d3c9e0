package application

import (
	"github.com/mzielinski/BudgetSync/internal/bank"
)

// MockGateway is a scripted aggregator used by sync tests. SyncDelta serves
// the configured pages in order, keyed by the cursor the caller presents, so
// tests can assert cursor handling and replay behaviour.
type MockGateway struct {
	LinkToken      string
	AccessToken    string
	ExternalItemID string
	Accounts       []bank.AccountRecord
	Balances       []bank.BalanceRecord

	// Pages maps a request cursor to the page returned for it. The empty
	// string key is the initial full-history page.
	Pages map[string]*bank.DeltaPage

	// Err, when set, fails every call. AccountsErr fails only FetchAccounts.
	Err         error
	AccountsErr error

	SyncCalls []string // cursors presented to SyncDelta, in order
}

func (m *MockGateway) CreateLinkToken(userID, existingAccessToken string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.LinkToken, nil
}

func (m *MockGateway) ExchangePublicToken(publicToken string) (string, string, error) {
	if m.Err != nil {
		return "", "", m.Err
	}
	return m.AccessToken, m.ExternalItemID, nil
}

func (m *MockGateway) FetchAccounts(accessToken string) ([]bank.AccountRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.AccountsErr != nil {
		return nil, m.AccountsErr
	}
	return m.Accounts, nil
}

func (m *MockGateway) SyncDelta(accessToken, cursor string) (*bank.DeltaPage, error) {
	m.SyncCalls = append(m.SyncCalls, cursor)
	if m.Err != nil {
		return nil, m.Err
	}
	page, ok := m.Pages[cursor]
	if !ok {
		return &bank.DeltaPage{NextCursor: cursor, HasMore: false}, nil
	}
	return page, nil
}

func (m *MockGateway) FetchBalances(accessToken string) ([]bank.BalanceRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Balances, nil
}

type MockCredentialStore struct {
	Tokens map[string]string
}

func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{Tokens: make(map[string]string)}
}

func (m *MockCredentialStore) Save(itemID, accessToken string) error {
	m.Tokens[itemID] = accessToken
	return nil
}

func (m *MockCredentialStore) Get(itemID string) (string, error) {
	return m.Tokens[itemID], nil
}
