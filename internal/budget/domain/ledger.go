package domain

import (
	"time"

	"github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type ItemStatus string

const (
	ItemStatusActive        ItemStatus = "active"
	ItemStatusError         ItemStatus = "error"
	ItemStatusLoginRequired ItemStatus = "login_required"
	ItemStatusDisconnected  ItemStatus = "disconnected"
)

// LinkedItem is one bank-aggregator connection. The access credential is
// stored separately and never travels with this struct.
type LinkedItem struct {
	ID               string
	UserID           string // user UUID
	ExternalItemID   string
	InstitutionID    string
	InstitutionName  string
	Status           ItemStatus
	LastErrorCode    string
	SyncCursor       string
	ConsentExpiresAt *time.Time
	LastSyncedAt     *time.Time
}

type LinkedItemRepository interface {
	Save(item LinkedItem) error
	FindByID(itemID, userID string) (*LinkedItem, error)
	FindByExternalID(externalItemID string) (*LinkedItem, error)
	FindByUser(userID string) ([]LinkedItem, error)
	FindAllActive() ([]LinkedItem, error)
	UpdateCursor(itemID, cursor string) error
	UpdateStatus(itemID string, status ItemStatus, errorCode string) error
	UpdateLastSynced(itemID string, syncedAt time.Time) error
	UpdateConsentExpiry(itemID string, expiresAt time.Time) error
}

// Account is one bank account under a LinkedItem. Hidden only affects
// visibility in listings, hidden accounts still sync.
type Account struct {
	ID                string
	ItemID            string
	UserID            string // user UUID
	ExternalAccountID string
	Name              string
	Type              string
	Subtype           string
	CurrentBalance    int64 // minor units
	AvailableBalance  int64 // minor units
	Hidden            bool
}

type AccountBalance struct {
	ExternalAccountID string
	CurrentBalance    int64
	AvailableBalance  int64
}

type AccountRepository interface {
	SaveAll(accounts []Account) error
	FindByUser(userID string) ([]Account, error)
	FindByItem(itemID string) ([]Account, error)
	SetHidden(accountID, userID string, hidden bool) error
	UpdateBalances(itemID string, balances []AccountBalance) error
}

type EntryType string

const (
	EntryTypeExpense  EntryType = "expense"
	EntryTypeIncome   EntryType = "income"
	EntryTypeTransfer EntryType = "transfer"
)

type EntrySource string

const (
	SourceManual    EntrySource = "manual"
	SourcePlaid     EntrySource = "plaid"
	SourceRecurring EntrySource = "recurring"
)

// LedgerEntry is one transaction in the user's ledger. ExternalID is set only
// for aggregator-sourced entries and is the upsert key during sync.
type LedgerEntry struct {
	ID           string
	UserID       string // user UUID
	AccountID    *string
	ExternalID   *string
	Amount       int64 // signed, minor units
	MerchantName string
	Description  string
	Date         time.Time
	Pending      bool
	Type         EntryType
	Source       EntrySource
	LineItemID   *string
	IsSplit      bool
	ParentID     *string
	Excluded     bool
}

func (e *LedgerEntry) Validate() error {
	if e.Type != EntryTypeExpense && e.Type != EntryTypeIncome && e.Type != EntryTypeTransfer {
		return errors.NewValidationError("Type must be 'expense', 'income' or 'transfer'")
	}
	if e.Source != SourceManual && e.Source != SourcePlaid && e.Source != SourceRecurring {
		return errors.NewValidationError("Source must be 'manual', 'plaid' or 'recurring'")
	}
	if len(e.Description) > 200 {
		return errors.NewValidationError("Description must be of length less than 200")
	}
	if e.Date.IsZero() {
		return errors.NewValidationError("Date must be provided")
	}
	return nil
}

// SyncedFields are the mutable fields an aggregator "modified" record may
// overwrite. Category assignment is deliberately absent: a user's manual
// categorization survives upstream edits.
type SyncedFields struct {
	ExternalID   string
	Amount       int64
	MerchantName string
	Description  string
	Date         time.Time
	Pending      bool
}

type LedgerRepository interface {
	UpsertBatch(entries []LedgerEntry) error
	UpdateSyncedFields(userID string, fields []SyncedFields) error
	DeleteByExternalIDs(userID string, externalIDs []string) error
	Save(entry LedgerEntry) error
	Update(entry LedgerEntry) error
	Delete(entryID, userID string) error
	FindByID(entryID, userID string) (*LedgerEntry, error)
	FindTopLevelByUser(userID string, startDate, endDate time.Time) ([]LedgerEntry, error)
	FindChildren(parentID, userID string) ([]LedgerEntry, error)
	FindExpensesSince(userID string, since time.Time) ([]LedgerEntry, error)
	FindInDateRange(userID string, startDate, endDate time.Time) ([]LedgerEntry, error)
	ApplySplit(parent LedgerEntry, children []LedgerEntry) error
}
