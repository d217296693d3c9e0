package application

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzielinski/BudgetSync/internal/bank"
	"github.com/mzielinski/BudgetSync/internal/budget/domain"
)

// SyncResult aggregates counts across all items processed by one invocation.
type SyncResult struct {
	Added        int
	Modified     int
	Removed      int
	ItemStatuses map[string]domain.ItemStatus
}

type SyncService struct {
	gateway     bank.Gateway
	credentials bank.CredentialStore
	items       domain.LinkedItemRepository
	accounts    domain.AccountRepository
	ledger      domain.LedgerRepository
	rules       domain.RuleRepository

	// One mutex per item id. A webhook-triggered sync arriving while a manual
	// sync holds the lock waits instead of racing on cursor writes; the
	// trailing pass resumes from the newest cursor and is a cheap no-op.
	mu        sync.Mutex
	itemLocks map[string]*sync.Mutex
}

func NewSyncService(
	gateway bank.Gateway,
	credentials bank.CredentialStore,
	items domain.LinkedItemRepository,
	accounts domain.AccountRepository,
	ledger domain.LedgerRepository,
	rules domain.RuleRepository,
) *SyncService {
	return &SyncService{
		gateway:     gateway,
		credentials: credentials,
		items:       items,
		accounts:    accounts,
		ledger:      ledger,
		rules:       rules,
		itemLocks:   make(map[string]*sync.Mutex),
	}
}

func (s *SyncService) lockForItem(itemID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.itemLocks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		s.itemLocks[itemID] = lock
	}
	return lock
}

// CreateLinkToken requests a one-time link token from the aggregator.
// With itemID set, the token opens the provider's update flow for re-linking
// an item stuck in login_required.
func (s *SyncService) CreateLinkToken(userID, itemID string) (string, error) {
	existingToken := ""
	if itemID != "" {
		item, err := s.items.FindByID(itemID, userID)
		if err != nil {
			return "", err
		}
		existingToken, err = s.credentials.Get(item.ID)
		if err != nil {
			return "", err
		}
	}
	return s.gateway.CreateLinkToken(userID, existingToken)
}

// ExchangePublicToken finalises a link: trades the temporary public token for
// a durable credential, imports the item's accounts and creates the
// LinkedItem. The account fetch happens before anything is persisted; a
// provider failure here must not leave an item behind, because the unique
// external_item_id would then block linking the same institution again.
func (s *SyncService) ExchangePublicToken(userID, publicToken, institutionID, institutionName string) (*domain.LinkedItem, error) {
	accessToken, externalItemID, err := s.gateway.ExchangePublicToken(publicToken)
	if err != nil {
		return nil, err
	}

	records, err := s.gateway.FetchAccounts(accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts for new item: %w", err)
	}

	item := domain.LinkedItem{
		ID:              uuid.NewString(),
		UserID:          userID,
		ExternalItemID:  externalItemID,
		InstitutionID:   institutionID,
		InstitutionName: institutionName,
		Status:          domain.ItemStatusActive,
	}
	if err := s.items.Save(item); err != nil {
		return nil, err
	}
	if err := s.credentials.Save(item.ID, accessToken); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, domain.Account{
			ID:                uuid.NewString(),
			ItemID:            item.ID,
			UserID:            userID,
			ExternalAccountID: record.ExternalAccountID,
			Name:              record.Name,
			Type:              record.Type,
			Subtype:           record.Subtype,
			CurrentBalance:    record.CurrentBalance,
			AvailableBalance:  record.AvailableBalance,
		})
	}
	if err := s.accounts.SaveAll(accounts); err != nil {
		return nil, err
	}
	return &item, nil
}

// RefreshBalances pulls current balances for every linked item of the user.
func (s *SyncService) RefreshBalances(userID string) error {
	items, err := s.items.FindByUser(userID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Status != domain.ItemStatusActive {
			continue
		}
		accessToken, err := s.credentials.Get(item.ID)
		if err != nil {
			return err
		}
		records, err := s.gateway.FetchBalances(accessToken)
		if err != nil {
			log.Printf("Balance refresh failed for item %s: %v", item.ID, err)
			continue
		}
		balances := make([]domain.AccountBalance, 0, len(records))
		for _, record := range records {
			balances = append(balances, domain.AccountBalance{
				ExternalAccountID: record.ExternalAccountID,
				CurrentBalance:    record.CurrentBalance,
				AvailableBalance:  record.AvailableBalance,
			})
		}
		if err := s.accounts.UpdateBalances(item.ID, balances); err != nil {
			return err
		}
	}
	return nil
}

// SyncUser runs an incremental sync for the user's active items, or for one
// item when itemID is set. A failing item is isolated: its status is updated
// and the remaining items still sync.
func (s *SyncService) SyncUser(userID, itemID string) (*SyncResult, error) {
	var items []domain.LinkedItem
	if itemID != "" {
		item, err := s.items.FindByID(itemID, userID)
		if err != nil {
			return nil, err
		}
		items = []domain.LinkedItem{*item}
	} else {
		all, err := s.items.FindByUser(userID)
		if err != nil {
			return nil, err
		}
		items = all
	}

	result := &SyncResult{ItemStatuses: make(map[string]domain.ItemStatus)}
	for _, item := range items {
		if item.Status != domain.ItemStatusActive {
			result.ItemStatuses[item.ID] = item.Status
			continue
		}
		added, modified, removed, err := s.syncItem(&item)
		result.Added += added
		result.Modified += modified
		result.Removed += removed
		if err != nil {
			result.ItemStatuses[item.ID] = s.failItem(&item, err)
			continue
		}
		result.ItemStatuses[item.ID] = domain.ItemStatusActive
	}
	return result, nil
}

// SyncAllActive is the scheduled sweep across every active item.
func (s *SyncService) SyncAllActive() {
	items, err := s.items.FindAllActive()
	if err != nil {
		log.Printf("Scheduled sync could not list items: %v", err)
		return
	}
	for _, item := range items {
		if _, _, _, err := s.syncItem(&item); err != nil {
			s.failItem(&item, err)
		}
	}
}

// failItem maps a sync failure onto the item's connection status. Credential
// failures need the user to re-link; everything else is retried on the next
// scheduled attempt from the same cursor.
func (s *SyncService) failItem(item *domain.LinkedItem, err error) domain.ItemStatus {
	status := domain.ItemStatusError
	errorCode := bank.ErrorCode(err)
	if errors.Is(err, bank.ErrCredentialInvalid) {
		status = domain.ItemStatusLoginRequired
		errorCode = "ITEM_LOGIN_REQUIRED"
	}
	log.Printf("Sync failed for item %s (%s): %v", item.ID, errorCode, err)
	if updateErr := s.items.UpdateStatus(item.ID, status, errorCode); updateErr != nil {
		log.Printf("Could not update status for item %s: %v", item.ID, updateErr)
	}
	return status
}

// syncItem drives the pagination loop for one item. The cursor is persisted
// only after a page's delta has been fully merged, so a crash or error always
// resumes from the last applied page.
func (s *SyncService) syncItem(item *domain.LinkedItem) (added, modified, removed int, err error) {
	lock := s.lockForItem(item.ID)
	lock.Lock()
	defer lock.Unlock()

	accessToken, err := s.credentials.Get(item.ID)
	if err != nil {
		return 0, 0, 0, err
	}

	accountIDs, err := s.accountIndex(item.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	rules, err := s.rules.FindByUser(item.UserID)
	if err != nil {
		return 0, 0, 0, err
	}

	pager := newDeltaPager(s.gateway, accessToken, item.SyncCursor)
	for pager.Next() {
		page := pager.Page()

		entries := make([]domain.LedgerEntry, 0, len(page.Added))
		for _, record := range page.Added {
			entries = append(entries, s.buildEntry(item.UserID, record, accountIDs, rules))
		}
		if err := s.ledger.UpsertBatch(entries); err != nil {
			return added, modified, removed, err
		}

		fields := make([]domain.SyncedFields, 0, len(page.Modified))
		for _, record := range page.Modified {
			fields = append(fields, domain.SyncedFields{
				ExternalID:   record.ExternalID,
				Amount:       record.Amount,
				MerchantName: record.MerchantName,
				Description:  record.Description,
				Date:         record.Date,
				Pending:      record.Pending,
			})
		}
		if err := s.ledger.UpdateSyncedFields(item.UserID, fields); err != nil {
			return added, modified, removed, err
		}

		if err := s.ledger.DeleteByExternalIDs(item.UserID, page.Removed); err != nil {
			return added, modified, removed, err
		}

		if err := s.items.UpdateCursor(item.ID, page.NextCursor); err != nil {
			return added, modified, removed, err
		}

		added += len(page.Added)
		modified += len(page.Modified)
		removed += len(page.Removed)
	}
	if err := pager.Err(); err != nil {
		return added, modified, removed, err
	}

	if err := s.items.UpdateLastSynced(item.ID, time.Now().UTC()); err != nil {
		return added, modified, removed, err
	}
	return added, modified, removed, nil
}

func (s *SyncService) accountIndex(itemID string) (map[string]string, error) {
	accounts, err := s.accounts.FindByItem(itemID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(accounts))
	for _, account := range accounts {
		index[account.ExternalAccountID] = account.ID
	}
	return index, nil
}

// buildEntry turns one aggregator record into a ledger entry. The aggregator
// signs amounts with positive = debit, so positive means expense and negative
// means income. An unknown account reference degrades to a nil account id
// rather than failing the batch.
func (s *SyncService) buildEntry(userID string, record bank.TransactionRecord, accountIDs map[string]string, rules []domain.CategorizationRule) domain.LedgerEntry {
	entryType := domain.EntryTypeExpense
	if record.Amount < 0 {
		entryType = domain.EntryTypeIncome
	}

	var accountID *string
	if localID, ok := accountIDs[record.ExternalAccountID]; ok {
		accountID = &localID
	}

	lineItemID := domain.ResolveCategory(domain.RuleRecord{
		MerchantName: record.MerchantName,
		Description:  record.Description,
	}, rules)

	externalID := record.ExternalID
	return domain.LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccountID:    accountID,
		ExternalID:   &externalID,
		Amount:       record.Amount,
		MerchantName: record.MerchantName,
		Description:  record.Description,
		Date:         record.Date,
		Pending:      record.Pending,
		Type:         entryType,
		Source:       domain.SourcePlaid,
		LineItemID:   lineItemID,
	}
}

// Webhook entry points. They share syncItem so push- and pull-triggered syncs
// can never diverge in behaviour.

// HandleTransactionsDelta runs a sync pass for the item named by a
// transactions webhook.
func (s *SyncService) HandleTransactionsDelta(externalItemID string) error {
	item, err := s.items.FindByExternalID(externalItemID)
	if err != nil {
		return err
	}
	if item.Status != domain.ItemStatusActive {
		log.Printf("Ignoring delta webhook for item %s in status %s", item.ID, item.Status)
		return nil
	}
	if _, _, _, err := s.syncItem(item); err != nil {
		s.failItem(item, err)
		return err
	}
	return nil
}

// HandleTransactionsRemoved deletes the listed transactions directly,
// bypassing a full sync pass.
func (s *SyncService) HandleTransactionsRemoved(externalItemID string, removedIDs []string) error {
	item, err := s.items.FindByExternalID(externalItemID)
	if err != nil {
		return err
	}
	return s.ledger.DeleteByExternalIDs(item.UserID, removedIDs)
}

// HandleItemError transitions the item per the provider's error notification.
func (s *SyncService) HandleItemError(externalItemID, errorCode string) error {
	item, err := s.items.FindByExternalID(externalItemID)
	if err != nil {
		return err
	}
	status := domain.ItemStatusError
	if errorCode == "ITEM_LOGIN_REQUIRED" {
		status = domain.ItemStatusLoginRequired
	}
	return s.items.UpdateStatus(item.ID, status, errorCode)
}

// HandleConsentExpiration records the upcoming consent expiry; nothing else
// about the item changes until the consent actually lapses.
func (s *SyncService) HandleConsentExpiration(externalItemID string, expiresAt time.Time) error {
	item, err := s.items.FindByExternalID(externalItemID)
	if err != nil {
		return err
	}
	return s.items.UpdateConsentExpiry(item.ID, expiresAt)
}

// ItemsForUser lists the user's linked items for status display.
func (s *SyncService) ItemsForUser(userID string) ([]domain.LinkedItem, error) {
	return s.items.FindByUser(userID)
}
