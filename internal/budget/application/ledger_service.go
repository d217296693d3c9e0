package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

// SplitPart is one requested slice of a split. Amount is the absolute value
// in minor units; the service restores the parent's sign on the children.
type SplitPart struct {
	Amount     int64
	LineItemID *string
}

type LedgerService struct {
	ledger  domain.LedgerRepository
	budgets domain.BudgetRepository
	rules   domain.RuleRepository
}

func NewLedgerService(ledger domain.LedgerRepository, budgets domain.BudgetRepository, rules domain.RuleRepository) *LedgerService {
	return &LedgerService{ledger: ledger, budgets: budgets, rules: rules}
}

func (s *LedgerService) CreateEntry(entry *domain.LedgerEntry) error {
	entry.ID = uuid.NewString()
	if entry.Source == "" {
		entry.Source = domain.SourceManual
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := s.validateLineItem(entry.LineItemID, entry.UserID); err != nil {
		return err
	}
	return s.ledger.Save(*entry)
}

func (s *LedgerService) GetEntries(userID string, startDate, endDate time.Time) ([]domain.LedgerEntry, error) {
	return s.ledger.FindTopLevelByUser(userID, startDate, endDate)
}

func (s *LedgerService) GetEntry(entryID, userID string) (*domain.LedgerEntry, error) {
	return s.ledger.FindByID(entryID, userID)
}

func (s *LedgerService) GetSplitChildren(entryID, userID string) ([]domain.LedgerEntry, error) {
	return s.ledger.FindChildren(entryID, userID)
}

// UpdateEntry applies user edits to an existing entry. Synced fields of
// aggregator-sourced entries remain editable; the next sync only overwrites
// them if the provider reports a modification.
func (s *LedgerService) UpdateEntry(entry *domain.LedgerEntry) error {
	existing, err := s.ledger.FindByID(entry.ID, entry.UserID)
	if err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := s.validateLineItem(entry.LineItemID, entry.UserID); err != nil {
		return err
	}
	// Structural fields never change through an edit.
	entry.ExternalID = existing.ExternalID
	entry.Source = existing.Source
	entry.IsSplit = existing.IsSplit
	entry.ParentID = existing.ParentID
	return s.ledger.Update(*entry)
}

func (s *LedgerService) DeleteEntry(entryID, userID string) error {
	return s.ledger.Delete(entryID, userID)
}

// SetCategory assigns or clears the line item on a single entry.
func (s *LedgerService) SetCategory(entryID, userID string, lineItemID *string) error {
	entry, err := s.ledger.FindByID(entryID, userID)
	if err != nil {
		return err
	}
	if err := s.validateLineItem(lineItemID, userID); err != nil {
		return err
	}
	entry.LineItemID = lineItemID
	return s.ledger.Update(*entry)
}

func (s *LedgerService) SetExcluded(entryID, userID string, excluded bool) error {
	entry, err := s.ledger.FindByID(entryID, userID)
	if err != nil {
		return err
	}
	entry.Excluded = excluded
	return s.ledger.Update(*entry)
}

// SuggestCategory runs the user's rules against a merchant/description pair
// without persisting anything.
func (s *LedgerService) SuggestCategory(userID string, record domain.RuleRecord) (*string, error) {
	rules, err := s.rules.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	return domain.ResolveCategory(record, rules), nil
}

// SplitEntry divides one entry into two or more child entries whose absolute
// amounts must sum exactly to the parent's. The parent stays in the ledger
// flagged is_split and drops out of budget aggregation; the children carry
// the category assignments from then on.
func (s *LedgerService) SplitEntry(entryID, userID string, parts []SplitPart) ([]domain.LedgerEntry, error) {
	if len(parts) < 2 {
		return nil, budgetErrors.ErrSplitTooFewParts
	}

	parent, err := s.ledger.FindByID(entryID, userID)
	if err != nil {
		return nil, err
	}
	if parent.ParentID != nil {
		return nil, budgetErrors.ErrSplitNestedChild
	}
	if parent.IsSplit {
		return nil, budgetErrors.ErrSplitAlreadySplit
	}

	parentAbs := parent.Amount
	if parentAbs < 0 {
		parentAbs = -parentAbs
	}
	var sum int64
	for i, part := range parts {
		if part.Amount <= 0 {
			return nil, budgetErrors.NewIndexedValidationError(i, "Split amount must be positive")
		}
		if err := s.validateLineItem(part.LineItemID, userID); err != nil {
			return nil, err
		}
		sum += part.Amount
	}
	if sum != parentAbs {
		return nil, budgetErrors.ErrSplitAmountMismatch
	}

	children := make([]domain.LedgerEntry, 0, len(parts))
	for _, part := range parts {
		amount := part.Amount
		if parent.Amount < 0 {
			amount = -amount
		}
		children = append(children, domain.LedgerEntry{
			ID:           uuid.NewString(),
			UserID:       parent.UserID,
			AccountID:    parent.AccountID,
			Amount:       amount,
			MerchantName: parent.MerchantName,
			Description:  parent.Description,
			Date:         parent.Date,
			Pending:      parent.Pending,
			Type:         parent.Type,
			Source:       parent.Source,
			LineItemID:   part.LineItemID,
			ParentID:     &parent.ID,
			Excluded:     parent.Excluded,
		})
	}

	parent.IsSplit = true
	parent.LineItemID = nil
	if err := s.ledger.ApplySplit(*parent, children); err != nil {
		return nil, err
	}
	return children, nil
}

func (s *LedgerService) validateLineItem(lineItemID *string, userID string) error {
	if lineItemID == nil {
		return nil
	}
	ok, err := s.budgets.DoesLineItemBelongToUser(*lineItemID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return budgetErrors.ErrInvalidLineItem
	}
	return nil
}
