package domain

import (
	"sort"
	"strings"

	"github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type RuleField string

const (
	RuleFieldMerchantName RuleField = "merchant_name"
	RuleFieldDescription  RuleField = "description"
)

type RuleMode string

const (
	RuleModeContains   RuleMode = "contains"
	RuleModeEquals     RuleMode = "equals"
	RuleModeStartsWith RuleMode = "starts_with"
)

// CategorizationRule maps transaction text to a budget line item.
// Higher priority wins; ties resolve to the earlier rule (stable sort).
type CategorizationRule struct {
	ID         string
	UserID     string // user UUID
	Field      RuleField
	Mode       RuleMode
	MatchText  string
	LineItemID string
	Priority   int
	Active     bool
}

func (r *CategorizationRule) Validate() error {
	if r.Field != RuleFieldMerchantName && r.Field != RuleFieldDescription {
		return errors.NewValidationError("Field must be 'merchant_name' or 'description'")
	}
	if r.Mode != RuleModeContains && r.Mode != RuleModeEquals && r.Mode != RuleModeStartsWith {
		return errors.NewValidationError("Mode must be 'contains', 'equals' or 'starts_with'")
	}
	if strings.TrimSpace(r.MatchText) == "" {
		return errors.NewValidationError("Match text must not be empty")
	}
	if r.LineItemID == "" {
		return errors.NewValidationError("Line item must be provided")
	}
	return nil
}

// RuleRecord carries the candidate fields a rule may match against.
type RuleRecord struct {
	MerchantName string
	Description  string
}

// fieldValue selects the record field per the rule's field discriminator.
func (r *CategorizationRule) fieldValue(record RuleRecord) string {
	switch r.Field {
	case RuleFieldMerchantName:
		return record.MerchantName
	case RuleFieldDescription:
		return record.Description
	}
	return ""
}

func (r *CategorizationRule) matches(record RuleRecord) bool {
	value := r.fieldValue(record)
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	matchText := strings.ToLower(r.MatchText)
	switch r.Mode {
	case RuleModeContains:
		return strings.Contains(value, matchText)
	case RuleModeEquals:
		return value == matchText
	case RuleModeStartsWith:
		return strings.HasPrefix(value, matchText)
	}
	return false
}

// ResolveCategory evaluates the user's rules against a record and returns the
// line item id of the first matching rule, or nil when no rule matches.
// Both sync ingestion and the manual suggest endpoint go through here so the
// two call sites can never drift apart.
func ResolveCategory(record RuleRecord, rules []CategorizationRule) *string {
	active := make([]CategorizationRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	for i := range active {
		if active[i].matches(record) {
			lineItemID := active[i].LineItemID
			return &lineItemID
		}
	}
	return nil
}

type RuleRepository interface {
	Save(rule CategorizationRule) error
	Update(rule CategorizationRule) error
	Delete(ruleID, userID string) error
	FindByUser(userID string) ([]CategorizationRule, error)
}
