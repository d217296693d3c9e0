package application

import (
	"github.com/google/uuid"

	"github.com/mzielinski/BudgetSync/internal/budget/domain"
	budgetErrors "github.com/mzielinski/BudgetSync/internal/budget/errors"
)

type RuleService struct {
	rules   domain.RuleRepository
	budgets domain.BudgetRepository
}

func NewRuleService(rules domain.RuleRepository, budgets domain.BudgetRepository) *RuleService {
	return &RuleService{rules: rules, budgets: budgets}
}

func (s *RuleService) CreateRule(rule *domain.CategorizationRule) error {
	rule.ID = uuid.NewString()
	rule.Active = true
	if err := rule.Validate(); err != nil {
		return err
	}
	ok, err := s.budgets.DoesLineItemBelongToUser(rule.LineItemID, rule.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return budgetErrors.ErrInvalidLineItem
	}
	return s.rules.Save(*rule)
}

func (s *RuleService) UpdateRule(rule *domain.CategorizationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	ok, err := s.budgets.DoesLineItemBelongToUser(rule.LineItemID, rule.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return budgetErrors.ErrInvalidLineItem
	}
	return s.rules.Update(*rule)
}

func (s *RuleService) DeleteRule(ruleID, userID string) error {
	return s.rules.Delete(ruleID, userID)
}

func (s *RuleService) ListRules(userID string) ([]domain.CategorizationRule, error) {
	return s.rules.FindByUser(userID)
}
