package errors

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func NewIndexedValidationError(index int, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("Validation error at entry %d: %s", index, msg)}
}

var ErrInvalidLineItem = NewValidationError("Invalid line item reference")
var ErrSplitTooFewParts = NewValidationError("Split requires at least two parts")
var ErrSplitAmountMismatch = NewValidationError("Split amounts must sum to the parent amount")
var ErrSplitNestedChild = NewValidationError("A split child cannot be split again")
var ErrSplitAlreadySplit = NewValidationError("Entry is already split")

var ErrEntryNotFound = errors.New("ledger entry not found")
var ErrItemNotFound = errors.New("linked item not found")
var ErrBudgetNotFound = errors.New("budget not found")
var ErrRuleNotFound = errors.New("categorization rule not found")
var ErrSubscriptionNotFound = errors.New("detected subscription not found")
