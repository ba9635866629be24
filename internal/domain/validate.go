package domain

import (
	"fmt"
	"strings"
)

// ─── Validation ─────────────────────────────────────────────────────────────
// Explicit validation functions returning a structured result, consumed
// uniformly by the request layer. A nil/empty slice means valid input.

// FieldError describes a single invalid field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FieldErrors is the result of validating one request.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Ok reports whether validation passed.
func (e FieldErrors) Ok() bool { return len(e) == 0 }

// ValidTransactionType reports whether t is a known type.
func ValidTransactionType(t TransactionType) bool {
	for _, v := range TransactionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ValidTransactionCategory reports whether c is a known category.
func ValidTransactionCategory(c TransactionCategory) bool {
	for _, v := range TransactionCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ValidateTransactionInput checks a transaction creation request.
func ValidateTransactionInput(txType TransactionType, category TransactionCategory, amount int64) FieldErrors {
	var errs FieldErrors
	if !ValidTransactionType(txType) {
		errs = append(errs, FieldError{Field: "type", Reason: fmt.Sprintf("unknown type %q", txType)})
	}
	if !ValidTransactionCategory(category) {
		errs = append(errs, FieldError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)})
	}
	if amount == 0 {
		errs = append(errs, FieldError{Field: "amount", Reason: "must be non-zero"})
	}
	if category.Credits() && amount < 0 {
		errs = append(errs, FieldError{Field: "amount", Reason: "must be positive for earning/bonus"})
	}
	return errs
}

// ValidateListQuery checks ledger list parameters.
// Limit must be in [1, 100], offset non-negative.
func ValidateListQuery(limit, offset int) FieldErrors {
	var errs FieldErrors
	if limit < 1 || limit > 100 {
		errs = append(errs, FieldError{Field: "limit", Reason: "must be between 1 and 100"})
	}
	if offset < 0 {
		errs = append(errs, FieldError{Field: "offset", Reason: "must be non-negative"})
	}
	return errs
}

// ValidateRedeemInput checks a voucher redemption request.
func ValidateRedeemInput(voucherID string, quantity int64) FieldErrors {
	var errs FieldErrors
	if voucherID == "" {
		errs = append(errs, FieldError{Field: "voucher_id", Reason: "required"})
	}
	if quantity < 1 {
		errs = append(errs, FieldError{Field: "quantity", Reason: "must be at least 1"})
	}
	return errs
}

// ValidateRegisterInput checks an account registration request.
func ValidateRegisterInput(email, displayName, password string) FieldErrors {
	var errs FieldErrors
	if !strings.Contains(email, "@") {
		errs = append(errs, FieldError{Field: "email", Reason: "must be a valid address"})
	}
	if displayName == "" {
		errs = append(errs, FieldError{Field: "display_name", Reason: "required"})
	}
	if len(password) < 8 {
		errs = append(errs, FieldError{Field: "password", Reason: "must be at least 8 characters"})
	}
	return errs
}

// StatsPeriods are the accepted aggregation windows.
var StatsPeriods = []string{"day", "week", "month", "year", "all"}

// ValidStatsPeriod reports whether p is an accepted period.
func ValidStatsPeriod(p string) bool {
	for _, v := range StatsPeriods {
		if p == v {
			return true
		}
	}
	return false
}
