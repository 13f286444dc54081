package models

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult reports whether a record passed its entity rules.
// It never carries an error value; validation does not fail, records do.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func valid() ValidationResult { return ValidationResult{Valid: true} }

func invalid(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// ItemErrors pairs a record in a batch with its validation failures.
type ItemErrors struct {
	Index  int
	Key    string
	Errors []string
}

func (e ItemErrors) String() string {
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.Key, strings.Join(e.Errors, "; "))
}

// ValidateBatch runs validate over every item and collects failures.
// An empty result means the whole batch is clean.
func ValidateBatch[T Record](items []T, key func(T) string, validate func(T) ValidationResult) []ItemErrors {
	var failed []ItemErrors
	for i, item := range items {
		if r := validate(item); !r.Valid {
			failed = append(failed, ItemErrors{Index: i, Key: key(item), Errors: r.Errors})
		}
	}
	return failed
}

// PaymentMethod is the fixed set of accepted tender types.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Cash"
	PaymentCard     PaymentMethod = "Card"
	PaymentTransfer PaymentMethod = "Transfer"
	PaymentMobile   PaymentMethod = "Mobile"
)

func knownPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMobile:
		return true
	}
	return false
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validDate(s string) bool { return dateRe.MatchString(s) }
