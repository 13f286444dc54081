package models

import (
	"fmt"
	"strings"
)

// TransactionType classifies a cash-flow entry.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a cash-flow entry in the financial book.
type Transaction struct {
	SyncMeta
	Type          TransactionType `json:"type"`
	AmountCents   int64           `json:"amountCents"`
	Date          string          `json:"date"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Description   string          `json:"description"`
	CategoryID    string          `json:"categoryId,omitempty"`
}

// Key deliberately combines date, amount and description: a bare
// description is too weak a key and would collapse distinct entries.
func (t *Transaction) Key() string {
	return fmt.Sprintf("%s|%d|%s", t.Date, t.AmountCents, strings.ToLower(strings.TrimSpace(t.Description)))
}

func (t *Transaction) Validate() ValidationResult {
	var errs []string
	if t.Type != TransactionIncome && t.Type != TransactionExpense {
		errs = append(errs, fmt.Sprintf("type must be income or expense, got %q", t.Type))
	}
	if t.AmountCents <= 0 {
		errs = append(errs, "amount must be positive")
	}
	if !validDate(t.Date) {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	if !knownPaymentMethod(t.PaymentMethod) {
		errs = append(errs, fmt.Sprintf("unknown payment method %q", t.PaymentMethod))
	}
	if strings.TrimSpace(t.Description) == "" {
		errs = append(errs, "description is required")
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return valid()
}

// Signed returns the amount with expense entries negated, for profit math.
func (t *Transaction) Signed() int64 {
	if t.Type == TransactionExpense {
		return -t.AmountCents
	}
	return t.AmountCents
}
