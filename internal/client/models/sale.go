package models

import (
	"fmt"
	"strings"
)

// Sale is one line of a receipt: a product sold at the counter.
// Money fields are integer cents.
type Sale struct {
	SyncMeta
	ReceiptNo     string        `json:"receiptNo"`
	ProductName   string        `json:"productName"`
	ProductSKU    string        `json:"productSku,omitempty"`
	Quantity      int64         `json:"quantity"`
	UnitCents     int64         `json:"unitCents"`
	TotalCents    int64         `json:"totalCents"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Date          string        `json:"date"`
	ReceiptKey    string        `json:"receiptKey,omitempty"` // attachment object key, if a photo was uploaded
}

// Key is the natural key used to match the same logical sale across the
// local and remote stores: one receipt line per receipt/product pair.
func (s *Sale) Key() string {
	return s.ReceiptNo + "|" + strings.ToLower(s.ProductName)
}

func (s *Sale) Validate() ValidationResult {
	var errs []string
	if strings.TrimSpace(s.ReceiptNo) == "" {
		errs = append(errs, "receipt number is required")
	}
	if strings.TrimSpace(s.ProductName) == "" {
		errs = append(errs, "product name is required")
	}
	if s.Quantity <= 0 {
		errs = append(errs, "quantity must be positive")
	}
	if s.UnitCents <= 0 {
		errs = append(errs, "unit price must be positive")
	}
	if s.TotalCents != s.Quantity*s.UnitCents {
		errs = append(errs, fmt.Sprintf("total %d does not match quantity*unit %d", s.TotalCents, s.Quantity*s.UnitCents))
	}
	if !knownPaymentMethod(s.PaymentMethod) {
		errs = append(errs, fmt.Sprintf("unknown payment method %q", s.PaymentMethod))
	}
	if !validDate(s.Date) {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return valid()
}
