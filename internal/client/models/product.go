package models

import "strings"

// Product is a stocked item in the shop's inventory.
type Product struct {
	SyncMeta
	SKU        string `json:"sku,omitempty"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId,omitempty"`
	PriceCents int64  `json:"priceCents"`
	Stock      int64  `json:"stock"`
}

// Key prefers the SKU; without one it falls back to category+name so two
// categories can each carry a product with the same display name.
func (p *Product) Key() string {
	if sku := strings.TrimSpace(p.SKU); sku != "" {
		return "sku|" + strings.ToLower(sku)
	}
	return p.CategoryID + "|" + strings.ToLower(strings.TrimSpace(p.Name))
}

func (p *Product) Validate() ValidationResult {
	var errs []string
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.SKU) == "" {
		errs = append(errs, "either sku or name is required")
	}
	if p.PriceCents <= 0 {
		errs = append(errs, "price must be positive")
	}
	if p.Stock < 0 {
		errs = append(errs, "stock cannot be negative")
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return valid()
}
