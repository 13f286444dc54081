package models

import "strings"

// CategoryScope namespaces category names: the same name may exist for
// contacts and for expenses without clashing.
type CategoryScope string

const (
	ScopeContacts CategoryScope = "contacts"
	ScopeExpenses CategoryScope = "expenses"
	ScopeProducts CategoryScope = "products"
)

// Category groups contacts, products or expenses under a named bucket.
type Category struct {
	SyncMeta
	Name  string        `json:"name"`
	Scope CategoryScope `json:"scope"`
}

// Key scopes the name so uniqueness is per scope, not global.
func (c *Category) Key() string {
	return string(c.Scope) + "|" + strings.ToLower(strings.TrimSpace(c.Name))
}

func (c *Category) Validate() ValidationResult {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	switch c.Scope {
	case ScopeContacts, ScopeExpenses, ScopeProducts:
	default:
		errs = append(errs, "unknown category scope")
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return valid()
}
