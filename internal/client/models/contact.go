package models

import "strings"

// Contact is a customer or supplier in the address book.
type Contact struct {
	SyncMeta
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CategoryID string `json:"categoryId"`
}

// Key combines name and email. Matching on name alone would merge two
// different people who happen to share a name, so a bare-name collision is
// only ever logged as a warning, never treated as a duplicate.
func (c *Contact) Key() string {
	return c.NameKey() + "|" + strings.ToLower(strings.TrimSpace(c.Email))
}

// NameKey normalizes the name alone, for spotting bare-name collisions.
func (c *Contact) NameKey() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

func (c *Contact) Validate() ValidationResult {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(c.CategoryID) == "" {
		errs = append(errs, "category reference is required")
	}
	if c.Email != "" && !emailRe.MatchString(c.Email) {
		errs = append(errs, "email format is invalid")
	}
	if c.Phone != "" && len(strings.Map(keepDigits, c.Phone)) < 5 {
		errs = append(errs, "phone must contain at least 5 digits")
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return valid()
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
