package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/tallyhq/tally/internal/client/models"
)

func (a *App) addContact(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Contact name", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	email, err := getSimpleText(a.reader, "Email (empty to skip)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	phone, err := getSimpleText(a.reader, "Phone (empty to skip)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	category, err := getSimpleText(a.reader, "Category name", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	c := &models.Contact{
		Name:       name,
		Email:      email,
		Phone:      phone,
		CategoryID: (&models.Category{Name: category, Scope: models.ScopeContacts}).Key(),
	}
	if err := a.manager.Contacts.Add(ctx, c); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Added contact #%d: %s\n", c.ID, c.Name)
}

func (a *App) listContacts(ctx context.Context, args []string) {
	contacts := a.manager.Contacts.Contacts()
	if len(args) > 0 {
		key := (&models.Category{Name: args[0], Scope: models.ScopeContacts}).Key()
		filtered, err := a.manager.Contacts.ContactsByCategory(ctx, key)
		if err != nil {
			fmt.Println("error:", err.Error())
			return
		}
		contacts = filtered
	}
	for _, c := range contacts {
		fmt.Printf("%4d  %-24s %-28s %-16s %s\n", c.ID, c.Name, c.Email, c.Phone, c.SyncStatus)
	}
}

func (a *App) addCategory(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Category name", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	scope, err := getSimpleText(a.reader, "Scope (contacts/expenses/products)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	c := &models.Category{Name: name, Scope: models.CategoryScope(scope)}
	if err := a.manager.Contacts.AddCategory(ctx, c); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Added category #%d: %s\n", c.ID, c.Key())
}

func (a *App) listCategories(ctx context.Context) {
	for _, c := range a.manager.Contacts.Categories() {
		fmt.Printf("%4d  %-10s %-24s %s\n", c.ID, c.Scope, c.Name, c.SyncStatus)
	}
}
