package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/tallyhq/tally/internal/client/models"
)

func (a *App) addProduct(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Product name", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	sku, err := getSimpleText(a.reader, "SKU (empty to skip)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	price, err := GetMoney(a.reader, "Price", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	stock, err := GetInt(a.reader, "Stock on hand", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	p := &models.Product{Name: name, SKU: sku, PriceCents: price, Stock: stock}
	if err := a.manager.Inventory.Add(ctx, p); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Added product #%d: %s\n", p.ID, p.Name)
}

func (a *App) listProducts(ctx context.Context) {
	for _, p := range a.manager.Inventory.Products() {
		fmt.Printf("%4d  %-12s %-28s %10s  stock %-5d %s\n",
			p.ID, p.SKU, p.Name, FormatCents(p.PriceCents), p.Stock, p.SyncStatus)
	}
}

func (a *App) lowStock(ctx context.Context, args []string) {
	threshold := int64(5)
	if len(args) > 0 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Println("error: invalid threshold")
			return
		}
		threshold = n
	}
	products, err := a.manager.Inventory.LowStock(ctx, threshold)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	if len(products) == 0 {
		fmt.Printf("No products at or below %d in stock\n", threshold)
		return
	}
	for _, p := range products {
		fmt.Printf("%4d  %-12s %-28s stock %d\n", p.ID, p.SKU, p.Name, p.Stock)
	}
}

func (a *App) adjustStock(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: stock <productId> <delta>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("error: invalid product id")
		return
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("error: invalid delta")
		return
	}
	if err := a.manager.Inventory.AdjustStock(ctx, id, delta); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Println("Stock updated")
}
