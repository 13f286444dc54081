package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tallyhq/tally/internal/client/models"
)

func (a *App) addSale(ctx context.Context) {
	receiptNo, err := getSimpleText(a.reader, "Receipt number", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	productName, err := getSimpleText(a.reader, "Product name", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	sku, err := getSimpleText(a.reader, "Product SKU (empty to skip stock tracking)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	qty, err := GetInt(a.reader, "Quantity", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	unit, err := GetMoney(a.reader, "Unit price", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	method, err := a.getPaymentMethod()
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	sale := &models.Sale{
		ReceiptNo:     receiptNo,
		ProductName:   productName,
		ProductSKU:    sku,
		Quantity:      qty,
		UnitCents:     unit,
		TotalCents:    qty * unit,
		PaymentMethod: method,
		Date:          time.Now().Format("2006-01-02"),
	}
	if err := a.manager.Sales.Add(ctx, sale); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Recorded sale #%d, total %s\n", sale.ID, FormatCents(sale.TotalCents))
}

func (a *App) getPaymentMethod() (models.PaymentMethod, error) {
	text, err := getSimpleText(a.reader, "Payment method (cash/card/transfer/mobile)", os.Stdout)
	if err != nil {
		return "", err
	}
	switch text {
	case "cash", "":
		return models.PaymentCash, nil
	case "card":
		return models.PaymentCard, nil
	case "transfer":
		return models.PaymentTransfer, nil
	case "mobile":
		return models.PaymentMobile, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", text)
	}
}

func (a *App) listSales(ctx context.Context, args []string) {
	var (
		sales []*models.Sale
		err   error
	)
	if len(args) > 0 {
		sales, err = a.manager.Sales.ByDate(ctx, args[0])
		if err != nil {
			fmt.Println("error:", err.Error())
			return
		}
	} else {
		sales = a.manager.Sales.Sales()
	}

	for _, s := range sales {
		receipt := ""
		if s.ReceiptKey != "" {
			receipt = " [receipt]"
		}
		fmt.Printf("%4d  %-10s %-12s %-24s x%-3d %10s  %s%s\n",
			s.ID, s.Date, s.ReceiptNo, s.ProductName, s.Quantity,
			FormatCents(s.TotalCents), s.SyncStatus, receipt)
	}
	if len(args) > 0 {
		total, err := a.manager.Sales.DailyTotal(ctx, args[0])
		if err == nil {
			fmt.Printf("Total for %s: %s\n", args[0], FormatCents(total))
		}
	}
}

// attachReceipt uploads a receipt photo to object storage via a presigned
// URL and links the object key to the sale.
func (a *App) attachReceipt(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: receipt <saleId> <file>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("error: invalid sale id")
		return
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	key, uploadURL, err := a.client.PresignReceiptPut(ctx)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	if err := uploadToPresignedURL(ctx, uploadURL, data); err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	if err := a.manager.Sales.AttachReceipt(ctx, id, key); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Println("Receipt attached:", key)
}
