package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tallyhq/tally/internal/client/models"
)

func (a *App) addTransaction(ctx context.Context, income bool) {
	txType := models.TransactionExpense
	label := "Expense"
	if income {
		txType = models.TransactionIncome
		label = "Income"
	}

	amount, err := GetMoney(a.reader, label+" amount", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	description, err := getSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	date, err := getSimpleText(a.reader, "Date YYYY-MM-DD (empty for today)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	method, err := a.getPaymentMethod()
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	category, err := getSimpleText(a.reader, "Category (empty to skip)", os.Stdout)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}

	t := &models.Transaction{
		Type:          txType,
		AmountCents:   amount,
		Date:          date,
		PaymentMethod: method,
		Description:   description,
		CategoryID:    category,
	}
	if err := a.manager.Finance.Add(ctx, t); err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Recorded %s #%d: %s\n", t.Type, t.ID, FormatCents(t.AmountCents))
}

func (a *App) listTransactions(ctx context.Context) {
	for _, t := range a.manager.Finance.Transactions() {
		fmt.Printf("%4d  %-10s %-8s %10s  %-30s %s\n",
			t.ID, t.Date, t.Type, FormatCents(t.Signed()), t.Description, t.SyncStatus)
	}
}

func (a *App) dailyProfit(ctx context.Context, args []string) {
	if len(args) >= 2 {
		profit, err := a.manager.Finance.ProfitBetween(ctx, args[0], args[1])
		if err != nil {
			fmt.Println("error:", err.Error())
			return
		}
		fmt.Printf("Profit for %s to %s: %s\n", args[0], args[1], FormatCents(profit))
		return
	}
	date := time.Now().Format("2006-01-02")
	if len(args) > 0 {
		date = args[0]
	}
	profit, err := a.manager.Finance.DailyProfit(ctx, date)
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Printf("Profit for %s: %s\n", date, FormatCents(profit))
}
