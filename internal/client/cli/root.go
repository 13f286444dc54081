package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s = s + string(a.mode())
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to Tally CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		a.manager.StartOnlineWatcher(ctx, a.config.OnlineCheckInterval)
	}()
	go func() {
		a.startBackgroundSync(ctx, a.config.SyncInterval)
	}()

	for {
		fmt.Printf("tally %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			a.help()

		case "register":
			if err := a.Register(ctx); err != nil {
				fmt.Println("error:", err.Error())
			}
		case "login":
			if err := a.Login(ctx); err != nil {
				fmt.Println("error:", err.Error())
			}
		case "logout":
			a.Logout(ctx)

		case "sale":
			a.addSale(ctx)
		case "sales":
			a.listSales(ctx, args)
		case "receipt":
			a.attachReceipt(ctx, args)

		case "expense":
			a.addTransaction(ctx, false)
		case "income":
			a.addTransaction(ctx, true)
		case "txs":
			a.listTransactions(ctx)
		case "profit":
			a.dailyProfit(ctx, args)

		case "contact":
			a.addContact(ctx)
		case "contacts":
			a.listContacts(ctx, args)
		case "category":
			a.addCategory(ctx)
		case "categories":
			a.listCategories(ctx)

		case "product":
			a.addProduct(ctx)
		case "products":
			a.listProducts(ctx)
		case "lowstock":
			a.lowStock(ctx, args)
		case "stock":
			a.adjustStock(ctx, args)

		case "del":
			a.deleteRecord(ctx, args)

		case "sync":
			a.sync(ctx)
		case "status":
			a.status(ctx)

		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func (a *App) help() {
	if !a.isLoggedIn() {
		fmt.Println("Available commands: register, login, help, exit")
		fmt.Println("Record commands work after login; they keep working offline.")
		return
	}
	fmt.Println("Records:   sale, sales [date], expense, income, txs, contact, contacts [category],")
	fmt.Println("           category, categories, product, products, lowstock [n], stock <id> <+/-n>")
	fmt.Println("Reports:   profit <YYYY-MM-DD> [<YYYY-MM-DD>]")
	fmt.Println("Receipts:  receipt <saleId> <file>")
	fmt.Println("Sync:      sync, status")
	fmt.Println("Other:     del <sales|txs|contacts|categories|products> <id>, logout, exit")
}
