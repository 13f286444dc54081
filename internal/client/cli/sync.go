package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tallyhq/tally/internal/client/sync"
)

func (a *App) sync(ctx context.Context) {
	if err := a.manager.Queue().Process(ctx); err != nil {
		fmt.Println("queue replay error:", err.Error())
	}
	if err := a.manager.SyncAll(ctx); err != nil {
		fmt.Println("sync error:", err.Error())
		return
	}
	fmt.Println("Sync complete")
}

func (a *App) status(ctx context.Context) {
	fmt.Println("Mode:", a.mode())

	pending, err := a.manager.PendingOps(ctx)
	if err == nil {
		fmt.Println("Queued operations:", pending)
	}

	states := map[string]sync.SyncState{
		"sales":      a.manager.Sales.SyncState(),
		"finance":    a.manager.Finance.SyncState(),
		"contacts":   a.manager.Contacts.SyncState(),
		"categories": a.manager.Contacts.CategorySyncState(),
		"products":   a.manager.Inventory.SyncState(),
	}
	for _, name := range []string{"sales", "finance", "contacts", "categories", "products"} {
		s := states[name]
		last := "never"
		if s.LastSync != 0 {
			last = time.UnixMilli(s.LastSync).Format(time.RFC3339)
		}
		line := fmt.Sprintf("%-12s last sync %s, pending %d", name, last, s.PendingChanges)
		if s.InProgress {
			line += ", in progress"
		}
		if s.Error != "" {
			line += ", error: " + s.Error
		}
		fmt.Println(line)
	}
}

func (a *App) deleteRecord(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: del <sales|txs|contacts|categories|products> <id>")
		return
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("error: invalid id")
		return
	}

	switch args[0] {
	case "sales":
		err = a.manager.Sales.Delete(ctx, id)
	case "txs":
		err = a.manager.Finance.Delete(ctx, id)
	case "contacts":
		err = a.manager.Contacts.Delete(ctx, id)
	case "categories":
		err = a.manager.Contacts.DeleteCategory(ctx, id)
	case "products":
		err = a.manager.Inventory.Delete(ctx, id)
	default:
		fmt.Println("Unknown record type:", args[0])
		return
	}
	if err != nil {
		fmt.Println("error:", err.Error())
		return
	}
	fmt.Println("Deleted")
}

// startBackgroundSync reconciles periodically while online. Blocks until
// ctx is cancelled; run it on its own goroutine.
func (a *App) startBackgroundSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.manager.Online() || !a.isLoggedIn() {
				continue
			}
			if err := a.manager.SyncAll(ctx); err != nil {
				a.logger.Warn(ctx, "background sync failed", "error", err.Error())
			}
		case <-ctx.Done():
			return
		}
	}
}
