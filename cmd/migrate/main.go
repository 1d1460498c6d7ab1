// migrate applies the canonical schema and backfills the legacy single-pool
// stock column into unallocated_stock.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/migrate
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
)

func main() {
	skipBackfill := flag.Bool("skip-backfill", false, "Only run AutoMigrate, skip the legacy on_hand backfill")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()
	fmt.Println("schema migrated")

	if *skipBackfill {
		return
	}

	// Legacy rows tracked a single on_hand pool. Move that balance into
	// unallocated_stock once; rows already on the three-pool model keep
	// their balances.
	if db.Migrator().HasColumn(&models.Material{}, "on_hand") {
		res := db.Exec(`
			UPDATE materials
			SET unallocated_stock = COALESCE(on_hand, 0)
			WHERE COALESCE(unallocated_stock, 0) = 0
			  AND COALESCE(wip_qty, 0) = 0
			  AND COALESCE(used, 0) = 0
			  AND COALESCE(on_hand, 0) <> 0`)
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "on_hand backfill failed: %v\n", res.Error)
			os.Exit(1)
		}
		fmt.Printf("backfilled %d legacy rows into unallocated_stock\n", res.RowsAffected)
	}
}
