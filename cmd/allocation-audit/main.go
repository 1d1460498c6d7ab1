// allocation-audit cross-checks each material's wip_qty pool against the sum
// of its active allocation rows and reports drift. With -fix it rewrites
// wip_qty from the ledger, which is the source of truth.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	fix := flag.Bool("fix", false, "Rewrite wip_qty from the active allocation ledger")
	materialID := flag.Int("material-id", 0, "Optional: audit a single material")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	type auditRow struct {
		MaterialId int
		Name       string
		WipQty     decimal.Decimal
		LedgerQty  decimal.Decimal
	}

	query := db.Table("materials AS m").
		Select(`m.id AS material_id,
			m.name AS name,
			COALESCE(m.wip_qty, 0) AS wip_qty,
			COALESCE(SUM(CASE WHEN wa.consumed_at IS NULL THEN wa.qty ELSE 0 END), 0) AS ledger_qty`).
		Joins("LEFT JOIN wip_allocations AS wa ON wa.material_id = m.id").
		Group("m.id, m.name, m.wip_qty")
	if *materialID > 0 {
		query = query.Where("m.id = ?", *materialID)
	}

	var rows []auditRow
	if err := query.Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "audit query failed: %v\n", err)
		os.Exit(1)
	}

	drifted := 0
	for _, r := range rows {
		if r.WipQty.Equal(r.LedgerQty) {
			continue
		}
		drifted++
		fmt.Printf("material %d (%s): wip_qty=%s ledger=%s diff=%s\n",
			r.MaterialId, r.Name, r.WipQty, r.LedgerQty, r.WipQty.Sub(r.LedgerQty))
		if *fix {
			err := db.Model(&models.Material{}).
				Where("id = ?", r.MaterialId).
				Update("wip_qty", r.LedgerQty).Error
			if err != nil {
				fmt.Fprintf(os.Stderr, "fix material %d failed: %v\n", r.MaterialId, err)
				os.Exit(1)
			}
			fmt.Printf("  fixed: wip_qty set to %s\n", r.LedgerQty)
		}
	}

	if drifted == 0 {
		fmt.Printf("audited %d materials, no drift\n", len(rows))
		return
	}
	fmt.Printf("audited %d materials, %d drifted\n", len(rows), drifted)
	if !*fix {
		os.Exit(2)
	}
}
