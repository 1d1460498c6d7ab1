// seed-dev loads a small development dataset: a handful of materials with
// opening stock and one draft quote with line items. Safe to rerun; existing
// SKUs are left untouched.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
)

type seedMaterial struct {
	name  string
	sku   string
	unit  string
	cost  string
	stock string
}

var seedMaterials = []seedMaterial{
	{"Acrylic Sheet 3mm", "ACR-3MM-CLR", "sheet", "12.50", "10"},
	{"Aluminium Composite Panel", "ACP-4X8-WHT", "sheet", "38.00", "6"},
	{"Vinyl Roll Matte", "VIN-MAT-54", "m", "4.25", "120"},
	{"LED Module 12V", "LED-12V-3C", "pc", "0.85", "400"},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	for _, m := range seedMaterials {
		sku := m.sku
		cost := decimal.RequireFromString(m.cost)
		input := models.NewMaterial{
			Name:      m.name,
			Sku:       &sku,
			Unit:      m.unit,
			CostPrice: &cost,
		}
		created, err := models.CreateMaterial(ctx, &input)
		if errors.Is(err, utils.ErrorDuplicateSku) {
			fmt.Printf("skip %s (already seeded)\n", sku)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed material %s: %v\n", sku, err)
			os.Exit(1)
		}
		stock := decimal.RequireFromString(m.stock)
		if _, err := models.AddStock(ctx, fmt.Sprintf("%d", created.ID), stock, &cost); err != nil {
			fmt.Fprintf(os.Stderr, "seed stock %s: %v\n", sku, err)
			os.Exit(1)
		}
		fmt.Printf("seeded %s with opening stock %s\n", sku, m.stock)
	}

	customer := "Dev Workshop"
	quote, err := models.CreateQuote(ctx, &customer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed quote: %v\n", err)
		os.Exit(1)
	}
	markup := decimal.NewFromInt(40)
	items := []models.NewQuoteItem{
		{ProductName: "Shopfront Sign 8x4", Qty: decimal.NewFromInt(1), CostPrice: decimal.RequireFromString("180.00"), MarkupPct: &markup},
		{ProductName: "Window Decal Set", Qty: decimal.NewFromInt(3), CostPrice: decimal.RequireFromString("22.50"), MarkupPct: &markup},
	}
	for i := range items {
		if _, err := models.AddQuoteItem(ctx, quote.ID, &items[i]); err != nil {
			fmt.Fprintf(os.Stderr, "seed quote item: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded quote %s with %d items\n", *quote.QuoteNumber, len(items))
}
