package models

import (
	"github.com/craftline/shopfloor_backend/config"
)

// MigrateTable brings the canonical schema up to date. The engine itself
// never probes table shapes at request time; all compatibility work happens
// here (and in cmd/migrate for legacy backfills) exactly once.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Material{},
		&WipAllocation{},
		&ConsumedAllocation{},
		&Order{},
		&Quote{},
		&QuoteItem{},
	)
	if err != nil {
		panic(err)
	}
}
