package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConsumeAllocationsForJob settles the active ledger when a job transitions
// into complete/closed:
//
//  1. sum the not-yet-consumed active rows per material,
//  2. move that sum from the WIP pool into used, with the WIP side floored
//     at zero (the pool and the ledger may have drifted on legacy data;
//     never go negative),
//  3. copy those rows into the archived ledger, preserving created_at,
//  4. stamp consumed_at on the active rows instead of deleting them.
//
// Filtering on consumed_at IS NULL makes the whole operation idempotent: a
// second call finds nothing to sum, copy, or stamp.
//
// Callers treat this as advisory bookkeeping: its error must never abort the
// status transition itself.
func ConsumeAllocationsForJob(tx *gorm.DB, jobNumber string) error {

	type materialSum struct {
		MaterialId int
		Qty        decimal.Decimal
	}
	var sums []materialSum
	if err := tx.Model(&WipAllocation{}).
		Select("material_id, SUM(COALESCE(qty,0)) AS qty").
		Where("job_number = ? AND consumed_at IS NULL", jobNumber).
		Group("material_id").
		Scan(&sums).Error; err != nil {
		return err
	}

	for _, s := range sums {
		if s.MaterialId == 0 || !s.Qty.IsPositive() {
			continue
		}
		if err := tx.Model(&Material{}).Where("id = ?", s.MaterialId).
			Updates(map[string]interface{}{
				"wip_qty": gorm.Expr(
					"CASE WHEN COALESCE(wip_qty,0) >= ? THEN COALESCE(wip_qty,0) - ? ELSE 0 END",
					s.Qty, s.Qty),
				"used": gorm.Expr("COALESCE(used,0) + ?", s.Qty),
			}).Error; err != nil {
			return err
		}
	}

	var rows []WipAllocation
	if err := tx.Where("job_number = ? AND consumed_at IS NULL", jobNumber).
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if err := tx.Create(&ConsumedAllocation{
			MaterialId: row.MaterialId,
			JobNumber:  row.JobNumber,
			Qty:        row.Qty,
			UnitCost:   row.UnitCost,
			CreatedAt:  row.CreatedAt,
		}).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	return tx.Model(&WipAllocation{}).
		Where("job_number = ? AND consumed_at IS NULL", jobNumber).
		Update("consumed_at", now).Error
}
