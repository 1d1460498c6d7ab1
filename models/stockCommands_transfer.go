package models

import (
	"context"
	"strings"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// planPoolDraw splits a requested quantity across the source pools:
// previously consumed quantity is drained first (a job still in progress can
// re-open used material into WIP), the remainder comes from unallocated.
func planPoolDraw(requested, used, unallocated decimal.Decimal) (takeFromUsed, remainder decimal.Decimal, err error) {
	takeFromUsed = utils.MinDecimal(requested, used)
	remainder = requested.Sub(takeFromUsed)
	if remainder.GreaterThan(unallocated) {
		return decimal.Zero, decimal.Zero, utils.InsufficientStockError(used, unallocated, requested)
	}
	return takeFromUsed, remainder, nil
}

// TransferToWip reserves material against a job. For jobs that are not yet
// complete the quantity lands in the WIP pool and the active ledger; for a
// job that is already complete there is no WIP concept, so the quantity is
// counted as used immediately and the write goes to the archived ledger.
//
// The whole movement is one transaction; the material row is locked up front
// and the pool update carries a conditional guard. If the guard misses (race
// lost to a concurrent transfer) the engine re-reads once and retries before
// reporting insufficient stock.
func TransferToWip(ctx context.Context, id string, jobNumber string, qty decimal.Decimal) (*Material, error) {

	if !qty.IsPositive() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "qty must be a positive number")
	}
	jobNumber = strings.TrimSpace(jobNumber)
	if jobNumber == "" {
		return nil, utils.KindError(utils.ErrorInvalidInput, "job_number is required")
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrderByJobNumber(tx, jobNumber)
		if err != nil {
			return err
		}
		jobComplete := strings.ToLower(string(order.Status)) == string(OrderStatusComplete)

		var lastErr error
		for attempt := 0; attempt < 2; attempt++ {
			material, err := lockMaterialFlexible(tx, id)
			if err != nil {
				return err
			}
			takeFromUsed, remainder, err := planPoolDraw(qty, material.Used, material.UnallocatedStock)
			if err != nil {
				return err
			}

			var res *gorm.DB
			if jobComplete {
				res = tx.Model(&Material{}).
					Where("id = ? AND COALESCE(unallocated_stock,0) >= ?", material.ID, remainder).
					Updates(map[string]interface{}{
						"used":              gorm.Expr("GREATEST(COALESCE(used,0) - ?, 0)", takeFromUsed),
						"unallocated_stock": gorm.Expr("COALESCE(unallocated_stock,0) - ?", remainder),
					})
			} else {
				res = tx.Model(&Material{}).
					Where("id = ? AND COALESCE(unallocated_stock,0) >= ?", material.ID, remainder).
					Updates(map[string]interface{}{
						"used":              gorm.Expr("GREATEST(COALESCE(used,0) - ?, 0)", takeFromUsed),
						"wip_qty":           gorm.Expr("COALESCE(wip_qty,0) + ?", qty),
						"unallocated_stock": gorm.Expr("COALESCE(unallocated_stock,0) - ?", remainder),
					})
			}
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// guard missed; re-read and try once more
				lastErr = utils.InsufficientStockError(material.Used, material.UnallocatedStock, qty)
				continue
			}

			if jobComplete {
				return upsertConsumedAllocation(tx, material.ID, jobNumber, qty, material.CostPrice)
			}
			return upsertWipAllocation(tx, material.ID, jobNumber, qty, material.CostPrice)
		}
		return lastErr
	})
	if err != nil {
		return nil, err
	}
	return GetMaterialFlexible(ctx, id)
}
