package models

import (
	"context"
	"errors"
	"time"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WipAllocation is the active ledger: one logical row per (material, job)
// pair; repeated transfers accumulate into it. Rows are stamped consumed_at
// on job completion instead of being deleted so the job page keeps showing
// them.
type WipAllocation struct {
	ID         int              `gorm:"primary_key" json:"id"`
	MaterialId int              `gorm:"index;not null" json:"material_id"`
	JobNumber  string           `gorm:"size:50;index;not null" json:"job_number"`
	Qty        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCost   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_cost"`
	ConsumedAt *time.Time       `json:"consumed_at"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ConsumedAllocation is the archived ledger: append-only history of
// consumption and return events. Negative qty rows are returns. It is audit
// history, never the source of pool balances.
type ConsumedAllocation struct {
	ID         int              `gorm:"primary_key" json:"id"`
	MaterialId int              `gorm:"index;not null" json:"material_id"`
	JobNumber  string           `gorm:"size:50;index;not null" json:"job_number"`
	Qty        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCost   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_cost"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	ArchivedAt time.Time        `gorm:"autoCreateTime" json:"archived_at"`
}

// upsertWipAllocation accumulates qty into the unconsumed (material, job)
// row, keeping an existing unit_cost snapshot and only filling it when it is
// still null. Stamped rows are settled history; a transfer to a reopened job
// starts a fresh row so the next settlement sees exactly the new quantity.
func upsertWipAllocation(tx *gorm.DB, materialId int, jobNumber string, qty decimal.Decimal, unitCost *decimal.Decimal) error {
	var existing WipAllocation
	err := tx.Where("material_id = ? AND job_number = ? AND consumed_at IS NULL", materialId, jobNumber).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&WipAllocation{
			MaterialId: materialId,
			JobNumber:  jobNumber,
			Qty:        qty,
			UnitCost:   unitCost,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&WipAllocation{}).Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"qty":       gorm.Expr("COALESCE(qty,0) + ?", qty),
			"unit_cost": gorm.Expr("COALESCE(unit_cost, ?)", unitCost),
		}).Error
}

func upsertConsumedAllocation(tx *gorm.DB, materialId int, jobNumber string, qty decimal.Decimal, unitCost *decimal.Decimal) error {
	var existing ConsumedAllocation
	err := tx.Where("material_id = ? AND job_number = ?", materialId, jobNumber).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&ConsumedAllocation{
			MaterialId: materialId,
			JobNumber:  jobNumber,
			Qty:        qty,
			UnitCost:   unitCost,
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&ConsumedAllocation{}).Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"qty":       gorm.Expr("COALESCE(qty,0) + ?", qty),
			"unit_cost": gorm.Expr("COALESCE(unit_cost, ?)", unitCost),
		}).Error
}

func sumWipAllocationQty(tx *gorm.DB, jobNumber string, materialId int) (decimal.Decimal, error) {
	var row struct {
		TotalQty decimal.NullDecimal
	}
	err := tx.Model(&WipAllocation{}).
		Select("SUM(qty) AS total_qty").
		Where("job_number = ? AND material_id = ? AND consumed_at IS NULL", jobNumber, materialId).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.TotalQty.Valid {
		return decimal.Zero, nil
	}
	return row.TotalQty.Decimal, nil
}

// sumConsumedAllocationQty returns the net archived quantity together with
// the last known unit cost for the pair (the original system used
// MAX(unit_cost) for the latter; kept for compatibility).
func sumConsumedAllocationQty(tx *gorm.DB, jobNumber string, materialId int) (decimal.Decimal, decimal.Decimal, error) {
	var row struct {
		TotalQty decimal.NullDecimal
		LastCost decimal.NullDecimal
	}
	err := tx.Model(&ConsumedAllocation{}).
		Select("SUM(qty) AS total_qty, MAX(unit_cost) AS last_cost").
		Where("job_number = ? AND material_id = ?", jobNumber, materialId).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	total, lastCost := decimal.Zero, decimal.Zero
	if row.TotalQty.Valid {
		total = row.TotalQty.Decimal
	}
	if row.LastCost.Valid {
		lastCost = row.LastCost.Decimal
	}
	return total, lastCost, nil
}

// drawDownWipAllocations absorbs a return into the active rows newest-first,
// deleting rows that reach zero. Newest-first is policy, not business
// meaning: the rows are fungible and the order is a stable tie-break.
func drawDownWipAllocations(tx *gorm.DB, jobNumber string, materialId int, qty decimal.Decimal) error {
	remaining := qty
	for remaining.IsPositive() {
		var row WipAllocation
		err := tx.Where("job_number = ? AND material_id = ? AND consumed_at IS NULL", jobNumber, materialId).
			Order("created_at DESC, id DESC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// nothing left (the caller's guard should prevent this)
			return nil
		}
		if err != nil {
			return err
		}

		take := row.Qty
		if remaining.LessThan(take) {
			take = remaining
		}
		newQty := row.Qty.Sub(take)
		if newQty.IsPositive() {
			if err := tx.Model(&WipAllocation{}).Where("id = ?", row.ID).
				Update("qty", newQty).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Delete(&WipAllocation{}, row.ID).Error; err != nil {
				return err
			}
		}
		remaining = remaining.Sub(take)
	}
	return nil
}

// JobAllocationRow is the shape of GET /api/orders/:id/materials.
type JobAllocationRow struct {
	ID           int              `json:"id"`
	MaterialId   int              `json:"material_id"`
	JobNumber    string           `json:"job_number"`
	Qty          decimal.Decimal  `json:"qty"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	CreatedAt    *time.Time       `json:"created_at"`
	MaterialName string           `json:"material_name"`
	Sku          *string          `json:"sku"`
	Unit         string           `json:"unit"`
}

func ListJobAllocations(ctx context.Context, jobNumber string) ([]JobAllocationRow, error) {
	db := config.GetDB()
	rows := []JobAllocationRow{}
	err := db.WithContext(ctx).
		Table("wip_allocations AS wa").
		Select("wa.id, wa.material_id, wa.job_number, wa.qty, wa.unit_cost, wa.created_at, m.name AS material_name, m.sku, m.unit").
		Joins("JOIN materials m ON m.id = wa.material_id").
		Where("wa.job_number = ?", jobNumber).
		Order("wa.created_at DESC, wa.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
