package models

import (
	"context"
	"strconv"
	"strings"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReturnResult is the response shape of the return endpoint.
type ReturnResult struct {
	Ok         bool            `json:"ok"`
	MaterialId int             `json:"material_id"`
	Returned   decimal.Decimal `json:"returned"`
	Mode       string          `json:"mode"`
}

// ReturnMaterial is the inverse of consumption; the policy depends on the
// job's status.
//
// Complete job: the net archived quantity must cover the return; a negative
// archived row is appended (history stays intact, the net sum shrinks) and
// the quantity re-enters the used pool. Returned material is assumed still
// physically present pending inspection, so it does not go back to
// unallocated.
//
// Job not complete: the active ledger must cover the return; the quantity
// moves WIP -> used and the active rows are drawn down newest-first.
func ReturnMaterial(ctx context.Context, orderId int, materialId int, qty decimal.Decimal) (*ReturnResult, error) {

	if !qty.IsPositive() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "Invalid allocation/material or qty")
	}

	var result *ReturnResult
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderId)
		if err != nil || order.JobNumber == nil || *order.JobNumber == "" {
			return utils.KindError(utils.ErrorRecordNotFound, "Order not found")
		}
		jobNumber := *order.JobNumber
		isComplete := strings.ToLower(string(order.Status)) == string(OrderStatusComplete)

		material, err := lockMaterialFlexible(tx, strconv.Itoa(materialId))
		if err != nil {
			return err
		}

		if isComplete {
			totalConsumed, lastCost, err := sumConsumedAllocationQty(tx, jobNumber, material.ID)
			if err != nil {
				return err
			}
			if qty.GreaterThan(totalConsumed) {
				return utils.ReturnExceedsAllocatedError(totalConsumed, qty)
			}
			if err := tx.Create(&ConsumedAllocation{
				MaterialId: material.ID,
				JobNumber:  jobNumber,
				Qty:        qty.Neg(),
				UnitCost:   utils.DecimalPtr(lastCost),
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&Material{}).Where("id = ?", material.ID).
				Update("used", gorm.Expr("COALESCE(used,0) + ?", qty)).Error; err != nil {
				return err
			}
			result = &ReturnResult{Ok: true, MaterialId: material.ID, Returned: qty, Mode: "complete"}
			return nil
		}

		totalWip, err := sumWipAllocationQty(tx, jobNumber, material.ID)
		if err != nil {
			return err
		}
		if qty.GreaterThan(totalWip) {
			return utils.ReturnExceedsAllocatedError(totalWip, qty)
		}
		if err := tx.Model(&Material{}).Where("id = ?", material.ID).
			Updates(map[string]interface{}{
				"wip_qty": gorm.Expr("GREATEST(COALESCE(wip_qty,0) - ?, 0)", qty),
				"used":    gorm.Expr("COALESCE(used,0) + ?", qty),
			}).Error; err != nil {
			return err
		}
		if err := drawDownWipAllocations(tx, jobNumber, material.ID, qty); err != nil {
			return err
		}
		result = &ReturnResult{Ok: true, MaterialId: material.ID, Returned: qty, Mode: "wip"}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
