package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Material carries the three quantity pools. stock_qty is a display sum and
// is never persisted; the pools are the ground truth.
type Material struct {
	ID               int              `gorm:"primary_key" json:"id"`
	Sku              *string          `gorm:"size:100;uniqueIndex" json:"sku"`
	Name             string           `gorm:"size:200;not null;index" json:"name"`
	Unit             string           `gorm:"size:50" json:"unit"`
	CostPrice        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"cost_price"`
	UnallocatedStock decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unallocated_stock"`
	WipQty           decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"wip_qty"`
	Used             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"used"`
	StockQty         decimal.Decimal  `gorm:"-" json:"stock_qty"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Material) AfterFind(tx *gorm.DB) error {
	_ = tx
	m.RefreshStockQty()
	return nil
}

func (m *Material) RefreshStockQty() {
	m.StockQty = m.UnallocatedStock.Add(m.WipQty).Add(m.Used)
}

type NewMaterial struct {
	Name             string           `json:"name" binding:"required"`
	Sku              *string          `json:"sku"`
	Unit             string           `json:"unit"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	UnallocatedStock *decimal.Decimal `json:"unallocated_stock"`
}

func (input *NewMaterial) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.KindError(utils.ErrorInvalidInput, "name is required")
	}
	if input.CostPrice != nil && input.CostPrice.IsNegative() {
		return utils.KindError(utils.ErrorInvalidInput, "cost_price must be a non-negative number")
	}
	if input.UnallocatedStock != nil && input.UnallocatedStock.IsNegative() {
		return utils.KindError(utils.ErrorInvalidInput, "unallocated_stock must be a non-negative number")
	}
	return nil
}

func CreateMaterial(ctx context.Context, input *NewMaterial) (*Material, error) {

	if err := input.validate(); err != nil {
		return nil, err
	}

	var sku *string
	if input.Sku != nil && strings.TrimSpace(*input.Sku) != "" {
		trimmed := strings.TrimSpace(*input.Sku)
		sku = &trimmed
	}

	material := Material{
		Sku:              sku,
		Name:             strings.TrimSpace(input.Name),
		Unit:             strings.TrimSpace(input.Unit),
		CostPrice:        input.CostPrice,
		UnallocatedStock: decimal.Zero,
		WipQty:           decimal.Zero,
		Used:             decimal.Zero,
	}
	if input.UnallocatedStock != nil {
		material.UnallocatedStock = *input.UnallocatedStock
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&material).Error; err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil, utils.KindError(utils.ErrorDuplicateSku, "SKU already exists")
		}
		return nil, err
	}
	material.RefreshStockQty()
	return &material, nil
}

// GetMaterialFlexible resolves a material whether the caller sends the id as
// a number or a string. Legacy front-ends do both.
func GetMaterialFlexible(ctx context.Context, id string) (*Material, error) {
	db := config.GetDB()
	return findMaterialFlexible(db.WithContext(ctx), id)
}

func ListMaterials(ctx context.Context) ([]Material, error) {
	db := config.GetDB()
	var materials []Material
	if err := db.WithContext(ctx).Order("name").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func findMaterialFlexible(tx *gorm.DB, id string) (*Material, error) {
	var material Material
	err := tx.Where("CAST(id AS CHAR) = ?", id).First(&material).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.KindError(utils.ErrorRecordNotFound, "Material not found (id=%s)", id)
	}
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// lockMaterialFlexible is findMaterialFlexible plus a row lock; every pool
// movement starts here so concurrent transfers against the same material
// serialize on the storage layer.
func lockMaterialFlexible(tx *gorm.DB, id string) (*Material, error) {
	return findMaterialFlexible(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// ApplyStockAddition applies the weighted-average costing policy in memory.
// Only the unallocated pool participates in the average: WIP and used keep
// their historical snapshots in the allocation rows.
func (m *Material) ApplyStockAddition(deltaQty decimal.Decimal, declaredUnitCost *decimal.Decimal) error {
	if !deltaQty.IsPositive() {
		return utils.KindError(utils.ErrorInvalidInput, "delta must be a positive number")
	}
	if declaredUnitCost == nil {
		m.UnallocatedStock = m.UnallocatedStock.Add(deltaQty)
		m.RefreshStockQty()
		return nil
	}
	if declaredUnitCost.IsNegative() {
		return utils.KindError(utils.ErrorInvalidInput, "cost_price must be a non-negative number")
	}

	oldUnallocated := m.UnallocatedStock
	baseCost := *declaredUnitCost
	if m.CostPrice != nil {
		baseCost = *m.CostPrice
	}
	newTotal := oldUnallocated.Add(deltaQty)
	newAvg := *declaredUnitCost
	if newTotal.IsPositive() {
		newAvg = oldUnallocated.Mul(baseCost).Add(deltaQty.Mul(*declaredUnitCost)).Div(newTotal)
	}

	m.CostPrice = &newAvg
	m.UnallocatedStock = newTotal
	m.RefreshStockQty()
	return nil
}

// AddStock replenishes the unallocated pool, recomputing the weighted-average
// cost when a unit cost is declared.
func AddStock(ctx context.Context, id string, delta decimal.Decimal, declaredUnitCost *decimal.Decimal) (*Material, error) {

	// reject before any mutation
	if !delta.IsPositive() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "delta must be a positive number")
	}
	if declaredUnitCost != nil && declaredUnitCost.IsNegative() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "cost_price must be a non-negative number")
	}

	var material *Material
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		material, err = lockMaterialFlexible(tx, id)
		if err != nil {
			return err
		}
		if err := material.ApplyStockAddition(delta, declaredUnitCost); err != nil {
			return err
		}
		return tx.Model(&Material{}).Where("id = ?", material.ID).
			Updates(map[string]interface{}{
				"unallocated_stock": material.UnallocatedStock,
				"cost_price":        material.CostPrice,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return GetMaterialFlexible(ctx, id)
}
