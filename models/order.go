package models

import (
	"context"
	"errors"
	"time"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a unit of production work (a job), usually derived from one quote
// line item.
type Order struct {
	ID          int         `gorm:"primary_key" json:"id"`
	QuoteId     *int        `gorm:"index" json:"quote_id"`
	QuoteItemId *int        `gorm:"uniqueIndex" json:"quote_item_id"`
	JobNumber   *string     `gorm:"size:50;uniqueIndex" json:"job_number"`
	Status      OrderStatus `gorm:"size:30;not null;default:open" json:"status"`
	CompletedAt *time.Time  `json:"completed_at"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func findOrder(tx *gorm.DB, id int) (*Order, error) {
	var order Order
	err := tx.Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.KindError(utils.ErrorRecordNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func findOrderByJobNumber(tx *gorm.DB, jobNumber string) (*Order, error) {
	var order Order
	err := tx.Where("job_number = ?", jobNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.KindError(utils.ErrorRecordNotFound, "Order/job not found (job_number=%s)", jobNumber)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	db := config.GetDB()
	return findOrder(db.WithContext(ctx), id)
}

// GetOrderTx is the tx-scoped accessor for the workflow package.
func GetOrderTx(tx *gorm.DB, id int) (*Order, error) {
	return findOrder(tx, id)
}

// OrderLineItem is the legacy items[] attachment for orders created before
// jobs were linked to a single quote line item.
type OrderLineItem struct {
	ProductName string          `json:"product_name"`
	Qty         decimal.Decimal `json:"qty"`
}

// OrderRow is the rich order shape returned by GET/PATCH /api/orders/:id.
type OrderRow struct {
	ID          int              `json:"id"`
	JobNumber   string           `json:"job_number"`
	Status      string           `json:"status"`
	QuoteId     *int             `json:"quote_id"`
	QuoteNumber *string          `json:"quote_number"`
	Customer    *string          `json:"customer"`
	QuoteItemId *int             `json:"quote_item_id"`
	Qty         *decimal.Decimal `json:"qty"`
	ProductName *string          `json:"product_name"`
	CompletedAt *time.Time       `json:"completed_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Items       []OrderLineItem  `json:"items,omitempty"`
}

func GetOrderRow(ctx context.Context, id int) (*OrderRow, error) {
	db := config.GetDB()

	var row OrderRow
	err := db.WithContext(ctx).
		Table("orders AS o").
		Select(`o.id,
			COALESCE(o.job_number, CONCAT('JOB-', LPAD(o.id, 6, '0'))) AS job_number,
			COALESCE(o.status, 'open') AS status,
			o.quote_id,
			q.quote_number,
			q.customer,
			o.quote_item_id,
			qi.qty AS qty,
			qi.product_name AS product_name,
			o.completed_at,
			o.created_at,
			o.updated_at`).
		Joins("LEFT JOIN quotes q ON q.id = o.quote_id").
		Joins("LEFT JOIN quote_items qi ON qi.id = o.quote_item_id").
		Where("o.id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.KindError(utils.ErrorRecordNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}

	// Legacy orders predate per-line-item jobs; attach all items from the
	// parent quote so callers still see what the job covers.
	if (row.ProductName == nil || row.QuoteItemId == nil) && row.QuoteId != nil {
		var items []OrderLineItem
		if err := db.WithContext(ctx).
			Table("quote_items AS qi").
			Select("qi.product_name, qi.qty").
			Where("qi.quote_id = ?", *row.QuoteId).
			Order("qi.id ASC").
			Scan(&items).Error; err == nil {
			row.Items = items
		}
	}

	return &row, nil
}

// JobSearchRow is the shape of GET /api/orders/jobs.
type JobSearchRow struct {
	ID          int     `json:"id"`
	JobNumber   string  `json:"job_number"`
	Status      *string `json:"status"`
	QuoteId     *int    `json:"quote_id"`
	QuoteNumber *string `json:"quote_number"`
	Customer    *string `json:"customer"`
	ProductName *string `json:"product_name"`
}

// SearchJobs lists jobs, optionally filtered by a search string (matched
// against the job number or the numeric id) and by open-only.
func SearchJobs(ctx context.Context, q string, openOnly bool, limit int) ([]JobSearchRow, error) {
	if limit <= 0 {
		limit = config.SearchLimit
	}
	if limit > 500 {
		limit = 500
	}

	db := config.GetDB()
	query := db.WithContext(ctx).
		Table("orders AS o").
		Select(`o.id,
			COALESCE(o.job_number, CONCAT('JOB-', LPAD(o.id, 6, '0'))) AS job_number,
			o.status,
			o.quote_id,
			q.quote_number,
			q.customer,
			qi.product_name AS product_name`).
		Joins("LEFT JOIN quotes q ON q.id = o.quote_id").
		Joins("LEFT JOIN quote_items qi ON qi.id = o.quote_item_id")

	if q != "" {
		like := "%" + q + "%"
		query = query.Where("COALESCE(o.job_number,'') LIKE ? OR CAST(o.id AS CHAR) LIKE ?", like, like)
	}
	if openOnly {
		query = query.Where("LOWER(COALESCE(o.status,'')) IN ('open','in_progress')")
	}

	rows := []JobSearchRow{}
	err := query.Order("o.updated_at DESC, o.created_at DESC, o.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
