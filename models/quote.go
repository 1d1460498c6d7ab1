package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Quote struct {
	ID           int             `gorm:"primary_key" json:"id"`
	QuoteNumber  *string         `gorm:"size:50;uniqueIndex" json:"quote_number"`
	Customer     *string         `gorm:"size:200" json:"customer"`
	Status       QuoteStatus     `gorm:"size:40;not null;default:draft" json:"status"`
	SubtotalCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_cost"`
	MarkupPct    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"markup_pct"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuoteItem snapshots the quoted product by name and prices; the product
// catalog itself lives outside this service.
type QuoteItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	QuoteId     int             `gorm:"index;not null" json:"quote_id"`
	ProductName string          `gorm:"size:200;not null" json:"product_name"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	SalePrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateQuote(ctx context.Context, customer *string) (*Quote, error) {
	if customer != nil {
		trimmed := strings.TrimSpace(*customer)
		if trimmed == "" {
			customer = nil
		} else {
			customer = &trimmed
		}
	}

	quote := Quote{
		Customer:     customer,
		Status:       QuoteStatusDraft,
		SubtotalCost: decimal.Zero,
		MarkupPct:    decimal.Zero,
		TaxRate:      decimal.Zero,
		TotalPrice:   decimal.Zero,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		number := FormatQuoteNumber(quote.ID)
		quote.QuoteNumber = &number
		return tx.Model(&Quote{}).Where("id = ?", quote.ID).
			Update("quote_number", number).Error
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func GetQuote(ctx context.Context, id int) (*Quote, error) {
	db := config.GetDB()
	return findQuote(db.WithContext(ctx), id)
}

func GetQuoteTx(tx *gorm.DB, id int) (*Quote, error) {
	return findQuote(tx, id)
}

func findQuote(tx *gorm.DB, id int) (*Quote, error) {
	var quote Quote
	err := tx.Where("id = ?", id).First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.KindError(utils.ErrorRecordNotFound, "quote not found")
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func ListQuotes(ctx context.Context, q string) ([]Quote, error) {
	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Quote{})
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("COALESCE(quote_number,'') LIKE ? OR CAST(id AS CHAR) LIKE ?", like, like)
	}
	quotes := []Quote{}
	err := query.Order("updated_at DESC, created_at DESC, id DESC").
		Limit(config.SearchLimit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func ListQuoteItems(ctx context.Context, quoteId int) ([]QuoteItem, error) {
	db := config.GetDB()
	items := []QuoteItem{}
	err := db.WithContext(ctx).
		Where("quote_id = ?", quoteId).
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type NewQuoteItem struct {
	ProductName string           `json:"product_name" binding:"required"`
	Qty         decimal.Decimal  `json:"qty"`
	CostPrice   decimal.Decimal  `json:"cost_price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	MarkupPct   *decimal.Decimal `json:"markup_pct"`
}

// AddQuoteItem appends a line item and recomputes the quote totals. The sale
// price is taken as given, or derived from the cost via markup_pct, rounded
// to cents.
func AddQuoteItem(ctx context.Context, quoteId int, input *NewQuoteItem) (*QuoteItem, error) {
	if !input.Qty.IsPositive() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "qty must be > 0")
	}
	if input.CostPrice.IsNegative() {
		return nil, utils.KindError(utils.ErrorInvalidInput, "cost_price must be a non-negative number")
	}

	salePrice := decimal.Zero
	if input.SalePrice != nil {
		salePrice = *input.SalePrice
	} else if input.MarkupPct != nil {
		one := decimal.NewFromInt(1)
		hundred := decimal.NewFromInt(100)
		salePrice = input.CostPrice.Mul(one.Add(input.MarkupPct.Div(hundred))).Round(2)
	}

	item := QuoteItem{
		QuoteId:     quoteId,
		ProductName: strings.TrimSpace(input.ProductName),
		Qty:         input.Qty,
		CostPrice:   input.CostPrice,
		SalePrice:   salePrice,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findQuote(tx, quoteId); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return recalcQuoteTotals(tx, quoteId)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// recalcQuoteTotals re-derives subtotal, total, and the implied markup from
// the canonical line-item columns.
func recalcQuoteTotals(tx *gorm.DB, quoteId int) error {
	var sums struct {
		SubtotalCost decimal.NullDecimal
		TotalPrice   decimal.NullDecimal
	}
	err := tx.Model(&QuoteItem{}).
		Select(`SUM(COALESCE(cost_price,0) * COALESCE(qty,0)) AS subtotal_cost,
			SUM(COALESCE(sale_price,0) * COALESCE(qty,0)) AS total_price`).
		Where("quote_id = ?", quoteId).
		Scan(&sums).Error
	if err != nil {
		return err
	}

	subtotal, total := decimal.Zero, decimal.Zero
	if sums.SubtotalCost.Valid {
		subtotal = sums.SubtotalCost.Decimal
	}
	if sums.TotalPrice.Valid {
		total = sums.TotalPrice.Decimal
	}
	markup := decimal.Zero
	if subtotal.IsPositive() {
		markup = total.Sub(subtotal).Div(subtotal).Mul(decimal.NewFromInt(100))
	}

	return tx.Model(&Quote{}).Where("id = ?", quoteId).
		Updates(map[string]interface{}{
			"subtotal_cost": subtotal,
			"total_price":   total,
			"markup_pct":    markup,
		}).Error
}

// quotePatchStatuses is the broader allow-list of the generic quote PATCH;
// the dedicated status endpoint accepts a narrower set.
var quotePatchStatuses = map[QuoteStatus]bool{
	QuoteStatusDraft:                    true,
	QuoteStatusPendingApproval:          true,
	QuoteStatusWaitingForClientApproval: true,
	QuoteStatusRedo:                     true,
	QuoteStatusAccepted:                 true,
	QuoteStatusApproved:                 true,
	QuoteStatusComplete:                 true,
	QuoteStatus("won"):                  true,
}

type QuotePatch struct {
	Customer    *string `json:"customer"`
	HasCustomer bool    `json:"-"`
	Status      *string `json:"status"`
}

func UpdateQuote(ctx context.Context, id int, patch *QuotePatch) (*Quote, error) {
	updates := map[string]interface{}{}

	if patch.HasCustomer {
		customer := patch.Customer
		if customer != nil {
			trimmed := strings.TrimSpace(*customer)
			if trimmed == "" {
				customer = nil
			} else {
				customer = &trimmed
			}
		}
		updates["customer"] = customer
	}
	if patch.Status != nil {
		status := QuoteStatus(strings.TrimSpace(*patch.Status))
		if !quotePatchStatuses[status] {
			return nil, utils.KindError(utils.ErrorUnsupportedStatus, "unsupported status")
		}
		updates["status"] = status
	}
	if len(updates) == 0 {
		return nil, utils.KindError(utils.ErrorInvalidInput, "no supported fields to update")
	}

	db := config.GetDB()
	var quote *Quote
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quote, err = findQuote(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&Quote{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		quote, err = findQuote(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// UpdateQuoteStatus backs the dedicated status endpoint with its narrow
// allow-list.
func UpdateQuoteStatus(ctx context.Context, id int, status string) (*Quote, error) {
	parsed, err := ParsePatchableQuoteStatus(status)
	if err != nil {
		return nil, err
	}
	return setQuoteStatus(ctx, id, parsed)
}

// SubmitQuote moves a draft to pending_approval.
func SubmitQuote(ctx context.Context, id int) (*Quote, error) {
	return setQuoteStatus(ctx, id, QuoteStatusPendingApproval)
}

func setQuoteStatus(ctx context.Context, id int, status QuoteStatus) (*Quote, error) {
	db := config.GetDB()
	var quote *Quote
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quote, err = findQuote(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&Quote{}).Where("id = ?", id).
			Update("status", status).Error; err != nil {
			return err
		}
		quote.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}
