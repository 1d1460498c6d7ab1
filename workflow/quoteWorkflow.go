package workflow

import (
	"context"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/utils"
	"gorm.io/gorm"
)

// ApproveQuote marks the quote approved and creates one open job per quote
// line item. Idempotent: items that already have a job are skipped, so
// approving twice never duplicates orders.
func ApproveQuote(ctx context.Context, quoteId int) ([]models.Order, error) {
	db := config.GetDB()

	var orders []models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := models.GetQuoteTx(tx, quoteId); err != nil {
			return err
		}

		var items []models.QuoteItem
		if err := tx.Where("quote_id = ?", quoteId).Order("id ASC").
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return utils.KindError(utils.ErrorInvalidInput, "Quote has no items")
		}

		if err := tx.Model(&models.Quote{}).Where("id = ?", quoteId).
			Update("status", models.QuoteStatusApproved).Error; err != nil {
			return err
		}

		for _, item := range items {
			var count int64
			if err := tx.Model(&models.Order{}).
				Where("quote_item_id = ?", item.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			itemId := item.ID
			order := models.Order{
				QuoteId:     &quoteId,
				QuoteItemId: &itemId,
				Status:      models.OrderStatusOpen,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
		}

		if err := assignMissingJobNumbers(tx, quoteId); err != nil {
			return err
		}

		return tx.Where("quote_id = ?", quoteId).Order("id ASC").
			Find(&orders).Error
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// AcceptQuote marks the quote accepted and guarantees at least one job
// exists for it, returning the newest one together with its quote.
func AcceptQuote(ctx context.Context, quoteId int) (*models.Order, *models.Quote, error) {
	db := config.GetDB()

	var order models.Order
	var quote *models.Quote
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quote, err = models.GetQuoteTx(tx, quoteId)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Quote{}).Where("id = ?", quoteId).
			Update("status", models.QuoteStatusAccepted).Error; err != nil {
			return err
		}
		quote.Status = models.QuoteStatusAccepted

		var count int64
		if err := tx.Model(&models.Order{}).
			Where("quote_id = ?", quoteId).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			created := models.Order{
				QuoteId: &quoteId,
				Status:  models.OrderStatusOpen,
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
		}
		if err := assignMissingJobNumbers(tx, quoteId); err != nil {
			return err
		}

		return tx.Where("quote_id = ?", quoteId).Order("id DESC").
			First(&order).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, quote, nil
}

func assignMissingJobNumbers(tx *gorm.DB, quoteId int) error {
	var orders []models.Order
	if err := tx.Where("quote_id = ? AND job_number IS NULL", quoteId).
		Find(&orders).Error; err != nil {
		return err
	}
	for _, o := range orders {
		number := models.FormatJobNumber(o.ID)
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).
			Update("job_number", number).Error; err != nil {
			return err
		}
	}
	return nil
}
