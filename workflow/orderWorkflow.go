package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/utils"
	"gorm.io/gorm"
)

// OrderPatch is the accepted PATCH body for an order.
type OrderPatch struct {
	Status    *string `json:"status"`
	JobNumber *string `json:"job_number"`
}

// OrderUpdateResult carries the updated row plus any advisory-phase warning.
// The warning never reaches the HTTP error path: inventory bookkeeping must
// not block order management.
type OrderUpdateResult struct {
	Order   *models.OrderRow
	Warning string
}

// ProcessOrderStatusChange runs the order PATCH in two phases. The required
// phase persists the status (and completed_at when entering complete/closed)
// and commits. The advisory phase then settles the WIP ledger and promotes
// the parent quote; its failures are logged and reported as a warning only.
func ProcessOrderStatusChange(ctx context.Context, orderId int, patch *OrderPatch) (*OrderUpdateResult, error) {
	logger := config.GetLogger()

	updates := map[string]interface{}{}
	var newStatus models.OrderStatus
	if patch.Status != nil {
		status, err := models.ParseOrderStatus(*patch.Status)
		if err != nil {
			return nil, err
		}
		newStatus = status
		updates["status"] = status
		if status == models.OrderStatusComplete || status == models.OrderStatusClosed {
			updates["completed_at"] = time.Now()
		}
	}
	if patch.JobNumber != nil {
		jn := strings.TrimSpace(*patch.JobNumber)
		if jn == "" {
			updates["job_number"] = nil
		} else {
			updates["job_number"] = jn
		}
	}
	if len(updates) == 0 {
		return nil, utils.KindError(utils.ErrorInvalidInput, "no supported fields to update")
	}

	// required phase
	db := config.GetDB()
	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = models.GetOrderTx(tx, orderId)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", orderId).
			Updates(updates).Error; err != nil {
			return err
		}
		order, err = models.GetOrderTx(tx, orderId)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &OrderUpdateResult{}

	// advisory phase: consume WIP and promote the quote
	if newStatus == models.OrderStatusComplete || newStatus == models.OrderStatusClosed {
		if order.JobNumber != nil && *order.JobNumber != "" {
			if err := consumeJobAllocations(ctx, *order.JobNumber); err != nil {
				config.LogWarn(logger, "orderWorkflow.go", "ProcessOrderStatusChange", "ConsumeAllocationsForJob", *order.JobNumber, err)
				result.Warning = err.Error()
			}
		}
	}
	if order.QuoteId != nil {
		if err := promoteQuoteIfAllJobsDone(ctx, *order.QuoteId); err != nil {
			config.LogWarn(logger, "orderWorkflow.go", "ProcessOrderStatusChange", "promoteQuoteIfAllJobsDone", *order.QuoteId, err)
			if result.Warning == "" {
				result.Warning = err.Error()
			}
		}
	}

	row, err := models.GetOrderRow(ctx, orderId)
	if err != nil {
		return nil, err
	}
	result.Order = row
	return result, nil
}

// consumeJobAllocations wraps the ledger settlement in its own transaction,
// guarded by a best-effort redis lock. Redis is an optimization against
// concurrent completion bookkeeping across instances; correctness rests on
// the MySQL transaction, so a missing or contended lock does not stop us.
func consumeJobAllocations(ctx context.Context, jobNumber string) error {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "consume:"+jobNumber, 10*time.Second, nil)
		if err == nil {
			defer lock.Release(context.Background())
		} else if err != redislock.ErrNotObtained {
			config.LogWarn(config.GetLogger(), "orderWorkflow.go", "consumeJobAllocations", "redislock.Obtain", jobNumber, err)
		}
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.ConsumeAllocationsForJob(tx, jobNumber)
	})
}

// promoteQuoteIfAllJobsDone advances the parent quote to complete once every
// non-cancelled job for it is done. Idempotent: re-running against an
// already-complete quote writes the same status.
func promoteQuoteIfAllJobsDone(ctx context.Context, quoteId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agg struct {
			Relevant int64
			Done     int64
		}
		err := tx.Model(&models.Order{}).
			Select(`SUM(CASE WHEN LOWER(COALESCE(status,'')) NOT IN ('cancelled') THEN 1 ELSE 0 END) AS relevant,
				SUM(CASE WHEN LOWER(COALESCE(status,'')) IN ('complete','completed','closed') THEN 1 ELSE 0 END) AS done`).
			Where("quote_id = ?", quoteId).
			Scan(&agg).Error
		if err != nil {
			return err
		}
		if agg.Relevant > 0 && agg.Done == agg.Relevant {
			return tx.Model(&models.Quote{}).Where("id = ?", quoteId).
				Update("status", models.QuoteStatusComplete).Error
		}
		return nil
	})
}
