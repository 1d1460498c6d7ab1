package main

import (
	"net/http"
	"strings"

	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/craftline/shopfloor_backend/workflow"
	"github.com/gin-gonic/gin"
)

func listQuotesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		quotes, err := models.ListQuotes(c.Request.Context(), strings.TrimSpace(c.Query("q")))
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, quotes)
	}
}

type createQuoteRequest struct {
	Customer *string `json:"customer"`
}

func createQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createQuoteRequest
		// an empty body is a valid draft quote
		_ = c.ShouldBindJSON(&req)

		quote, err := models.CreateQuote(c.Request.Context(), req.Customer)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusCreated, quote)
	}
}

func getQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}
		quote, err := models.GetQuote(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func patchQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}

		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		patch := models.QuotePatch{}
		if raw, present := body["customer"]; present {
			patch.HasCustomer = true
			if s, ok := raw.(string); ok {
				patch.Customer = &s
			}
		}
		if raw, present := body["status"]; present {
			s, ok := raw.(string)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported status"})
				return
			}
			patch.Status = &s
		}

		quote, err := models.UpdateQuote(c.Request.Context(), id, &patch)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func listQuoteItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}
		items, err := models.ListQuoteItems(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func addQuoteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}
		var input models.NewQuoteItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		item, err := models.AddQuoteItem(c.Request.Context(), id, &input)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func submitQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote id"})
			return
		}
		quote, err := models.SubmitQuote(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func approveQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote id"})
			return
		}
		orders, err := workflow.ApproveQuote(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		jobs := make([]gin.H, 0, len(orders))
		for _, order := range orders {
			jobs = append(jobs, gin.H{
				"id":            order.ID,
				"job_number":    order.JobNumber,
				"status":        order.Status,
				"quote_item_id": order.QuoteItemId,
			})
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "jobs": jobs})
	}
}

func acceptQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote id"})
			return
		}
		order, quote, err := workflow.AcceptQuote(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":           order.ID,
			"job_number":   order.JobNumber,
			"status":       order.Status,
			"created_at":   order.CreatedAt,
			"updated_at":   order.UpdatedAt,
			"quote_number": quote.QuoteNumber,
		})
	}
}

func patchQuoteStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported status"})
			return
		}
		quote, err := models.UpdateQuoteStatus(c.Request.Context(), id, body.Status)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}
