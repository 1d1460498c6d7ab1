package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		row, err := models.GetOrderRow(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func patchOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		var patch workflow.OrderPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "ProcessOrderStatusChange")
		defer span.End()
		result, err := workflow.ProcessOrderStatusChange(ctx, id, &patch)
		if err != nil {
			jsonError(c, err)
			return
		}
		if result.Warning != "" {
			// advisory-phase problems are surfaced out-of-band, never as a
			// failed status transition
			c.Header("x-bookkeeping-warning", result.Warning)
		}
		c.JSON(http.StatusOK, result.Order)
	}
}

func searchJobsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		open := strings.ToLower(c.Query("open"))
		openOnly := open == "1" || open == "true" || open == "yes"
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

		rows, err := models.SearchJobs(c.Request.Context(), q, openOnly, limit)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func listOrderMaterialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			jsonError(c, err)
			return
		}
		if order.JobNumber == nil || *order.JobNumber == "" {
			// nothing allocated if no job_number yet
			c.JSON(http.StatusOK, []models.JobAllocationRow{})
			return
		}
		rows, err := models.ListJobAllocations(c.Request.Context(), *order.JobNumber)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

type returnMaterialRequest struct {
	AllocationId *int             `json:"allocation_id"`
	Qty          *decimal.Decimal `json:"qty"`
}

func returnMaterialHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var req returnMaterialRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.AllocationId == nil || req.Qty == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid allocation/material or qty"})
			return
		}

		// allocation_id is a material id: the allocation table groups by material
		result, err := models.ReturnMaterial(c.Request.Context(), id, *req.AllocationId, *req.Qty)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
