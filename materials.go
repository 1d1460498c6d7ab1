package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/craftline/shopfloor_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// flexibleIdString accepts the material id however the front-end sends it
// (number or string) and normalizes it for the flexible lookup.
func flexibleIdString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		trimmed := strings.TrimSpace(id)
		return trimmed, trimmed != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// parseOptionalDecimal tolerates legacy payloads: absent, null, and "" all
// mean "not provided"; numbers and numeric strings parse.
func parseOptionalDecimal(v interface{}) (*decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case float64:
		d := decimal.NewFromFloat(n)
		return &d, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, false
		}
		return &d, true
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return nil, true
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return nil, false
		}
		return &d, true
	default:
		return nil, false
	}
}

func listMaterialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		materials, err := models.ListMaterials(c.Request.Context())
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, materials)
	}
}

type createMaterialRequest struct {
	// legacy add-stock shape
	MaterialId *int             `json:"materialId"`
	Qty        *decimal.Decimal `json:"qty"`
	// create shape
	Name             string           `json:"name"`
	Sku              *string          `json:"sku"`
	Unit             string           `json:"unit"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	CostPerUnit      *decimal.Decimal `json:"costPerUnit"`
	UnallocatedStock *decimal.Decimal `json:"unallocated_stock"`
	OnHand           *decimal.Decimal `json:"onHand"`
}

func createMaterialHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createMaterialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		// legacy shape: bump stock on an existing material
		if req.MaterialId != nil && req.Qty != nil {
			_, err := models.AddStock(c.Request.Context(), strconv.Itoa(*req.MaterialId), *req.Qty, nil)
			if err != nil {
				jsonError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "action": "add_stock"})
			return
		}

		cost := req.CostPrice
		if cost == nil {
			cost = req.CostPerUnit
		}
		initial := req.UnallocatedStock
		if initial == nil {
			initial = req.OnHand
		}
		material, err := models.CreateMaterial(c.Request.Context(), &models.NewMaterial{
			Name:             req.Name,
			Sku:              req.Sku,
			Unit:             req.Unit,
			CostPrice:        cost,
			UnallocatedStock: initial,
		})
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "action": "create", "material": material})
	}
}

func addStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		id, ok := flexibleIdString(body["id"])
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		delta, ok := parseOptionalDecimal(body["delta"])
		if !ok || delta == nil || !delta.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delta must be a positive number"})
			return
		}

		costInput := body["cost_price"]
		if costInput == nil {
			costInput = body["unit_cost"]
		}
		cost, ok := parseOptionalDecimal(costInput)
		if !ok || (cost != nil && cost.IsNegative()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cost_price must be a non-negative number"})
			return
		}

		material, err := models.AddStock(c.Request.Context(), id, *delta, cost)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, material)
	}
}

func transferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		id, ok := flexibleIdString(body["id"])
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		qty, ok := parseOptionalDecimal(body["qty"])
		if !ok || qty == nil || !qty.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be a positive number"})
			return
		}

		jobRaw := body["job_number"]
		if jobRaw == nil {
			jobRaw = body["jobNumber"]
		}
		job, _ := jobRaw.(string)
		job = strings.TrimSpace(job)
		if job == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "job_number is required"})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "TransferToWip")
		defer span.End()
		material, err := models.TransferToWip(ctx, id, job, *qty)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, material)
	}
}
