package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"floorsync-system/internal/services/coordinator"
)

type InventoryHTTPHandler struct {
	floor *coordinator.Coordinator
}

func NewInventoryHTTPHandler(floor *coordinator.Coordinator) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{floor: floor}
}

type CreateInventoryItemRequest struct {
	RestaurantID string           `json:"restaurantId"`
	Name         string           `json:"name" binding:"required"`
	Unit         string           `json:"unit" binding:"required"`
	CurrentStock decimal.Decimal  `json:"currentStock"`
	MinStock     decimal.Decimal  `json:"minStock"`
	MaxStock     *decimal.Decimal `json:"maxStock,omitempty"`
	CostPerUnit  decimal.Decimal  `json:"costPerUnit"`
	Supplier     *string          `json:"supplier,omitempty"`
	Category     *string          `json:"category,omitempty"`
}

type UpdateInventoryItemRequest struct {
	Name        *string          `json:"name,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	MinStock    *decimal.Decimal `json:"minStock,omitempty"`
	MaxStock    *decimal.Decimal `json:"maxStock,omitempty"`
	CostPerUnit *decimal.Decimal `json:"costPerUnit,omitempty"`
	Supplier    *string          `json:"supplier,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

type AdjustStockRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
	Reason   *string          `json:"reason,omitempty"`
}

func (h *InventoryHTTPHandler) CreateItem(c *gin.Context) {
	var req CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rid, ok := ownRestaurant(c, req.RestaurantID)
	if !ok {
		return
	}
	item, _, err := h.floor.CreateInventoryItem(c.Request.Context(), coordinator.InventoryItemInput{
		RestaurantID: rid,
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		CostPerUnit:  req.CostPerUnit,
		Supplier:     req.Supplier,
		Category:     req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, item)
}

func (h *InventoryHTTPHandler) ListItems(c *gin.Context) {
	items, err := h.floor.ListInventory(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, items)
}

func (h *InventoryHTTPHandler) ListLowStock(c *gin.Context) {
	items, err := h.floor.ListLowStock(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, items)
}

func (h *InventoryHTTPHandler) GetItem(c *gin.Context) {
	item, err := h.floor.GetInventoryItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *InventoryHTTPHandler) UpdateItem(c *gin.Context) {
	var req UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	item, _, err := h.floor.UpdateInventoryItem(c.Request.Context(), c.Param("id"), coordinator.InventoryItemUpdate{
		Name:        req.Name,
		Unit:        req.Unit,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		CostPerUnit: req.CostPerUnit,
		Supplier:    req.Supplier,
		Category:    req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *InventoryHTTPHandler) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	item, _, err := h.floor.AdjustStock(c.Request.Context(), c.Param("id"), *req.Quantity, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *InventoryHTTPHandler) ArchiveItem(c *gin.Context) {
	id := c.Param("id")
	it, err := h.floor.GetInventoryItem(c.Request.Context(), id)
	if !owned(c, err, it.RestaurantID, "inventory item", id) {
		return
	}
	item, err := h.floor.ArchiveInventoryItem(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *InventoryHTTPHandler) ListTransactions(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		badRequest(c, "Invalid limit")
		return
	}
	entries, err := h.floor.ListInventoryTransactions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, entries)
}
