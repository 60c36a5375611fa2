package handlers

import (
	"github.com/gin-gonic/gin"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/services/coordinator"
)

type OrderHTTPHandler struct {
	floor *coordinator.Coordinator
}

func NewOrderHTTPHandler(floor *coordinator.Coordinator) *OrderHTTPHandler {
	return &OrderHTTPHandler{floor: floor}
}

type OrderItemRequest struct {
	MenuItemID string      `json:"menuItemId" binding:"required"`
	Quantity   int         `json:"quantity" binding:"required,min=1"`
	Notes      *string     `json:"notes,omitempty"`
	Modifiers  models.JSON `json:"modifiers,omitempty"`
}

type CreateOrderRequest struct {
	TableID    string             `json:"tableId" binding:"required"`
	CustomerID *string            `json:"customerId,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type AddItemsRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

func toItemInputs(items []OrderItemRequest) []coordinator.OrderItemInput {
	out := make([]coordinator.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = coordinator.OrderItemInput{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
			Modifiers:  it.Modifiers,
		}
	}
	return out
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	order, _, err := h.floor.CreateOrder(c.Request.Context(), coordinator.CreateOrderInput{
		TableID:    req.TableID,
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		Items:      toItemInputs(req.Items),
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, order)
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	order, err := h.floor.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHTTPHandler) GetOrderTotal(c *gin.Context) {
	totals, err := h.floor.GetOrderTotal(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, totals)
}

func (h *OrderHTTPHandler) ListActiveOrders(c *gin.Context) {
	orders, err := h.floor.ListActiveOrders(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, orders)
}

func (h *OrderHTTPHandler) AddItems(c *gin.Context) {
	var req AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	order, _, err := h.floor.AddItemsToOrder(c.Request.Context(), c.Param("id"), toItemInputs(req.Items))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHTTPHandler) SetOrderStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	order, _, err := h.floor.SetOrderStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHTTPHandler) CompleteOrder(c *gin.Context) {
	order, _, err := h.floor.CompleteOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHTTPHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	order, _, err := h.floor.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, order)
}

func (h *OrderHTTPHandler) SetItemStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	status, err := domain.ParseItemStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	item, _, err := h.floor.SetOrderItemStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}
