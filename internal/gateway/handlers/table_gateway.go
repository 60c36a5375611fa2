package handlers

import (
	"github.com/gin-gonic/gin"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/services/coordinator"
	"floorsync-system/internal/store"
)

type TableHTTPHandler struct {
	floor *coordinator.Coordinator
}

func NewTableHTTPHandler(floor *coordinator.Coordinator) *TableHTTPHandler {
	return &TableHTTPHandler{floor: floor}
}

type CreateTableRequest struct {
	RestaurantID string  `json:"restaurantId"`
	FloorPlanID  string  `json:"floorPlanId" binding:"required"`
	Number       string  `json:"number" binding:"required"`
	Capacity     int     `json:"capacity" binding:"required,min=1"`
	MinCapacity  int     `json:"minCapacity" binding:"omitempty,min=1"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width" binding:"omitempty,min=0"`
	Height       float64 `json:"height" binding:"omitempty,min=0"`
	Shape        string  `json:"shape" binding:"omitempty,oneof=RECTANGLE SQUARE CIRCLE OVAL rectangle square circle oval"`
	Section      *string `json:"section,omitempty"`
}

type UpdateTableRequest struct {
	Number      *string  `json:"number,omitempty"`
	Capacity    *int     `json:"capacity,omitempty" binding:"omitempty,min=1"`
	MinCapacity *int     `json:"minCapacity,omitempty" binding:"omitempty,min=1"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Shape       *string  `json:"shape,omitempty"`
	Section     *string  `json:"section,omitempty"`
}

type TablePositionRequest struct {
	ID string  `json:"id" binding:"required"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type UpdatePositionsRequest struct {
	Tables []TablePositionRequest `json:"tables" binding:"required,min=1,dive"`
}

type TableStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TableHTTPHandler) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rid, ok := ownRestaurant(c, req.RestaurantID)
	if !ok {
		return
	}
	table, _, err := h.floor.CreateTable(c.Request.Context(), coordinator.TableInput{
		RestaurantID: rid,
		FloorPlanID:  req.FloorPlanID,
		Number:       req.Number,
		Capacity:     req.Capacity,
		MinCapacity:  req.MinCapacity,
		X:            req.X,
		Y:            req.Y,
		Width:        req.Width,
		Height:       req.Height,
		Shape:        req.Shape,
		Section:      req.Section,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, table)
}

func (h *TableHTTPHandler) ListTables(c *gin.Context) {
	tables, err := h.floor.ListTables(c.Request.Context(), store.TableFilter{
		RestaurantID: restaurantID(c),
		FloorPlanID:  c.Query("floorPlanId"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, tables)
}

func (h *TableHTTPHandler) GetTable(c *gin.Context) {
	table, err := h.floor.GetTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, table)
}

func (h *TableHTTPHandler) UpdateTable(c *gin.Context) {
	var req UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	table, _, err := h.floor.UpdateTable(c.Request.Context(), c.Param("id"), coordinator.TableUpdate{
		Number:      req.Number,
		Capacity:    req.Capacity,
		MinCapacity: req.MinCapacity,
		X:           req.X,
		Y:           req.Y,
		Width:       req.Width,
		Height:      req.Height,
		Shape:       req.Shape,
		Section:     req.Section,
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, table)
}

func (h *TableHTTPHandler) UpdatePositions(c *gin.Context) {
	var req UpdatePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	positions := make([]coordinator.TablePosition, len(req.Tables))
	for i, p := range req.Tables {
		positions[i] = coordinator.TablePosition{ID: p.ID, X: p.X, Y: p.Y}
	}
	tables, _, err := h.floor.UpdateTablePositions(c.Request.Context(), positions)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, tables)
}

func (h *TableHTTPHandler) SetStatus(c *gin.Context) {
	var req TableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	status, err := domain.ParseTableStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	table, _, err := h.floor.SetTableStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, table)
}

func (h *TableHTTPHandler) ListTableOrders(c *gin.Context) {
	orders, err := h.floor.ListTableOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, orders)
}
