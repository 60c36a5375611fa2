package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"floorsync-system/internal/services/coordinator"
)

type MenuHTTPHandler struct {
	floor *coordinator.Coordinator
}

func NewMenuHTTPHandler(floor *coordinator.Coordinator) *MenuHTTPHandler {
	return &MenuHTTPHandler{floor: floor}
}

type CreateMenuItemRequest struct {
	RestaurantID string           `json:"restaurantId"`
	Name         string           `json:"name" binding:"required"`
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty"`
	CategoryID   *string          `json:"categoryId,omitempty"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	IsAvailable  *bool            `json:"isAvailable,omitempty"`
}

type UpdateMenuItemRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	CategoryID  *string          `json:"categoryId,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	IsAvailable *bool            `json:"isAvailable,omitempty"`
}

type CreateMenuCategoryRequest struct {
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description,omitempty"`
	SortOrder    int     `json:"sortOrder"`
}

type UpdateMenuCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
}

func (h *MenuHTTPHandler) CreateMenuItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rid, ok := ownRestaurant(c, req.RestaurantID)
	if !ok {
		return
	}
	item, err := h.floor.CreateMenuItem(c.Request.Context(), coordinator.MenuItemInput{
		RestaurantID: rid,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		CategoryID:   req.CategoryID,
		Price:        *req.Price,
		IsAvailable:  req.IsAvailable,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, item)
}

func (h *MenuHTTPHandler) ListMenu(c *gin.Context) {
	items, err := h.floor.ListMenu(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, items)
}

func (h *MenuHTTPHandler) GetMenuItem(c *gin.Context) {
	item, err := h.floor.GetMenuItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *MenuHTTPHandler) UpdateMenuItem(c *gin.Context) {
	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	item, err := h.floor.UpdateMenuItem(c.Request.Context(), c.Param("id"), coordinator.MenuItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

func (h *MenuHTTPHandler) ArchiveMenuItem(c *gin.Context) {
	id := c.Param("id")
	m, err := h.floor.GetMenuItem(c.Request.Context(), id)
	if !owned(c, err, m.RestaurantID, "menu item", id) {
		return
	}
	item, err := h.floor.ArchiveMenuItem(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, item)
}

// --- Categories ---

func (h *MenuHTTPHandler) CreateMenuCategory(c *gin.Context) {
	var req CreateMenuCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rid, ok := ownRestaurant(c, req.RestaurantID)
	if !ok {
		return
	}
	mc, err := h.floor.CreateMenuCategory(c.Request.Context(), coordinator.MenuCategoryInput{
		RestaurantID: rid,
		Name:         req.Name,
		Description:  req.Description,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, mc)
}

func (h *MenuHTTPHandler) ListMenuCategories(c *gin.Context) {
	cats, err := h.floor.ListMenuCategories(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, cats)
}

func (h *MenuHTTPHandler) UpdateMenuCategory(c *gin.Context) {
	var req UpdateMenuCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if !h.categoryInRestaurant(c, c.Param("id")) {
		return
	}
	mc, err := h.floor.UpdateMenuCategory(c.Request.Context(), c.Param("id"), coordinator.MenuCategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		fail(c, err)
		return
	}
	success(c, mc)
}

func (h *MenuHTTPHandler) ArchiveMenuCategory(c *gin.Context) {
	if !h.categoryInRestaurant(c, c.Param("id")) {
		return
	}
	mc, err := h.floor.ArchiveMenuCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, mc)
}

func (h *MenuHTTPHandler) categoryInRestaurant(c *gin.Context, id string) bool {
	mc, err := h.floor.GetMenuCategory(c.Request.Context(), id)
	return owned(c, err, mc.RestaurantID, "menu category", id)
}
