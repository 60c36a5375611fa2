package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/gateway/middleware"
	"floorsync-system/internal/services/coordinator"
	"floorsync-system/internal/utils"
)

type EmployeeHTTPHandler struct {
	floor  *coordinator.Coordinator
	tokens *utils.TokenIssuer
}

func NewEmployeeHTTPHandler(floor *coordinator.Coordinator, tokens *utils.TokenIssuer) *EmployeeHTTPHandler {
	return &EmployeeHTTPHandler{floor: floor, tokens: tokens}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Employee  models.Employee `json:"employee"`
}

type CreateEmployeeRequest struct {
	RestaurantID string           `json:"restaurantId"`
	Email        string           `json:"email" binding:"required,email"`
	Password     string           `json:"password" binding:"required,min=8"`
	FirstName    string           `json:"firstName" binding:"required"`
	LastName     string           `json:"lastName" binding:"required"`
	Role         string           `json:"role" binding:"required"`
	HourlyRate   *decimal.Decimal `json:"hourlyRate,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
}

type UpdateEmployeeRequest struct {
	Email      *string          `json:"email,omitempty" binding:"omitempty,email"`
	Password   *string          `json:"password,omitempty" binding:"omitempty,min=8"`
	FirstName  *string          `json:"firstName,omitempty"`
	LastName   *string          `json:"lastName,omitempty"`
	Role       *string          `json:"role,omitempty"`
	HourlyRate *decimal.Decimal `json:"hourlyRate,omitempty"`
	Phone      *string          `json:"phone,omitempty"`
}

// --- Authentication ---

func (h *EmployeeHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	emp, err := h.floor.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, exp, err := h.tokens.GenerateToken(emp.ID, emp.Email, emp.RestaurantID, string(emp.Role))
	if err != nil {
		fail(c, domain.Internal("error generating token", err))
		return
	}
	success(c, LoginResponse{Token: token, ExpiresAt: exp, Employee: emp})
}

// --- Employees ---

func (h *EmployeeHTTPHandler) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	rid, ok := ownRestaurant(c, req.RestaurantID)
	if !ok {
		return
	}
	emp, err := h.floor.CreateEmployee(c.Request.Context(), coordinator.EmployeeInput{
		RestaurantID: rid,
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		HourlyRate:   req.HourlyRate,
		Phone:        req.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, emp)
}

func (h *EmployeeHTTPHandler) ListEmployees(c *gin.Context) {
	emps, err := h.floor.ListEmployees(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, emps)
}

func (h *EmployeeHTTPHandler) GetEmployee(c *gin.Context) {
	emp, err := h.floor.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, emp)
}

// UpdateEmployee lets managers edit any colleague in their restaurant.
// Other staff may only edit their own contact details and password.
func (h *EmployeeHTTPHandler) UpdateEmployee(c *gin.Context) {
	var req UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	id := c.Param("id")
	manager := middleware.HasRole(c, domain.RoleAdmin, domain.RoleManager)
	if !manager {
		claims := middleware.Claims(c)
		if claims == nil || claims.EmployeeID != id {
			middleware.Forbidden(c, "only managers can edit other employees")
			return
		}
		if req.Role != nil || req.HourlyRate != nil {
			middleware.Forbidden(c, "only managers can change role or hourly rate")
			return
		}
	}
	if req.Role != nil && strings.EqualFold(*req.Role, string(domain.RoleAdmin)) && !middleware.HasRole(c, domain.RoleAdmin) {
		middleware.Forbidden(c, "only admins can grant the ADMIN role")
		return
	}
	if !h.inRestaurant(c, id) {
		return
	}
	in := coordinator.EmployeeUpdate{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		HourlyRate: req.HourlyRate,
		Phone:      req.Phone,
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			fail(c, err)
			return
		}
		in.Role = &role
	}
	emp, err := h.floor.UpdateEmployee(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, emp)
}

func (h *EmployeeHTTPHandler) DeactivateEmployee(c *gin.Context) {
	if !h.inRestaurant(c, c.Param("id")) {
		return
	}
	emp, err := h.floor.DeactivateEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, emp)
}

// inRestaurant answers 404 when the employee belongs to another
// restaurant than the caller.
func (h *EmployeeHTTPHandler) inRestaurant(c *gin.Context, id string) bool {
	emp, err := h.floor.GetEmployee(c.Request.Context(), id)
	if err == nil && emp.RestaurantID != restaurantID(c) {
		err = &domain.Error{Kind: domain.KindNotFound, Message: "employee " + id + " not found"}
	}
	if err != nil {
		fail(c, err)
		return false
	}
	return true
}

// --- Shifts ---

func (h *EmployeeHTTPHandler) ClockIn(c *gin.Context) {
	shift, _, err := h.floor.ClockIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	created(c, shift)
}

func (h *EmployeeHTTPHandler) ClockOut(c *gin.Context) {
	shift, _, err := h.floor.ClockOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, shift)
}

func (h *EmployeeHTTPHandler) ListShifts(c *gin.Context) {
	from, err := parseTimeQuery(c, "startDate")
	if err != nil {
		badRequest(c, "Invalid startDate")
		return
	}
	to, err := parseTimeQuery(c, "endDate")
	if err != nil {
		badRequest(c, "Invalid endDate")
		return
	}
	shifts, err := h.floor.ListShifts(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, shifts)
}

func (h *EmployeeHTTPHandler) ListActiveShifts(c *gin.Context) {
	shifts, err := h.floor.ListActiveShifts(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, shifts)
}
