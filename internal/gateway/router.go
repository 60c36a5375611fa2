// Package gateway assembles the HTTP surface of the floor service.
package gateway

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/gateway/handlers"
	"floorsync-system/internal/gateway/middleware"
	"floorsync-system/internal/gateway/ws"
	"floorsync-system/internal/health"
	"floorsync-system/internal/logger"
	"floorsync-system/internal/realtime"
	"floorsync-system/internal/services/coordinator"
	"floorsync-system/internal/utils"
)

type Deps struct {
	Floor       *coordinator.Coordinator
	Tokens      *utils.TokenIssuer
	Registry    *realtime.Registry
	Health      *health.Monitor
	Logger      *slog.Logger
	CORSOrigins []string
	RateLimit   string
}

func NewRouter(d Deps) (*gin.Engine, error) {
	binding.EnableDecoderDisallowUnknownFields = true

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(logger.RequestLogger(d.Logger))
	if d.RateLimit != "" {
		limit, err := middleware.RateLimit(d.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	if d.Health != nil {
		r.GET("/health", d.Health.Handler())
		r.GET("/health/detailed", d.Health.DetailedHandler())
	}

	tables := handlers.NewTableHTTPHandler(d.Floor)
	menu := handlers.NewMenuHTTPHandler(d.Floor)
	orders := handlers.NewOrderHTTPHandler(d.Floor)
	payments := handlers.NewPaymentHTTPHandler(d.Floor)
	inventory := handlers.NewInventoryHTTPHandler(d.Floor)
	employees := handlers.NewEmployeeHTTPHandler(d.Floor, d.Tokens)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	public.POST("/auth/login", employees.Login)

	// The websocket handshake authenticates itself.
	r.GET("/ws", ws.NewHandler(d.Registry, d.CORSOrigins, d.Logger).Serve)

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(d.Tokens), middleware.TenantScope())
	{
		t := protected.Group("/tables")
		t.POST("", tables.CreateTable)
		t.GET("", tables.ListTables)
		t.PUT("/positions", tables.UpdatePositions)
		t.GET("/:id", tables.GetTable)
		t.PUT("/:id", tables.UpdateTable)
		t.PATCH("/:id/status", tables.SetStatus)
		t.GET("/:id/orders", tables.ListTableOrders)

		managers := middleware.RequireRole(domain.RoleAdmin, domain.RoleManager)

		m := protected.Group("/menu-items")
		m.POST("", menu.CreateMenuItem)
		m.GET("", menu.ListMenu)
		m.GET("/:id", menu.GetMenuItem)
		m.PUT("/:id", menu.UpdateMenuItem)
		m.DELETE("/:id", managers, menu.ArchiveMenuItem)

		mc := protected.Group("/menu-categories")
		mc.POST("", managers, menu.CreateMenuCategory)
		mc.GET("", menu.ListMenuCategories)
		mc.PUT("/:id", managers, menu.UpdateMenuCategory)
		mc.DELETE("/:id", managers, menu.ArchiveMenuCategory)

		o := protected.Group("/orders")
		o.POST("", orders.CreateOrder)
		o.GET("/active", orders.ListActiveOrders)
		o.GET("/:id", orders.GetOrder)
		o.GET("/:id/total", orders.GetOrderTotal)
		o.POST("/:id/items", orders.AddItems)
		o.PATCH("/:id/status", orders.SetOrderStatus)
		o.POST("/:id/complete", orders.CompleteOrder)
		o.POST("/:id/cancel", orders.CancelOrder)
		o.POST("/:id/split", payments.SplitBill)
		o.GET("/:id/payments", payments.ListPayments)

		protected.PATCH("/order-items/:id/status", orders.SetItemStatus)

		p := protected.Group("/payments")
		p.POST("", payments.CreatePayment)
		p.POST("/intent", payments.CreatePaymentIntent)
		p.POST("/:id/confirm", payments.ConfirmPayment)
		p.POST("/:id/refund", payments.RefundPayment)

		inv := protected.Group("/inventory")
		inv.POST("", inventory.CreateItem)
		inv.GET("", inventory.ListItems)
		inv.GET("/low-stock", inventory.ListLowStock)
		inv.GET("/:id", inventory.GetItem)
		inv.PUT("/:id", inventory.UpdateItem)
		inv.POST("/:id/adjust", inventory.AdjustStock)
		inv.DELETE("/:id", managers, inventory.ArchiveItem)
		inv.GET("/:id/transactions", inventory.ListTransactions)

		e := protected.Group("/employees")
		e.POST("", managers, employees.CreateEmployee)
		e.GET("", employees.ListEmployees)
		e.GET("/:id", employees.GetEmployee)
		e.PUT("/:id", employees.UpdateEmployee)
		e.DELETE("/:id", managers, employees.DeactivateEmployee)
		e.POST("/:id/clock-in", employees.ClockIn)
		e.POST("/:id/clock-out", employees.ClockOut)
		e.GET("/:id/shifts", employees.ListShifts)

		protected.GET("/shifts/active", employees.ListActiveShifts)
	}
	return r, nil
}
