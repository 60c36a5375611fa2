// Package store defines the transactional record store the floor
// coordinator runs against. Adapters live in the memstore and gormstore
// subpackages.
package store

import (
	"context"
	"time"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
)

type Entity string

const (
	EntityPayment       Entity = "payment"
	EntityOrderItem     Entity = "order item"
	EntityOrder         Entity = "order"
	EntityTable         Entity = "table"
	EntityEmployee      Entity = "employee"
	EntityInventoryItem Entity = "inventory item"
	EntityMenuItem      Entity = "menu item"
	EntityMenuCategory  Entity = "menu category"
	EntityShift         Entity = "shift"
)

// LockRank orders entity locks. A transaction that holds more than one
// lock must take them in ascending rank.
var LockRank = map[Entity]int{
	EntityPayment:       1,
	EntityOrderItem:     2,
	EntityOrder:         3,
	EntityTable:         4,
	EntityEmployee:      5,
	EntityInventoryItem: 6,
	EntityMenuItem:      7,
	EntityMenuCategory:  8,
}

// DefaultTransactionLimit caps inventory history listings when the caller
// gives no limit.
const DefaultTransactionLimit = 50

type Store interface {
	// Tx runs fn inside one transaction. Locks taken through the Tx are
	// held until fn returns; writes become visible only if fn returns nil.
	Tx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

type Tx interface {
	// Lock takes an exclusive lock on one row for the rest of the
	// transaction. A missing row yields a not-found error.
	Lock(entity Entity, id string) error
	// Context is the context the transaction was started with.
	Context() context.Context

	TableRepo
	MenuRepo
	OrderRepo
	PaymentRepo
	InventoryRepo
	EmployeeRepo
}

type TableFilter struct {
	RestaurantID string
	FloorPlanID  string
}

type TableRepo interface {
	GetTable(id string) (models.Table, error)
	ListTables(f TableFilter) ([]models.Table, error)
	CreateTable(t *models.Table) error
	SaveTable(t *models.Table) error
}

type MenuRepo interface {
	GetMenuItem(id string) (models.MenuItem, error)
	// ListMenuItems skips archived items.
	ListMenuItems(restaurantID string) ([]models.MenuItem, error)
	CreateMenuItem(m *models.MenuItem) error
	SaveMenuItem(m *models.MenuItem) error

	GetMenuCategory(id string) (models.MenuCategory, error)
	// ListMenuCategories skips archived categories and sorts by
	// SortOrder, then name.
	ListMenuCategories(restaurantID string) ([]models.MenuCategory, error)
	CreateMenuCategory(mc *models.MenuCategory) error
	SaveMenuCategory(mc *models.MenuCategory) error
}

type OrderFilter struct {
	RestaurantID string
	TableID      string
	Statuses     []domain.OrderStatus
}

type OrderRepo interface {
	// GetOrder loads the order with its table, items (and their menu
	// items) and payments.
	GetOrder(id string) (models.Order, error)
	ListOrders(f OrderFilter) ([]models.Order, error)
	// CreateOrder inserts the order row and every entry of o.Items.
	CreateOrder(o *models.Order) error
	// SaveOrder updates the order row only.
	SaveOrder(o *models.Order) error
	AddOrderItems(items []models.OrderItem) error
	GetOrderItem(id string) (models.OrderItem, error)
	SaveOrderItem(item *models.OrderItem) error
	// HasActiveOrder reports whether any non-terminal order other than
	// excludeOrderID references the table.
	HasActiveOrder(tableID, excludeOrderID string) (bool, error)
}

type PaymentRepo interface {
	GetPayment(id string) (models.Payment, error)
	// ListPayments returns the newest payments first.
	ListPayments(orderID string) ([]models.Payment, error)
	CreatePayment(p *models.Payment) error
	SavePayment(p *models.Payment) error
}

type InventoryRepo interface {
	GetInventoryItem(id string) (models.InventoryItem, error)
	// ListInventoryItems and ListLowStock skip archived items.
	ListInventoryItems(restaurantID string) ([]models.InventoryItem, error)
	// ListLowStock returns items at or below their minimum, lowest first.
	ListLowStock(restaurantID string) ([]models.InventoryItem, error)
	CreateInventoryItem(item *models.InventoryItem) error
	SaveInventoryItem(item *models.InventoryItem) error
	AppendInventoryTransaction(entry *models.InventoryTransaction) error
	// ListInventoryTransactions returns the newest entries first.
	ListInventoryTransactions(itemID string, limit int) ([]models.InventoryTransaction, error)
}

type ShiftFilter struct {
	EmployeeID string
	From       *time.Time
	To         *time.Time
}

type EmployeeRepo interface {
	GetEmployee(id string) (models.Employee, error)
	FindEmployeeByEmail(email string) (models.Employee, error)
	ListEmployees(restaurantID string) ([]models.Employee, error)
	CreateEmployee(e *models.Employee) error
	SaveEmployee(e *models.Employee) error

	FindOpenShift(employeeID string) (models.Shift, error)
	ListShifts(f ShiftFilter) ([]models.Shift, error)
	// ListOpenShifts returns the restaurant's open shifts with employees.
	ListOpenShifts(restaurantID string) ([]models.Shift, error)
	CreateShift(s *models.Shift) error
	SaveShift(s *models.Shift) error
}
