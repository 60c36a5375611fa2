// Package gormstore is the postgres-backed store.Store. Row locks are
// SELECT ... FOR UPDATE inside the surrounding gorm transaction.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type Store struct {
	db    *gorm.DB
	cache *menuCache
}

// New wraps db. rdb may be nil, in which case menu lookups always hit
// postgres.
func New(db *gorm.DB, rdb *redis.Client) *Store {
	return &Store{db: db, cache: newMenuCache(rdb)}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Tx(ctx context.Context, fn func(store.Tx) error) error {
	t := &tx{ctx: ctx, cache: s.cache}
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		t.db = db
		return fn(t)
	})
	if err != nil {
		return err
	}
	s.cache.evict(ctx, t.evict...)
	return nil
}

var lockTargets = map[store.Entity]interface{}{
	store.EntityPayment:       &models.Payment{},
	store.EntityOrderItem:     &models.OrderItem{},
	store.EntityOrder:         &models.Order{},
	store.EntityTable:         &models.Table{},
	store.EntityEmployee:      &models.Employee{},
	store.EntityInventoryItem: &models.InventoryItem{},
	store.EntityMenuItem:      &models.MenuItem{},
	store.EntityMenuCategory:  &models.MenuCategory{},
	store.EntityShift:         &models.Shift{},
}

type tx struct {
	ctx   context.Context
	db    *gorm.DB
	cache *menuCache
	evict []string
}

var _ store.Tx = (*tx)(nil)

func (t *tx) Context() context.Context { return t.ctx }

func (t *tx) Lock(entity store.Entity, id string) error {
	model, ok := lockTargets[entity]
	if !ok {
		return fmt.Errorf("no lock target for %s", entity)
	}
	var ids []string
	err := t.db.Model(model).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Pluck("id", &ids).Error
	if err != nil {
		return translate(err, entity, id)
	}
	if len(ids) == 0 {
		return domain.NotFound(string(entity), id)
	}
	return nil
}

// translate maps gorm errors onto domain errors at the store boundary.
func translate(err error, entity store.Entity, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(string(entity), id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if entity == store.EntityEmployee {
			return domain.Conflict(domain.ErrEmailTaken.Code, "email is already registered")
		}
		return domain.Conflict("DUPLICATE", "%s %s already exists", entity, id)
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (t *tx) first(dest interface{}, entity store.Entity, id string) error {
	return translate(t.db.First(dest, "id = ?", id).Error, entity, id)
}

func (t *tx) save(row interface{}, entity store.Entity, id string) error {
	res := t.db.Omit(clause.Associations).Save(row)
	if res.Error != nil {
		return translate(res.Error, entity, id)
	}
	return nil
}

// Tables

func (t *tx) GetTable(id string) (models.Table, error) {
	var tb models.Table
	err := t.first(&tb, store.EntityTable, id)
	return tb, err
}

func (t *tx) ListTables(f store.TableFilter) ([]models.Table, error) {
	q := t.db.Model(&models.Table{})
	if f.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}
	if f.FloorPlanID != "" {
		q = q.Where("floor_plan_id = ?", f.FloorPlanID)
	}
	var out []models.Table
	if err := q.Order("number asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) CreateTable(tb *models.Table) error {
	tb.ID = newID(tb.ID)
	return translate(t.db.Create(tb).Error, store.EntityTable, tb.ID)
}

func (t *tx) SaveTable(tb *models.Table) error {
	return t.save(tb, store.EntityTable, tb.ID)
}

// Menu

func (t *tx) GetMenuItem(id string) (models.MenuItem, error) {
	if m, ok := t.cache.get(t.ctx, id); ok {
		return m, nil
	}
	var m models.MenuItem
	if err := t.first(&m, store.EntityMenuItem, id); err != nil {
		return m, err
	}
	t.cache.set(t.ctx, m)
	return m, nil
}

func (t *tx) ListMenuItems(restaurantID string) ([]models.MenuItem, error) {
	var out []models.MenuItem
	err := t.db.Where("restaurant_id = ? AND archived_at IS NULL", restaurantID).Order("name asc").Find(&out).Error
	return out, err
}

func (t *tx) CreateMenuItem(m *models.MenuItem) error {
	m.ID = newID(m.ID)
	return translate(t.db.Create(m).Error, store.EntityMenuItem, m.ID)
}

func (t *tx) SaveMenuItem(m *models.MenuItem) error {
	if err := t.save(m, store.EntityMenuItem, m.ID); err != nil {
		return err
	}
	t.evict = append(t.evict, m.ID)
	return nil
}

func (t *tx) GetMenuCategory(id string) (models.MenuCategory, error) {
	var mc models.MenuCategory
	err := t.first(&mc, store.EntityMenuCategory, id)
	return mc, err
}

func (t *tx) ListMenuCategories(restaurantID string) ([]models.MenuCategory, error) {
	var out []models.MenuCategory
	err := t.db.Where("restaurant_id = ? AND archived_at IS NULL", restaurantID).
		Order("sort_order asc, name asc").
		Find(&out).Error
	return out, err
}

func (t *tx) CreateMenuCategory(mc *models.MenuCategory) error {
	mc.ID = newID(mc.ID)
	return translate(t.db.Create(mc).Error, store.EntityMenuCategory, mc.ID)
}

func (t *tx) SaveMenuCategory(mc *models.MenuCategory) error {
	return t.save(mc, store.EntityMenuCategory, mc.ID)
}

// Orders

func (t *tx) withOrderIncludes(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Items.MenuItem").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") })
}

func (t *tx) GetOrder(id string) (models.Order, error) {
	var o models.Order
	err := t.withOrderIncludes(t.db).First(&o, "id = ?", id).Error
	return o, translate(err, store.EntityOrder, id)
}

func (t *tx) ListOrders(f store.OrderFilter) ([]models.Order, error) {
	q := t.withOrderIncludes(t.db.Model(&models.Order{}))
	if f.RestaurantID != "" {
		q = q.Joins("JOIN floor_tables ON floor_tables.id = orders.table_id").
			Where("floor_tables.restaurant_id = ?", f.RestaurantID)
	}
	if f.TableID != "" {
		q = q.Where("orders.table_id = ?", f.TableID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("orders.status IN ?", f.Statuses)
	}
	var out []models.Order
	if err := q.Order("orders.created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) CreateOrder(o *models.Order) error {
	o.ID = newID(o.ID)
	if err := t.db.Omit(clause.Associations).Create(o).Error; err != nil {
		return translate(err, store.EntityOrder, o.ID)
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	return t.AddOrderItems(o.Items)
}

func (t *tx) SaveOrder(o *models.Order) error {
	return t.save(o, store.EntityOrder, o.ID)
}

func (t *tx) AddOrderItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = newID(items[i].ID)
	}
	return translate(t.db.Omit(clause.Associations).Create(&items).Error, store.EntityOrderItem, items[0].ID)
}

func (t *tx) GetOrderItem(id string) (models.OrderItem, error) {
	var it models.OrderItem
	err := t.db.Preload("MenuItem").First(&it, "id = ?", id).Error
	return it, translate(err, store.EntityOrderItem, id)
}

func (t *tx) SaveOrderItem(it *models.OrderItem) error {
	return t.save(it, store.EntityOrderItem, it.ID)
}

func (t *tx) HasActiveOrder(tableID, excludeOrderID string) (bool, error) {
	q := t.db.Model(&models.Order{}).
		Where("table_id = ? AND status IN ?", tableID, domain.ActiveOrderStatuses)
	if excludeOrderID != "" {
		q = q.Where("id <> ?", excludeOrderID)
	}
	var ids []string
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Payments

func (t *tx) GetPayment(id string) (models.Payment, error) {
	var p models.Payment
	err := t.first(&p, store.EntityPayment, id)
	return p, err
}

func (t *tx) ListPayments(orderID string) ([]models.Payment, error) {
	var out []models.Payment
	err := t.db.Where("order_id = ?", orderID).Order("created_at desc").Find(&out).Error
	return out, err
}

func (t *tx) CreatePayment(p *models.Payment) error {
	p.ID = newID(p.ID)
	return translate(t.db.Create(p).Error, store.EntityPayment, p.ID)
}

func (t *tx) SavePayment(p *models.Payment) error {
	return t.save(p, store.EntityPayment, p.ID)
}

// Inventory

func (t *tx) GetInventoryItem(id string) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := t.first(&item, store.EntityInventoryItem, id)
	return item, err
}

func (t *tx) ListInventoryItems(restaurantID string) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	err := t.db.Where("restaurant_id = ? AND archived_at IS NULL", restaurantID).Order("name asc").Find(&out).Error
	return out, err
}

func (t *tx) ListLowStock(restaurantID string) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	err := t.db.
		Where("restaurant_id = ? AND archived_at IS NULL AND current_stock <= min_stock", restaurantID).
		Order("current_stock asc").
		Find(&out).Error
	return out, err
}

func (t *tx) CreateInventoryItem(item *models.InventoryItem) error {
	item.ID = newID(item.ID)
	return translate(t.db.Create(item).Error, store.EntityInventoryItem, item.ID)
}

func (t *tx) SaveInventoryItem(item *models.InventoryItem) error {
	return t.save(item, store.EntityInventoryItem, item.ID)
}

func (t *tx) AppendInventoryTransaction(entry *models.InventoryTransaction) error {
	entry.ID = newID(entry.ID)
	return translate(t.db.Create(entry).Error, store.EntityInventoryItem, entry.InventoryItemID)
}

func (t *tx) ListInventoryTransactions(itemID string, limit int) ([]models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = store.DefaultTransactionLimit
	}
	var out []models.InventoryTransaction
	err := t.db.Where("inventory_item_id = ?", itemID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Employees

func (t *tx) GetEmployee(id string) (models.Employee, error) {
	var e models.Employee
	err := t.first(&e, store.EntityEmployee, id)
	return e, err
}

func (t *tx) FindEmployeeByEmail(email string) (models.Employee, error) {
	var e models.Employee
	err := t.db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&e).Error
	return e, translate(err, store.EntityEmployee, email)
}

func (t *tx) ListEmployees(restaurantID string) ([]models.Employee, error) {
	var out []models.Employee
	err := t.db.Where("restaurant_id = ?", restaurantID).
		Order("last_name asc, first_name asc").
		Find(&out).Error
	return out, err
}

func (t *tx) CreateEmployee(e *models.Employee) error {
	e.ID = newID(e.ID)
	return translate(t.db.Create(e).Error, store.EntityEmployee, e.ID)
}

func (t *tx) SaveEmployee(e *models.Employee) error {
	return t.save(e, store.EntityEmployee, e.ID)
}

func (t *tx) FindOpenShift(employeeID string) (models.Shift, error) {
	var s models.Shift
	err := t.db.Where("employee_id = ? AND clock_out IS NULL", employeeID).First(&s).Error
	return s, translate(err, store.EntityShift, "open shift for "+employeeID)
}

func (t *tx) ListShifts(f store.ShiftFilter) ([]models.Shift, error) {
	q := t.db.Where("employee_id = ?", f.EmployeeID)
	if f.From != nil {
		q = q.Where("clock_in >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("clock_in <= ?", *f.To)
	}
	var out []models.Shift
	if err := q.Order("clock_in desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) ListOpenShifts(restaurantID string) ([]models.Shift, error) {
	var out []models.Shift
	err := t.db.Preload("Employee").
		Joins("JOIN employees ON employees.id = shifts.employee_id").
		Where("employees.restaurant_id = ? AND shifts.clock_out IS NULL", restaurantID).
		Order("shifts.clock_in asc").
		Find(&out).Error
	return out, err
}

func (t *tx) CreateShift(s *models.Shift) error {
	s.ID = newID(s.ID)
	return translate(t.db.Omit(clause.Associations).Create(s).Error, store.EntityShift, s.ID)
}

func (t *tx) SaveShift(s *models.Shift) error {
	return t.save(s, store.EntityShift, s.ID)
}
