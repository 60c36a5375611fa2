// Package memstore is an in-process store.Store. Row locks are keyed
// mutexes held until the transaction ends; writes are staged per
// transaction and applied atomically on commit.
//
// Values handed out are copies, but pointer fields still share their
// targets with the stored row. Callers replace pointers rather than
// writing through them.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type state struct {
	tables    map[string]models.Table
	menu      map[string]models.MenuItem
	menuCats  map[string]models.MenuCategory
	orders    map[string]models.Order
	items     map[string]models.OrderItem
	payments  map[string]models.Payment
	inventory map[string]models.InventoryItem
	employees map[string]models.Employee
	shifts    map[string]models.Shift
}

func newState() state {
	return state{
		tables:    map[string]models.Table{},
		menu:      map[string]models.MenuItem{},
		menuCats:  map[string]models.MenuCategory{},
		orders:    map[string]models.Order{},
		items:     map[string]models.OrderItem{},
		payments:  map[string]models.Payment{},
		inventory: map[string]models.InventoryItem{},
		employees: map[string]models.Employee{},
		shifts:    map[string]models.Shift{},
	}
}

type Store struct {
	mu     sync.RWMutex
	data   state
	ledger []models.InventoryTransaction

	locks *keyedMutex

	clockMu sync.Mutex
	last    time.Time
}

func New() *Store {
	return &Store{
		data:  newState(),
		locks: newKeyedMutex(),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

// now returns strictly increasing timestamps so insertion order survives
// sorting by CreatedAt.
func (s *Store) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) Tx(ctx context.Context, fn func(store.Tx) error) (err error) {
	t := &tx{
		s:      s,
		ctx:    ctx,
		staged: newState(),
		held:   map[string]struct{}{},
	}
	defer t.release()

	if err = fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range t.staged.employees {
		for otherID, other := range s.data.employees {
			if otherID != id && strings.EqualFold(other.Email, e.Email) {
				return domain.Conflict(domain.ErrEmailTaken.Code, "email %s is already registered", e.Email)
			}
		}
	}

	apply(s.data.tables, t.staged.tables)
	apply(s.data.menu, t.staged.menu)
	apply(s.data.menuCats, t.staged.menuCats)
	apply(s.data.orders, t.staged.orders)
	apply(s.data.items, t.staged.items)
	apply(s.data.payments, t.staged.payments)
	apply(s.data.inventory, t.staged.inventory)
	apply(s.data.employees, t.staged.employees)
	apply(s.data.shifts, t.staged.shifts)
	s.ledger = append(s.ledger, t.ledger...)
	return nil
}

func apply[T any](dst, src map[string]T) {
	for id, v := range src {
		dst[id] = v
	}
}

type tx struct {
	s      *Store
	ctx    context.Context
	staged state
	ledger []models.InventoryTransaction
	held   map[string]struct{}
	order  []string
}

var _ store.Tx = (*tx)(nil)

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.unlock(t.order[i])
	}
	t.order = nil
}

func (t *tx) Context() context.Context { return t.ctx }

func (t *tx) Lock(entity store.Entity, id string) error {
	key := string(entity) + "/" + id
	if _, ok := t.held[key]; ok {
		return nil
	}
	if !t.exists(entity, id) {
		return domain.NotFound(string(entity), id)
	}
	if err := t.s.locks.lock(t.ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *tx) exists(entity store.Entity, id string) bool {
	var ok bool
	switch entity {
	case store.EntityTable:
		_, ok = lookup(t, t.s.data.tables, t.staged.tables, id)
	case store.EntityMenuItem:
		_, ok = lookup(t, t.s.data.menu, t.staged.menu, id)
	case store.EntityMenuCategory:
		_, ok = lookup(t, t.s.data.menuCats, t.staged.menuCats, id)
	case store.EntityOrder:
		_, ok = lookup(t, t.s.data.orders, t.staged.orders, id)
	case store.EntityOrderItem:
		_, ok = lookup(t, t.s.data.items, t.staged.items, id)
	case store.EntityPayment:
		_, ok = lookup(t, t.s.data.payments, t.staged.payments, id)
	case store.EntityInventoryItem:
		_, ok = lookup(t, t.s.data.inventory, t.staged.inventory, id)
	case store.EntityEmployee:
		_, ok = lookup(t, t.s.data.employees, t.staged.employees, id)
	case store.EntityShift:
		_, ok = lookup(t, t.s.data.shifts, t.staged.shifts, id)
	}
	return ok
}

func lookup[T any](t *tx, committed, staged map[string]T, id string) (T, bool) {
	if v, ok := staged[id]; ok {
		return v, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := committed[id]
	return v, ok
}

func get[T any](t *tx, committed, staged map[string]T, entity store.Entity, id string) (T, error) {
	v, ok := lookup(t, committed, staged, id)
	if !ok {
		return v, domain.NotFound(string(entity), id)
	}
	return v, nil
}

// merged returns every row visible to the transaction that keep accepts.
func merged[T any](t *tx, committed, staged map[string]T, keep func(T) bool) []T {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]T, 0)
	for id, v := range committed {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	for _, v := range staged {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// Tables

func (t *tx) GetTable(id string) (models.Table, error) {
	return get(t, t.s.data.tables, t.staged.tables, store.EntityTable, id)
}

func (t *tx) ListTables(f store.TableFilter) ([]models.Table, error) {
	out := merged(t, t.s.data.tables, t.staged.tables, func(tb models.Table) bool {
		return (f.RestaurantID == "" || tb.RestaurantID == f.RestaurantID) &&
			(f.FloorPlanID == "" || tb.FloorPlanID == f.FloorPlanID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (t *tx) CreateTable(tb *models.Table) error {
	tb.ID = newID(tb.ID)
	tb.CreatedAt = t.s.now()
	tb.UpdatedAt = tb.CreatedAt
	t.staged.tables[tb.ID] = *tb
	return nil
}

func (t *tx) SaveTable(tb *models.Table) error {
	if _, err := t.GetTable(tb.ID); err != nil {
		return err
	}
	tb.UpdatedAt = t.s.now()
	t.staged.tables[tb.ID] = *tb
	return nil
}

// Menu

func (t *tx) GetMenuItem(id string) (models.MenuItem, error) {
	return get(t, t.s.data.menu, t.staged.menu, store.EntityMenuItem, id)
}

func (t *tx) ListMenuItems(restaurantID string) ([]models.MenuItem, error) {
	out := merged(t, t.s.data.menu, t.staged.menu, func(m models.MenuItem) bool {
		return m.RestaurantID == restaurantID && m.ArchivedAt == nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) CreateMenuItem(m *models.MenuItem) error {
	m.ID = newID(m.ID)
	m.CreatedAt = t.s.now()
	m.UpdatedAt = m.CreatedAt
	t.staged.menu[m.ID] = *m
	return nil
}

func (t *tx) SaveMenuItem(m *models.MenuItem) error {
	if _, err := t.GetMenuItem(m.ID); err != nil {
		return err
	}
	m.UpdatedAt = t.s.now()
	t.staged.menu[m.ID] = *m
	return nil
}

func (t *tx) GetMenuCategory(id string) (models.MenuCategory, error) {
	return get(t, t.s.data.menuCats, t.staged.menuCats, store.EntityMenuCategory, id)
}

func (t *tx) ListMenuCategories(restaurantID string) ([]models.MenuCategory, error) {
	out := merged(t, t.s.data.menuCats, t.staged.menuCats, func(mc models.MenuCategory) bool {
		return mc.RestaurantID == restaurantID && mc.ArchivedAt == nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (t *tx) CreateMenuCategory(mc *models.MenuCategory) error {
	mc.ID = newID(mc.ID)
	mc.CreatedAt = t.s.now()
	mc.UpdatedAt = mc.CreatedAt
	t.staged.menuCats[mc.ID] = *mc
	return nil
}

func (t *tx) SaveMenuCategory(mc *models.MenuCategory) error {
	if _, err := t.GetMenuCategory(mc.ID); err != nil {
		return err
	}
	mc.UpdatedAt = t.s.now()
	t.staged.menuCats[mc.ID] = *mc
	return nil
}

// Orders

func (t *tx) GetOrder(id string) (models.Order, error) {
	o, err := get(t, t.s.data.orders, t.staged.orders, store.EntityOrder, id)
	if err != nil {
		return o, err
	}
	return t.hydrate(o), nil
}

func (t *tx) hydrate(o models.Order) models.Order {
	if tb, ok := lookup(t, t.s.data.tables, t.staged.tables, o.TableID); ok {
		o.Table = &tb
	}
	o.Items = merged(t, t.s.data.items, t.staged.items, func(it models.OrderItem) bool {
		return it.OrderID == o.ID
	})
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].CreatedAt.Before(o.Items[j].CreatedAt) })
	for i := range o.Items {
		if m, ok := lookup(t, t.s.data.menu, t.staged.menu, o.Items[i].MenuItemID); ok {
			o.Items[i].MenuItem = &m
		}
	}
	o.Payments = merged(t, t.s.data.payments, t.staged.payments, func(p models.Payment) bool {
		return p.OrderID == o.ID
	})
	sortPayments(o.Payments)
	return o
}

func (t *tx) ListOrders(f store.OrderFilter) ([]models.Order, error) {
	var tableIDs map[string]bool
	if f.RestaurantID != "" {
		tables, _ := t.ListTables(store.TableFilter{RestaurantID: f.RestaurantID})
		tableIDs = make(map[string]bool, len(tables))
		for _, tb := range tables {
			tableIDs[tb.ID] = true
		}
	}
	rows := merged(t, t.s.data.orders, t.staged.orders, func(o models.Order) bool {
		if f.TableID != "" && o.TableID != f.TableID {
			return false
		}
		if tableIDs != nil && !tableIDs[o.TableID] {
			return false
		}
		return len(f.Statuses) == 0 || hasStatus(f.Statuses, o.Status)
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	for i := range rows {
		rows[i] = t.hydrate(rows[i])
	}
	return rows, nil
}

func hasStatus(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (t *tx) CreateOrder(o *models.Order) error {
	o.ID = newID(o.ID)
	o.CreatedAt = t.s.now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	if err := t.AddOrderItems(o.Items); err != nil {
		return err
	}
	t.staged.orders[o.ID] = stripOrder(*o)
	return nil
}

func stripOrder(o models.Order) models.Order {
	o.Table = nil
	o.Items = nil
	o.Payments = nil
	return o
}

func (t *tx) SaveOrder(o *models.Order) error {
	if _, err := get(t, t.s.data.orders, t.staged.orders, store.EntityOrder, o.ID); err != nil {
		return err
	}
	o.UpdatedAt = t.s.now()
	t.staged.orders[o.ID] = stripOrder(*o)
	return nil
}

func (t *tx) AddOrderItems(items []models.OrderItem) error {
	for i := range items {
		it := &items[i]
		it.ID = newID(it.ID)
		it.CreatedAt = t.s.now()
		it.UpdatedAt = it.CreatedAt
		row := *it
		row.MenuItem = nil
		t.staged.items[it.ID] = row
	}
	return nil
}

func (t *tx) GetOrderItem(id string) (models.OrderItem, error) {
	it, err := get(t, t.s.data.items, t.staged.items, store.EntityOrderItem, id)
	if err != nil {
		return it, err
	}
	if m, ok := lookup(t, t.s.data.menu, t.staged.menu, it.MenuItemID); ok {
		it.MenuItem = &m
	}
	return it, nil
}

func (t *tx) SaveOrderItem(it *models.OrderItem) error {
	if _, err := get(t, t.s.data.items, t.staged.items, store.EntityOrderItem, it.ID); err != nil {
		return err
	}
	it.UpdatedAt = t.s.now()
	row := *it
	row.MenuItem = nil
	t.staged.items[it.ID] = row
	return nil
}

func (t *tx) HasActiveOrder(tableID, excludeOrderID string) (bool, error) {
	active := merged(t, t.s.data.orders, t.staged.orders, func(o models.Order) bool {
		return o.TableID == tableID && o.ID != excludeOrderID && !o.Status.Terminal()
	})
	return len(active) > 0, nil
}

// Payments

func (t *tx) GetPayment(id string) (models.Payment, error) {
	return get(t, t.s.data.payments, t.staged.payments, store.EntityPayment, id)
}

func (t *tx) ListPayments(orderID string) ([]models.Payment, error) {
	out := merged(t, t.s.data.payments, t.staged.payments, func(p models.Payment) bool {
		return p.OrderID == orderID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func sortPayments(ps []models.Payment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}

func (t *tx) CreatePayment(p *models.Payment) error {
	p.ID = newID(p.ID)
	p.CreatedAt = t.s.now()
	p.UpdatedAt = p.CreatedAt
	t.staged.payments[p.ID] = *p
	return nil
}

func (t *tx) SavePayment(p *models.Payment) error {
	if _, err := t.GetPayment(p.ID); err != nil {
		return err
	}
	p.UpdatedAt = t.s.now()
	t.staged.payments[p.ID] = *p
	return nil
}

// Inventory

func (t *tx) GetInventoryItem(id string) (models.InventoryItem, error) {
	return get(t, t.s.data.inventory, t.staged.inventory, store.EntityInventoryItem, id)
}

func (t *tx) ListInventoryItems(restaurantID string) ([]models.InventoryItem, error) {
	out := merged(t, t.s.data.inventory, t.staged.inventory, func(i models.InventoryItem) bool {
		return i.RestaurantID == restaurantID && i.ArchivedAt == nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *tx) ListLowStock(restaurantID string) ([]models.InventoryItem, error) {
	out := merged(t, t.s.data.inventory, t.staged.inventory, func(i models.InventoryItem) bool {
		return i.RestaurantID == restaurantID && i.ArchivedAt == nil &&
			i.CurrentStock.LessThanOrEqual(i.MinStock)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentStock.LessThan(out[j].CurrentStock) })
	return out, nil
}

func (t *tx) CreateInventoryItem(item *models.InventoryItem) error {
	item.ID = newID(item.ID)
	item.CreatedAt = t.s.now()
	item.UpdatedAt = item.CreatedAt
	t.staged.inventory[item.ID] = *item
	return nil
}

func (t *tx) SaveInventoryItem(item *models.InventoryItem) error {
	if _, err := t.GetInventoryItem(item.ID); err != nil {
		return err
	}
	item.UpdatedAt = t.s.now()
	t.staged.inventory[item.ID] = *item
	return nil
}

func (t *tx) AppendInventoryTransaction(entry *models.InventoryTransaction) error {
	entry.ID = newID(entry.ID)
	entry.CreatedAt = t.s.now()
	t.ledger = append(t.ledger, *entry)
	return nil
}

func (t *tx) ListInventoryTransactions(itemID string, limit int) ([]models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = store.DefaultTransactionLimit
	}
	t.s.mu.RLock()
	all := make([]models.InventoryTransaction, 0, len(t.s.ledger)+len(t.ledger))
	all = append(all, t.s.ledger...)
	t.s.mu.RUnlock()
	all = append(all, t.ledger...)

	out := make([]models.InventoryTransaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].InventoryItemID == itemID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Employees

func (t *tx) GetEmployee(id string) (models.Employee, error) {
	return get(t, t.s.data.employees, t.staged.employees, store.EntityEmployee, id)
}

func (t *tx) FindEmployeeByEmail(email string) (models.Employee, error) {
	found := merged(t, t.s.data.employees, t.staged.employees, func(e models.Employee) bool {
		return strings.EqualFold(e.Email, email)
	})
	if len(found) == 0 {
		return models.Employee{}, domain.NotFound(string(store.EntityEmployee), email)
	}
	return found[0], nil
}

func (t *tx) ListEmployees(restaurantID string) ([]models.Employee, error) {
	out := merged(t, t.s.data.employees, t.staged.employees, func(e models.Employee) bool {
		return e.RestaurantID == restaurantID
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (t *tx) CreateEmployee(e *models.Employee) error {
	if _, err := t.FindEmployeeByEmail(e.Email); err == nil {
		return domain.Conflict(domain.ErrEmailTaken.Code, "email %s is already registered", e.Email)
	}
	e.ID = newID(e.ID)
	e.CreatedAt = t.s.now()
	e.UpdatedAt = e.CreatedAt
	t.staged.employees[e.ID] = *e
	return nil
}

func (t *tx) SaveEmployee(e *models.Employee) error {
	if _, err := t.GetEmployee(e.ID); err != nil {
		return err
	}
	e.UpdatedAt = t.s.now()
	t.staged.employees[e.ID] = *e
	return nil
}

func (t *tx) FindOpenShift(employeeID string) (models.Shift, error) {
	open := merged(t, t.s.data.shifts, t.staged.shifts, func(s models.Shift) bool {
		return s.EmployeeID == employeeID && s.Open()
	})
	if len(open) == 0 {
		return models.Shift{}, domain.NotFound(string(store.EntityShift), "open shift for "+employeeID)
	}
	return open[0], nil
}

func (t *tx) ListShifts(f store.ShiftFilter) ([]models.Shift, error) {
	out := merged(t, t.s.data.shifts, t.staged.shifts, func(s models.Shift) bool {
		if s.EmployeeID != f.EmployeeID {
			return false
		}
		if f.From != nil && s.ClockIn.Before(*f.From) {
			return false
		}
		return f.To == nil || !s.ClockIn.After(*f.To)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.After(out[j].ClockIn) })
	return out, nil
}

func (t *tx) ListOpenShifts(restaurantID string) ([]models.Shift, error) {
	open := merged(t, t.s.data.shifts, t.staged.shifts, func(s models.Shift) bool { return s.Open() })
	out := open[:0]
	for _, s := range open {
		e, ok := lookup(t, t.s.data.employees, t.staged.employees, s.EmployeeID)
		if !ok || e.RestaurantID != restaurantID {
			continue
		}
		s.Employee = &e
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

func (t *tx) CreateShift(s *models.Shift) error {
	s.ID = newID(s.ID)
	s.CreatedAt = t.s.now()
	s.UpdatedAt = s.CreatedAt
	row := *s
	row.Employee = nil
	t.staged.shifts[s.ID] = row
	return nil
}

func (t *tx) SaveShift(s *models.Shift) error {
	if _, err := get(t, t.s.data.shifts, t.staged.shifts, store.EntityShift, s.ID); err != nil {
		return err
	}
	s.UpdatedAt = t.s.now()
	row := *s
	row.Employee = nil
	t.staged.shifts[s.ID] = row
	return nil
}
