package coordinator

import (
	"context"
	"strings"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type OrderItemInput struct {
	MenuItemID string
	Quantity   int
	Notes      *string
	Modifiers  models.JSON
}

type CreateOrderInput struct {
	TableID    string
	CustomerID *string
	Notes      *string
	Items      []OrderItemInput
}

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return domain.Validation("an order needs at least one item")
	}
	for i, it := range items {
		if it.MenuItemID == "" {
			return domain.Validation("item %d: menuItemId is required", i+1)
		}
		if it.Quantity <= 0 {
			return domain.Validation("item %d: quantity must be positive", i+1)
		}
	}
	return nil
}

// buildItems resolves menu entries for new order lines. Every entry must
// belong to the table's restaurant and be available.
func buildItems(tx store.Tx, restaurantID string, in []OrderItemInput) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		menu, err := tx.GetMenuItem(it.MenuItemID)
		if err != nil {
			return nil, err
		}
		if menu.RestaurantID != restaurantID {
			return nil, domain.Validation("menu item %s belongs to another restaurant", menu.ID)
		}
		if menu.ArchivedAt != nil {
			return nil, domain.Archived(string(store.EntityMenuItem), menu.ID)
		}
		if !menu.IsAvailable {
			return nil, domain.Conflict("MENU_ITEM_UNAVAILABLE", "%s is not available", menu.Name)
		}
		items = append(items, models.OrderItem{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Modifiers:  it.Modifiers,
			Notes:      it.Notes,
			Status:     domain.ItemPending,
		})
	}
	return items, nil
}

func restaurantOf(o models.Order) string {
	if o.Table != nil {
		return o.Table.RestaurantID
	}
	return ""
}

// CreateOrder opens an order on a table and seats the table.
func (c *Coordinator) CreateOrder(ctx context.Context, in CreateOrderInput) (models.Order, []domain.Event, error) {
	if err := validateItems(in.Items); err != nil {
		return models.Order{}, nil, err
	}
	var order models.Order
	evs, err := c.mutate(ctx, "createOrder", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityTable, in.TableID); err != nil {
			return err
		}
		table, err := tx.GetTable(in.TableID)
		if err != nil {
			return err
		}
		items, err := buildItems(tx, table.RestaurantID, in.Items)
		if err != nil {
			return err
		}

		o := models.Order{
			TableID:    table.ID,
			CustomerID: in.CustomerID,
			Status:     domain.OrderOpen,
			Notes:      in.Notes,
			Items:      items,
		}
		if err := tx.CreateOrder(&o); err != nil {
			return err
		}

		// Opening an order always seats the table, whatever state the
		// staff left it in.
		previous := table.Status
		table.Status = domain.TableOccupied
		table.CurrentOrderID = &o.ID
		if err := tx.SaveTable(&table); err != nil {
			return err
		}

		if order, err = tx.GetOrder(o.ID); err != nil {
			return err
		}
		general := domain.GeneralTopic(table.RestaurantID)
		out.add(general, domain.EventOrderNew, order)
		out.add(domain.KitchenTopic(table.RestaurantID), domain.EventKitchenOrderNew, order)
		if previous != domain.TableOccupied {
			out.add(general, domain.EventTableStatusChanged,
				domain.TableStatusChanged{TableID: table.ID, Status: table.Status})
		}
		return nil
	})
	if err == nil {
		c.log.Info("order created", "order_id", order.ID, "table_id", order.TableID, "items", len(order.Items))
	}
	return order, evs, err
}

func (c *Coordinator) AddItemsToOrder(ctx context.Context, orderID string, in []OrderItemInput) (models.Order, []domain.Event, error) {
	if err := validateItems(in); err != nil {
		return models.Order{}, nil, err
	}
	var order models.Order
	evs, err := c.mutate(ctx, "addItemsToOrder", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityOrder, orderID); err != nil {
			return err
		}
		o, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return domain.Conflict("ORDER_CLOSED", "order %s is %s", o.ID, o.Status)
		}
		items, err := buildItems(tx, restaurantOf(o), in)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.AddOrderItems(items); err != nil {
			return err
		}
		// Bump updatedAt so clients can order snapshots.
		row := o
		if err := tx.SaveOrder(&row); err != nil {
			return err
		}
		if order, err = tx.GetOrder(orderID); err != nil {
			return err
		}
		rid := restaurantOf(order)
		out.add(domain.GeneralTopic(rid), domain.EventOrderUpdated, order)
		out.add(domain.KitchenTopic(rid), domain.EventKitchenOrderUpdate, order)
		return nil
	})
	return order, evs, err
}

func (c *Coordinator) SetOrderItemStatus(ctx context.Context, itemID string, status domain.ItemStatus) (models.OrderItem, []domain.Event, error) {
	var item models.OrderItem
	evs, err := c.mutate(ctx, "setOrderItemStatus", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityOrderItem, itemID); err != nil {
			return err
		}
		it, err := tx.GetOrderItem(itemID)
		if err != nil {
			return err
		}
		next, effects, err := domain.NextItemStatus(it.Status, status, it.OrderID)
		if err != nil {
			return err
		}
		order, err := tx.GetOrder(it.OrderID)
		if err != nil {
			return err
		}
		it.Status = next
		if err := tx.SaveOrderItem(&it); err != nil {
			return err
		}
		item = it

		rid := restaurantOf(order)
		general := domain.GeneralTopic(rid)
		out.add(general, domain.EventItemStatusChanged,
			domain.ItemStatusChanged{ItemID: it.ID, Status: it.Status, OrderID: it.OrderID})
		for _, e := range effects {
			if e.Kind != domain.EffectNotifyFloor {
				continue
			}
			ready := domain.ItemReadyNotice{ItemID: it.ID, OrderID: it.OrderID, TableID: order.TableID, MenuItemID: it.MenuItemID}
			out.add(general, domain.EventKitchenItemDone, ready)
			out.add(domain.FloorTopic(rid), domain.EventItemReady, ready)
		}
		return nil
	})
	return item, evs, err
}

// orderRule decides the status an order moves to, with its cascades.
type orderRule func(current domain.OrderStatus, tableID string) (domain.OrderStatus, []domain.Effect, error)

func requested(status domain.OrderStatus) orderRule {
	return func(current domain.OrderStatus, tableID string) (domain.OrderStatus, []domain.Effect, error) {
		return domain.NextOrderStatus(current, status, tableID)
	}
}

// transitionOrder moves an order as rule decides and applies the resulting
// cascades. edit, when set, adjusts the row before it is saved.
func (c *Coordinator) transitionOrder(tx store.Tx, lk *locker, out *outbox, orderID string, rule orderRule, edit func(*models.Order)) (models.Order, error) {
	if err := lk.lock(store.EntityOrder, orderID); err != nil {
		return models.Order{}, err
	}
	o, err := tx.GetOrder(orderID)
	if err != nil {
		return o, err
	}
	next, effects, err := rule(o.Status, o.TableID)
	if err != nil {
		return o, err
	}
	o.Status = next
	if edit != nil {
		edit(&o)
	}
	if err := tx.SaveOrder(&o); err != nil {
		return o, err
	}
	if o, err = tx.GetOrder(orderID); err != nil {
		return o, err
	}
	rid := restaurantOf(o)
	out.add(domain.GeneralTopic(rid), domain.EventOrderUpdated, o)
	out.add(domain.KitchenTopic(rid), domain.EventKitchenOrderUpdate, o)

	for _, e := range effects {
		if e.Kind == domain.EffectCheckTableRelease {
			if err := c.releaseTable(tx, lk, out, e.EntityID, o.ID); err != nil {
				return o, err
			}
		}
	}
	if len(effects) > 0 {
		// Reload so the returned table reflects the release.
		return tx.GetOrder(orderID)
	}
	return o, nil
}

func (c *Coordinator) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (models.Order, []domain.Event, error) {
	var order models.Order
	evs, err := c.mutate(ctx, "setOrderStatus", func(tx store.Tx, lk *locker, out *outbox) error {
		var err error
		order, err = c.transitionOrder(tx, lk, out, orderID, requested(status), nil)
		return err
	})
	return order, evs, err
}

// CompleteOrder closes a READY order. Unpaid orders in earlier statuses
// are closed by payment settlement instead.
func (c *Coordinator) CompleteOrder(ctx context.Context, orderID string) (models.Order, []domain.Event, error) {
	return c.SetOrderStatus(ctx, orderID, domain.OrderCompleted)
}

// CancelOrder cancels the order and records the reason in its notes.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID, reason string) (models.Order, []domain.Event, error) {
	reason = strings.TrimSpace(reason)
	var order models.Order
	evs, err := c.mutate(ctx, "cancelOrder", func(tx store.Tx, lk *locker, out *outbox) error {
		var err error
		order, err = c.transitionOrder(tx, lk, out, orderID, requested(domain.OrderCancelled), func(o *models.Order) {
			if reason == "" {
				return
			}
			notes := ""
			if o.Notes != nil {
				notes = *o.Notes
			}
			notes += "\nCancellation reason: " + reason
			o.Notes = &notes
		})
		return err
	})
	if err == nil {
		c.log.Info("order cancelled", "order_id", orderID, "reason", reason)
	}
	return order, evs, err
}

func (c *Coordinator) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(id)
		return err
	})
	return o, err
}

// totals prices the order at current menu prices.
func (c *Coordinator) totals(o models.Order) domain.Totals {
	lines := make([]domain.Line, 0, len(o.Items))
	for _, it := range o.Items {
		if it.MenuItem == nil {
			continue
		}
		lines = append(lines, domain.Line{UnitPrice: it.MenuItem.Price, Quantity: it.Quantity})
	}
	return c.pricing.Totals(lines)
}

func (c *Coordinator) GetOrderTotal(ctx context.Context, id string) (domain.Totals, error) {
	o, err := c.GetOrder(ctx, id)
	if err != nil {
		return domain.Totals{}, err
	}
	return c.totals(o), nil
}

func (c *Coordinator) ListActiveOrders(ctx context.Context, restaurantID string) ([]models.Order, error) {
	if restaurantID == "" {
		return nil, domain.Validation("restaurantId is required")
	}
	return c.listOrders(ctx, store.OrderFilter{RestaurantID: restaurantID, Statuses: domain.ActiveOrderStatuses})
}

func (c *Coordinator) ListTableOrders(ctx context.Context, tableID string) ([]models.Order, error) {
	if _, err := c.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	return c.listOrders(ctx, store.OrderFilter{TableID: tableID, Statuses: domain.ActiveOrderStatuses})
}

func (c *Coordinator) listOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListOrders(f)
		return err
	})
	return out, err
}
