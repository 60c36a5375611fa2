package coordinator

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/services/alerts"
	"floorsync-system/internal/store"
)

type InventoryItemInput struct {
	RestaurantID string
	Name         string
	Unit         string
	CurrentStock decimal.Decimal
	MinStock     decimal.Decimal
	MaxStock     *decimal.Decimal
	CostPerUnit  decimal.Decimal
	Supplier     *string
	Category     *string
}

// InventoryItemUpdate edits item details. Stock levels only move through
// AdjustStock so every change lands in the ledger.
type InventoryItemUpdate struct {
	Name        *string
	Unit        *string
	MinStock    *decimal.Decimal
	MaxStock    *decimal.Decimal
	CostPerUnit *decimal.Decimal
	Supplier    *string
	Category    *string
}

func validateInventoryItem(item models.InventoryItem) error {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Unit) == "" {
		return domain.Validation("name and unit are required")
	}
	if item.MinStock.IsNegative() {
		return domain.Validation("minStock cannot be negative")
	}
	if item.CostPerUnit.IsNegative() {
		return domain.Validation("costPerUnit cannot be negative")
	}
	if item.MaxStock.Valid && item.MaxStock.Decimal.LessThan(item.MinStock) {
		return domain.Validation("maxStock cannot be below minStock")
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// alertIfLow queues the low-stock alert for the item's current level.
func alertIfLow(out *outbox, item models.InventoryItem) {
	if ev, ok := alerts.Evaluate(item); ok {
		out.events = append(out.events, ev)
	}
}

func (c *Coordinator) CreateInventoryItem(ctx context.Context, in InventoryItemInput) (models.InventoryItem, []domain.Event, error) {
	item := models.InventoryItem{
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Unit:         in.Unit,
		CurrentStock: in.CurrentStock,
		MinStock:     in.MinStock,
		MaxStock:     nullDecimal(in.MaxStock),
		CostPerUnit:  in.CostPerUnit,
		Supplier:     in.Supplier,
		Category:     in.Category,
	}
	if in.RestaurantID == "" {
		return item, nil, domain.Validation("restaurantId is required")
	}
	if err := validateInventoryItem(item); err != nil {
		return item, nil, err
	}
	evs, err := c.mutate(ctx, "createInventoryItem", func(tx store.Tx, _ *locker, out *outbox) error {
		if err := tx.CreateInventoryItem(&item); err != nil {
			return err
		}
		alertIfLow(out, item)
		return nil
	})
	return item, evs, err
}

func (c *Coordinator) UpdateInventoryItem(ctx context.Context, id string, in InventoryItemUpdate) (models.InventoryItem, []domain.Event, error) {
	var item models.InventoryItem
	evs, err := c.mutate(ctx, "updateInventoryItem", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityInventoryItem, id); err != nil {
			return err
		}
		it, err := tx.GetInventoryItem(id)
		if err != nil {
			return err
		}
		if it.ArchivedAt != nil {
			return domain.Archived(string(store.EntityInventoryItem), id)
		}
		if in.Name != nil {
			it.Name = *in.Name
		}
		if in.Unit != nil {
			it.Unit = *in.Unit
		}
		if in.MinStock != nil {
			it.MinStock = *in.MinStock
		}
		if in.MaxStock != nil {
			it.MaxStock = nullDecimal(in.MaxStock)
		}
		if in.CostPerUnit != nil {
			it.CostPerUnit = *in.CostPerUnit
		}
		if in.Supplier != nil {
			it.Supplier = strPtr(*in.Supplier)
		}
		if in.Category != nil {
			it.Category = strPtr(*in.Category)
		}
		if err := validateInventoryItem(it); err != nil {
			return err
		}
		if err := tx.SaveInventoryItem(&it); err != nil {
			return err
		}
		item = it
		alertIfLow(out, it)
		return nil
	})
	return item, evs, err
}

// AdjustStock applies a signed delta and records it in the ledger. Stock
// may go negative; a low result alerts every time.
func (c *Coordinator) AdjustStock(ctx context.Context, id string, delta decimal.Decimal, reason *string) (models.InventoryItem, []domain.Event, error) {
	var item models.InventoryItem
	evs, err := c.mutate(ctx, "adjustStock", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityInventoryItem, id); err != nil {
			return err
		}
		it, err := tx.GetInventoryItem(id)
		if err != nil {
			return err
		}
		if it.ArchivedAt != nil {
			return domain.Archived(string(store.EntityInventoryItem), id)
		}
		it.CurrentStock = it.CurrentStock.Add(delta)
		if err := tx.SaveInventoryItem(&it); err != nil {
			return err
		}
		entry := models.InventoryTransaction{
			InventoryItemID: it.ID,
			Quantity:        delta,
			Type:            domain.MovementType(delta),
			Reason:          reason,
		}
		if err := tx.AppendInventoryTransaction(&entry); err != nil {
			return err
		}
		item = it
		alertIfLow(out, it)
		return nil
	})
	if err == nil {
		c.log.Debug("stock adjusted", "item_id", id, "delta", delta, "stock", item.CurrentStock)
	}
	return item, evs, err
}

// ArchiveInventoryItem stops tracking an item. Its ledger stays readable
// and no further adjustments are accepted. Archiving twice is a no-op.
func (c *Coordinator) ArchiveInventoryItem(ctx context.Context, id string) (models.InventoryItem, error) {
	var item models.InventoryItem
	_, err := c.mutate(ctx, "archiveInventoryItem", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityInventoryItem, id); err != nil {
			return err
		}
		it, err := tx.GetInventoryItem(id)
		if err != nil {
			return err
		}
		if it.ArchivedAt == nil {
			now := c.now()
			it.ArchivedAt = &now
			if err := tx.SaveInventoryItem(&it); err != nil {
				return err
			}
		}
		item = it
		return nil
	})
	return item, err
}

func (c *Coordinator) GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		item, err = tx.GetInventoryItem(id)
		return err
	})
	return item, err
}

func (c *Coordinator) ListInventory(ctx context.Context, restaurantID string) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListInventoryItems(restaurantID)
		return err
	})
	return out, err
}

func (c *Coordinator) ListLowStock(ctx context.Context, restaurantID string) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListLowStock(restaurantID)
		return err
	})
	return out, err
}

// ListInventoryTransactions returns the item's ledger, newest first. A
// limit of zero uses the default page size.
func (c *Coordinator) ListInventoryTransactions(ctx context.Context, itemID string, limit int) ([]models.InventoryTransaction, error) {
	if limit < 0 {
		return nil, domain.Validation("limit cannot be negative")
	}
	var out []models.InventoryTransaction
	err := c.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetInventoryItem(itemID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListInventoryTransactions(itemID, limit)
		return err
	})
	return out, err
}
