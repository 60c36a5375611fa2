package coordinator

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type MenuItemInput struct {
	RestaurantID string
	Name         string
	Description  *string
	Category     *string
	CategoryID   *string
	Price        decimal.Decimal
	IsAvailable  *bool
}

type MenuItemUpdate struct {
	Name        *string
	Description *string
	Category    *string
	// CategoryID moves the item; an empty string clears it.
	CategoryID  *string
	Price       *decimal.Decimal
	IsAvailable *bool
}

type MenuCategoryInput struct {
	RestaurantID string
	Name         string
	Description  *string
	SortOrder    int
}

type MenuCategoryUpdate struct {
	Name        *string
	Description *string
	SortOrder   *int
}

func validateMenuItem(m models.MenuItem) error {
	if strings.TrimSpace(m.Name) == "" {
		return domain.Validation("menu item name is required")
	}
	if m.Price.IsNegative() {
		return domain.Validation("price cannot be negative")
	}
	return nil
}

// useCategory locks the category an item is filed under and checks it is
// live and in the item's restaurant.
func useCategory(tx store.Tx, lk *locker, restaurantID, categoryID string) error {
	if err := lk.lock(store.EntityMenuCategory, categoryID); err != nil {
		return err
	}
	mc, err := tx.GetMenuCategory(categoryID)
	if err != nil {
		return err
	}
	if mc.RestaurantID != restaurantID {
		return domain.Validation("menu category %s belongs to another restaurant", mc.ID)
	}
	if mc.ArchivedAt != nil {
		return domain.Archived(string(store.EntityMenuCategory), mc.ID)
	}
	return nil
}

func (c *Coordinator) CreateMenuItem(ctx context.Context, in MenuItemInput) (models.MenuItem, error) {
	item := models.MenuItem{
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		Price:        in.Price,
		IsAvailable:  true,
	}
	if in.CategoryID != nil {
		item.CategoryID = strPtr(*in.CategoryID)
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if in.RestaurantID == "" {
		return item, domain.Validation("restaurantId is required")
	}
	if err := validateMenuItem(item); err != nil {
		return item, err
	}
	_, err := c.mutate(ctx, "createMenuItem", func(tx store.Tx, lk *locker, _ *outbox) error {
		if item.CategoryID != nil {
			if err := useCategory(tx, lk, item.RestaurantID, *item.CategoryID); err != nil {
				return err
			}
		}
		return tx.CreateMenuItem(&item)
	})
	return item, err
}

// UpdateMenuItem changes a menu entry. Open orders pick up a new price
// the next time their total is computed.
func (c *Coordinator) UpdateMenuItem(ctx context.Context, id string, in MenuItemUpdate) (models.MenuItem, error) {
	var item models.MenuItem
	_, err := c.mutate(ctx, "updateMenuItem", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityMenuItem, id); err != nil {
			return err
		}
		m, err := tx.GetMenuItem(id)
		if err != nil {
			return err
		}
		if m.ArchivedAt != nil {
			return domain.Archived(string(store.EntityMenuItem), id)
		}
		if in.Name != nil {
			m.Name = *in.Name
		}
		if in.Description != nil {
			m.Description = strPtr(*in.Description)
		}
		if in.Category != nil {
			m.Category = strPtr(*in.Category)
		}
		if in.CategoryID != nil {
			m.CategoryID = strPtr(*in.CategoryID)
			if m.CategoryID != nil {
				if err := useCategory(tx, lk, m.RestaurantID, *m.CategoryID); err != nil {
					return err
				}
			}
		}
		if in.Price != nil {
			m.Price = *in.Price
		}
		if in.IsAvailable != nil {
			m.IsAvailable = *in.IsAvailable
		}
		if err := validateMenuItem(m); err != nil {
			return err
		}
		if err := tx.SaveMenuItem(&m); err != nil {
			return err
		}
		item = m
		return nil
	})
	return item, err
}

// ArchiveMenuItem takes an item off the menu for good. Orders that already
// hold it are untouched. Archiving twice is a no-op.
func (c *Coordinator) ArchiveMenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	var item models.MenuItem
	_, err := c.mutate(ctx, "archiveMenuItem", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityMenuItem, id); err != nil {
			return err
		}
		m, err := tx.GetMenuItem(id)
		if err != nil {
			return err
		}
		if m.ArchivedAt == nil {
			now := c.now()
			m.ArchivedAt = &now
			m.IsAvailable = false
			if err := tx.SaveMenuItem(&m); err != nil {
				return err
			}
		}
		item = m
		return nil
	})
	return item, err
}

func (c *Coordinator) GetMenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	var m models.MenuItem
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMenuItem(id)
		return err
	})
	return m, err
}

func (c *Coordinator) ListMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	var out []models.MenuItem
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListMenuItems(restaurantID)
		return err
	})
	return out, err
}

func validateMenuCategory(mc models.MenuCategory) error {
	if strings.TrimSpace(mc.Name) == "" {
		return domain.Validation("menu category name is required")
	}
	if mc.SortOrder < 0 {
		return domain.Validation("sortOrder cannot be negative")
	}
	return nil
}

func (c *Coordinator) CreateMenuCategory(ctx context.Context, in MenuCategoryInput) (models.MenuCategory, error) {
	mc := models.MenuCategory{
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Description:  in.Description,
		SortOrder:    in.SortOrder,
	}
	if in.RestaurantID == "" {
		return mc, domain.Validation("restaurantId is required")
	}
	if err := validateMenuCategory(mc); err != nil {
		return mc, err
	}
	_, err := c.mutate(ctx, "createMenuCategory", func(tx store.Tx, _ *locker, _ *outbox) error {
		return tx.CreateMenuCategory(&mc)
	})
	return mc, err
}

func (c *Coordinator) UpdateMenuCategory(ctx context.Context, id string, in MenuCategoryUpdate) (models.MenuCategory, error) {
	var out models.MenuCategory
	_, err := c.mutate(ctx, "updateMenuCategory", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityMenuCategory, id); err != nil {
			return err
		}
		mc, err := tx.GetMenuCategory(id)
		if err != nil {
			return err
		}
		if mc.ArchivedAt != nil {
			return domain.Archived(string(store.EntityMenuCategory), id)
		}
		if in.Name != nil {
			mc.Name = *in.Name
		}
		if in.Description != nil {
			mc.Description = strPtr(*in.Description)
		}
		if in.SortOrder != nil {
			mc.SortOrder = *in.SortOrder
		}
		if err := validateMenuCategory(mc); err != nil {
			return err
		}
		if err := tx.SaveMenuCategory(&mc); err != nil {
			return err
		}
		out = mc
		return nil
	})
	return out, err
}

// ArchiveMenuCategory retires an empty category. Items still filed under
// it must be moved or archived first.
func (c *Coordinator) ArchiveMenuCategory(ctx context.Context, id string) (models.MenuCategory, error) {
	var out models.MenuCategory
	_, err := c.mutate(ctx, "archiveMenuCategory", func(tx store.Tx, lk *locker, _ *outbox) error {
		if err := lk.lock(store.EntityMenuCategory, id); err != nil {
			return err
		}
		mc, err := tx.GetMenuCategory(id)
		if err != nil {
			return err
		}
		out = mc
		if mc.ArchivedAt != nil {
			return nil
		}
		items, err := tx.ListMenuItems(mc.RestaurantID)
		if err != nil {
			return err
		}
		for _, m := range items {
			if m.CategoryID != nil && *m.CategoryID == id {
				return domain.Conflict("CATEGORY_IN_USE", "menu category %s still holds %s", mc.Name, m.Name)
			}
		}
		now := c.now()
		mc.ArchivedAt = &now
		if err := tx.SaveMenuCategory(&mc); err != nil {
			return err
		}
		out = mc
		return nil
	})
	return out, err
}

func (c *Coordinator) GetMenuCategory(ctx context.Context, id string) (models.MenuCategory, error) {
	var mc models.MenuCategory
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		mc, err = tx.GetMenuCategory(id)
		return err
	})
	return mc, err
}

func (c *Coordinator) ListMenuCategories(ctx context.Context, restaurantID string) ([]models.MenuCategory, error) {
	var out []models.MenuCategory
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListMenuCategories(restaurantID)
		return err
	})
	return out, err
}
