package coordinator

import (
	"context"
	"sort"
	"strings"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/store"
)

type TableInput struct {
	RestaurantID string
	FloorPlanID  string
	Number       string
	Capacity     int
	MinCapacity  int
	X, Y         float64
	Width        float64
	Height       float64
	Shape        string
	Section      *string
}

// TableUpdate carries the editable layout fields. Nil fields are left
// untouched; status is changed through SetTableStatus only.
type TableUpdate struct {
	Number      *string
	Capacity    *int
	MinCapacity *int
	X, Y        *float64
	Width       *float64
	Height      *float64
	Shape       *string
	Section     *string
}

type TablePosition struct {
	ID string
	X  float64
	Y  float64
}

func validateTable(t models.Table) error {
	if strings.TrimSpace(t.Number) == "" {
		return domain.Validation("table number is required")
	}
	if t.Capacity <= 0 {
		return domain.Validation("capacity must be positive")
	}
	if t.MinCapacity < 1 || t.MinCapacity > t.Capacity {
		return domain.Validation("minCapacity must be between 1 and capacity")
	}
	if t.Width < 0 || t.Height < 0 {
		return domain.Validation("table dimensions cannot be negative")
	}
	return nil
}

func (c *Coordinator) CreateTable(ctx context.Context, in TableInput) (models.Table, []domain.Event, error) {
	table := models.Table{
		RestaurantID: in.RestaurantID,
		FloorPlanID:  in.FloorPlanID,
		Number:       in.Number,
		Capacity:     in.Capacity,
		MinCapacity:  in.MinCapacity,
		X:            in.X,
		Y:            in.Y,
		Width:        in.Width,
		Height:       in.Height,
		Shape:        strings.ToUpper(in.Shape),
		Section:      in.Section,
		Status:       domain.TableAvailable,
	}
	if table.MinCapacity == 0 {
		table.MinCapacity = 1
	}
	if table.Width == 0 {
		table.Width = 100
	}
	if table.Height == 0 {
		table.Height = 100
	}
	if table.Shape == "" {
		table.Shape = "RECTANGLE"
	}
	if in.RestaurantID == "" || in.FloorPlanID == "" {
		return models.Table{}, nil, domain.Validation("restaurantId and floorPlanId are required")
	}
	if err := validateTable(table); err != nil {
		return models.Table{}, nil, err
	}

	evs, err := c.mutate(ctx, "createTable", func(tx store.Tx, _ *locker, out *outbox) error {
		if err := tx.CreateTable(&table); err != nil {
			return err
		}
		out.add(domain.GeneralTopic(table.RestaurantID), domain.EventTableUpdated, table)
		return nil
	})
	return table, evs, err
}

func (c *Coordinator) UpdateTable(ctx context.Context, id string, in TableUpdate) (models.Table, []domain.Event, error) {
	var table models.Table
	evs, err := c.mutate(ctx, "updateTable", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityTable, id); err != nil {
			return err
		}
		t, err := tx.GetTable(id)
		if err != nil {
			return err
		}
		if in.Number != nil {
			t.Number = *in.Number
		}
		if in.Capacity != nil {
			t.Capacity = *in.Capacity
		}
		if in.MinCapacity != nil {
			t.MinCapacity = *in.MinCapacity
		}
		if in.X != nil {
			t.X = *in.X
		}
		if in.Y != nil {
			t.Y = *in.Y
		}
		if in.Width != nil {
			t.Width = *in.Width
		}
		if in.Height != nil {
			t.Height = *in.Height
		}
		if in.Shape != nil {
			t.Shape = strings.ToUpper(*in.Shape)
		}
		if in.Section != nil {
			t.Section = strPtr(*in.Section)
		}
		if err := validateTable(t); err != nil {
			return err
		}
		if err := tx.SaveTable(&t); err != nil {
			return err
		}
		table = t
		out.add(domain.GeneralTopic(t.RestaurantID), domain.EventTableUpdated, t)
		return nil
	})
	return table, evs, err
}

// UpdateTablePositions moves several tables in one transaction, as the
// floor plan editor saves a whole layout at once.
func (c *Coordinator) UpdateTablePositions(ctx context.Context, positions []TablePosition) ([]models.Table, []domain.Event, error) {
	if len(positions) == 0 {
		return nil, nil, domain.Validation("at least one position is required")
	}
	sorted := append([]TablePosition(nil), positions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var tables []models.Table
	evs, err := c.mutate(ctx, "updateTablePositions", func(tx store.Tx, lk *locker, out *outbox) error {
		tables = tables[:0]
		for _, p := range sorted {
			if err := lk.lock(store.EntityTable, p.ID); err != nil {
				return err
			}
			t, err := tx.GetTable(p.ID)
			if err != nil {
				return err
			}
			t.X, t.Y = p.X, p.Y
			if err := tx.SaveTable(&t); err != nil {
				return err
			}
			tables = append(tables, t)
			out.add(domain.GeneralTopic(t.RestaurantID), domain.EventTableUpdated, t)
		}
		return nil
	})
	return tables, evs, err
}

// SetTableStatus applies a manual status change by staff.
func (c *Coordinator) SetTableStatus(ctx context.Context, id string, status domain.TableStatus) (models.Table, []domain.Event, error) {
	var table models.Table
	evs, err := c.mutate(ctx, "setTableStatus", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityTable, id); err != nil {
			return err
		}
		t, err := tx.GetTable(id)
		if err != nil {
			return err
		}
		active, err := tx.HasActiveOrder(id, "")
		if err != nil {
			return err
		}
		next, err := domain.NextTableStatus(t.Status, status, active)
		if err != nil {
			return err
		}
		table = t
		if next == t.Status {
			return nil
		}
		t.Status = next
		t.CurrentOrderID = nil
		if err := tx.SaveTable(&t); err != nil {
			return err
		}
		table = t
		out.add(domain.GeneralTopic(t.RestaurantID), domain.EventTableStatusChanged,
			domain.TableStatusChanged{TableID: t.ID, Status: t.Status})
		return nil
	})
	return table, evs, err
}

// releaseTable marks the table DIRTY when the given order was its last
// active one. It runs inside the transaction that ended the order.
func (c *Coordinator) releaseTable(tx store.Tx, lk *locker, out *outbox, tableID, endedOrderID string) error {
	if err := lk.lock(store.EntityTable, tableID); err != nil {
		return err
	}
	t, err := tx.GetTable(tableID)
	if err != nil {
		return err
	}
	active, err := tx.HasActiveOrder(tableID, endedOrderID)
	if err != nil {
		return err
	}
	next, changed := domain.ReleaseTable(t.Status, active)
	pointsHere := t.CurrentOrderID != nil && *t.CurrentOrderID == endedOrderID
	if !changed && !pointsHere {
		return nil
	}
	if pointsHere {
		t.CurrentOrderID = nil
	}
	t.Status = next
	if err := tx.SaveTable(&t); err != nil {
		return err
	}
	if changed {
		c.log.Info("table released", "table_id", t.ID, "status", t.Status)
		out.add(domain.GeneralTopic(t.RestaurantID), domain.EventTableStatusChanged,
			domain.TableStatusChanged{TableID: t.ID, Status: t.Status})
	}
	return nil
}

func (c *Coordinator) GetTable(ctx context.Context, id string) (models.Table, error) {
	var t models.Table
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		t, err = tx.GetTable(id)
		return err
	})
	return t, err
}

func (c *Coordinator) ListTables(ctx context.Context, f store.TableFilter) ([]models.Table, error) {
	if f.RestaurantID == "" && f.FloorPlanID == "" {
		return nil, domain.Validation("restaurantId or floorPlanId is required")
	}
	var out []models.Table
	err := c.read(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListTables(f)
		return err
	})
	return out, err
}
