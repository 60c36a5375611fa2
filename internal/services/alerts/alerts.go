// Package alerts derives low-stock alerts from inventory items.
package alerts

import (
	"fmt"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
)

// IsLow reports whether the item is at or below its minimum stock.
func IsLow(item models.InventoryItem) bool {
	return item.CurrentStock.LessThanOrEqual(item.MinStock)
}

func Message(item models.InventoryItem) string {
	return fmt.Sprintf("Low stock alert: %s is running low (%s %s remaining)",
		item.Name, item.CurrentStock.String(), item.Unit)
}

// Evaluate returns the inventory:alert event for the item when it is low.
// The check is level-triggered: a low item alerts after every mutation.
func Evaluate(item models.InventoryItem) (domain.Event, bool) {
	if !IsLow(item) {
		return domain.Event{}, false
	}
	return domain.Event{
		Topic: domain.GeneralTopic(item.RestaurantID),
		Name:  domain.EventInventoryAlert,
		Payload: domain.InventoryAlert{
			ItemID:       item.ID,
			Name:         item.Name,
			CurrentStock: item.CurrentStock,
			MinStock:     item.MinStock,
			Unit:         item.Unit,
			Message:      Message(item),
		},
	}, true
}
