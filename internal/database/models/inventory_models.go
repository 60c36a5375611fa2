package models

import (
	"time"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/domain"
)

type InventoryItem struct {
	ID           string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string              `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Name         string              `gorm:"size:255;not null" json:"name"`
	Unit         string              `gorm:"size:32;not null" json:"unit"`
	CurrentStock decimal.Decimal     `gorm:"type:numeric(14,3);not null" json:"currentStock"`
	MinStock     decimal.Decimal     `gorm:"type:numeric(14,3);not null" json:"minStock"`
	MaxStock     decimal.NullDecimal `gorm:"type:numeric(14,3)" json:"maxStock"`
	CostPerUnit  decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"costPerUnit"`
	Supplier     *string             `gorm:"size:255" json:"supplier,omitempty"`
	Category     *string             `gorm:"size:100" json:"category,omitempty"`
	ArchivedAt   *time.Time          `gorm:"index" json:"archivedAt,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// InventoryTransaction is an append-only ledger row. Quantity is the
// signed delta applied to the item's stock.
type InventoryTransaction struct {
	ID              string                 `gorm:"primaryKey;type:varchar(36)" json:"id"`
	InventoryItemID string                 `gorm:"type:varchar(36);index;not null" json:"inventoryItemId"`
	Quantity        decimal.Decimal        `gorm:"type:numeric(14,3);not null" json:"quantity"`
	Type            domain.TransactionType `gorm:"size:16;not null" json:"type"`
	Reason          *string                `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt       time.Time              `gorm:"index" json:"createdAt"`
}
