package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/domain"
)

// JSON stores an opaque client document, such as item modifiers, as jsonb.
type JSON json.RawMessage

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSON: %v", value)
	}
	*j = append((*j)[:0], bytes...)
	return nil
}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

type Table struct {
	ID             string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID   string             `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	FloorPlanID    string             `gorm:"type:varchar(36);index;not null" json:"floorPlanId"`
	Number         string             `gorm:"size:16;not null" json:"number"`
	Capacity       int                `gorm:"not null" json:"capacity"`
	MinCapacity    int                `gorm:"not null;default:1" json:"minCapacity"`
	X              float64            `json:"x"`
	Y              float64            `json:"y"`
	Width          float64            `json:"width"`
	Height         float64            `json:"height"`
	Shape          string             `gorm:"size:16;not null;default:'RECTANGLE'" json:"shape"`
	Section        *string            `gorm:"size:64" json:"section,omitempty"`
	Status         domain.TableStatus `gorm:"size:16;not null;default:'AVAILABLE'" json:"status"`
	CurrentOrderID *string            `gorm:"type:varchar(36)" json:"currentOrderId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func (Table) TableName() string { return "floor_tables" }

// MenuItem rows are archived, never deleted, so order lines that
// reference them keep resolving.
type MenuItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string          `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Name         string          `gorm:"size:128;not null" json:"name"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	Category     *string         `gorm:"size:64" json:"category,omitempty"`
	CategoryID   *string         `gorm:"type:varchar(36);index" json:"categoryId,omitempty"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"isAvailable"`
	ArchivedAt   *time.Time      `gorm:"index" json:"archivedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type MenuCategory struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string     `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Name         string     `gorm:"size:64;not null" json:"name"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	SortOrder    int        `gorm:"not null;default:0" json:"sortOrder"`
	ArchivedAt   *time.Time `gorm:"index" json:"archivedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Order struct {
	ID         string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TableID    string             `gorm:"type:varchar(36);index;not null" json:"tableId"`
	CustomerID *string            `gorm:"type:varchar(36)" json:"customerId,omitempty"`
	Status     domain.OrderStatus `gorm:"size:16;index;not null;default:'OPEN'" json:"status"`
	Notes      *string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`

	Table    *Table      `gorm:"foreignKey:TableID" json:"table,omitempty"`
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payments []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

type OrderItem struct {
	ID         string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string            `gorm:"type:varchar(36);index;not null" json:"orderId"`
	MenuItemID string            `gorm:"type:varchar(36);not null" json:"menuItemId"`
	Quantity   int               `gorm:"not null" json:"quantity"`
	Modifiers  JSON              `gorm:"type:jsonb" json:"modifiers,omitempty"`
	Status     domain.ItemStatus `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	Notes      *string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`

	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menuItem,omitempty"`
}

type Payment struct {
	ID            string               `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID       string               `gorm:"type:varchar(36);index;not null" json:"orderId"`
	Amount        decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method        domain.PaymentMethod `gorm:"size:16;not null" json:"method"`
	Status        domain.PaymentStatus `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	SplitNumber   *int                 `json:"splitNumber,omitempty"`
	TransactionID *string              `gorm:"size:128" json:"transactionId,omitempty"`
	ProcessedAt   *time.Time           `json:"processedAt,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}
