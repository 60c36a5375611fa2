package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderNew           = "order:new"
	EventOrderUpdated       = "order:updated"
	EventItemStatusChanged  = "order:item:status:changed"
	EventItemReady          = "order:item:ready"
	EventKitchenOrderNew    = "kitchen:order:new"
	EventKitchenOrderUpdate = "kitchen:order:updated"
	EventKitchenItemDone    = "kitchen:item:completed"
	EventInventoryAlert     = "inventory:alert"
	EventPaymentProcessing  = "payment:processing"
	EventPaymentSuccess     = "payment:success"
	EventPaymentRefunded    = "payment:refunded"
	EventEmployeeStatus     = "employee:status:changed"
	EventTableUpdated       = "table:updated"
	EventTableStatusChanged = "table:status:changed"
)

// Scope narrows a restaurant topic to an audience. The zero value is the
// general restaurant topic every connection joins.
type Scope string

const (
	ScopeGeneral Scope = ""
	ScopeKitchen Scope = "kitchen"
	ScopeFloor   Scope = "floor"
)

func ParseScope(s string) (Scope, error) {
	switch v := Scope(s); v {
	case ScopeKitchen, ScopeFloor:
		return v, nil
	}
	return "", Validation("unknown scope %q", s)
}

type Topic string

func TopicFor(restaurantID string, scope Scope) Topic {
	if scope == ScopeGeneral {
		return Topic("restaurant:" + restaurantID)
	}
	return Topic(fmt.Sprintf("restaurant:%s:%s", restaurantID, scope))
}

func GeneralTopic(restaurantID string) Topic { return TopicFor(restaurantID, ScopeGeneral) }
func KitchenTopic(restaurantID string) Topic { return TopicFor(restaurantID, ScopeKitchen) }
func FloorTopic(restaurantID string) Topic   { return TopicFor(restaurantID, ScopeFloor) }

// Event is one named notification bound for a topic.
type Event struct {
	Topic   Topic  `json:"topic"`
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type ItemStatusChanged struct {
	ItemID  string     `json:"itemId"`
	Status  ItemStatus `json:"status"`
	OrderID string     `json:"orderId"`
}

type ItemReadyNotice struct {
	ItemID     string `json:"itemId"`
	OrderID    string `json:"orderId"`
	TableID    string `json:"tableId"`
	MenuItemID string `json:"menuItemId"`
}

type InventoryAlert struct {
	ItemID       string          `json:"itemId"`
	Name         string          `json:"name"`
	CurrentStock decimal.Decimal `json:"currentStock"`
	MinStock     decimal.Decimal `json:"minStock"`
	Unit         string          `json:"unit"`
	Message      string          `json:"message"`
}

type TableStatusChanged struct {
	TableID string      `json:"tableId"`
	Status  TableStatus `json:"status"`
}

type EmployeeStatusChanged struct {
	EmployeeID string    `json:"employeeId"`
	ShiftID    string    `json:"shiftId"`
	ClockedIn  bool      `json:"clockedIn"`
	At         time.Time `json:"at"`
}
