package domain

import "github.com/shopspring/decimal"

type EffectKind int

const (
	// EffectCheckTableRelease asks for the table to become DIRTY when it
	// no longer has any active order.
	EffectCheckTableRelease EffectKind = iota + 1
	// EffectNotifyFloor tells floor staff an item is ready to be served.
	EffectNotifyFloor
	// EffectRecomputeSettlement compares the order total with the sum of
	// completed payments.
	EffectRecomputeSettlement
)

// Effect is a follow-up a transition requires. The coordinator applies
// effects inside the same store transaction as the transition itself.
type Effect struct {
	Kind     EffectKind
	EntityID string
}

var orderForward = map[OrderStatus]OrderStatus{
	OrderOpen:       OrderInProgress,
	OrderInProgress: OrderReady,
	OrderReady:      OrderCompleted,
}

// NextOrderStatus validates a staff-requested order transition. Orders
// advance one step at a time and may be cancelled from any non-terminal
// status.
func NextOrderStatus(current, requested OrderStatus, tableID string) (OrderStatus, []Effect, error) {
	if current.Terminal() {
		return current, nil, InvalidTransition("order", current, requested)
	}
	if requested != OrderCancelled && orderForward[current] != requested {
		return current, nil, InvalidTransition("order", current, requested)
	}
	return requested, orderEffects(requested, tableID), nil
}

// SettleOrder completes a fully paid order from any non-terminal status.
// Payment may arrive before the kitchen marks the order READY.
func SettleOrder(current OrderStatus, tableID string) (OrderStatus, []Effect, error) {
	if current.Terminal() {
		return current, nil, InvalidTransition("order", current, OrderCompleted)
	}
	return OrderCompleted, orderEffects(OrderCompleted, tableID), nil
}

func orderEffects(status OrderStatus, tableID string) []Effect {
	if !status.Terminal() {
		return nil
	}
	return []Effect{{Kind: EffectCheckTableRelease, EntityID: tableID}}
}

var itemForward = map[ItemStatus]ItemStatus{
	ItemPending:   ItemPreparing,
	ItemPreparing: ItemReady,
	ItemReady:     ItemServed,
}

// NextItemStatus only allows an item to advance exactly one step.
func NextItemStatus(current, requested ItemStatus, orderID string) (ItemStatus, []Effect, error) {
	next, ok := itemForward[current]
	if !ok || next != requested {
		return current, nil, InvalidTransition("order item", current, requested)
	}
	var effects []Effect
	if requested == ItemReady {
		effects = append(effects, Effect{Kind: EffectNotifyFloor, EntityID: orderID})
	}
	return requested, effects, nil
}

func NextPaymentStatus(current, requested PaymentStatus, orderID string) (PaymentStatus, []Effect, error) {
	switch {
	case current == PaymentPending && requested == PaymentCompleted:
		return requested, []Effect{{Kind: EffectRecomputeSettlement, EntityID: orderID}}, nil
	case current == PaymentCompleted && requested == PaymentRefunded:
		return requested, nil, nil
	}
	return current, nil, InvalidTransition("payment", current, requested)
}

// NextTableStatus validates a manual status change made by staff.
// OCCUPIED is only reachable by opening an order, and a table holding an
// active order cannot be moved off OCCUPIED by hand.
func NextTableStatus(current, requested TableStatus, hasActiveOrder bool) (TableStatus, error) {
	if requested == TableOccupied {
		return current, Conflict(ErrTableInUse.Code, "tables become occupied by opening an order")
	}
	if hasActiveOrder {
		return current, Conflict(ErrTableInUse.Code, "table has an active order")
	}
	return requested, nil
}

// ReleaseTable returns the status a table takes once an order on it ends.
// changed is false when the table keeps its current status.
func ReleaseTable(current TableStatus, hasActiveOrder bool) (next TableStatus, changed bool) {
	if hasActiveOrder || current == TableDirty {
		return current, false
	}
	return TableDirty, true
}

// MovementType classifies a stock delta for the inventory ledger.
func MovementType(delta decimal.Decimal) TransactionType {
	if delta.IsPositive() {
		return TransactionRestock
	}
	return TransactionUsage
}
