package domain

import "strings"

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
	TableDirty     TableStatus = "DIRTY"
	TableCleaning  TableStatus = "CLEANING"
)

type OrderStatus string

const (
	OrderOpen       OrderStatus = "OPEN"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderReady      OrderStatus = "READY"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// ActiveOrderStatuses are the statuses that keep a table occupied.
var ActiveOrderStatuses = []OrderStatus{OrderOpen, OrderInProgress, OrderReady}

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemPreparing ItemStatus = "PREPARING"
	ItemReady     ItemStatus = "READY"
	ItemServed    ItemStatus = "SERVED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCash       PaymentMethod = "CASH"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodDebitCard  PaymentMethod = "DEBIT_CARD"
	MethodMobile     PaymentMethod = "MOBILE"
)

type TransactionType string

const (
	TransactionRestock TransactionType = "RESTOCK"
	TransactionUsage   TransactionType = "USAGE"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleChef    Role = "CHEF"
	RoleServer  Role = "SERVER"
	RoleHost    Role = "HOST"
)

func ParseTableStatus(s string) (TableStatus, error) {
	switch v := TableStatus(strings.ToUpper(s)); v {
	case TableAvailable, TableOccupied, TableReserved, TableDirty, TableCleaning:
		return v, nil
	}
	return "", Validation("unknown table status %q", s)
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch v := OrderStatus(strings.ToUpper(s)); v {
	case OrderOpen, OrderInProgress, OrderReady, OrderCompleted, OrderCancelled:
		return v, nil
	}
	return "", Validation("unknown order status %q", s)
}

func ParseItemStatus(s string) (ItemStatus, error) {
	switch v := ItemStatus(strings.ToUpper(s)); v {
	case ItemPending, ItemPreparing, ItemReady, ItemServed:
		return v, nil
	}
	return "", Validation("unknown item status %q", s)
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch v := PaymentMethod(strings.ToUpper(s)); v {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodMobile:
		return v, nil
	}
	return "", Validation("unknown payment method %q", s)
}

func ParseRole(s string) (Role, error) {
	switch v := Role(strings.ToUpper(s)); v {
	case RoleAdmin, RoleManager, RoleChef, RoleServer, RoleHost:
		return v, nil
	}
	return "", Validation("unknown role %q", s)
}
