package enums

import "fmt"

// OrderStatus tracks the fulfilment lifecycle of a customer order.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "draft"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPicking    OrderStatus = "picking"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusInvoiced   OrderStatus = "invoiced"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusConfirmed,
	OrderStatusPicking,
	OrderStatusDispatched,
	OrderStatusDelivered,
	OrderStatusInvoiced,
	OrderStatusPaid,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Successors returns the statuses an order may move to from s.
func (s OrderStatus) Successors() []OrderStatus {
	switch s {
	case OrderStatusDraft:
		return []OrderStatus{OrderStatusConfirmed, OrderStatusCancelled}
	case OrderStatusConfirmed:
		return []OrderStatus{OrderStatusPicking, OrderStatusDispatched, OrderStatusCancelled}
	case OrderStatusPicking:
		return []OrderStatus{OrderStatusDispatched, OrderStatusCancelled}
	case OrderStatusDispatched:
		return []OrderStatus{OrderStatusDelivered}
	case OrderStatusDelivered:
		return []OrderStatus{OrderStatusInvoiced}
	case OrderStatusInvoiced:
		return []OrderStatus{OrderStatusPaid}
	case OrderStatusPaid, OrderStatusCancelled:
		return nil
	default:
		return nil
	}
}

// CanTransitionTo reports whether to is an allowed successor of s.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range s.Successors() {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(s.Successors()) == 0
}

// IsEditable reports whether lines may still be added, changed or removed.
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusDraft || s == OrderStatusConfirmed
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
