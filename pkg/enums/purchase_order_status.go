package enums

import "fmt"

// PurchaseOrderStatus tracks the lifecycle of a purchase order.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusSent              PurchaseOrderStatus = "sent"
	PurchaseOrderStatusAcknowledged      PurchaseOrderStatus = "acknowledged"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusSent,
	PurchaseOrderStatusAcknowledged,
	PurchaseOrderStatusPartiallyReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

// OpenPurchaseOrderStatuses are the statuses whose unreceived quantities count as on order.
// Receiving is only accepted in these statuses.
var OpenPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusSent,
	PurchaseOrderStatusAcknowledged,
	PurchaseOrderStatusPartiallyReceived,
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Successors returns the statuses reachable through an explicit transition.
// partially_received and received are only entered by receiving goods.
func (s PurchaseOrderStatus) Successors() []PurchaseOrderStatus {
	switch s {
	case PurchaseOrderStatusDraft:
		return []PurchaseOrderStatus{PurchaseOrderStatusSent, PurchaseOrderStatusCancelled}
	case PurchaseOrderStatusSent:
		return []PurchaseOrderStatus{PurchaseOrderStatusAcknowledged, PurchaseOrderStatusCancelled}
	case PurchaseOrderStatusAcknowledged:
		return []PurchaseOrderStatus{PurchaseOrderStatusCancelled}
	case PurchaseOrderStatusPartiallyReceived:
		return []PurchaseOrderStatus{PurchaseOrderStatusCancelled}
	case PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled:
		return nil
	default:
		return nil
	}
}

// CanTransitionTo reports whether to is an allowed explicit successor of s.
func (s PurchaseOrderStatus) CanTransitionTo(to PurchaseOrderStatus) bool {
	for _, next := range s.Successors() {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the purchase order is closed.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusReceived || s == PurchaseOrderStatusCancelled
}

// IsOpen reports whether goods can still be received against the order.
func (s PurchaseOrderStatus) IsOpen() bool {
	for _, candidate := range OpenPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePurchaseOrderStatus converts raw input into a PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
