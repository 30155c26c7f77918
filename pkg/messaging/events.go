package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	// Brewing events
	EventBatchStatusChanged = "brewing.batch.status_changed"
	EventFermentationLogged = "brewing.fermentation.logged"

	// Procurement events
	EventPurchaseOrderStatusChanged = "procurement.po.status_changed"
	EventPurchaseOrderLineReceived  = "procurement.po.line_received"

	// Sales events
	EventOrderStatusChanged = "sales.order.status_changed"

	// Inventory events
	EventMovementRecorded      = "inventory.movement.recorded"
	EventItemBelowReorderPoint = "inventory.item.below_reorder_point"
)

// ExchangeBreweryEvents is the default topic exchange for all domain events.
const ExchangeBreweryEvents = "brewery.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// StatusChangedEvent is published after any lifecycle transition commits.
type StatusChangedEvent struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedAt  time.Time `json:"changed_at"`
}

// FermentationLoggedEvent is published when a fermentation reading is stored
type FermentationLoggedEvent struct {
	BatchID     string              `json:"batch_id"`
	EntryID     string              `json:"entry_id"`
	Gravity     decimal.NullDecimal `json:"gravity"`
	Temperature decimal.NullDecimal `json:"temperature_celsius"`
	ActualOG    decimal.NullDecimal `json:"actual_og"`
	ActualFG    decimal.NullDecimal `json:"actual_fg"`
	LoggedAt    time.Time           `json:"logged_at"`
}

// LineReceivedEvent is published when goods are received against a purchase order line
type LineReceivedEvent struct {
	PurchaseOrderID string          `json:"purchase_order_id"`
	LineID          string          `json:"line_id"`
	ItemID          string          `json:"item_id"`
	LotID           string          `json:"lot_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	NewStatus       string          `json:"new_status"`
}

// MovementRecordedEvent is published for every stock ledger entry
type MovementRecordedEvent struct {
	MovementID    string          `json:"movement_id"`
	LotID         string          `json:"lot_id"`
	ItemID        string          `json:"item_id"`
	MovementType  string          `json:"movement_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	NewOnHand     decimal.Decimal `json:"new_on_hand"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
}

// ItemBelowReorderPointEvent is emitted once when an item's available
// quantity drops under its reorder point.
type ItemBelowReorderPointEvent struct {
	ItemID            string          `json:"item_id"`
	ItemName          string          `json:"item_name"`
	Unit              string          `json:"unit"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	QuantityOnOrder   decimal.Decimal `json:"quantity_on_order"`
	ReorderPoint      decimal.Decimal `json:"reorder_point"`
}
