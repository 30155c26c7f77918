package events

import (
	"context"

	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// InventoryEventPublisher publishes inventory-related events
type InventoryEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher.
// A nil publisher yields a nil value whose methods do nothing.
func NewInventoryEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *InventoryEventPublisher {
	if publisher == nil {
		return nil
	}
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishMovementRecorded publishes a movement recorded event
func (p *InventoryEventPublisher) PublishMovementRecorded(ctx context.Context, m *repository.StockMovement, newOnHand decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.MovementRecordedEvent{
		MovementID:   m.ID,
		LotID:        m.LotID,
		ItemID:       m.ItemID,
		MovementType: m.MovementType.String(),
		Quantity:     m.Quantity,
		NewOnHand:    newOnHand,
	}
	if m.ReferenceType != nil {
		data.ReferenceType = *m.ReferenceType
	}
	if m.ReferenceID != nil {
		data.ReferenceID = *m.ReferenceID
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement recorded event")
	}
}

// PublishBelowReorderPoint publishes a low stock event
func (p *InventoryEventPublisher) PublishBelowReorderPoint(ctx context.Context, data messaging.ItemBelowReorderPointEvent) {
	if p == nil {
		return
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemBelowReorderPoint, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", data.ItemID).Msg("failed to publish below reorder point event")
	}
}
