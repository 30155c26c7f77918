package events

import (
	"context"

	"github.com/brewops/brewops-backend/internal/procurement/repository"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// ProcurementEventPublisher publishes purchase order events
type ProcurementEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewProcurementEventPublisher creates a new procurement event publisher.
// A nil publisher yields a nil value whose methods do nothing.
func NewProcurementEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *ProcurementEventPublisher {
	if publisher == nil {
		return nil
	}
	return &ProcurementEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishStatusChanged publishes a purchase order status changed event
func (p *ProcurementEventPublisher) PublishStatusChanged(ctx context.Context, po *repository.PurchaseOrder, from enums.PurchaseOrderStatus) {
	if p == nil {
		return
	}

	data := messaging.StatusChangedEvent{
		ID:         po.ID,
		Number:     po.PONumber,
		FromStatus: from.String(),
		ToStatus:   po.Status.String(),
		ChangedAt:  po.UpdatedAt,
	}
	if err := p.publisher.Publish(ctx, messaging.EventPurchaseOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_order_id", po.ID).Msg("failed to publish purchase order status changed event")
	}
}

// PublishLineReceived publishes a line received event
func (p *ProcurementEventPublisher) PublishLineReceived(ctx context.Context, po *repository.PurchaseOrder, line *repository.PurchaseOrderLine, lotID string, qty decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.LineReceivedEvent{
		PurchaseOrderID: po.ID,
		LineID:          line.ID,
		ItemID:          line.ItemID,
		LotID:           lotID,
		Quantity:        qty,
		NewStatus:       po.Status.String(),
	}
	if err := p.publisher.Publish(ctx, messaging.EventPurchaseOrderLineReceived, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_order_id", po.ID).Msg("failed to publish line received event")
	}
}
