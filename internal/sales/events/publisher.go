package events

import (
	"context"

	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
)

// SalesEventPublisher publishes sales order events
type SalesEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewSalesEventPublisher creates a new sales event publisher.
// A nil publisher yields a nil value whose methods do nothing.
func NewSalesEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *SalesEventPublisher {
	if publisher == nil {
		return nil
	}
	return &SalesEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishStatusChanged publishes an order status changed event
func (p *SalesEventPublisher) PublishStatusChanged(ctx context.Context, o *repository.Order, from enums.OrderStatus) {
	if p == nil {
		return
	}

	data := messaging.StatusChangedEvent{
		ID:         o.ID,
		Number:     o.OrderNumber,
		FromStatus: from.String(),
		ToStatus:   o.Status.String(),
		ChangedAt:  o.UpdatedAt,
	}
	if err := p.publisher.Publish(ctx, messaging.EventOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", o.ID).Msg("failed to publish order status changed event")
	}
}
