package events

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
)

// BrewingEventPublisher publishes brewing-related events
type BrewingEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewBrewingEventPublisher creates a new brewing event publisher.
// A nil publisher yields a nil value whose methods do nothing.
func NewBrewingEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *BrewingEventPublisher {
	if publisher == nil {
		return nil
	}
	return &BrewingEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishStatusChanged publishes a batch status changed event
func (p *BrewingEventPublisher) PublishStatusChanged(ctx context.Context, b *repository.BrewBatch, from enums.BatchStatus) {
	if p == nil {
		return
	}

	data := messaging.StatusChangedEvent{
		ID:         b.ID,
		Number:     b.BatchNumber,
		FromStatus: from.String(),
		ToStatus:   b.Status.String(),
		ChangedAt:  b.UpdatedAt,
	}
	if err := p.publisher.Publish(ctx, messaging.EventBatchStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", b.ID).Msg("failed to publish batch status changed event")
	}
}

// PublishFermentationLogged publishes a fermentation logged event
func (p *BrewingEventPublisher) PublishFermentationLogged(ctx context.Context, b *repository.BrewBatch, e *repository.FermentationEntry) {
	if p == nil {
		return
	}

	data := messaging.FermentationLoggedEvent{
		BatchID:     b.ID,
		EntryID:     e.ID,
		Gravity:     e.Gravity,
		Temperature: e.TemperatureCelsius,
		ActualOG:    b.ActualOG,
		ActualFG:    b.ActualFG,
		LoggedAt:    e.LoggedAt.In(time.UTC),
	}
	if err := p.publisher.Publish(ctx, messaging.EventFermentationLogged, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", b.ID).Msg("failed to publish fermentation logged event")
	}
}
