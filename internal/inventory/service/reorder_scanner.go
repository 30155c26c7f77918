package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/brewops/brewops-backend/internal/inventory/events"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
)

// ReorderScanner checks live positions against item reorder points.
// An item is announced once when it drops below its reorder point and again
// only after it has recovered in between.
type ReorderScanner struct {
	positions *PositionService
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger

	mu      sync.Mutex
	flagged map[string]bool
}

// NewReorderScanner creates a new reorder scanner
func NewReorderScanner(positions *PositionService, publisher *events.InventoryEventPublisher, log *logger.Logger) *ReorderScanner {
	return &ReorderScanner{
		positions: positions,
		publisher: publisher,
		logger:    log,
		flagged:   make(map[string]bool),
	}
}

// Scan returns every item currently below its reorder point and publishes an
// event for the ones that were not below on the previous scan.
func (s *ReorderScanner) Scan(ctx context.Context) ([]*InventoryPosition, error) {
	all, err := s.positions.GetPositionAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reorder scan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	below := make([]*InventoryPosition, 0)
	seen := make(map[string]bool, len(all))
	for _, p := range all {
		if !p.BelowReorderPoint {
			continue
		}
		below = append(below, p)
		seen[p.ItemID] = true
		if s.flagged[p.ItemID] {
			continue
		}

		s.logger.Warn().
			Str("item_id", p.ItemID).
			Str("item", p.ItemName).
			Str("available", p.QuantityAvailable.String()).
			Str("reorder_point", p.ReorderPoint.Decimal.String()).
			Msg("item below reorder point")
		s.publisher.PublishBelowReorderPoint(ctx, messaging.ItemBelowReorderPointEvent{
			ItemID:            p.ItemID,
			ItemName:          p.ItemName,
			Unit:              p.Unit,
			QuantityAvailable: p.QuantityAvailable,
			QuantityOnOrder:   p.QuantityOnOrder,
			ReorderPoint:      p.ReorderPoint.Decimal,
		})
	}
	s.flagged = seen

	return below, nil
}
