package service

import (
	"context"
	"time"

	"github.com/brewops/brewops-backend/pkg/logger"
)

// ReorderScheduler runs reorder scans periodically
type ReorderScheduler struct {
	scanner  *ReorderScanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewReorderScheduler creates a new reorder scheduler
func NewReorderScheduler(scanner *ReorderScanner, interval time.Duration, log *logger.Logger) *ReorderScheduler {
	return &ReorderScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine.
// The first scan runs immediately.
func (s *ReorderScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("reorder scheduler started")

		s.runScanCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("reorder scheduler stopped")
				return
			case <-ticker.C:
				s.runScanCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine and waits for it to exit
func (s *ReorderScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *ReorderScheduler) runScanCycle(ctx context.Context) {
	start := time.Now()

	below, err := s.scanner.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("reorder scan failed")
		}
		return
	}

	s.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("below_reorder_point", len(below)).
		Msg("reorder scan completed")
}
