// Package cleanup provides the memory retention loop.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/newslens/newslens/pkg/config"
)

// MemoryCleaner purges expired and soft-deleted memory records.
// *memory.Store satisfies it.
type MemoryCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Service periodically hard-deletes memory records whose TTL elapsed.
// The sweep is idempotent and safe to run from multiple pods.
type Service struct {
	interval time.Duration
	store    MemoryCleaner

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg config.CleanupConfig, store MemoryCleaner) *Service {
	return &Service{interval: cfg.IntervalDuration(), store: store}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started", "interval", s.interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	count, err := s.store.CleanupExpired(ctx)
	if err != nil {
		slog.Error("Retention: memory cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged expired memories", "count", count)
	}
}
