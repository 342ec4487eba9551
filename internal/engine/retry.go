package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/makerhub/makerhub/internal/domain"
)

// updateInstance applies mutate to a freshly read copy of the instance and
// writes it back with a version check. On a version conflict the whole
// read-mutate-write cycle restarts, so mutate always runs against current
// state; any other error from mutate or the store aborts immediately.
// After maxAttempts conflicts the operation gives up with
// ErrConcurrencyExhausted.
func (e *Engine) updateInstance(ctx context.Context, instanceID string, mutate func(*domain.Instance) error) (*domain.Instance, error) {
	for attempt := 1; ; attempt++ {
		rec, err := e.store.Get(ctx, instanceID)
		if err != nil {
			return nil, err
		}

		if err := mutate(&rec.Instance); err != nil {
			return nil, err
		}

		err = e.store.Update(ctx, rec)
		if err == nil {
			return &rec.Instance, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= e.maxAttempts {
			return nil, fmt.Errorf("persisting instance %s after %d attempts: %w", instanceID, attempt, domain.ErrConcurrencyExhausted)
		}

		slog.Warn("Version conflict writing instance, retrying",
			"instance_id", instanceID,
			"attempt", attempt,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.retryDelay):
		}
	}
}
