package bidding

import (
	"context"
	"log/slog"
	"time"
)

// Closer is the closing-time job: it periodically sweeps open items whose
// close time has passed and transitions them to a terminal state through the
// same per-item locking discipline as bids.
type Closer struct {
	svc       Service
	items     ItemStore
	clock     Clock
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewCloser creates an expiry sweeper.
func NewCloser(svc Service, items ItemStore, clock Clock, logger *slog.Logger, interval time.Duration, batchSize int) *Closer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Closer{
		svc:       svc,
		items:     items,
		clock:     clock,
		logger:    logger.With(slog.String("component", "closer")),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run sweeps until the context is canceled.
func (c *Closer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep closes every due item once. Failures on individual items are logged
// and do not stop the sweep; the next tick retries them.
func (c *Closer) Sweep(ctx context.Context) {
	now := c.clock.Now()
	ids, err := c.items.ListExpired(ctx, now, c.batchSize)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to list expired items",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, id := range ids {
		if _, err := c.svc.CloseIfExpired(ctx, id, now); err != nil {
			c.logger.ErrorContext(ctx, "failed to close expired item",
				slog.String("item_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
