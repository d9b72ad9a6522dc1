// Package notification delivers bidder-facing notices asynchronously so the
// submission path never waits on delivery.
package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// Sender delivers one notice to a bidder. Implementations may send email,
// push, or websocket messages; delivery failures are logged, never retried
// into the bidding path.
type Sender interface {
	SendOutbid(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money) error
	SendWon(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money) error
}

type noticeKind int

const (
	noticeOutbid noticeKind = iota
	noticeWon
)

type notice struct {
	kind     noticeKind
	bidderID uuid.UUID
	itemID   uuid.UUID
	amount   values.Money
}

// Dispatcher fans notices out to a Sender through a bounded queue and a fixed
// worker pool. When the queue is full the notice is dropped with a log line;
// a bid outcome is never blocked or rolled back by notification pressure.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	queue   chan notice
	workers int

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given queue size and worker count.
func NewDispatcher(sender Sender, logger *slog.Logger, bufferSize, workers int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger.With(slog.String("component", "notification")),
		queue:   make(chan notice, bufferSize),
		workers: workers,
	}
}

// Start launches the worker pool. Workers drain the queue until Close.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Close stops accepting notices and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) EnqueueOutbidNotice(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money) {
	d.enqueue(ctx, notice{kind: noticeOutbid, bidderID: bidderID, itemID: itemID, amount: newMinimumBid})
}

func (d *Dispatcher) EnqueueWonNotice(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money) {
	d.enqueue(ctx, notice{kind: noticeWon, bidderID: bidderID, itemID: itemID, amount: finalPrice})
}

func (d *Dispatcher) enqueue(ctx context.Context, n notice) {
	select {
	case d.queue <- n:
	default:
		d.logger.WarnContext(ctx, "notification queue full, dropping notice",
			slog.String("bidder_id", n.bidderID.String()),
			slog.String("item_id", n.itemID.String()),
		)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		var err error
		switch n.kind {
		case noticeOutbid:
			err = d.sender.SendOutbid(ctx, n.bidderID, n.itemID, n.amount)
		case noticeWon:
			err = d.sender.SendWon(ctx, n.bidderID, n.itemID, n.amount)
		}
		if err != nil {
			d.logger.ErrorContext(ctx, "notification delivery failed",
				slog.String("bidder_id", n.bidderID.String()),
				slog.String("item_id", n.itemID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

var _ bidding.NotificationDispatcher = (*Dispatcher)(nil)

// LogSender is the default Sender: it writes each notice to the log. Real
// delivery channels plug in behind the same interface.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOutbid(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money) error {
	s.logger.InfoContext(ctx, "outbid notice",
		slog.String("bidder_id", bidderID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("new_minimum_bid", newMinimumBid.String()),
	)
	return nil
}

func (s *LogSender) SendWon(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money) error {
	s.logger.InfoContext(ctx, "won notice",
		slog.String("bidder_id", bidderID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("final_price", finalPrice.String()),
	)
	return nil
}
