package bidding

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
)

// ErrLockHeld is returned by ItemLocker implementations when the per-item
// lock is held by another submission.
var ErrLockHeld = stderrors.New("item lock held")

// Config tunes the orchestrator's serialization behavior.
type Config struct {
	// MaxSaveRetries bounds transparent retries after a version conflict.
	MaxSaveRetries int
	// RetryBackoff is the base backoff between conflict retries.
	RetryBackoff time.Duration
	// LockTTL is how long an acquired item lock lives before expiring.
	LockTTL time.Duration
	// LockWait bounds how long a submission waits for the item lock.
	LockWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxSaveRetries <= 0 {
		c.MaxSaveRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 25 * time.Millisecond
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Second
	}
	if c.LockWait <= 0 {
		c.LockWait = 2 * time.Second
	}
	return c
}

// service orchestrates bid submission: timing and legality checks, per-item
// serialization, resolution, persistence, and post-commit notification.
type service struct {
	items    ItemStore
	history  BidHistoryStore
	locker   ItemLocker
	clock    Clock
	notifier NotificationDispatcher
	metrics  MetricsCollector
	logger   *slog.Logger
	cfg      Config
}

// NewService creates the bid submission service.
func NewService(
	items ItemStore,
	history BidHistoryStore,
	locker ItemLocker,
	clock Clock,
	notifier NotificationDispatcher,
	metrics MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) Service {
	return &service{
		items:    items,
		history:  history,
		locker:   locker,
		clock:    clock,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "bidding")),
		cfg:      cfg.withDefaults(),
	}
}

// SubmitBid resolves one submission under the item lock. The resolver is pure,
// so a version-conflict retry recomputes from a fresh read with no double side
// effects: history writes and notifications happen only after a committed save.
func (s *service) SubmitBid(ctx context.Context, req *SubmitBidRequest) (*BidResult, error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.RecordBidProcessingDuration(ctx, s.clock.Now().Sub(start))
	}()

	if err := s.validateSubmission(req); err != nil {
		return nil, err
	}

	unlock, err := s.acquireItemLock(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	var afterUnlock []func()
	defer func() {
		unlock()
		for _, fn := range afterUnlock {
			fn()
		}
	}()

	for attempt := 0; ; attempt++ {
		item, err := s.items.GetByID(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		submittedAt := req.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = now
		}

		// A submission that waited out a terminal transition must reject,
		// not apply; status is always re-checked under the lock.
		if err := item.IsOpenAt(now); err != nil {
			s.metrics.RecordBidRejected(ctx, errorCode(err))
			return nil, err
		}

		// Money comparisons panic across currencies; reject before any of
		// the resolution math can see a mismatched amount.
		if req.Amount.Currency() != item.Currency ||
			(req.Ceiling != nil && req.Ceiling.Currency() != item.Currency) {
			s.metrics.RecordBidRejected(ctx, "CURRENCY_MISMATCH")
			return nil, errors.NewCurrencyMismatchError(item.Currency)
		}

		minimum := item.MinimumNextBid()
		if req.Amount.LessThan(minimum) {
			rejected := auction.NewBid(item.ID, req.BidderID, req.Amount, req.Ceiling, submittedAt)
			rejected.MarkRejected()
			if err := s.history.Append(ctx, rejected); err != nil {
				s.logger.ErrorContext(ctx, "failed to record rejected bid",
					slog.String("item_id", item.ID.String()),
					slog.String("error", err.Error()),
				)
			}
			s.metrics.RecordBidRejected(ctx, "BID_TOO_LOW")
			return nil, errors.NewBelowMinimumBidError(minimum.String())
		}

		incoming := auction.IncomingBid{
			BidderID:    req.BidderID,
			Amount:      req.Amount,
			Ceiling:     req.Ceiling,
			SubmittedAt: submittedAt,
		}
		res := auction.Resolve(item.WinnerState(), incoming, item.EffectiveRules())

		expectedVersion := item.Version
		item.ApplyResolution(res)
		extended := auction.ExtendForBid(item, now)

		if err := s.items.Save(ctx, item, expectedVersion); err != nil {
			if retryErr := s.handleSaveConflict(ctx, err, item.ID, attempt); retryErr == nil {
				continue
			} else {
				return nil, retryErr
			}
		}

		b := auction.NewBid(item.ID, req.BidderID, req.Amount, req.Ceiling, submittedAt)
		winning := res.WinningBidderID == req.BidderID
		if !winning {
			b.MarkOutbid()
		}
		s.recordHistory(ctx, item, b, res.OutbidBidderID, req.BidderID)

		s.metrics.RecordBidAccepted(ctx, item.ID)
		if extended {
			s.metrics.RecordExtension(ctx, item.ID)
		}

		newMinimum := item.MinimumNextBid()
		if res.OutbidBidderID != nil {
			displaced := *res.OutbidBidderID
			itemID := item.ID
			notifyCtx := context.WithoutCancel(ctx)
			afterUnlock = append(afterUnlock, func() {
				s.notifier.EnqueueOutbidNotice(notifyCtx, displaced, itemID, newMinimum)
			})
		}

		return &BidResult{
			Bid:            b,
			Item:           item,
			Winning:        winning,
			IsTie:          res.IsTie,
			Extended:       extended,
			MinimumNextBid: newMinimum,
		}, nil
	}
}

// ExecuteBuyNow follows the same locking discipline as SubmitBid but takes the
// fixed-price path, bypassing resolution entirely.
func (s *service) ExecuteBuyNow(ctx context.Context, itemID, bidderID uuid.UUID) (*BidResult, error) {
	if itemID == uuid.Nil || bidderID == uuid.Nil {
		return nil, errors.NewValidationError("MISSING_ID", "item and bidder ids are required")
	}

	unlock, err := s.acquireItemLock(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var afterUnlock []func()
	defer func() {
		unlock()
		for _, fn := range afterUnlock {
			fn()
		}
	}()

	for attempt := 0; ; attempt++ {
		item, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		var displaced *uuid.UUID
		if item.CurrentWinnerID != nil && *item.CurrentWinnerID != bidderID {
			prev := *item.CurrentWinnerID
			displaced = &prev
		}

		expectedVersion := item.Version
		if err := item.ExecuteBuyNow(bidderID, now); err != nil {
			s.metrics.RecordBidRejected(ctx, errorCode(err))
			return nil, err
		}

		if err := s.items.Save(ctx, item, expectedVersion); err != nil {
			if retryErr := s.handleSaveConflict(ctx, err, item.ID, attempt); retryErr == nil {
				continue
			} else {
				return nil, retryErr
			}
		}

		b := auction.NewBid(item.ID, bidderID, *item.BuyNowPrice, nil, now)
		s.recordHistory(ctx, item, b, displaced, bidderID)

		s.metrics.RecordBuyNow(ctx, item.ID)

		buyer := bidderID
		finalPrice := *item.BuyNowPrice
		notifyCtx := context.WithoutCancel(ctx)
		afterUnlock = append(afterUnlock, func() {
			s.notifier.EnqueueWonNotice(notifyCtx, buyer, itemID, finalPrice)
		})

		return &BidResult{
			Bid:            b,
			Item:           item,
			Winning:        true,
			MinimumNextBid: item.CurrentBid,
		}, nil
	}
}

// CloseIfExpired transitions an open item past closesAt into SOLD_VIA_BID or
// CLOSED_NO_SALE and notifies the winner, if any.
func (s *service) CloseIfExpired(ctx context.Context, itemID uuid.UUID, now time.Time) (*ClosureResult, error) {
	if now.IsZero() {
		now = s.clock.Now()
	}

	unlock, err := s.acquireItemLock(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var afterUnlock []func()
	defer func() {
		unlock()
		for _, fn := range afterUnlock {
			fn()
		}
	}()

	for attempt := 0; ; attempt++ {
		item, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return nil, err
		}

		expectedVersion := item.Version
		if !item.CloseIfExpired(now) {
			return &ClosureResult{Item: item, Closed: false}, nil
		}

		if err := s.items.Save(ctx, item, expectedVersion); err != nil {
			if retryErr := s.handleSaveConflict(ctx, err, item.ID, attempt); retryErr == nil {
				continue
			} else {
				return nil, retryErr
			}
		}

		result := &ClosureResult{Item: item, Closed: true}
		if item.Status == auction.StatusSoldViaBid {
			winner := *item.CurrentWinnerID
			finalPrice := item.CurrentBid
			result.WinnerID = &winner
			result.FinalPrice = &finalPrice

			notifyCtx := context.WithoutCancel(ctx)
			afterUnlock = append(afterUnlock, func() {
				s.notifier.EnqueueWonNotice(notifyCtx, winner, itemID, finalPrice)
			})
		}

		s.logger.InfoContext(ctx, "item closed",
			slog.String("item_id", itemID.String()),
			slog.String("status", item.Status.String()),
		)
		return result, nil
	}
}

func (s *service) validateSubmission(req *SubmitBidRequest) error {
	if req.ItemID == uuid.Nil {
		return errors.NewValidationError("MISSING_ITEM_ID", "item ID is required")
	}
	if req.BidderID == uuid.Nil {
		return errors.NewValidationError("MISSING_BIDDER_ID", "bidder ID is required")
	}
	if !req.Amount.IsPositive() {
		return errors.NewValidationError("INVALID_BID_AMOUNT", "bid amount must be positive")
	}
	return nil
}

// acquireItemLock waits for the per-item lock with bounded backoff. Lock
// contention is expected under concurrent bidding; everything behind the lock
// is recomputable so waiting out a holder is always safe.
func (s *service) acquireItemLock(ctx context.Context, itemID uuid.UUID) (func(), error) {
	key := "auction:item:" + itemID.String()
	deadline := s.clock.Now().Add(s.cfg.LockWait)
	backoff := 10 * time.Millisecond

	for {
		unlock, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
		if err == nil {
			return unlock, nil
		}
		if !stderrors.Is(err, ErrLockHeld) {
			return nil, errors.NewExternalError("lock", "failed to acquire item lock").WithCause(err)
		}
		if s.clock.Now().Add(backoff).After(deadline) {
			return nil, errors.NewTransientFailureError("timed out waiting for item lock")
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, errors.NewTransientFailureError("canceled while waiting for item lock").WithCause(err)
		}
		if backoff < 160*time.Millisecond {
			backoff *= 2
		}
	}
}

// handleSaveConflict returns nil when the caller should retry from a fresh
// read, or the error to surface.
func (s *service) handleSaveConflict(ctx context.Context, err error, itemID uuid.UUID, attempt int) error {
	if !errors.IsCode(err, "VERSION_CONFLICT") {
		return err
	}
	if attempt >= s.cfg.MaxSaveRetries {
		return errors.NewTransientFailureError("item update retries exhausted").WithCause(err)
	}

	s.metrics.RecordConflictRetry(ctx, itemID)
	s.logger.WarnContext(ctx, "version conflict, retrying",
		slog.String("item_id", itemID.String()),
		slog.Int("attempt", attempt+1),
	)
	if sleepErr := sleepCtx(ctx, s.cfg.RetryBackoff*time.Duration(attempt+1)); sleepErr != nil {
		return errors.NewTransientFailureError("canceled during conflict retry").WithCause(sleepErr)
	}
	return nil
}

// recordHistory appends the incoming bid row and flips the displaced bidder's
// latest winning row to outbid. History failures are logged, never rolled
// back: a committed bid stays accepted.
func (s *service) recordHistory(ctx context.Context, item *auction.Item, b *auction.Bid, displaced *uuid.UUID, incomingBidder uuid.UUID) {
	if err := s.history.Append(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "failed to append bid history",
			slog.String("item_id", item.ID.String()),
			slog.String("bid_id", b.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	if displaced == nil || *displaced == incomingBidder {
		return
	}

	prev, err := s.history.LatestWinning(ctx, item.ID, *displaced)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to look up displaced bid",
			slog.String("item_id", item.ID.String()),
			slog.String("bidder_id", displaced.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if prev == nil {
		return
	}
	if err := s.history.MarkOutbid(ctx, prev.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark bid outbid",
			slog.String("bid_id", prev.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func errorCode(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
