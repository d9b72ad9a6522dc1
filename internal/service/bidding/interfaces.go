package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

// Service is the bid-resolution engine's contract to the web layer and the
// closing-time job. No wire format is mandated here; callers wrap it in
// whatever transport the surrounding system uses.
type Service interface {
	// SubmitBid validates, resolves and persists one bid submission.
	SubmitBid(ctx context.Context, req *SubmitBidRequest) (*BidResult, error)
	// ExecuteBuyNow purchases the item at its fixed price, bypassing bidding.
	ExecuteBuyNow(ctx context.Context, itemID, bidderID uuid.UUID) (*BidResult, error)
	// CloseIfExpired transitions an open item past its close time into a
	// terminal state. Invoked by the expiry sweeper.
	CloseIfExpired(ctx context.Context, itemID uuid.UUID, now time.Time) (*ClosureResult, error)
}

// ItemStore persists auction items with optimistic concurrency control.
type ItemStore interface {
	// GetByID loads one item.
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Item, error)
	// Create stores a new item.
	Create(ctx context.Context, item *auction.Item) error
	// Save persists item state if the stored version still equals
	// expectedVersion, bumping the version on success. Returns an error with
	// code VERSION_CONFLICT when another writer got there first.
	Save(ctx context.Context, item *auction.Item, expectedVersion int64) error
	// ListExpired returns ids of open items whose close time has passed.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// BidHistoryStore persists the append-only bid history.
type BidHistoryStore interface {
	// Append records a new bid row.
	Append(ctx context.Context, b *auction.Bid) error
	// MarkOutbid flips a bid row's status to outbid, exactly once.
	MarkOutbid(ctx context.Context, bidID uuid.UUID) error
	// LatestWinning returns the bidder's most recent winning bid on the item.
	LatestWinning(ctx context.Context, itemID, bidderID uuid.UUID) (*auction.Bid, error)
	// ListByItem returns the item's history, newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*auction.Bid, error)
}

// Clock abstracts time for deterministic testing.
type Clock interface {
	Now() time.Time
}

// ItemLocker serializes all mutating operations per item. Acquire returns an
// unlock function on success; implementations must scope the lock to the key
// so different items never block each other.
type ItemLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// NotificationDispatcher enqueues fire-and-forget notices after commit.
// At-least-once delivery is acceptable; failures never roll back a bid.
type NotificationDispatcher interface {
	EnqueueOutbidNotice(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money)
	EnqueueWonNotice(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money)
}

// MetricsCollector records engine-level measurements.
type MetricsCollector interface {
	RecordBidAccepted(ctx context.Context, itemID uuid.UUID)
	RecordBidRejected(ctx context.Context, code string)
	RecordBuyNow(ctx context.Context, itemID uuid.UUID)
	RecordExtension(ctx context.Context, itemID uuid.UUID)
	RecordConflictRetry(ctx context.Context, itemID uuid.UUID)
	RecordBidProcessingDuration(ctx context.Context, d time.Duration)
}

// SubmitBidRequest is one bid submission. SubmittedAt is stamped from the
// clock when zero; the tie-break operates on this payload timestamp, not on
// commit order.
type SubmitBidRequest struct {
	ItemID      uuid.UUID
	BidderID    uuid.UUID
	Amount      values.Money
	Ceiling     *values.Money
	SubmittedAt time.Time
}

// BidResult reports the outcome of an accepted submission or buy-now.
type BidResult struct {
	Bid            *auction.Bid
	Item           *auction.Item
	Winning        bool
	IsTie          bool
	Extended       bool
	MinimumNextBid values.Money
}

// ClosureResult reports the outcome of a close attempt.
type ClosureResult struct {
	Item       *auction.Item
	Closed     bool
	WinnerID   *uuid.UUID
	FinalPrice *values.Money
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
