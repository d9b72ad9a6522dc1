package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

// Bid is one row of an item's append-only bid history. A bid is created once
// at submission and its status is updated exactly once if a later bid
// displaces it; it is never deleted or reassigned to another item.
type Bid struct {
	ID          uuid.UUID     `json:"id"`
	ItemID      uuid.UUID     `json:"item_id"`
	BidderID    uuid.UUID     `json:"bidder_id"`
	Amount      values.Money  `json:"amount"`
	Ceiling     *values.Money `json:"ceiling,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Status      BidStatus     `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

type BidStatus int

const (
	BidStatusWinning BidStatus = iota
	BidStatusOutbid
	BidStatusRejected
)

func (s BidStatus) String() string {
	switch s {
	case BidStatusWinning:
		return "winning"
	case BidStatusOutbid:
		return "outbid"
	case BidStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// BidStatusFromString parses a stored bid status value.
func BidStatusFromString(s string) BidStatus {
	switch s {
	case "winning":
		return BidStatusWinning
	case "outbid":
		return BidStatusOutbid
	default:
		return BidStatusRejected
	}
}

// NewBid records a submission against an item's history.
func NewBid(itemID, bidderID uuid.UUID, amount values.Money, ceiling *values.Money, submittedAt time.Time) *Bid {
	return &Bid{
		ID:          uuid.New(),
		ItemID:      itemID,
		BidderID:    bidderID,
		Amount:      amount,
		Ceiling:     ceiling,
		SubmittedAt: submittedAt,
		Status:      BidStatusWinning,
		CreatedAt:   submittedAt,
	}
}

// MarkOutbid flips a previously winning bid to outbid.
func (b *Bid) MarkOutbid() {
	b.Status = BidStatusOutbid
}

// MarkRejected flags a submission that failed validation.
func (b *Bid) MarkRejected() {
	b.Status = BidStatusRejected
}
