package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

// WinnerState is the resolver's view of the item's current winning position.
type WinnerState struct {
	BidderID        uuid.UUID
	DisplayedAmount values.Money
	Ceiling         values.Money
	CeilingSetAt    time.Time
}

// IncomingBid is a submission entering resolution. Ceiling is the bidder's
// optional private proxy ceiling; SubmittedAt is the payload timestamp used
// for the tie-break, not the commit time.
type IncomingBid struct {
	BidderID    uuid.UUID
	Amount      values.Money
	Ceiling     *values.Money
	SubmittedAt time.Time
}

// EffectiveCeiling returns the bidder's proxy ceiling, never below the
// submitted amount.
func (b IncomingBid) EffectiveCeiling() values.Money {
	if b.Ceiling == nil {
		return b.Amount
	}
	return values.Max(b.Amount, *b.Ceiling)
}

// Resolution is the outcome of applying one incoming bid to the current
// winning state. Identical inputs always produce identical output, which is
// what makes resolution safe to recompute inside a retried transaction.
type Resolution struct {
	WinningBidderID     uuid.UUID
	WinningAmount       values.Money
	WinningCeiling      values.Money
	WinningCeilingSetAt time.Time
	OutbidBidderID      *uuid.UUID
	OutbidCeiling       values.Money
	IsTie               bool
}

// Resolve computes the new winning state for an item given its current winner
// (nil if none) and an incoming bid. Pure; no I/O, no clock reads.
//
// The increment step is always taken from the displayed price before this bid
// is applied, never the new price.
func Resolve(current *WinnerState, incoming IncomingBid, rules []BidIncrementRule) Resolution {
	incomingCeiling := incoming.EffectiveCeiling()

	if current == nil {
		return Resolution{
			WinningBidderID:     incoming.BidderID,
			WinningAmount:       incoming.Amount,
			WinningCeiling:      incomingCeiling,
			WinningCeilingSetAt: incoming.SubmittedAt,
		}
	}

	if current.BidderID == incoming.BidderID {
		// Re-bid by the standing winner: the displayed price never moves,
		// only the ceiling may rise.
		ceiling := values.Max(current.Ceiling, incomingCeiling)
		setAt := current.CeilingSetAt
		if ceiling.GreaterThan(current.Ceiling) {
			setAt = incoming.SubmittedAt
		}
		return Resolution{
			WinningBidderID:     current.BidderID,
			WinningAmount:       current.DisplayedAmount,
			WinningCeiling:      ceiling,
			WinningCeilingSetAt: setAt,
		}
	}

	increment := IncrementFor(current.DisplayedAmount, rules)

	switch incomingCeiling.Compare(current.Ceiling) {
	case 1:
		// Challenger's ceiling clears the standing one: challenger wins,
		// paying one increment above the previous ceiling unless their own
		// ceiling is smaller than that step.
		displayed := values.Min(incomingCeiling, current.Ceiling.MustAdd(increment))
		prev := current.BidderID
		return Resolution{
			WinningBidderID:     incoming.BidderID,
			WinningAmount:       values.Max(displayed, current.DisplayedAmount),
			WinningCeiling:      incomingCeiling,
			WinningCeilingSetAt: incoming.SubmittedAt,
			OutbidBidderID:      &prev,
			OutbidCeiling:       current.Ceiling,
		}
	case -1:
		// Standing winner holds, but the displayed price auto-raises to
		// reflect the challenge.
		displayed := values.Min(current.Ceiling, incomingCeiling.MustAdd(increment))
		challenger := incoming.BidderID
		return Resolution{
			WinningBidderID:     current.BidderID,
			WinningAmount:       values.Max(displayed, current.DisplayedAmount),
			WinningCeiling:      current.Ceiling,
			WinningCeilingSetAt: current.CeilingSetAt,
			OutbidBidderID:      &challenger,
			OutbidCeiling:       incomingCeiling,
		}
	default:
		// Tied ceilings: whoever set their ceiling value first wins, at a
		// displayed price equal to the tied ceiling.
		if incoming.SubmittedAt.Before(current.CeilingSetAt) {
			prev := current.BidderID
			return Resolution{
				WinningBidderID:     incoming.BidderID,
				WinningAmount:       values.Max(incomingCeiling, current.DisplayedAmount),
				WinningCeiling:      incomingCeiling,
				WinningCeilingSetAt: incoming.SubmittedAt,
				OutbidBidderID:      &prev,
				OutbidCeiling:       current.Ceiling,
				IsTie:               true,
			}
		}
		challenger := incoming.BidderID
		return Resolution{
			WinningBidderID:     current.BidderID,
			WinningAmount:       values.Max(current.Ceiling, current.DisplayedAmount),
			WinningCeiling:      current.Ceiling,
			WinningCeilingSetAt: current.CeilingSetAt,
			OutbidBidderID:      &challenger,
			OutbidCeiling:       incomingCeiling,
			IsTie:               true,
		}
	}
}
