package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

// Item is the persisted record for one sellable lot: its configuration plus
// the denormalized current winning state maintained alongside the bid history.
type Item struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Currency string    `json:"currency"`

	StartingBid values.Money  `json:"starting_bid"`
	BuyNowPrice *values.Money `json:"buy_now_price,omitempty"`

	OpensAt  *time.Time `json:"opens_at,omitempty"`
	ClosesAt time.Time  `json:"closes_at"`

	// Anti-sniping policy. A zero window disables extensions; MaxExtensions
	// of zero means unlimited.
	AntiSnipingWindow time.Duration `json:"anti_sniping_window"`
	MaxExtensions     int           `json:"max_extensions"`
	Extensions        int           `json:"extensions"`

	// IncrementRules overrides the default schedule when non-empty.
	IncrementRules []BidIncrementRule `json:"increment_rules,omitempty"`

	// Denormalized cache of the latest non-outbid, non-rejected bid.
	CurrentBid                values.Money `json:"current_bid"`
	CurrentWinnerID           *uuid.UUID   `json:"current_winner_id,omitempty"`
	CurrentWinnerCeiling      values.Money `json:"current_winner_ceiling"`
	CurrentWinnerCeilingSetAt time.Time    `json:"current_winner_ceiling_set_at"`

	Status  Status `json:"status"`
	Version int64  `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusOpen Status = iota
	StatusSoldViaBid
	StatusSoldViaBuyNow
	StatusClosedNoSale
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusSoldViaBid:
		return "sold_via_bid"
	case StatusSoldViaBuyNow:
		return "sold_via_buy_now"
	case StatusClosedNoSale:
		return "closed_no_sale"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the item can accept no further bids.
func (s Status) IsTerminal() bool {
	return s != StatusOpen
}

// StatusFromString parses a stored status value.
func StatusFromString(s string) (Status, error) {
	switch s {
	case "open":
		return StatusOpen, nil
	case "sold_via_bid":
		return StatusSoldViaBid, nil
	case "sold_via_buy_now":
		return StatusSoldViaBuyNow, nil
	case "closed_no_sale":
		return StatusClosedNoSale, nil
	default:
		return 0, errors.NewValidationError("INVALID_STATUS", "unknown item status: "+s)
	}
}

// NewItem creates an open auction item. An invalid increment-rule override is
// a configuration error and fails here, never at bid time.
func NewItem(title string, startingBid values.Money, closesAt time.Time) (*Item, error) {
	if title == "" {
		return nil, errors.NewValidationError("MISSING_TITLE", "item title is required")
	}
	if !startingBid.IsPositive() {
		return nil, errors.NewValidationError("INVALID_STARTING_BID", "starting bid must be positive")
	}
	if closesAt.IsZero() {
		return nil, errors.NewValidationError("MISSING_CLOSE_TIME", "close time is required")
	}

	now := time.Now().UTC()
	return &Item{
		ID:          uuid.New(),
		Title:       title,
		Currency:    startingBid.Currency(),
		StartingBid: startingBid,
		ClosesAt:    closesAt,
		CurrentBid:  values.Zero(startingBid.Currency()),
		Status:      StatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// WithIncrementRules sets a per-item schedule override, validating it eagerly.
func (i *Item) WithIncrementRules(rules []BidIncrementRule) error {
	if err := ValidateIncrementRules(rules); err != nil {
		return errors.NewConfigurationError("invalid increment schedule").WithCause(err)
	}
	i.IncrementRules = rules
	return nil
}

// EffectiveRules returns the item's schedule override or the default schedule.
func (i *Item) EffectiveRules() []BidIncrementRule {
	if len(i.IncrementRules) > 0 {
		return i.IncrementRules
	}
	return DefaultIncrementRules(i.Currency)
}

// HasWinner reports whether a standing winner exists.
func (i *Item) HasWinner() bool {
	return i.CurrentWinnerID != nil
}

// WinnerState projects the item's winning state for the resolver, or nil when
// no bids have been accepted.
func (i *Item) WinnerState() *WinnerState {
	if !i.HasWinner() {
		return nil
	}
	return &WinnerState{
		BidderID:        *i.CurrentWinnerID,
		DisplayedAmount: i.CurrentBid,
		Ceiling:         i.CurrentWinnerCeiling,
		CeilingSetAt:    i.CurrentWinnerCeilingSetAt,
	}
}

// IsOpenAt reports whether bidding is allowed at the given instant.
func (i *Item) IsOpenAt(now time.Time) error {
	if i.Status.IsTerminal() {
		return errors.NewAuctionClosedError()
	}
	if i.OpensAt != nil && now.Before(*i.OpensAt) {
		return errors.NewAuctionNotOpenError()
	}
	if now.After(i.ClosesAt) {
		return errors.NewAuctionClosedError()
	}
	return nil
}

// MinimumNextBid is the smallest amount the next bid must reach: the starting
// bid while no winner exists, otherwise one increment above the displayed price.
func (i *Item) MinimumNextBid() values.Money {
	if !i.HasWinner() {
		return i.StartingBid
	}
	return i.CurrentBid.MustAdd(IncrementFor(i.CurrentBid, i.EffectiveRules()))
}

// ApplyResolution folds a resolver outcome into the denormalized winning
// state. The displayed bid never decreases over the item's lifetime.
func (i *Item) ApplyResolution(res Resolution) {
	winner := res.WinningBidderID
	i.CurrentWinnerID = &winner
	i.CurrentBid = values.Max(i.CurrentBid, res.WinningAmount)
	i.CurrentWinnerCeiling = res.WinningCeiling
	i.CurrentWinnerCeilingSetAt = res.WinningCeilingSetAt
}

// ExecuteBuyNow transitions an open item straight to SOLD_VIA_BUY_NOW at the
// fixed price, bypassing resolution. Any standing bid was never going to win
// once a higher firm offer exists.
func (i *Item) ExecuteBuyNow(buyerID uuid.UUID, now time.Time) error {
	if i.Status.IsTerminal() {
		return errors.NewItemAlreadySoldError()
	}
	if i.BuyNowPrice == nil {
		return errors.NewValidationError("BUY_NOW_UNAVAILABLE", "item has no buy-now price")
	}
	if i.OpensAt != nil && now.Before(*i.OpensAt) {
		return errors.NewAuctionNotOpenError()
	}
	if now.After(i.ClosesAt) {
		return errors.NewAuctionClosedError()
	}

	buyer := buyerID
	i.Status = StatusSoldViaBuyNow
	i.CurrentBid = values.Max(i.CurrentBid, *i.BuyNowPrice)
	i.CurrentWinnerID = &buyer
	i.CurrentWinnerCeiling = *i.BuyNowPrice
	i.CurrentWinnerCeilingSetAt = now
	return nil
}

// CloseIfExpired transitions an open item past its close time into a terminal
// state. Returns true if a transition happened.
func (i *Item) CloseIfExpired(now time.Time) bool {
	if i.Status.IsTerminal() || now.Before(i.ClosesAt) {
		return false
	}
	if i.HasWinner() {
		i.Status = StatusSoldViaBid
	} else {
		i.Status = StatusClosedNoSale
	}
	return true
}
