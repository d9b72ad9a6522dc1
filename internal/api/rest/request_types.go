package rest

import (
	"time"
)

// MoneyDTO is the wire form of a monetary value.
type MoneyDTO struct {
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// IncrementRuleDTO is one tier of an item's increment schedule. A nil ceiling
// marks the unbounded tier.
type IncrementRuleDTO struct {
	Ceiling   *MoneyDTO `json:"ceiling,omitempty"`
	Increment MoneyDTO  `json:"increment" validate:"required"`
}

// CreateItemRequest creates an auction item.
type CreateItemRequest struct {
	Title                   string             `json:"title" validate:"required,max=200"`
	StartingBid             MoneyDTO           `json:"starting_bid" validate:"required"`
	BuyNowPrice             *MoneyDTO          `json:"buy_now_price,omitempty"`
	OpensAt                 *time.Time         `json:"opens_at,omitempty"`
	ClosesAt                time.Time          `json:"closes_at" validate:"required"`
	AntiSnipingWindowSecond int                `json:"anti_sniping_window_seconds" validate:"gte=0"`
	MaxExtensions           int                `json:"max_extensions" validate:"gte=0"`
	IncrementRules          []IncrementRuleDTO `json:"increment_rules,omitempty" validate:"dive"`
}

// SubmitBidRequest places a bid on an item.
type SubmitBidRequest struct {
	BidderID string    `json:"bidder_id" validate:"required,uuid"`
	Amount   MoneyDTO  `json:"amount" validate:"required"`
	Ceiling  *MoneyDTO `json:"ceiling,omitempty"`
}

// BuyNowRequest purchases an item at its fixed price.
type BuyNowRequest struct {
	BidderID string `json:"bidder_id" validate:"required,uuid"`
}
