package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// ItemResponse is the public view of an auction item. Bidder ceilings are
// never exposed; only the displayed bid and derived minimum are public.
type ItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Currency        string     `json:"currency"`
	StartingBid     string     `json:"starting_bid"`
	BuyNowPrice     *string    `json:"buy_now_price,omitempty"`
	OpensAt         *time.Time `json:"opens_at,omitempty"`
	ClosesAt        time.Time  `json:"closes_at"`
	Extensions      int        `json:"extensions"`
	CurrentBid      string     `json:"current_bid"`
	CurrentWinnerID *uuid.UUID `json:"current_winner_id,omitempty"`
	MinimumNextBid  string     `json:"minimum_next_bid"`
	Status          string     `json:"status"`
	Version         int64      `json:"version"`
}

func toItemResponse(item *auction.Item) ItemResponse {
	resp := ItemResponse{
		ID:              item.ID,
		Title:           item.Title,
		Currency:        item.Currency,
		StartingBid:     item.StartingBid.Amount().String(),
		OpensAt:         item.OpensAt,
		ClosesAt:        item.ClosesAt,
		Extensions:      item.Extensions,
		CurrentBid:      item.CurrentBid.Amount().String(),
		CurrentWinnerID: item.CurrentWinnerID,
		MinimumNextBid:  item.MinimumNextBid().Amount().String(),
		Status:          item.Status.String(),
		Version:         item.Version,
	}
	if item.BuyNowPrice != nil {
		price := item.BuyNowPrice.Amount().String()
		resp.BuyNowPrice = &price
	}
	return resp
}

// BidResponse reports a single history row. The ceiling is omitted: it is
// private to the bidder who set it.
type BidResponse struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	BidderID    uuid.UUID `json:"bidder_id"`
	Amount      string    `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      string    `json:"status"`
}

func toBidResponse(b *auction.Bid) BidResponse {
	return BidResponse{
		ID:          b.ID,
		ItemID:      b.ItemID,
		BidderID:    b.BidderID,
		Amount:      b.Amount.Amount().String(),
		SubmittedAt: b.SubmittedAt,
		Status:      b.Status.String(),
	}
}

// SubmitBidResponse reports the outcome of an accepted submission.
type SubmitBidResponse struct {
	Bid      BidResponse  `json:"bid"`
	Item     ItemResponse `json:"item"`
	Winning  bool         `json:"winning"`
	IsTie    bool         `json:"is_tie"`
	Extended bool         `json:"extended"`
}

func toSubmitBidResponse(res *bidding.BidResult) SubmitBidResponse {
	return SubmitBidResponse{
		Bid:      toBidResponse(res.Bid),
		Item:     toItemResponse(res.Item),
		Winning:  res.Winning,
		IsTie:    res.IsTie,
		Extended: res.Extended,
	}
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
