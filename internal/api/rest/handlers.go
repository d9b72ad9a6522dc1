// Package rest exposes the bid-resolution engine over HTTP.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// AuctionDefaults fills item fields the create request leaves unset.
type AuctionDefaults struct {
	AntiSnipingWindow time.Duration
	MaxExtensions     int
}

// Handler serves the engine's HTTP API.
type Handler struct {
	svc      bidding.Service
	items    bidding.ItemStore
	history  bidding.BidHistoryStore
	clock    bidding.Clock
	validate *validator.Validate
	logger   *slog.Logger
	defaults AuctionDefaults
	limiter  *BidderLimiter
}

// NewHandler creates the API handler.
func NewHandler(
	svc bidding.Service,
	items bidding.ItemStore,
	history bidding.BidHistoryStore,
	clock bidding.Clock,
	logger *slog.Logger,
	defaults AuctionDefaults,
	limiter *BidderLimiter,
) *Handler {
	return &Handler{
		svc:      svc,
		items:    items,
		history:  history,
		clock:    clock,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "api")),
		defaults: defaults,
		limiter:  limiter,
	}
}

// Routes builds the request mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/items", h.createItem)
	mux.HandleFunc("GET /api/v1/items/{id}", h.getItem)
	mux.HandleFunc("GET /api/v1/items/{id}/bids", h.listBids)
	mux.HandleFunc("POST /api/v1/items/{id}/bids", h.submitBid)
	mux.HandleFunc("POST /api/v1/items/{id}/buy-now", h.buyNow)

	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	startingBid, err := parseMoney(req.StartingBid)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	item, err := auction.NewItem(req.Title, startingBid, req.ClosesAt)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	item.OpensAt = req.OpensAt
	item.AntiSnipingWindow = h.defaults.AntiSnipingWindow
	if req.AntiSnipingWindowSecond > 0 {
		item.AntiSnipingWindow = time.Duration(req.AntiSnipingWindowSecond) * time.Second
	}
	item.MaxExtensions = h.defaults.MaxExtensions
	if req.MaxExtensions > 0 {
		item.MaxExtensions = req.MaxExtensions
	}

	if req.BuyNowPrice != nil {
		price, err := parseMoney(*req.BuyNowPrice)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
		item.BuyNowPrice = &price
	}

	if len(req.IncrementRules) > 0 {
		rules, err := parseRules(req.IncrementRules)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
		if err := item.WithIncrementRules(rules); err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) listBids(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	if _, err := h.items.GetByID(r.Context(), id); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	bids, err := h.history.ListByItem(r.Context(), id)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, toBidResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) submitBid(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	var req SubmitBidRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	bidderID, err := uuid.Parse(req.BidderID)
	if err != nil {
		h.writeError(r.Context(), w, errors.NewValidationError("INVALID_BIDDER_ID", "bidder_id must be a UUID"))
		return
	}

	if h.limiter != nil && !h.limiter.allow(bidderID) {
		h.writeError(r.Context(), w, errors.NewRateLimitedError())
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	sreq := &bidding.SubmitBidRequest{
		ItemID:      itemID,
		BidderID:    bidderID,
		Amount:      amount,
		SubmittedAt: h.clock.Now(),
	}
	if req.Ceiling != nil {
		ceiling, err := parseMoney(*req.Ceiling)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
		sreq.Ceiling = &ceiling
	}

	res, err := h.svc.SubmitBid(r.Context(), sreq)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmitBidResponse(res))
}

func (h *Handler) buyNow(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	var req BuyNowRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	bidderID, err := uuid.Parse(req.BidderID)
	if err != nil {
		h.writeError(r.Context(), w, errors.NewValidationError("INVALID_BIDDER_ID", "bidder_id must be a UUID"))
		return
	}

	res, err := h.svc.ExecuteBuyNow(r.Context(), itemID, bidderID)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitBidResponse(res))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewValidationError("INVALID_JSON", "request body is not valid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return errors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID", name+" must be a UUID")
	}
	return id, nil
}

func parseMoney(dto MoneyDTO) (values.Money, error) {
	m, err := values.NewMoneyFromString(dto.Amount, dto.Currency)
	if err != nil {
		return values.Money{}, errors.NewValidationError("INVALID_AMOUNT", err.Error())
	}
	return m, nil
}

func parseRules(dtos []IncrementRuleDTO) ([]auction.BidIncrementRule, error) {
	rules := make([]auction.BidIncrementRule, 0, len(dtos))
	for _, dto := range dtos {
		rule := auction.BidIncrementRule{}
		increment, err := parseMoney(dto.Increment)
		if err != nil {
			return nil, err
		}
		rule.Increment = increment
		if dto.Ceiling != nil {
			ceiling, err := parseMoney(*dto.Ceiling)
			if err != nil {
				return nil, err
			}
			rule.Ceiling = &ceiling
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
