package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/benefit-auction-backend/internal/api/rest"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
	"github.com/davidleathers/benefit-auction-backend/internal/testutil"
)

func newTestServer(t *testing.T, limiter *rest.BidderLimiter) http.Handler {
	t.Helper()
	items := testutil.NewMemoryItemStore()
	history := testutil.NewMemoryBidHistory()
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC))
	logger := slog.New(slog.DiscardHandler)

	svc := bidding.NewService(
		items, history, testutil.NewMemoryLocker(), clock,
		testutil.NewRecordingDispatcher(), testutil.NewRecordingMetrics(),
		logger, bidding.Config{},
	)

	h := rest.NewHandler(svc, items, history, clock, logger,
		rest.AuctionDefaults{AntiSnipingWindow: 2 * time.Minute}, limiter)
	return h.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createItem(t *testing.T, h http.Handler) uuid.UUID {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/items", map[string]any{
		"title":         "weekend getaway",
		"starting_bid":  map[string]string{"amount": "50", "currency": "USD"},
		"buy_now_price": map[string]string{"amount": "1000", "currency": "USD"},
		"closes_at":     time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestCreateAndGetItem(t *testing.T) {
	h := newTestServer(t, nil)
	id := createItem(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/items/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "weekend getaway", resp["title"])
	assert.Equal(t, "open", resp["status"])
	assert.Equal(t, "50", resp["minimum_next_bid"])
}

func TestCreateItem_Validation(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/items", map[string]any{
		"starting_bid": map[string]string{"amount": "50", "currency": "USD"},
		"closes_at":    time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitBidFlow(t *testing.T) {
	h := newTestServer(t, nil)
	id := createItem(t, h)
	bidder := uuid.New()

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/bids", id), map[string]any{
		"bidder_id": bidder.String(),
		"amount":    map[string]string{"amount": "60", "currency": "USD"},
		"ceiling":   map[string]string{"amount": "200", "currency": "USD"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Winning bool `json:"winning"`
		Item    struct {
			CurrentBid string `json:"current_bid"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Winning)
	assert.Equal(t, "60", resp.Item.CurrentBid)

	// Below-minimum returns the business error envelope.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/bids", id), map[string]any{
		"bidder_id": uuid.New().String(),
		"amount":    map[string]string{"amount": "30", "currency": "USD"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "BID_TOO_LOW", errResp.Error.Code)
	assert.Contains(t, errResp.Error.Details, "minimum")

	// History lists both submissions, ceilings omitted from the payload.
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/v1/items/%s/bids", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bids []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bids))
	require.Len(t, bids, 2)
	assert.NotContains(t, bids[0], "ceiling")
}

func TestBuyNowEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	id := createItem(t, h)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/buy-now", id), map[string]any{
		"bidder_id": uuid.New().String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Item struct {
			Status     string `json:"status"`
			CurrentBid string `json:"current_bid"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sold_via_buy_now", resp.Item.Status)
	assert.Equal(t, "1000", resp.Item.CurrentBid)

	// Second purchase races out.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/buy-now", id), map[string]any{
		"bidder_id": uuid.New().String(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitBid_CurrencyMismatch(t *testing.T) {
	h := newTestServer(t, nil)
	id := createItem(t, h)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/bids", id), map[string]any{
		"bidder_id": uuid.New().String(),
		"amount":    map[string]string{"amount": "60", "currency": "EUR"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var errResp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "CURRENCY_MISMATCH", errResp.Error.Code)
}

func TestSubmitBid_RateLimited(t *testing.T) {
	h := newTestServer(t, rest.NewBidderLimiter(1, 1))
	id := createItem(t, h)
	bidder := uuid.New()

	submit := func(amount string) int {
		rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/bids", id), map[string]any{
			"bidder_id": bidder.String(),
			"amount":    map[string]string{"amount": amount, "currency": "USD"},
		})
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, submit("60"))
	assert.Equal(t, http.StatusTooManyRequests, submit("70"))
}

func TestUnknownItem(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/items/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/items/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
