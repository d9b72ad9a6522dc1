package auction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

func openItem(t *testing.T) *auction.Item {
	t.Helper()
	item, err := auction.NewItem("signed jersey", usd(t, 50), resolverBase.Add(time.Hour))
	require.NoError(t, err)
	return item
}

func TestNewItem(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		startingBid values.Money
		closesAt    time.Time
		wantCode    string
	}{
		{
			name:        "valid item",
			title:       "weekend getaway",
			startingBid: values.MustNewMoneyFromInt(100, values.USD),
			closesAt:    resolverBase.Add(24 * time.Hour),
		},
		{
			name:        "missing title",
			startingBid: values.MustNewMoneyFromInt(100, values.USD),
			closesAt:    resolverBase,
			wantCode:    "MISSING_TITLE",
		},
		{
			name:        "zero starting bid",
			title:       "wine basket",
			startingBid: values.Zero(values.USD),
			closesAt:    resolverBase,
			wantCode:    "INVALID_STARTING_BID",
		},
		{
			name:        "missing close time",
			title:       "wine basket",
			startingBid: values.MustNewMoneyFromInt(100, values.USD),
			wantCode:    "MISSING_CLOSE_TIME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := auction.NewItem(tt.title, tt.startingBid, tt.closesAt)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, item.ID)
			assert.Equal(t, auction.StatusOpen, item.Status)
			assert.Equal(t, int64(1), item.Version)
			assert.False(t, item.HasWinner())
			assert.Nil(t, item.WinnerState())
		})
	}
}

func TestItem_WithIncrementRules(t *testing.T) {
	item := openItem(t)

	err := item.WithIncrementRules(nil)
	require.Error(t, err, "empty schedule must fail at setup time")
	assert.True(t, errors.IsCode(err, "CONFIGURATION_ERROR"))

	custom := []auction.BidIncrementRule{
		{Ceiling: usdPtr(t, 1000), Increment: usd(t, 20)},
		{Increment: usd(t, 100)},
	}
	require.NoError(t, item.WithIncrementRules(custom))
	assert.Equal(t, custom, item.EffectiveRules())
}

func TestItem_IsOpenAt(t *testing.T) {
	opens := resolverBase.Add(10 * time.Minute)

	tests := []struct {
		name     string
		mutate   func(*auction.Item)
		now      time.Time
		wantCode string
	}{
		{
			name: "open window",
			now:  resolverBase.Add(30 * time.Minute),
		},
		{
			name:     "before opensAt",
			mutate:   func(i *auction.Item) { i.OpensAt = &opens },
			now:      resolverBase,
			wantCode: "AUCTION_NOT_OPEN",
		},
		{
			name:     "after closesAt",
			now:      resolverBase.Add(2 * time.Hour),
			wantCode: "AUCTION_CLOSED",
		},
		{
			name:     "terminal status",
			mutate:   func(i *auction.Item) { i.Status = auction.StatusSoldViaBuyNow },
			now:      resolverBase.Add(30 * time.Minute),
			wantCode: "AUCTION_CLOSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := openItem(t)
			if tt.mutate != nil {
				tt.mutate(item)
			}
			err := item.IsOpenAt(tt.now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, tt.wantCode))
			}
		})
	}
}

func TestItem_MinimumNextBid(t *testing.T) {
	item := openItem(t)
	assert.True(t, usd(t, 50).Equal(item.MinimumNextBid()), "starting bid while no winner exists")

	winner := uuid.New()
	item.ApplyResolution(auction.Resolution{
		WinningBidderID:     winner,
		WinningAmount:       usd(t, 100),
		WinningCeiling:      usd(t, 200),
		WinningCeilingSetAt: resolverBase,
	})

	// 100 falls in the ≤499 tier, so the step is 10.
	assert.True(t, usd(t, 110).Equal(item.MinimumNextBid()))
}

func TestItem_ApplyResolution_MonotonicDisplayedBid(t *testing.T) {
	item := openItem(t)
	winner := uuid.New()

	item.ApplyResolution(auction.Resolution{
		WinningBidderID:     winner,
		WinningAmount:       usd(t, 300),
		WinningCeiling:      usd(t, 400),
		WinningCeilingSetAt: resolverBase,
	})
	item.ApplyResolution(auction.Resolution{
		WinningBidderID:     winner,
		WinningAmount:       usd(t, 200),
		WinningCeiling:      usd(t, 450),
		WinningCeilingSetAt: resolverBase,
	})

	assert.True(t, usd(t, 300).Equal(item.CurrentBid), "displayed bid must never decrease")
	assert.True(t, usd(t, 450).Equal(item.CurrentWinnerCeiling))
}

func TestItem_ExecuteBuyNow(t *testing.T) {
	buyer := uuid.New()
	now := resolverBase.Add(time.Minute)

	t.Run("open item with standing bid sells at exactly the buy-now price", func(t *testing.T) {
		item := openItem(t)
		price := usd(t, 1000)
		item.BuyNowPrice = &price
		item.ApplyResolution(auction.Resolution{
			WinningBidderID:     uuid.New(),
			WinningAmount:       usd(t, 80),
			WinningCeiling:      usd(t, 900),
			WinningCeilingSetAt: resolverBase,
		})

		require.NoError(t, item.ExecuteBuyNow(buyer, now))
		assert.Equal(t, auction.StatusSoldViaBuyNow, item.Status)
		assert.True(t, usd(t, 1000).Equal(item.CurrentBid))
		require.NotNil(t, item.CurrentWinnerID)
		assert.Equal(t, buyer, *item.CurrentWinnerID)
	})

	t.Run("no buy-now price configured", func(t *testing.T) {
		item := openItem(t)
		err := item.ExecuteBuyNow(buyer, now)
		assert.True(t, errors.IsCode(err, "BUY_NOW_UNAVAILABLE"))
	})

	t.Run("already sold", func(t *testing.T) {
		item := openItem(t)
		price := usd(t, 1000)
		item.BuyNowPrice = &price
		require.NoError(t, item.ExecuteBuyNow(buyer, now))

		err := item.ExecuteBuyNow(uuid.New(), now.Add(time.Second))
		assert.True(t, errors.IsCode(err, "ITEM_ALREADY_SOLD"))
	})
}

func TestItem_CloseIfExpired(t *testing.T) {
	t.Run("not yet due", func(t *testing.T) {
		item := openItem(t)
		assert.False(t, item.CloseIfExpired(resolverBase))
		assert.Equal(t, auction.StatusOpen, item.Status)
	})

	t.Run("expired with winner", func(t *testing.T) {
		item := openItem(t)
		item.ApplyResolution(auction.Resolution{
			WinningBidderID:     uuid.New(),
			WinningAmount:       usd(t, 120),
			WinningCeiling:      usd(t, 120),
			WinningCeilingSetAt: resolverBase,
		})

		assert.True(t, item.CloseIfExpired(item.ClosesAt.Add(time.Second)))
		assert.Equal(t, auction.StatusSoldViaBid, item.Status)
	})

	t.Run("expired without bids", func(t *testing.T) {
		item := openItem(t)
		assert.True(t, item.CloseIfExpired(item.ClosesAt.Add(time.Second)))
		assert.Equal(t, auction.StatusClosedNoSale, item.Status)
	})

	t.Run("terminal items stay put", func(t *testing.T) {
		item := openItem(t)
		item.Status = auction.StatusSoldViaBuyNow
		assert.False(t, item.CloseIfExpired(item.ClosesAt.Add(time.Hour)))
		assert.Equal(t, auction.StatusSoldViaBuyNow, item.Status)
	})
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []auction.Status{
		auction.StatusOpen,
		auction.StatusSoldViaBid,
		auction.StatusSoldViaBuyNow,
		auction.StatusClosedNoSale,
	} {
		parsed, err := auction.StatusFromString(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := auction.StatusFromString("bogus")
	assert.Error(t, err)
}
