package auction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
)

func TestExtendForBid(t *testing.T) {
	window := 2 * time.Minute

	newItemWithWindow := func(t *testing.T) *auction.Item {
		item := openItem(t)
		item.AntiSnipingWindow = window
		return item
	}

	t.Run("bid inside the window pushes close out by exactly the window", func(t *testing.T) {
		item := newItemWithWindow(t)
		acceptedAt := item.ClosesAt.Add(-30 * time.Second)

		require.True(t, auction.ExtendForBid(item, acceptedAt))
		assert.Equal(t, acceptedAt.Add(window), item.ClosesAt)
		assert.Equal(t, 1, item.Extensions)
	})

	t.Run("bid before the window leaves close time alone", func(t *testing.T) {
		item := newItemWithWindow(t)
		before := item.ClosesAt

		assert.False(t, auction.ExtendForBid(item, item.ClosesAt.Add(-time.Hour)))
		assert.Equal(t, before, item.ClosesAt)
	})

	t.Run("close time never moves backward", func(t *testing.T) {
		item := newItemWithWindow(t)
		before := item.ClosesAt

		// Exactly at the window boundary the recomputed close equals the
		// current one; no partial extension is applied.
		assert.False(t, auction.ExtendForBid(item, item.ClosesAt.Add(-window)))
		assert.Equal(t, before, item.ClosesAt)
	})

	t.Run("zero window disables extensions", func(t *testing.T) {
		item := openItem(t)
		before := item.ClosesAt

		assert.False(t, auction.ExtendForBid(item, item.ClosesAt.Add(-time.Second)))
		assert.Equal(t, before, item.ClosesAt)
	})

	t.Run("repeated qualifying bids keep extending when uncapped", func(t *testing.T) {
		item := newItemWithWindow(t)
		for i := 0; i < 5; i++ {
			acceptedAt := item.ClosesAt.Add(-time.Second)
			require.True(t, auction.ExtendForBid(item, acceptedAt))
			assert.Equal(t, acceptedAt.Add(window), item.ClosesAt)
		}
		assert.Equal(t, 5, item.Extensions)
	})

	t.Run("extension cap is honored", func(t *testing.T) {
		item := newItemWithWindow(t)
		item.MaxExtensions = 2

		require.True(t, auction.ExtendForBid(item, item.ClosesAt.Add(-time.Second)))
		require.True(t, auction.ExtendForBid(item, item.ClosesAt.Add(-time.Second)))

		before := item.ClosesAt
		assert.False(t, auction.ExtendForBid(item, item.ClosesAt.Add(-time.Second)))
		assert.Equal(t, before, item.ClosesAt)
		assert.Equal(t, 2, item.Extensions)
	})
}
