package auction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

func usd(t *testing.T, units int64) values.Money {
	t.Helper()
	m, err := values.NewMoneyFromInt(units, values.USD)
	require.NoError(t, err)
	return m
}

func usdPtr(t *testing.T, units int64) *values.Money {
	t.Helper()
	m := usd(t, units)
	return &m
}

func TestIncrementFor_DefaultSchedule(t *testing.T) {
	rules := auction.DefaultIncrementRules(values.USD)

	tests := []struct {
		name    string
		current int64
		want    int64
	}{
		{name: "lowest tier", current: 50, want: 5},
		{name: "tier boundary inclusive", current: 99, want: 5},
		{name: "second tier", current: 100, want: 10},
		{name: "second tier upper bound", current: 499, want: 10},
		{name: "third tier", current: 500, want: 25},
		{name: "fourth tier", current: 1000, want: 50},
		{name: "fifth tier", current: 2500, want: 100},
		{name: "unbounded tier", current: 5000, want: 250},
		{name: "far above all ceilings", current: 1000000, want: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := auction.IncrementFor(usd(t, tt.current), rules)
			assert.True(t, usd(t, tt.want).Equal(got), "want %d, got %s", tt.want, got)
		})
	}
}

func TestIncrementFor_InvariantToRuleOrder(t *testing.T) {
	shuffled := []auction.BidIncrementRule{
		{Increment: usd(t, 250)},
		{Ceiling: usdPtr(t, 999), Increment: usd(t, 25)},
		{Ceiling: usdPtr(t, 99), Increment: usd(t, 5)},
		{Ceiling: usdPtr(t, 4999), Increment: usd(t, 100)},
		{Ceiling: usdPtr(t, 499), Increment: usd(t, 10)},
		{Ceiling: usdPtr(t, 2499), Increment: usd(t, 50)},
	}
	ordered := auction.DefaultIncrementRules(values.USD)

	for _, current := range []int64{1, 99, 100, 499, 500, 999, 1000, 2499, 2500, 4999, 5000, 99999} {
		fromShuffled := auction.IncrementFor(usd(t, current), shuffled)
		fromOrdered := auction.IncrementFor(usd(t, current), ordered)
		assert.True(t, fromOrdered.Equal(fromShuffled), "divergence at %d: %s vs %s", current, fromOrdered, fromShuffled)
	}
}

func TestIncrementFor_MonotonicNonDecreasing(t *testing.T) {
	rules := auction.DefaultIncrementRules(values.USD)

	prev := auction.IncrementFor(usd(t, 1), rules)
	for current := int64(2); current <= 6000; current += 7 {
		inc := auction.IncrementFor(usd(t, current), rules)
		assert.GreaterOrEqual(t, inc.Compare(prev), 0, "increment decreased at %d", current)
		prev = inc
	}
}

func TestIncrementFor_DoesNotMutateInput(t *testing.T) {
	rules := []auction.BidIncrementRule{
		{Increment: usd(t, 250)},
		{Ceiling: usdPtr(t, 99), Increment: usd(t, 5)},
	}

	auction.IncrementFor(usd(t, 10), rules)

	assert.Nil(t, rules[0].Ceiling, "input slice was reordered")
}

func TestValidateIncrementRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []auction.BidIncrementRule
		wantErr string
	}{
		{
			name:  "default schedule is valid",
			rules: auction.DefaultIncrementRules(values.USD),
		},
		{
			name:  "single unbounded rule is valid",
			rules: []auction.BidIncrementRule{{Increment: usd(t, 10)}},
		},
		{
			name:    "empty schedule",
			rules:   nil,
			wantErr: "at least one rule",
		},
		{
			name: "zero increment",
			rules: []auction.BidIncrementRule{
				{Ceiling: usdPtr(t, 100), Increment: usd(t, 0)},
			},
			wantErr: "increment must be positive",
		},
		{
			name: "duplicate ceiling",
			rules: []auction.BidIncrementRule{
				{Ceiling: usdPtr(t, 100), Increment: usd(t, 5)},
				{Ceiling: usdPtr(t, 100), Increment: usd(t, 10)},
			},
			wantErr: "duplicate ceiling",
		},
		{
			name: "two unbounded tiers",
			rules: []auction.BidIncrementRule{
				{Increment: usd(t, 5)},
				{Increment: usd(t, 10)},
			},
			wantErr: "at most one unbounded tier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auction.ValidateIncrementRules(tt.rules)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
