package values_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
	}{
		{name: "valid USD", amount: "123.45", currency: "USD"},
		{name: "lowercase currency accepted", amount: "10", currency: "usd"},
		{name: "empty currency", amount: "10", currency: "", wantErr: true},
		{name: "bad currency length", amount: "10", currency: "US", wantErr: true},
		{name: "unsupported currency", amount: "10", currency: "XTS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := values.NewMoneyFromString(tt.amount, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "USD", m.Currency())
		})
	}
}

func TestMoney_Comparisons(t *testing.T) {
	ten := values.MustNewMoneyFromInt(10, values.USD)
	twenty := values.MustNewMoneyFromInt(20, values.USD)

	assert.True(t, ten.LessThan(twenty))
	assert.True(t, twenty.GreaterThan(ten))
	assert.Equal(t, 0, ten.Compare(values.MustNewMoneyFromInt(10, values.USD)))
	assert.True(t, values.Min(ten, twenty).Equal(ten))
	assert.True(t, values.Max(ten, twenty).Equal(twenty))

	assert.Panics(t, func() {
		ten.Compare(values.MustNewMoneyFromInt(10, values.EUR))
	})
}

func TestMoney_Add(t *testing.T) {
	ten := values.MustNewMoneyFromInt(10, values.USD)
	five := values.MustNewMoneyFromInt(5, values.USD)

	sum, err := ten.Add(five)
	require.NoError(t, err)
	assert.True(t, sum.Equal(values.MustNewMoneyFromInt(15, values.USD)))

	_, err = ten.Add(values.MustNewMoneyFromInt(5, values.EUR))
	assert.Error(t, err)
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	orig := values.MustNewMoney(decimal.RequireFromString("210.50"), values.USD)

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded values.Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, orig.Equal(decoded))
}

func TestMoney_Scan(t *testing.T) {
	var m values.Money
	require.NoError(t, m.Scan("210.50"))
	assert.True(t, m.Equal(values.MustNewMoney(decimal.RequireFromString("210.50"), values.USD)))

	var fromNil values.Money
	require.NoError(t, fromNil.Scan(nil))
	assert.Equal(t, "", fromNil.Currency())

	assert.Error(t, m.Scan(42))
}
