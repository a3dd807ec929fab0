package execution

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

func Test_NewSim_Defaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  *SimConfig
	}{
		{name: "Nil config", cfg: nil},
		{name: "Zero config", cfg: &SimConfig{}},
		{
			name: "Partial config",
			cfg:  &SimConfig{StartPrice: decimal.NewFromInt(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSim(tt.cfg)

			require.NotNil(t, sim)
			assert.False(t, sim.cfg.StartPrice.IsZero())
			assert.Greater(t, sim.cfg.StepFraction, 0.0)
			assert.Greater(t, sim.cfg.FillAfterPolls, 0)
			assert.Equal(t, StatusConnected, sim.ConnectionStatus(context.Background()))
		})
	}
}

func Test_Sim_CurrentPriceRequiresSubscription(t *testing.T) {
	sim := NewSim(nil)
	ctx := context.Background()

	_, err := sim.CurrentPrice(ctx, "ES")
	require.ErrorIs(t, err, ErrUnavailable, "Unsubscribed symbols have no price")

	require.NoError(t, sim.SubscribeMarketData(ctx, "ES"))
	price, err := sim.CurrentPrice(ctx, "ES")
	require.NoError(t, err)
	assert.True(t, price.IsPositive())

	require.NoError(t, sim.UnsubscribeMarketData(ctx, "ES"))
	_, err = sim.CurrentPrice(ctx, "ES")
	assert.ErrorIs(t, err, ErrUnavailable, "Unsubscribing releases the feed")
}

func Test_Sim_PriceWalkIsBounded(t *testing.T) {
	start := decimal.NewFromInt(5000)
	sim := NewSim(&SimConfig{StartPrice: start, StepFraction: 0.001, FillAfterPolls: 1})
	ctx := context.Background()

	require.NoError(t, sim.SubscribeMarketData(ctx, "ES"))

	previous := start
	for i := 0; i < 100; i++ {
		price, err := sim.CurrentPrice(ctx, "ES")
		require.NoError(t, err)

		// Each step moves at most StepFraction of the previous price,
		// plus rounding slack.
		bound := previous.Mul(decimal.NewFromFloat(0.001)).Add(decimal.NewFromFloat(0.0001))
		assert.True(t, price.Sub(previous).Abs().LessThanOrEqual(bound),
			"step %d moved from %s to %s", i, previous, price)
		previous = price
	}
}

func Test_Sim_OrderFillsAfterConfiguredPolls(t *testing.T) {
	sim := NewSim(&SimConfig{FillAfterPolls: 3})
	ctx := context.Background()

	req := PlaceRequest{
		Account:       "Sim101",
		Instrument:    "ESH4",
		Side:          model.SideBuy,
		Quantity:      2,
		OrderType:     model.OrderTypeMarket,
		ClientOrderID: "id-1",
		TimeInForce:   TimeInForceGTC,
		LimitPrice:    decimal.NewFromInt(5000),
		OCOGroup:      "id-1",
	}
	require.NoError(t, sim.PlaceOrder(ctx, req))

	// The first FillAfterPolls-1 queries report nothing filled.
	for i := 0; i < 2; i++ {
		filled, err := sim.FilledQuantity(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), filled)
	}

	filled, err := sim.FilledQuantity(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), filled, "The order fills completely, never partially")

	avg, err := sim.AverageFillPrice(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.NewFromInt(5000)), "Limit price is used as the fill price")
}

func Test_Sim_RejectsBadOrders(t *testing.T) {
	sim := NewSim(nil)
	ctx := context.Background()

	err := sim.PlaceOrder(ctx, PlaceRequest{ClientOrderID: "id-1", Quantity: 0})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = sim.FilledQuantity(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = sim.AverageFillPrice(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnavailable)
}
