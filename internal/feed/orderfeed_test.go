package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sayedrasheed/ninja-trader-server/internal/bus"
	"github.com/sayedrasheed/ninja-trader-server/internal/execution"
	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// fakeTracker records submissions and hands out queued fills, one batch per
// poll.
type fakeTracker struct {
	mu        sync.Mutex
	submitted []model.Order
	fills     [][]model.OrderFilled
	submitErr error
}

func (f *fakeTracker) Submit(ctx context.Context, order model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, order)
	return nil
}

func (f *fakeTracker) PollFills(ctx context.Context) []model.OrderFilled {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fills) == 0 {
		return nil
	}
	batch := f.fills[0]
	f.fills = f.fills[1:]
	return batch
}

func (f *fakeTracker) queueFills(fills ...model.OrderFilled) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills = append(f.fills, fills)
}

func (f *fakeTracker) submittedOrders() []model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Order(nil), f.submitted...)
}

func newConnectedMock() *execution.MockClient {
	exec := execution.NewMockClient()
	exec.On("ConnectionStatus", mock.Anything).Return(execution.StatusConnected)
	return exec
}

func Test_Orderfeed_SubmitsInboundOrders(t *testing.T) {
	table, _ := testTable()
	tracker := &fakeTracker{}
	orderCh := make(chan model.Order, 1)

	feed := NewOrderfeed(OrderfeedConfig{PollInterval: time.Hour}, newConnectedMock(), tracker, table, orderCh)
	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	order := model.Order{
		AccountIDs: []string{"Sim101"},
		Symbol:     "ES",
		Price:      decimal.NewFromInt(5000),
		Size:       2,
		StrategyID: 7,
		OrderID:    42,
	}
	orderCh <- order

	waitFor(t, func() bool { return len(tracker.submittedOrders()) == 1 }, "order not submitted")
	assert.Equal(t, order, tracker.submittedOrders()[0])
}

func Test_Orderfeed_PublishesPolledFills(t *testing.T) {
	table, pubs := testTable()
	tracker := &fakeTracker{}

	fill := model.OrderFilled{
		TimestampNs: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC).UnixNano(),
		Symbol:      "ES",
		StrategyID:  7,
		OrderID:     42,
		OrderType:   model.OrderTypeMarket,
		Price:       decimal.NewFromFloat(5001.25),
		Size:        2,
	}
	tracker.queueFills(fill)

	feed := NewOrderfeed(OrderfeedConfig{PollInterval: time.Millisecond}, newConnectedMock(), tracker, table, nil)
	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitFor(t, func() bool { return len(pubs[bus.RoleOrderFilled].snapshot()) == 1 }, "fill not published")

	got := pubs[bus.RoleOrderFilled].snapshot()[0].(model.OrderFilled)
	assert.Equal(t, fill.OrderID, got.OrderID)
	assert.True(t, got.Price.Equal(fill.Price))
	assert.Equal(t, fill.Size, got.Size)
}

func Test_Orderfeed_KeepsPollingAfterOrderSourceCloses(t *testing.T) {
	table, pubs := testTable()
	tracker := &fakeTracker{}
	orderCh := make(chan model.Order)

	feed := NewOrderfeed(OrderfeedConfig{PollInterval: time.Millisecond}, newConnectedMock(), tracker, table, orderCh)
	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	close(orderCh)

	// Fills queued after the source closed still reach the bus.
	tracker.queueFills(model.OrderFilled{OrderID: 42, Size: 1})
	waitFor(t, func() bool { return len(pubs[bus.RoleOrderFilled].snapshot()) == 1 }, "fill not published after close")
}

func Test_Orderfeed_DirectSubmitBypassesTheBus(t *testing.T) {
	table, _ := testTable()
	tracker := &fakeTracker{}

	feed := NewOrderfeed(OrderfeedConfig{}, newConnectedMock(), tracker, table, nil)

	order := model.Order{AccountIDs: []string{"Sim101"}, Symbol: "ES", Size: 1, OrderID: 42}
	require.NoError(t, feed.Submit(context.Background(), order))
	assert.Equal(t, []model.Order{order}, tracker.submittedOrders())
}

func Test_Orderfeed_Lifecycle(t *testing.T) {
	table, _ := testTable()
	tracker := &fakeTracker{}

	feed := NewOrderfeed(OrderfeedConfig{PollInterval: time.Hour}, newConnectedMock(), tracker, table, nil)

	require.NoError(t, feed.Start(context.Background()))
	assert.Error(t, feed.Start(context.Background()), "A running feed cannot start again")

	feed.Stop()
	feed.Stop()

	require.NoError(t, feed.Start(context.Background()), "A stopped feed can start again")
	feed.Stop()
}
