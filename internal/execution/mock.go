package execution

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of the Client interface, shared by the
// tracker and feed test suites.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates an unconfigured mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// ConnectionStatus implements Client.
func (m *MockClient) ConnectionStatus(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

// SubscribeMarketData implements Client.
func (m *MockClient) SubscribeMarketData(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

// UnsubscribeMarketData implements Client.
func (m *MockClient) UnsubscribeMarketData(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

// CurrentPrice implements Client.
func (m *MockClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// PlaceOrder implements Client.
func (m *MockClient) PlaceOrder(ctx context.Context, req PlaceRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// FilledQuantity implements Client.
func (m *MockClient) FilledQuantity(ctx context.Context, clientOrderID string) (int64, error) {
	args := m.Called(ctx, clientOrderID)
	return args.Get(0).(int64), args.Error(1)
}

// AverageFillPrice implements Client.
func (m *MockClient) AverageFillPrice(ctx context.Context, clientOrderID string) (decimal.Decimal, error) {
	args := m.Called(ctx, clientOrderID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

var _ Client = (*MockClient)(nil)
