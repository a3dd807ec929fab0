// Package execution defines the boundary to the order-execution platform.
//
// The platform is an opaque collaborator: it owns connection handling, order
// routing and fill accounting. The bridge only needs the narrow surface in
// the Client interface — market-data subscription, current price, order
// placement and fill queries. All calls are synchronous and bounded; a
// failing call is a local-cycle failure for the poll loops, never retried by
// the core.
package execution

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// Connection status codes reported by ConnectionStatus, matching the
// platform's convention of zero for an established connection.
const (
	StatusConnected    = 0
	StatusDisconnected = -1
)

// ErrUnavailable indicates the platform rejected or could not service a
// call. Submission paths drop the affected order; polling paths retry the
// query on the next cycle.
var ErrUnavailable = errors.New("execution platform unavailable")

// TimeInForceGTC keeps an order working until it is cancelled. The bridge
// places every order GTC.
const TimeInForceGTC = "GTC"

// PlaceRequest carries one order placement for one account.
type PlaceRequest struct {
	Account       string          // Target account id
	Instrument    string          // Resolved contract symbol (e.g. "ESH4")
	Side          model.Side      // SideBuy or SideSell
	Quantity      int64           // Absolute quantity, always positive
	OrderType     model.OrderType // Pricing type
	ClientOrderID string          // Generated id, also used to query fills
	TimeInForce   string          // Order duration, TimeInForceGTC
	LimitPrice    decimal.Decimal // Limit price hint from the originating order
	StopPrice     decimal.Decimal // Unused by the bridge, always zero
	OCOGroup      string          // One-cancels-other group, equals ClientOrderID
}

// Client is the execution-platform surface the bridge calls into.
type Client interface {
	// ConnectionStatus probes the platform connection and returns a status
	// code, StatusConnected when the connection is up.
	ConnectionStatus(ctx context.Context) int

	// SubscribeMarketData starts the platform's market-data feed for the
	// symbol so CurrentPrice returns live values.
	SubscribeMarketData(ctx context.Context, symbol string) error

	// UnsubscribeMarketData releases the market-data feed for the symbol.
	UnsubscribeMarketData(ctx context.Context, symbol string) error

	// CurrentPrice returns the most recent price for a subscribed symbol.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// PlaceOrder submits one order. A returned error means the order was
	// not accepted and must not be tracked.
	PlaceOrder(ctx context.Context, req PlaceRequest) error

	// FilledQuantity returns the cumulative filled quantity for a client
	// order id.
	FilledQuantity(ctx context.Context, clientOrderID string) (int64, error)

	// AverageFillPrice returns the average fill price for a client order id.
	AverageFillPrice(ctx context.Context, clientOrderID string) (decimal.Decimal, error)
}
