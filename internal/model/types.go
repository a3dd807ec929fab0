// Package model defines the message schemas exchanged between the bridge
// and the trading bus.
//
// These types mirror the wire contract: everything the bridge publishes
// (Tick, Candle, HistoricalData, OrderFilled) and everything it consumes
// (Order). All price and volume fields use decimal.Decimal for precise
// financial arithmetic; timestamps are nanoseconds since the Unix epoch.
package model

import (
	"github.com/shopspring/decimal"
)

// Side identifies the aggressor side of a tick or order.
type Side int

const (
	// SideNone is used for ticks synthesized from price polls, where the
	// aggressor side is unknown.
	SideNone Side = iota

	// SideBuy marks a buy.
	SideBuy

	// SideSell marks a sell.
	SideSell
)

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// OrderType identifies how an order is priced.
type OrderType int

const (
	// OrderTypeMarket executes at the current market price.
	OrderTypeMarket OrderType = iota

	// OrderTypeLimit executes at the order's limit price or better.
	OrderTypeLimit
)

// String returns the wire name of the order type.
func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	default:
		return "MARKET"
	}
}

// Tick is a single timestamped price observation for an instrument.
//
// Ticks built from the market-data poll carry a zero size and SideNone
// because the execution platform only exposes the current price.
type Tick struct {
	TimestampNs int64           `json:"timestamp_ns"` // Observation time, ns since epoch
	Symbol      string          `json:"symbol"`       // Instrument symbol (e.g. "ES")
	Price       decimal.Decimal `json:"price"`        // Observed price
	Size        int64           `json:"size"`         // Traded quantity, 0 when unknown
	Side        Side            `json:"side"`         // Aggressor side, SideNone when unknown
}

// Ohlcv is the mutable accumulator for one candle bucket.
//
// CloseTimestampNs is the time the bucket closes, always aligned to a
// multiple of the owning period (in nanoseconds) from the epoch.
type Ohlcv struct {
	CloseTimestampNs int64           `json:"timestamp_ns"` // Bucket close time, period-aligned
	Open             decimal.Decimal `json:"open"`         // First price in the bucket
	High             decimal.Decimal `json:"high"`         // Highest price in the bucket
	Low              decimal.Decimal `json:"low"`          // Lowest price in the bucket
	Close            decimal.Decimal `json:"close"`        // Most recent price in the bucket
	Volume           decimal.Decimal `json:"volume"`       // Summed tick sizes
}

// Candle is a closed OHLCV bucket for one configured period.
// It is immutable once emitted by the aggregator.
type Candle struct {
	PeriodS uint32 `json:"period_s"` // Bucket span in seconds
	Symbol  string `json:"symbol"`   // Instrument symbol
	Ohlcv   Ohlcv  `json:"ohlcv"`    // Snapshot taken at close
}

// HistoricalData announces that a fresh candle feed has begun for one
// (symbol, period) pair. It is published once per configured period when a
// datafeed starts; there is no further contract on this message.
type HistoricalData struct {
	Symbol      string `json:"symbol"`
	PeriodS     uint32 `json:"period_s"`
	TimestampNs int64  `json:"timestamp_ns"`
}

// Order is an order request arriving from the trading bus.
//
// The sign of Size encodes the direction: positive buys, negative sells.
// One platform order is placed per entry in AccountIDs.
type Order struct {
	AccountIDs []string        `json:"account_ids"` // Target accounts, one placement each
	Symbol     string          `json:"symbol"`      // Base instrument symbol
	Price      decimal.Decimal `json:"price"`       // Limit price hint, forwarded to the platform
	Size       int64           `json:"size"`        // Signed quantity; sign encodes buy/sell
	StrategyID uint32          `json:"strategy_id"` // Originating strategy
	OrderID    uint64          `json:"order_id"`    // Caller-assigned order identifier
	OrderType  OrderType       `json:"order_type"`  // Pricing type
}

// OrderFilled reports that one tracked platform order filled completely.
// Size carries the original signed request size.
type OrderFilled struct {
	TimestampNs int64           `json:"timestamp_ns"` // Fill detection time
	Symbol      string          `json:"symbol"`       // Base instrument symbol
	StrategyID  uint32          `json:"strategy_id"`  // Copied from the originating Order
	OrderID     uint64          `json:"order_id"`     // Copied from the originating Order
	OrderType   OrderType       `json:"order_type"`   // Copied from the originating Order
	Price       decimal.Decimal `json:"price"`        // Average fill price from the platform
	Size        int64           `json:"size"`         // Original signed request size
}
