// Package candles turns a raw tick stream into OHLCV candles for a set of
// configured periods.
//
// The execution platform only exposes current prices, so the bridge builds
// its own candles: every polled tick is fed through the Aggregator, which
// maintains one open bucket per period and reports buckets as they close.
//
// Thread safety: an Aggregator instance supports at most one in-flight
// ProcessTick call. The poll loop that owns the instance delivers ticks from
// a single goroutine; concurrent callers must serialize externally.
package candles

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// bucket holds the accumulator state for one period. A bucket is either
// empty (no tick seen yet) or open; the explicit flag avoids treating a
// legitimately-zero close timestamp as "unset".
type bucket struct {
	open  bool
	ohlcv model.Ohlcv
}

// Aggregator accumulates ticks into one OHLCV bucket per configured period
// for a single symbol.
//
// Periods are independent of each other: each tick updates every period's
// bucket, and a tick that lands past a bucket's close timestamp closes that
// bucket and starts the next one. When a gap in the tick stream spans more
// than one period, only one candle is emitted and the bucket advances by a
// single period; missed windows are not backfilled with synthetic candles.
type Aggregator struct {
	symbol  string
	buckets map[uint32]*bucket
}

// NewAggregator creates an aggregator for the given symbol and period
// lengths (seconds). Duplicate periods collapse into one bucket.
func NewAggregator(symbol string, periods []uint32) *Aggregator {
	buckets := make(map[uint32]*bucket, len(periods))
	for _, p := range periods {
		buckets[p] = &bucket{}
	}

	return &Aggregator{
		symbol:  symbol,
		buckets: buckets,
	}
}

// ProcessTick folds one tick into every period's bucket and returns the
// candles that closed as a result, possibly none.
//
// For each period:
//   - the first tick ever opens the bucket, with the close timestamp aligned
//     to the period boundary at or before the tick
//   - a tick at or past the close timestamp snapshots the bucket as a closed
//     candle, then restarts it one period later with the tick as its first
//     entry
//   - any other tick updates close/high/low and accumulates volume
func (a *Aggregator) ProcessTick(tick model.Tick) []model.Candle {
	var closed []model.Candle

	for periodS, b := range a.buckets {
		if !b.open {
			b.open = true
			b.ohlcv.CloseTimestampNs = PeriodStart(tick.TimestampNs, periodS)
			b.restart(tick)
			continue
		}

		if tick.TimestampNs >= b.ohlcv.CloseTimestampNs {
			closed = append(closed, model.Candle{
				PeriodS: periodS,
				Symbol:  a.symbol,
				Ohlcv:   b.ohlcv,
			})

			b.ohlcv.CloseTimestampNs += int64(periodS) * int64(time.Second)
			b.restart(tick)
			continue
		}

		b.ohlcv.Close = tick.Price
		b.ohlcv.High = decimal.Max(b.ohlcv.High, tick.Price)
		b.ohlcv.Low = decimal.Min(b.ohlcv.Low, tick.Price)
		b.ohlcv.Volume = b.ohlcv.Volume.Add(decimal.NewFromInt(tick.Size))
	}

	return closed
}

// restart seeds the bucket's OHLCV fields from the first tick of a window.
// CloseTimestampNs is managed by the caller.
func (b *bucket) restart(tick model.Tick) {
	b.ohlcv.Open = tick.Price
	b.ohlcv.High = tick.Price
	b.ohlcv.Low = tick.Price
	b.ohlcv.Close = tick.Price
	b.ohlcv.Volume = decimal.NewFromInt(tick.Size)
}

// PeriodStart aligns a timestamp to the period boundary at or before it.
//
// The result satisfies 0 <= tsNs-result < periodS*1e9 and is idempotent on
// already-aligned timestamps. The very first bucket seeded from this value
// closes at that boundary, so its effective window can be shorter than a
// full period; downstream consumers depend on this, keep it.
func PeriodStart(tsNs int64, periodS uint32) int64 {
	periodNs := int64(periodS) * int64(time.Second)
	if remainder := tsNs % periodNs; remainder > 0 {
		return tsNs - remainder
	}
	return tsNs
}
