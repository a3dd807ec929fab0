// Package feed contains the bridge's periodic drivers: the datafeed, which
// polls the execution platform's price and publishes ticks and candles, and
// the orderfeed, which consumes inbound orders and publishes fills.
//
// Each driver owns one goroutine firing on a fixed interval, independent of
// the other. Collaborator calls are synchronous and bounded, so a hang in
// the platform stalls that driver's cycle only. There is no retry or
// backoff: a failed cycle logs and the next tick of the driver tries again.
package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sayedrasheed/ninja-trader-server/internal/bus"
	"github.com/sayedrasheed/ninja-trader-server/internal/candles"
	"github.com/sayedrasheed/ninja-trader-server/internal/execution"
	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// defaultPollInterval is the driver cadence when none is configured,
// matching the platform's 10 Hz data rate.
const defaultPollInterval = 100 * time.Millisecond

// DatafeedConfig configures one symbol's market-data driver.
type DatafeedConfig struct {
	// Symbol is the instrument to poll.
	Symbol string

	// Periods lists the candle period lengths in seconds.
	Periods []uint32

	// PollInterval overrides the default 100 ms cadence.
	PollInterval time.Duration
}

// Datafeed polls the platform's current price on a fixed interval, turning
// each observation into a published Tick and feeding it through the candle
// aggregator; candles closed by a tick are published in the same cycle.
//
// The aggregator is only ever touched from the driver goroutine, which
// satisfies its single-caller requirement.
type Datafeed struct {
	cfg  DatafeedConfig
	exec execution.Client
	pubs *bus.Table
	agg  *candles.Aggregator

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

// NewDatafeed creates a datafeed driver. It does not touch the platform
// until Start.
func NewDatafeed(cfg DatafeedConfig, exec execution.Client, pubs *bus.Table) *Datafeed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &Datafeed{
		cfg:  cfg,
		exec: exec,
		pubs: pubs,
		agg:  candles.NewAggregator(cfg.Symbol, cfg.Periods),
		now:  time.Now,
	}
}

// Start announces the fresh feed, subscribes to the platform's market data
// and launches the poll loop. The market-data subscription is released on
// every exit path, including Stop and context cancellation.
func (d *Datafeed) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("datafeed for %s already started", d.cfg.Symbol)
	}

	status := d.exec.ConnectionStatus(ctx)
	log.Info().Str("symbol", d.cfg.Symbol).Int("status", status).Msg("execution platform connection status")

	// One HistoricalData per configured period tells downstream consumers a
	// fresh feed has begun.
	for _, periodS := range d.cfg.Periods {
		hd := model.HistoricalData{
			Symbol:      d.cfg.Symbol,
			PeriodS:     periodS,
			TimestampNs: d.now().UnixNano(),
		}
		if err := d.pubs.Publish(ctx, bus.RoleHistoricalData, hd); err != nil {
			log.Warn().Err(err).Uint32("period_s", periodS).Msg("historical data publish failed")
		}
	}

	if err := d.exec.SubscribeMarketData(ctx, d.cfg.Symbol); err != nil {
		d.started.Store(false)
		return fmt.Errorf("subscribe market data for %s: %w", d.cfg.Symbol, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(ctx)

	log.Info().
		Str("symbol", d.cfg.Symbol).
		Uints32("periods_s", d.cfg.Periods).
		Dur("poll_interval", d.cfg.PollInterval).
		Msg("datafeed started")
	return nil
}

// Stop cancels the poll loop and waits for it to release the market-data
// subscription. A cycle already in progress completes first.
func (d *Datafeed) Stop() {
	if !d.started.CompareAndSwap(true, false) {
		return
	}

	d.cancel()
	<-d.done
	log.Info().Str("symbol", d.cfg.Symbol).Msg("datafeed stopped")
}

// run is the driver goroutine. The first cycle fires immediately, then on
// every tick of the interval.
func (d *Datafeed) run(ctx context.Context) {
	defer close(d.done)
	defer func() {
		// The loop context is already cancelled here; release the platform
		// subscription with a bounded fresh context.
		unsubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.exec.UnsubscribeMarketData(unsubCtx, d.cfg.Symbol); err != nil {
			log.Warn().Err(err).Str("symbol", d.cfg.Symbol).Msg("market data unsubscribe failed")
		}
	}()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

// cycle performs one poll: price query, tick publish, candle aggregation,
// closed-candle publishes. Any failure is local to this cycle.
func (d *Datafeed) cycle(ctx context.Context) {
	price, err := d.exec.CurrentPrice(ctx, d.cfg.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", d.cfg.Symbol).Msg("price query failed, skipping cycle")
		return
	}

	tick := model.Tick{
		TimestampNs: d.now().UnixNano(),
		Symbol:      d.cfg.Symbol,
		Price:       price,
		Size:        0,
		Side:        model.SideNone,
	}

	if err := d.pubs.Publish(ctx, bus.RoleTick, tick); err != nil {
		log.Warn().Err(err).Msg("tick publish failed")
	}

	for _, candle := range d.agg.ProcessTick(tick) {
		if err := d.pubs.Publish(ctx, bus.RoleCandle, candle); err != nil {
			log.Warn().Err(err).Uint32("period_s", candle.PeriodS).Msg("candle publish failed")
			continue
		}
		log.Debug().
			Str("symbol", candle.Symbol).
			Uint32("period_s", candle.PeriodS).
			Int64("close_timestamp_ns", candle.Ohlcv.CloseTimestampNs).
			Msg("candle closed")
	}
}
