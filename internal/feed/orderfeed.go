package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sayedrasheed/ninja-trader-server/internal/bus"
	"github.com/sayedrasheed/ninja-trader-server/internal/execution"
	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// OrderfeedConfig configures the order driver.
type OrderfeedConfig struct {
	// PollInterval overrides the default 100 ms fill-poll cadence.
	PollInterval time.Duration
}

// Orderfeed drives the order side of the bridge: it submits Order messages
// arriving from the bus to the tracker and polls the tracker for fills on a
// fixed interval, publishing an OrderFilled for each one.
//
// Submissions also happen through the tracker from arbitrary goroutines via
// Submit; the tracker's internal lock covers both paths.
type Orderfeed struct {
	cfg     OrderfeedConfig
	exec    execution.Client
	tracker OrderTracker
	pubs    *bus.Table
	orders  <-chan model.Order

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// OrderTracker is the tracker surface the orderfeed drives.
type OrderTracker interface {
	Submit(ctx context.Context, order model.Order) error
	PollFills(ctx context.Context) []model.OrderFilled
}

// NewOrderfeed creates an order driver. A nil order channel is allowed; the
// driver then only serves direct Submit calls.
func NewOrderfeed(cfg OrderfeedConfig, exec execution.Client, tracker OrderTracker, pubs *bus.Table, orders <-chan model.Order) *Orderfeed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &Orderfeed{
		cfg:     cfg,
		exec:    exec,
		tracker: tracker,
		pubs:    pubs,
		orders:  orders,
	}
}

// Start launches the fill-poll loop.
func (f *Orderfeed) Start(ctx context.Context) error {
	if !f.started.CompareAndSwap(false, true) {
		return errors.New("orderfeed already started")
	}

	status := f.exec.ConnectionStatus(ctx)
	log.Info().Int("status", status).Msg("execution platform connection status")

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.run(ctx)

	log.Info().Dur("poll_interval", f.cfg.PollInterval).Msg("orderfeed started")
	return nil
}

// Stop cancels the poll loop and waits for it to exit. A cycle already in
// progress completes first.
func (f *Orderfeed) Stop() {
	if !f.started.CompareAndSwap(true, false) {
		return
	}

	f.cancel()
	<-f.done
	log.Info().Msg("orderfeed stopped")
}

// Submit forwards an order straight to the tracker, for callers wired to
// the bridge in-process rather than through the bus.
func (f *Orderfeed) Submit(ctx context.Context, order model.Order) error {
	return f.tracker.Submit(ctx, order)
}

// run is the driver goroutine. The first fill poll fires immediately, then
// on every tick of the interval; inbound orders are submitted as they
// arrive.
func (f *Orderfeed) run(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	orders := f.orders

	f.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-orders:
			if !ok {
				// Bus order source closed; keep polling fills for orders
				// already tracked.
				orders = nil
				continue
			}
			if err := f.tracker.Submit(ctx, order); err != nil {
				// Contract resolution failed: the date is corrupt. This is
				// an invariant violation, not an operational error.
				log.Panic().Err(err).Uint64("order_id", order.OrderID).Msg("order submission invariant violation")
			}
		case <-ticker.C:
			f.cycle(ctx)
		}
	}
}

// cycle polls the tracker once and publishes every detected fill.
func (f *Orderfeed) cycle(ctx context.Context) {
	for _, fill := range f.tracker.PollFills(ctx) {
		if err := f.pubs.Publish(ctx, bus.RoleOrderFilled, fill); err != nil {
			log.Warn().Err(err).Uint64("order_id", fill.OrderID).Msg("order fill publish failed")
		}
	}
}
