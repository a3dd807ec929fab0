// Package orders tracks the lifecycle of orders submitted to the execution
// platform: placement fan-out across accounts, outstanding-order bookkeeping
// and fill detection by polling.
package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sayedrasheed/ninja-trader-server/internal/contract"
	"github.com/sayedrasheed/ninja-trader-server/internal/execution"
	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

// Tracker submits orders to the execution platform and watches them until
// they fill.
//
// Every placement gets a fresh client order id and is recorded in an
// outstanding-order map keyed by that id. The map is shared between the
// submission path (called from whatever goroutine delivers the order) and
// the polling path (the orderfeed driver), so both run under one mutex;
// volumes are low enough that a single lock covering mutation and iteration
// is all that is needed.
//
// An entry lives from successful placement until PollFills observes the
// platform's filled quantity reach the full requested size, at which point
// it is removed exactly once. Partially filled orders stay tracked
// indefinitely; no partial-fill event exists.
type Tracker struct {
	exec execution.Client

	mu     sync.Mutex
	orders map[string]model.Order

	// Injection points for tests.
	newID func() string
	now   func() time.Time
}

// NewTracker creates a tracker submitting through the given client.
func NewTracker(exec execution.Client) *Tracker {
	return &Tracker{
		exec:   exec,
		orders: make(map[string]model.Order),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Submit places one platform order per account id in the request.
//
// The tradable contract is resolved from the order's base symbol and the
// current date. Each placement uses a generated client order id that doubles
// as its one-cancels-other group, side from the sign of Size, absolute
// quantity, and GTC duration. A placement the platform rejects is dropped —
// logged, not tracked, not retried; remaining accounts still get their
// placements.
//
// The only returned error is a contract-resolution failure, which indicates
// a corrupt date and is fatal to the caller.
func (t *Tracker) Submit(ctx context.Context, order model.Order) error {
	instrument, err := contract.Resolve(order.Symbol, t.now().UTC())
	if err != nil {
		return fmt.Errorf("resolve contract for %s: %w", order.Symbol, err)
	}

	side := model.SideSell
	if order.Size > 0 {
		side = model.SideBuy
	}

	for _, account := range order.AccountIDs {
		id := t.newID()

		req := execution.PlaceRequest{
			Account:       account,
			Instrument:    instrument,
			Side:          side,
			Quantity:      abs(order.Size),
			OrderType:     model.OrderTypeMarket,
			ClientOrderID: id,
			TimeInForce:   execution.TimeInForceGTC,
			LimitPrice:    order.Price,
			OCOGroup:      id,
		}

		if err := t.exec.PlaceOrder(ctx, req); err != nil {
			log.Error().Err(err).
				Str("account", account).
				Str("instrument", instrument).
				Uint64("order_id", order.OrderID).
				Msg("order placement rejected, dropping account placement")
			continue
		}

		t.mu.Lock()
		t.orders[id] = order
		t.mu.Unlock()

		log.Info().
			Str("account", account).
			Str("instrument", instrument).
			Str("client_order_id", id).
			Str("side", side.String()).
			Int64("quantity", abs(order.Size)).
			Msg("order placed")
	}

	return nil
}

// PollFills queries the platform for every outstanding order and returns a
// fill event for each one whose filled quantity reached the full requested
// size. Emitted entries are removed, so a second poll with unchanged state
// emits nothing further.
//
// A failed fill query leaves its entry untouched; the next cycle retries.
func (t *Tracker) PollFills(ctx context.Context) []model.OrderFilled {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fills []model.OrderFilled

	// Deleting from a map during range is well defined in Go, so removal
	// here cannot skip or double-visit entries.
	for id, order := range t.orders {
		filled, err := t.exec.FilledQuantity(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("client_order_id", id).Msg("fill query failed, retrying next cycle")
			continue
		}

		if filled != abs(order.Size) {
			continue
		}

		avgPrice, err := t.exec.AverageFillPrice(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("client_order_id", id).Msg("fill price query failed, retrying next cycle")
			continue
		}

		fills = append(fills, model.OrderFilled{
			TimestampNs: t.now().UnixNano(),
			Symbol:      order.Symbol,
			StrategyID:  order.StrategyID,
			OrderID:     order.OrderID,
			OrderType:   order.OrderType,
			Price:       avgPrice,
			Size:        order.Size,
		})
		delete(t.orders, id)

		log.Info().
			Str("client_order_id", id).
			Uint64("order_id", order.OrderID).
			Int64("size", order.Size).
			Msg("order filled")
	}

	return fills
}

// Outstanding reports the number of tracked orders.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.orders)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
