package execution

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SimConfig configures the simulated execution platform.
type SimConfig struct {
	// StartPrice is the initial price for every subscribed symbol.
	StartPrice decimal.Decimal

	// StepFraction bounds the per-poll random price move as a fraction of
	// the current price.
	StepFraction float64

	// FillAfterPolls is the number of fill queries an order sees before it
	// reports as completely filled.
	FillAfterPolls int
}

// defaultSimConfig provides a usable simulator without any configuration.
var defaultSimConfig = SimConfig{
	StartPrice:     decimal.NewFromInt(5000),
	StepFraction:   0.0005,
	FillAfterPolls: 5,
}

// Sim is an in-process stand-in for the execution platform, used to run the
// bridge end to end without the proprietary client. Prices follow a bounded
// random walk and every placed order fills completely after a fixed number
// of fill queries, at its recorded placement price.
type Sim struct {
	cfg SimConfig

	mu         sync.Mutex
	rng        *rand.Rand
	prices     map[string]decimal.Decimal
	subscribed map[string]bool
	orders     map[string]*simOrder
}

// simOrder tracks one placed order inside the simulator.
type simOrder struct {
	req      PlaceRequest
	polls    int
	avgPrice decimal.Decimal
}

// NewSim creates a simulator. A nil config selects defaults; zero fields are
// filled in from the defaults.
func NewSim(cfg *SimConfig) *Sim {
	if cfg == nil {
		cfg = &defaultSimConfig
	}
	if cfg.StartPrice.IsZero() {
		cfg.StartPrice = defaultSimConfig.StartPrice
	}
	if cfg.StepFraction <= 0 {
		cfg.StepFraction = defaultSimConfig.StepFraction
	}
	if cfg.FillAfterPolls <= 0 {
		cfg.FillAfterPolls = defaultSimConfig.FillAfterPolls
	}

	return &Sim{
		cfg:        *cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		prices:     make(map[string]decimal.Decimal),
		subscribed: make(map[string]bool),
		orders:     make(map[string]*simOrder),
	}
}

// ConnectionStatus implements Client. The simulator is always connected.
func (s *Sim) ConnectionStatus(ctx context.Context) int {
	return StatusConnected
}

// SubscribeMarketData implements Client.
func (s *Sim) SubscribeMarketData(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribed[symbol] = true
	if _, ok := s.prices[symbol]; !ok {
		s.prices[symbol] = s.cfg.StartPrice
	}
	return nil
}

// UnsubscribeMarketData implements Client.
func (s *Sim) UnsubscribeMarketData(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscribed, symbol)
	return nil
}

// CurrentPrice implements Client. Each call advances the symbol's random
// walk by one bounded step.
func (s *Sim) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.subscribed[symbol] {
		return decimal.Zero, fmt.Errorf("%w: no market data subscription for %s", ErrUnavailable, symbol)
	}

	step := s.cfg.StepFraction * (s.rng.Float64()*2 - 1)
	price := s.prices[symbol].Mul(decimal.NewFromFloat(1 + step)).Round(4)
	s.prices[symbol] = price
	return price, nil
}

// PlaceOrder implements Client. The fill price is the limit price when one
// is set, otherwise the symbol's current simulated price.
func (s *Sim) PlaceOrder(ctx context.Context, req PlaceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d", ErrUnavailable, req.Quantity)
	}

	avg := req.LimitPrice
	if avg.IsZero() {
		if price, ok := s.prices[req.Instrument]; ok {
			avg = price
		} else {
			avg = s.cfg.StartPrice
		}
	}

	s.orders[req.ClientOrderID] = &simOrder{req: req, avgPrice: avg}
	log.Info().
		Str("account", req.Account).
		Str("instrument", req.Instrument).
		Str("side", req.Side.String()).
		Int64("quantity", req.Quantity).
		Str("client_order_id", req.ClientOrderID).
		Msg("sim order placed")
	return nil
}

// FilledQuantity implements Client. The order reports zero filled until it
// has been queried FillAfterPolls times, then its full quantity.
func (s *Sim) FilledQuantity(ctx context.Context, clientOrderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[clientOrderID]
	if !ok {
		return 0, fmt.Errorf("%w: unknown order %s", ErrUnavailable, clientOrderID)
	}

	order.polls++
	if order.polls >= s.cfg.FillAfterPolls {
		return order.req.Quantity, nil
	}
	return 0, nil
}

// AverageFillPrice implements Client.
func (s *Sim) AverageFillPrice(ctx context.Context, clientOrderID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[clientOrderID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown order %s", ErrUnavailable, clientOrderID)
	}
	return order.avgPrice, nil
}

var _ Client = (*Sim)(nil)
