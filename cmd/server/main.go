/*
Package main runs the bridge between the execution platform and the trading
bus.

The bridge polls the platform's market data at a fixed cadence, aggregates
the resulting ticks into candles for every configured period, and publishes
ticks, candles and feed-start notifications to the bus. In the other
direction it consumes Order messages from the bus, places them with the
platform one account at a time, and publishes an OrderFilled once the
platform reports each placement completely filled.

Usage:

	go run ./cmd/server -config service.yaml

Topic names, the bus endpoint, the symbol and the candle periods come from
the YAML service file; a few values can be overridden through NINJA_BRIDGE_*
environment variables (a .env file next to the binary is honored).
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sayedrasheed/ninja-trader-server/internal/bus"
	"github.com/sayedrasheed/ninja-trader-server/internal/config"
	"github.com/sayedrasheed/ninja-trader-server/internal/execution"
	"github.com/sayedrasheed/ninja-trader-server/internal/feed"
	"github.com/sayedrasheed/ninja-trader-server/internal/orders"
)

var (
	// configPath locates the YAML service file.
	configPath = flag.String("config", "service.yaml", "Path to the YAML service file")
)

func main() {
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// A missing .env is fine; it only exists to override deployment values.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One websocket connection to the bus carries every topic.
	conn, err := bus.Dial(ctx, cfg.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to bus")
	}
	defer conn.Close()

	// The role table is built once from the configured topic overrides.
	pubs := bus.NewTable()
	for _, role := range []bus.Role{bus.RoleTick, bus.RoleCandle, bus.RoleHistoricalData, bus.RoleOrderFilled} {
		topic := bus.TopicName(role, cfg.Topics)
		pubs.Set(role, conn.Publisher(topic))
		log.Info().Str("role", string(role)).Str("topic", topic).Msg("publisher bound")
	}

	exec := newExecutionClient(cfg.Execution)
	tracker := orders.NewTracker(exec)

	datafeed := feed.NewDatafeed(feed.DatafeedConfig{
		Symbol:       cfg.Symbol,
		Periods:      cfg.CandlePeriods,
		PollInterval: cfg.PollInterval(),
	}, exec, pubs)

	orderCh := conn.Orders(bus.TopicName(bus.RoleOrder, cfg.Topics))
	orderfeed := feed.NewOrderfeed(feed.OrderfeedConfig{
		PollInterval: cfg.PollInterval(),
	}, exec, tracker, pubs, orderCh)

	if err := datafeed.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start datafeed")
	}
	defer datafeed.Stop()

	if err := orderfeed.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start orderfeed")
	}
	defer orderfeed.Stop()

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Str("symbol", cfg.Symbol).
		Uints32("candle_periods_s", cfg.CandlePeriods).
		Msg("bridge running")

	// Block until interrupted, then let the deferred stops unwind the
	// drivers and release the market-data subscription.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("initiating graceful shutdown")
}

// newExecutionClient builds the configured execution collaborator. Only the
// in-process simulator ships with the bridge.
func newExecutionClient(cfg config.ExecutionConfig) execution.Client {
	simCfg := execution.SimConfig{
		StepFraction:   cfg.StepFraction,
		FillAfterPolls: cfg.FillAfterPolls,
	}
	if cfg.StartPrice > 0 {
		simCfg.StartPrice = decimal.NewFromFloat(cfg.StartPrice)
	}
	return execution.NewSim(&simCfg)
}
