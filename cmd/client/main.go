/*
Package main implements a small bus tap for inspecting what the bridge
publishes.

The tap connects to the bus endpoint, reads every envelope and logs its
topic and payload. It is a debugging aid: point it at the same endpoint as
the bridge and watch ticks, candles and fills go by.

Usage:

	go run ./cmd/client -endpoint=ws://localhost:7447/bus
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	// endpoint is the bus endpoint to tap.
	endpoint = flag.String("endpoint", "ws://localhost:7447/bus", "The bus websocket endpoint")
)

// envelope mirrors the bridge's wire frame.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	flag.Parse()

	log := zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	if *endpoint == "" {
		log.Fatal().Msg("endpoint cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, *endpoint, http.Header{})
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", *endpoint).Msg("failed to connect")
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	log.Info().Str("endpoint", *endpoint).Msg("tapping bus")

	// Close the connection on interrupt so the read loop unblocks.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("interrupted, closing")
		cancel()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatal().Err(err).Msg("read failed")
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("malformed envelope")
			continue
		}

		log.Info().Str("topic", env.Topic).RawJSON("payload", env.Payload).Msg("message")
	}
}
