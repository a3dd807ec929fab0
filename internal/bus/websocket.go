package bus

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sayedrasheed/ninja-trader-server/internal/model"
)

const (
	// defaultPingPeriod is the interval between websocket ping frames.
	defaultPingPeriod = 15 * time.Second

	// defaultSendTimeout bounds every websocket write.
	defaultSendTimeout = 5 * time.Second

	// defaultReadLimit caps incoming message size.
	defaultReadLimit = 1 << 20 // 1MB

	// defaultHandshakeTimeout bounds the websocket handshake.
	defaultHandshakeTimeout = 10 * time.Second

	// orderBuffer is the capacity of the inbound order channel.
	orderBuffer = 100
)

// envelope is the wire frame for every bus message: a topic string plus the
// JSON-encoded payload.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is one websocket connection to the bus endpoint. It multiplexes any
// number of topic publishers over a single connection and optionally reads
// inbound Order messages.
//
// Writes are serialized with a mutex; reads happen on a single goroutine as
// the websocket package requires.
type Conn struct {
	endpoint string
	conn     *websocket.Conn

	writeMu sync.Mutex

	subMu      sync.Mutex
	orderCh    chan model.Order
	orderTopic string

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// Dial connects to the bus endpoint and starts the connection's ping and
// read loops.
func Dial(ctx context.Context, endpoint string) (*Conn, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("bus endpoint is required")
	}

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial bus %s: %w", endpoint, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	conn.SetReadLimit(defaultReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(defaultPingPeriod * 2))
	})

	ctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		endpoint: endpoint,
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.pingLoop()
	}()
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()

	log.Info().Str("endpoint", endpoint).Msg("connected to bus")
	return c, nil
}

// Publisher returns a handle publishing to one topic over this connection.
func (c *Conn) Publisher(topic string) Publisher {
	return &topicPublisher{conn: c, topic: topic}
}

// Orders subscribes to inbound Order messages on the given topic and
// returns the delivery channel. The channel closes when the connection
// shuts down. A slow consumer loses the oldest buffered order, never the
// newest.
func (c *Conn) Orders(topic string) <-chan model.Order {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.orderCh == nil {
		c.orderCh = make(chan model.Order, orderBuffer)
		c.orderTopic = topic
	}
	return c.orderCh
}

// Close tears the connection down and waits for its goroutines.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
		c.wg.Wait()

		c.subMu.Lock()
		if c.orderCh != nil {
			close(c.orderCh)
			c.orderCh = nil
		}
		c.subMu.Unlock()
	})
	return nil
}

// write sends one frame under the write lock with a deadline.
func (c *Conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultSendTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// pingLoop keeps the connection alive.
func (c *Conn) pingLoop() {
	ticker := time.NewTicker(defaultPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(defaultSendTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("endpoint", c.endpoint).Msg("ping failed")
			}
		}
	}
}

// readLoop reads envelopes and dispatches Order messages to the order
// channel. All other inbound topics are ignored.
func (c *Conn) readLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err) {
				log.Warn().Err(err).Str("endpoint", c.endpoint).Msg("unexpected bus closure")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("discarding malformed bus frame")
			continue
		}

		c.subMu.Lock()
		ch, topic := c.orderCh, c.orderTopic
		c.subMu.Unlock()

		if ch == nil || env.Topic != topic {
			continue
		}

		var order model.Order
		if err := json.Unmarshal(env.Payload, &order); err != nil {
			log.Warn().Err(err).Str("topic", env.Topic).Msg("discarding malformed order payload")
			continue
		}

		select {
		case ch <- order:
		default:
			// Buffer full: drop the oldest buffered order to make room.
			// The consumer drains concurrently, so both the drop and the
			// retry must stay non-blocking; losing the race costs the
			// newest order instead of the oldest.
			log.Warn().Str("topic", topic).Msg("order consumer too slow, dropping buffered order")
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- order:
			default:
			}
		}
	}
}

// topicPublisher publishes to a fixed topic over a shared Conn.
type topicPublisher struct {
	conn  *Conn
	topic string
}

// Publish implements Publisher.
func (p *topicPublisher) Publish(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", p.topic, err)
	}

	frame, err := json.Marshal(envelope{Topic: p.topic, Payload: body})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", p.topic, err)
	}

	if err := p.conn.write(frame); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close implements Publisher. Topic handles share the connection, which is
// owned by its creator, so closing a handle is a no-op.
func (p *topicPublisher) Close() error {
	return nil
}
