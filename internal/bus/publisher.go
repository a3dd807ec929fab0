// Package bus provides the bridge's publish side of the trading bus:
// publisher handles, the role-to-publisher lookup table, and a websocket
// transport implementation.
//
// Publication is fire and forget. A publisher reports transport errors to
// its caller for logging, but the bridge never waits for acknowledgement and
// assumes no delivery guarantee.
package bus

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPublisher is returned when a Table has no handle for a role.
var ErrNoPublisher = errors.New("no publisher for role")

// Role identifies which kind of message a publisher handle carries. The
// role's string value is also the default topic name on the bus.
type Role string

const (
	RoleTick           Role = "tick"
	RoleCandle         Role = "candle"
	RoleHistoricalData Role = "historical_data"
	RoleOrder          Role = "order"
	RoleOrderFilled    Role = "order_filled"
)

// Publisher is a handle that sends one kind of message to the bus.
type Publisher interface {
	// Publish encodes and sends a message. Errors are transport failures;
	// the message is simply lost.
	Publish(ctx context.Context, payload any) error

	// Close releases the handle.
	Close() error
}

// TopicName resolves the bus topic for a role: the override from the
// service configuration when one exists, otherwise the role name itself.
func TopicName(role Role, overrides map[string]string) string {
	if topic, ok := overrides[string(role)]; ok && topic != "" {
		return topic
	}
	return string(role)
}

// Table maps message roles to publisher handles.
//
// It is built once at subscription setup from the configured topic
// overrides and read-only afterwards, so lookups need no locking.
type Table struct {
	publishers map[Role]Publisher
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{publishers: make(map[Role]Publisher)}
}

// Set binds a role to a publisher handle. Later bindings replace earlier
// ones for the same role.
func (t *Table) Set(role Role, pub Publisher) {
	t.publishers[role] = pub
}

// Publish sends a payload through the role's handle.
func (t *Table) Publish(ctx context.Context, role Role, payload any) error {
	pub, ok := t.publishers[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPublisher, role)
	}
	return pub.Publish(ctx, payload)
}

// Close closes every distinct handle in the table. Handles bound to several
// roles are closed once.
func (t *Table) Close() error {
	var firstErr error
	seen := make(map[Publisher]bool, len(t.publishers))
	for _, pub := range t.publishers {
		if seen[pub] {
			continue
		}
		seen[pub] = true
		if err := pub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
