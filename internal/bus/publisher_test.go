package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records publishes and closes for table tests.
type fakePublisher struct {
	published []any
	closed    int
}

func (f *fakePublisher) Publish(ctx context.Context, payload any) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed++
	return nil
}

func Test_TopicName(t *testing.T) {
	tests := []struct {
		name      string
		role      Role
		overrides map[string]string
		want      string
	}{
		{
			name: "No overrides uses the role name",
			role: RoleTick,
			want: "tick",
		},
		{
			name:      "Override replaces the default",
			role:      RoleCandle,
			overrides: map[string]string{"candle": "es_candles"},
			want:      "es_candles",
		},
		{
			name:      "Override for another role is ignored",
			role:      RoleOrderFilled,
			overrides: map[string]string{"candle": "es_candles"},
			want:      "order_filled",
		},
		{
			name:      "Empty override falls back to the default",
			role:      RoleTick,
			overrides: map[string]string{"tick": ""},
			want:      "tick",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicName(tt.role, tt.overrides))
		})
	}
}

func Test_Table_Publish(t *testing.T) {
	table := NewTable()
	tickPub := &fakePublisher{}
	table.Set(RoleTick, tickPub)

	require.NoError(t, table.Publish(context.Background(), RoleTick, "payload"))
	assert.Equal(t, []any{"payload"}, tickPub.published)

	err := table.Publish(context.Background(), RoleCandle, "payload")
	assert.ErrorIs(t, err, ErrNoPublisher, "Unbound roles cannot publish")
}

func Test_Table_CloseClosesEachHandleOnce(t *testing.T) {
	table := NewTable()
	shared := &fakePublisher{}
	own := &fakePublisher{}

	// The same handle bound to two roles is closed once.
	table.Set(RoleTick, shared)
	table.Set(RoleCandle, shared)
	table.Set(RoleOrderFilled, own)

	require.NoError(t, table.Close())
	assert.Equal(t, 1, shared.closed)
	assert.Equal(t, 1, own.closed)
}
