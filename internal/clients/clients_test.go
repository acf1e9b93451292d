package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/myoutfood/internal/history/memory"
)

// pingSlot — слот с управляемым Ping.
type pingSlot struct {
	*memory.Slot
	err   error
	pings int
}

func (s *pingSlot) Ping(context.Context) error {
	s.pings++
	return s.err
}

func TestReady_MemorySlotAlwaysReady(t *testing.T) {
	c := &Clients{slot: memory.New()}
	require.NoError(t, c.Ready(context.Background()))
}

func TestReady_PingsSlot(t *testing.T) {
	slot := &pingSlot{Slot: memory.New()}
	c := &Clients{slot: slot}

	require.NoError(t, c.Ready(context.Background()))
	require.Equal(t, 1, slot.pings)

	slot.err = errors.New("connection refused")
	err := c.Ready(context.Background())
	require.ErrorIs(t, err, slot.err)
	require.Equal(t, 2, slot.pings)
}

func TestClose_NilSlot(t *testing.T) {
	require.NoError(t, (&Clients{}).Close())
}
