package fake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftnode/liftnode/pkg/transport"
)

func TestBusBroadcastsToAllMembersIncludingSelf(t *testing.T) {
	var net Network
	a := net.Bus("A")
	b := net.Bus("B")

	require.NoError(t, a.Send([]byte("hello")))

	payload, peer, err := b.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))
	assert.Equal(t, "A", peer)

	// Sender also receives its own heartbeat -- no loopback suppression.
	payload, peer, err = a.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))
	assert.Equal(t, "A", peer)
}

func TestReceiveTimesOutWithoutTraffic(t *testing.T) {
	var net Network
	a := net.Bus("A")

	_, _, err := a.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}

func TestClosedBusStopsReceivingButOthersUnaffected(t *testing.T) {
	var net Network
	a := net.Bus("A")
	b := net.Bus("B")

	require.NoError(t, a.Close())
	require.NoError(t, b.Send([]byte("still alive")))

	_, _, err := a.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}
