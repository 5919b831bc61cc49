// Package transport is the MulticastTransport contract the Network Peer is
// built against. The binary-to-multicast socket primitives are out of
// scope as a component boundary; only this contract and its wire framing
// are in scope.
package transport

import (
	"errors"
	"time"
)

// MaxPayloadBytes is the largest heartbeat payload the wire format permits.
const MaxPayloadBytes = 1024

// ErrTimeout is returned by Receive when no datagram arrived within the
// requested timeout. It is not a failure: callers should treat it as
// "nothing happened this tick" and continue their poll loop.
var ErrTimeout = errors.New("transport: receive timeout")

// Transport is an unreliable, connectionless multicast channel. Every node
// both sends and receives on the same group; a Transport does not
// suppress a node's own heartbeats -- the cost function and tie-break
// handle hearing oneself uniformly, so loopback needs no special casing.
type Transport interface {
	// Send multicasts payload to the group. Implementations should not
	// block longer than a connection attempt requires.
	Send(payload []byte) error
	// Receive blocks for up to timeout waiting for one datagram. On
	// success it returns the payload and a stable string identifying the
	// sender (e.g. source IP). On timeout it returns ErrTimeout.
	Receive(timeout time.Duration) (payload []byte, peerID string, err error)
	// LocalID returns the identity this node's own heartbeats will be seen
	// under by its peers (including itself, since Send is not
	// loopback-suppressed). It must match what Receive reports as peerID
	// for a datagram this node sent.
	LocalID() string
	// Close releases the underlying socket.
	Close() error
}
