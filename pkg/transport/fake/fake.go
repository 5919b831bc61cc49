// Package fake is an in-process multicast switchboard for tests: every
// Bus created from the same Network is wired to every other, so multi-peer
// scenarios run without a real socket.
package fake

import (
	"sync"
	"time"

	"github.com/liftnode/liftnode/pkg/transport"
)

// Network is an in-memory multicast group. Zero value is ready to use.
type Network struct {
	mu      sync.Mutex
	members []*Bus
}

// Bus creates a new Transport attached to this Network, identified to
// peers by id.
func (n *Network) Bus(id string) *Bus {
	b := &Bus{
		id:  id,
		net: n,
		in:  make(chan datagram, 64),
	}
	n.mu.Lock()
	n.members = append(n.members, b)
	n.mu.Unlock()
	return b
}

type datagram struct {
	payload []byte
	peerID  string
}

// Bus is one node's handle onto a fake Network.
type Bus struct {
	id  string
	net *Network
	in  chan datagram

	mu     sync.Mutex
	closed bool
}

func (b *Bus) Send(payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	b.net.mu.Lock()
	members := make([]*Bus, len(b.net.members))
	copy(members, b.net.members)
	b.net.mu.Unlock()

	for _, m := range members {
		m.deliver(datagram{payload: cp, peerID: b.id})
	}
	return nil
}

func (b *Bus) deliver(d datagram) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	select {
	case b.in <- d:
	default:
		// Slow consumer: drop, mirroring an unreliable network rather
		// than blocking the sender.
	}
}

func (b *Bus) Receive(timeout time.Duration) ([]byte, string, error) {
	select {
	case d := <-b.in:
		return d.payload, d.peerID, nil
	case <-time.After(timeout):
		return nil, "", transport.ErrTimeout
	}
}

// LocalID returns the id this Bus was created with, which is also the
// peerID attached to every datagram it sends.
func (b *Bus) LocalID() string {
	return b.id
}

func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.net.mu.Lock()
	defer b.net.mu.Unlock()
	for i, m := range b.net.members {
		if m == b {
			b.net.members = append(b.net.members[:i], b.net.members[i+1:]...)
			break
		}
	}
	return nil
}

var _ transport.Transport = (*Bus)(nil)
