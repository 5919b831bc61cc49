// Package peer runs the distributed order-assignment protocol: periodic
// multicast heartbeats, cost-based bidding for hall calls, dead-peer
// takeover and the global hall-light sync, built around a per-peer
// last-seen timeout and a Start/Wait goroutine-pair lifecycle.
package peer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/liftnode/liftnode/pkg/order"
	"github.com/liftnode/liftnode/pkg/transport"
)

// Hooks is how the Peer drives the Controller's event queue. Every method
// must only enqueue; none may touch hardware or the OrderSet directly.
type Hooks interface {
	ReceiveOrder(o order.Order)
	SetHallLight(direction order.Direction, floor int, value bool)
	LostConnection()
}

// Config carries the tunables the cost function and the protocol timers
// need. It mirrors pkg/config.Config's relevant fields without importing
// it, keeping this package usable standalone.
type Config struct {
	NumFloors            int
	Weights              Weights
	TimeoutLimit         time.Duration
	BroadcastHeartbeats  int
	HeartbeatFrequencyHz float64
	ReconnectInterval    time.Duration
}

func (c Config) heartbeatPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.HeartbeatFrequencyHz)
}

func (c Config) announcePeriod() time.Duration {
	return time.Duration(c.BroadcastHeartbeats) * c.heartbeatPeriod()
}

type peerEntry struct {
	info     Info
	lastSeen time.Time
}

type awaitingEntry struct {
	order    order.Order
	excluded map[string]bool
	deadline time.Time
}

// Peer is the Network Peer component for one car.
type Peer struct {
	cfg       Config
	transport transport.Transport
	hooks     Hooks
	snapshot  func() Info
	clock     clockwork.Clock
	logger    *slog.Logger

	pendingNew     chan order.Order
	pendingStarted chan order.Order

	mu        sync.Mutex
	views     map[string]*peerEntry
	awaiting  map[string][]*awaitingEntry // keyed by winner peer id
	hallUp    []bool
	hallDown  []bool

	wg sync.WaitGroup
}

// New creates a Peer. snapshot must return the Controller's current
// published ElevatorInfo and must not block.
func New(cfg Config, t transport.Transport, hooks Hooks, snapshot func() Info, clock clockwork.Clock, logger *slog.Logger) *Peer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		cfg:            cfg,
		transport:      t,
		hooks:          hooks,
		snapshot:       snapshot,
		clock:          clock,
		logger:         logger.With("service", "[PEER]"),
		pendingNew:     make(chan order.Order, 64),
		pendingStarted: make(chan order.Order, 64),
		views:          make(map[string]*peerEntry),
		awaiting:       make(map[string][]*awaitingEntry),
		hallUp:         make([]bool, cfg.NumFloors),
		hallDown:       make([]bool, cfg.NumFloors),
	}
}

// AnnounceNew queues o to be broadcast as a new hall order for the next
// BroadcastHeartbeats heartbeats. Non-blocking; when the buffer is full, o
// itself is dropped (and logged) rather than stalling the caller.
func (p *Peer) AnnounceNew(o order.Order) {
	select {
	case p.pendingNew <- o:
	default:
		p.logger.Warn("pending_new buffer full, dropping announcement", "order", o)
	}
}

// AnnounceStarted queues o to be published as started, acknowledging that
// this node has taken ownership of it.
func (p *Peer) AnnounceStarted(o order.Order) {
	select {
	case p.pendingStarted <- o:
	default:
		p.logger.Warn("pending_started buffer full, dropping acknowledgement", "order", o)
	}
}

// Start launches the sender and receiver loops; both run until ctx is
// cancelled.
func (p *Peer) Start(ctx context.Context) {
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.senderLoop(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.receiverLoop(ctx)
	}()
}

// Wait blocks until both loops have returned.
func (p *Peer) Wait() {
	p.wg.Wait()
}

func (p *Peer) localID() string {
	return p.transport.LocalID()
}
