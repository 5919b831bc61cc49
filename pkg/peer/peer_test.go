package peer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftnode/liftnode/pkg/order"
	"github.com/liftnode/liftnode/pkg/transport/fake"
)

type recordingHooks struct {
	mu       sync.Mutex
	received []order.Order
	lights   map[string]bool
	lost     int
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{lights: make(map[string]bool)}
}

func (h *recordingHooks) ReceiveOrder(o order.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, o)
}

func (h *recordingHooks) SetHallLight(direction order.Direction, floor int, value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lights[order.Order{Kind: order.KindForDirection(direction), Floor: floor}.String()] = value
}

func (h *recordingHooks) LostConnection() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lost++
}

func (h *recordingHooks) gotOrder(o order.Order) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.received {
		if r == o {
			return true
		}
	}
	return false
}

func testConfig(numFloors int) Config {
	return Config{
		NumFloors:            numFloors,
		Weights:              Weights{Floor: 1, Order: 2, Direction: 4},
		TimeoutLimit:         200 * time.Millisecond,
		BroadcastHeartbeats:  3,
		HeartbeatFrequencyHz: 200, // 5ms period, keeps the test fast
		ReconnectInterval:    10 * time.Millisecond,
	}
}

func newTestPeer(cfg Config, bus *fake.Bus, snapshot func() Info) (*Peer, *recordingHooks) {
	hooks := newRecordingHooks()
	p := New(cfg, bus, hooks, snapshot, clockwork.NewRealClock(), nil)
	return p, hooks
}

// TestNewHallOrderAssignedToCloserCar exercises the full wire path: two
// peers exchange heartbeats over a fake network, and the car closer to the
// announced hall call must win the bid.
func TestNewHallOrderAssignedToCloserCar(t *testing.T) {
	var net fake.Network
	cfg := testConfig(4)

	nearInfo := Info{Floor: 0, Direction: order.Up, Orders: order.NewSet(4)}
	farInfo := Info{Floor: 3, Direction: order.Up, Orders: order.NewSet(4)}

	near, nearHooks := newTestPeer(cfg, net.Bus("A"), func() Info { return nearInfo })
	far, _ := newTestPeer(cfg, net.Bus("B"), func() Info { return farInfo })

	ctx, cancel := context.WithCancel(context.Background())
	near.Start(ctx)
	far.Start(ctx)
	defer func() {
		cancel()
		near.Wait()
		far.Wait()
	}()

	far.AnnounceNew(order.Order{Kind: order.HallUp, Floor: 1})

	require.Eventually(t, func() bool {
		return nearHooks.gotOrder(order.Order{Kind: order.HallUp, Floor: 1})
	}, time.Second, 5*time.Millisecond, "the closer car should win the hall call bid")
}

// TestDeadPeerOrdersAreReassignedExcludingIt verifies a surviving peer
// picks up a dead peer's hall call but never touches its cabin calls.
func TestDeadPeerOrdersAreReassignedExcludingIt(t *testing.T) {
	var net fake.Network
	cfg := testConfig(4)
	cfg.TimeoutLimit = 20 * time.Millisecond

	survivorOrders := order.NewSet(4)
	survivor, survivorHooks := newTestPeer(cfg, net.Bus("survivor"), func() Info {
		return Info{Floor: 2, Direction: order.Up, Orders: survivorOrders}
	})

	goneBus := net.Bus("gone")
	goneOrders := order.NewSet(4)
	goneOrders.Add(order.Order{Kind: order.HallDown, Floor: 1})
	goneOrders.Add(order.Order{Kind: order.Cabin, Floor: 3})
	gone, _ := newTestPeer(cfg, goneBus, func() Info {
		return Info{Floor: 1, Direction: order.Down, Orders: goneOrders}
	})

	survivorCtx, survivorCancel := context.WithCancel(context.Background())
	goneCtx, goneCancel := context.WithCancel(context.Background())
	survivor.Start(survivorCtx)
	gone.Start(goneCtx)
	defer func() {
		survivorCancel()
		survivor.Wait()
	}()

	require.Eventually(t, func() bool {
		survivor.mu.Lock()
		defer survivor.mu.Unlock()
		_, ok := survivor.views["gone"]
		return ok
	}, time.Second, 5*time.Millisecond, "survivor must have heard at least one heartbeat from the departing peer")

	goneCancel()
	gone.Wait()
	goneBus.Close()

	require.Eventually(t, func() bool {
		return survivorHooks.gotOrder(order.Order{Kind: order.HallDown, Floor: 1})
	}, time.Second, 5*time.Millisecond, "the dead peer's hall call must be taken over")

	assert.False(t, survivorHooks.gotOrder(order.Order{Kind: order.Cabin, Floor: 3}),
		"a dead peer's cabin call must never be redistributed")
}
