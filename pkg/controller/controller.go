// Package controller implements the car state machine: the single
// consumer of the shared event queue that serialises every hardware
// write, OrderSet mutation, and door/network decision onto one goroutine.
// Dispatch is a blocking dequeue rather than a periodic poll, because the
// car must react to a button press or floor sensor the instant it is
// enqueued, not on the next tick.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/liftnode/liftnode/pkg/doortimer"
	"github.com/liftnode/liftnode/pkg/iodevice"
	"github.com/liftnode/liftnode/pkg/order"
	"github.com/liftnode/liftnode/pkg/peer"
	"github.com/liftnode/liftnode/pkg/persist"
)

const doorBitOpen, doorBitClosed uint8 = 1, 0
const lampOn, lampOff uint8 = 1, 0
const brakePulse = 10 * time.Millisecond

// OrderAnnouncer is the subset of the Network Peer the Controller drives:
// the two outbound buffers it feeds on button presses and order receipt.
type OrderAnnouncer interface {
	AnnounceNew(order.Order)
	AnnounceStarted(order.Order)
}

// Controller is the car state machine. It must only be driven through
// Enqueue; every exported event method funnels through the same queue so
// handlers never run concurrently with each other.
type Controller struct {
	numFloors int
	speed     int
	device    iodevice.Device
	channels  Channels
	doorTimer *doortimer.Timer
	orders    *order.Set
	store     *persist.Store
	announcer OrderAnnouncer
	logger    *slog.Logger

	queue         chan func()
	stopRequested chan struct{}
	wg            sync.WaitGroup

	floor     int
	direction order.Direction
	moving    bool

	snapshot atomic.Pointer[peer.Info]
}

// New builds a Controller. clock selects the door timer's time source; nil
// picks a real clock, tests pass a clockwork.FakeClock.
func New(numFloors, speed int, device iodevice.Device, channels Channels, doorOpen time.Duration, clock clockwork.Clock, store *persist.Store, announcer OrderAnnouncer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		numFloors:     numFloors,
		speed:         speed,
		device:        device,
		channels:      channels,
		orders:        order.NewSet(numFloors),
		store:         store,
		announcer:     announcer,
		logger:        logger.With("service", "[CTRL]"),
		queue:         make(chan func(), 256),
		stopRequested: make(chan struct{}, 1),
		floor:         -1,
		direction:     order.Down,
	}
	c.doorTimer = doortimer.New(clock, doorOpen, func() { c.Enqueue(c.doorClose) })
	return c
}

// SetAnnouncer wires the Network Peer after construction, breaking the
// construction cycle between Controller and Peer (the Peer's own
// constructor needs the Controller as its snapshot source and Hooks
// implementation). Must be called before Startup.
func (c *Controller) SetAnnouncer(a OrderAnnouncer) {
	c.announcer = a
}

// Enqueue schedules action to run on the Controller goroutine. It never
// blocks the caller; a full queue drops the action and logs loudly, since
// dropping a hardware event is a real defect, not a benign backpressure case.
func (c *Controller) Enqueue(action func()) {
	select {
	case c.queue <- action:
	default:
		c.logger.Error("event queue full, dropping action")
	}
}

// Startup loads persisted cabin orders, lights their lamps, and begins the
// unconditional downward drive that establishes the car's first known
// floor. Must be called before Run.
func (c *Controller) Startup() {
	cabin := c.store.Load()
	cabin.Each(func(o order.Order) {
		c.orders.Add(o)
		c.setLamp(c.channels.CabinLamp, o.Floor, lampOn)
	})
	c.publishSnapshot()
	c.driveUnconditionally(order.Down)
}

// driveUnconditionally forces a direction and starts the motor without
// consulting findDirection, which needs a known floor to scan from --
// exactly what startup doesn't have yet.
func (c *Controller) driveUnconditionally(dir order.Direction) {
	c.direction = dir
	if err := c.device.SetBit(c.channels.DirectionBit, directionBit(dir)); err != nil {
		c.logger.Warn("direction bit write failed", "error", err)
	}
	if err := c.device.WriteAnalog(c.channels.MotorAnalog, iodevice.AnalogForSpeed(c.speed)); err != nil {
		c.logger.Warn("motor analog write failed", "error", err)
	}
	c.moving = true
}

// Run is the single-consumer event loop; it blocks until ctx is cancelled,
// at which point it drains whatever remains queued and stops the car
// before returning.
func (c *Controller) Run(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()
	c.logger.Info("starting controller loop")
	for {
		select {
		case <-ctx.Done():
			c.drainAndStop()
			return
		case action := <-c.queue:
			c.runHandler(action)
		}
	}
}

func (c *Controller) runHandler(action func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked, continuing", "panic", r)
		}
	}()
	action()
}

func (c *Controller) drainAndStop() {
	for {
		select {
		case action := <-c.queue:
			c.runHandler(action)
		default:
			c.stopElevator()
			c.logger.Info("exited controller loop")
			return
		}
	}
}

// Wait blocks until Run has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// sleepBrakePulse blocks the Controller goroutine for the mechanical brake
// pulse duration. Single-threaded by design: nothing else may run during
// this window, which is the point -- the direction bit must hold its
// momentary opposite value without racing a concurrent write.
func (c *Controller) sleepBrakePulse() {
	time.Sleep(brakePulse)
}

func (c *Controller) setLamp(lamps []int32, floor int, value uint8) {
	if floor < 0 || floor >= len(lamps) {
		return
	}
	ch := lamps[floor]
	if ch == iodevice.Absent {
		return
	}
	if err := c.device.SetBit(ch, value); err != nil {
		c.logger.Warn("lamp write failed", "channel", ch, "error", err)
	}
}

// publishSnapshot deep-copies the current state into the slot the Network
// Peer reads from and persists the cabin-only OrderSet, mirroring the
// "publish an immutable copy" discipline that lets the peer goroutine read
// without synchronising against the Controller.
func (c *Controller) publishSnapshot() {
	c.snapshot.Store(&peer.Info{
		Floor:     c.floor,
		Direction: c.direction,
		Orders:    c.orders.Snapshot(),
	})
	if err := c.store.Persist(c.orders); err != nil {
		c.logger.Warn("persist failed", "error", err)
	}
}

// Snapshot returns the most recently published ElevatorInfo. Safe to call
// from any goroutine; it is the function handed to peer.New.
func (c *Controller) Snapshot() peer.Info {
	if p := c.snapshot.Load(); p != nil {
		return *p
	}
	return peer.Info{Direction: order.Down, Orders: order.NewSet(c.numFloors)}
}
