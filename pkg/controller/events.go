package controller

import (
	"github.com/liftnode/liftnode/pkg/iodevice"
	"github.com/liftnode/liftnode/pkg/order"
)

// ButtonPressed schedules the button_pressed event: a CABIN press is
// treated as a locally-won order; a hall press is only forwarded to the
// Network Peer's pending_new buffer, since the order isn't added to this
// car's OrderSet until the assignment protocol awards it back.
func (c *Controller) ButtonPressed(kind order.Kind, floor int) {
	c.Enqueue(func() { c.buttonPressed(kind, floor) })
}

// FloorReached schedules the floor_reached event fired by the Edge Poller
// on the sensor's rising edge.
func (c *Controller) FloorReached(floor int) {
	c.Enqueue(func() { c.floorReached(floor) })
}

// ReceiveOrder implements peer.Hooks: a new order won by this car arrives
// here to be added to the OrderSet. The Controller's own cabin presses
// take the same path internally, without going through this method.
func (c *Controller) ReceiveOrder(o order.Order) {
	c.Enqueue(func() { c.receiveOrder(o) })
}

// SetHallLight implements peer.Hooks: a direct lamp write with no other
// state-machine effect, driven by the fleet-wide hall light computation.
func (c *Controller) SetHallLight(direction order.Direction, floor int, value bool) {
	c.Enqueue(func() { c.setHallLight(direction, floor, value) })
}

// LostConnection implements peer.Hooks: the sender couldn't reach the
// network. Hall calls are relinquished; they'll be relearned from peers
// once the network returns.
func (c *Controller) LostConnection() {
	c.Enqueue(c.lostConnection)
}

// ObstructionSensed schedules the obstruction event: while the door is
// open and dwelling, a detected obstruction restarts the dwell so the
// door stays open until the obstruction clears. A reading taken while
// the door is closed has no effect.
func (c *Controller) ObstructionSensed() {
	c.Enqueue(c.handleObstruction)
}

// StopButton raises the interrupt flag. It does not go through the event
// queue: the actual shutdown sequence runs when the caller cancels the
// context passed to Run, which drains pending events and calls
// stopElevator before returning.
func (c *Controller) StopButton() {
	select {
	case c.stopRequested <- struct{}{}:
	default:
	}
}

// StopRequested receives a value when the stop button has been pressed;
// callers select on it alongside OS signals to decide when to cancel Run's
// context.
func (c *Controller) StopRequested() <-chan struct{} {
	return c.stopRequested
}

func (c *Controller) buttonPressed(kind order.Kind, floor int) {
	o := order.Order{Kind: kind, Floor: floor}
	if !o.Valid(c.numFloors) {
		return // wire sentinel: top-floor UP / bottom-floor DOWN, silently ignored
	}
	if c.orders.Has(o.Floor, o.Kind) {
		return // already lit: no state change, no extra broadcast
	}
	if kind == order.Cabin {
		c.receiveOrder(o)
		return
	}
	c.announcer.AnnounceNew(o)
}

func (c *Controller) receiveOrder(o order.Order) {
	if !o.Valid(c.numFloors) {
		return
	}
	c.orders.Add(o)
	if o.Kind == order.Cabin {
		c.setLamp(c.channels.CabinLamp, o.Floor, lampOn)
	}
	c.announcer.AnnounceStarted(o)
	c.publishSnapshot()
	c.shouldDrive()
}

func (c *Controller) floorReached(floor int) {
	c.floor = floor
	c.driveFloorIndicator(floor)
	c.publishSnapshot()
	c.shouldStop()
}

func (c *Controller) driveFloorIndicator(floor int) {
	for f, ch := range c.channels.FloorIndicator {
		if ch == iodevice.Absent {
			continue
		}
		value := lampOff
		if f == floor {
			value = lampOn
		}
		c.setLamp(c.channels.FloorIndicator, f, value)
	}
}

// shouldStop decides, on reaching a new floor, whether to stop and open
// the door, keep moving, or (the startup artefact) stop then immediately
// re-evaluate should_drive because the direction is about to flip with
// nothing to serve at this particular floor.
func (c *Controller) shouldStop() {
	nextDir := c.findDirection()
	mustFlip := nextDir != c.direction
	currentKind := order.KindForDirection(c.direction)
	oppositeKind := order.KindForDirection(c.direction.Opposite())

	switch {
	case !c.orders.HasAny():
		c.stopElevator()

	case c.orders.Has(c.floor, currentKind) || c.orders.Has(c.floor, order.Cabin):
		c.orders.Remove(c.floor, currentKind, order.Cabin)
		if mustFlip {
			c.orders.Remove(c.floor, oppositeKind)
		}
		c.stopElevator()
		c.openDoor()

	case mustFlip && c.orders.Has(c.floor, oppositeKind):
		c.orders.Remove(c.floor, oppositeKind)
		c.stopElevator()
		c.openDoor()

	case mustFlip:
		c.stopElevator()
		c.shouldDrive()

	default:
		// an order remains further along the current direction: keep moving
	}
	c.publishSnapshot()
}

// shouldDrive is called whenever the car is (or might become) idle: after
// receiving a new order and after the door closes. It serves whatever is
// available at the current floor before committing to a new direction.
func (c *Controller) shouldDrive() {
	if c.moving {
		c.publishSnapshot()
		return
	}

	currentKind := order.KindForDirection(c.direction)
	if c.orders.Has(c.floor, currentKind) || c.orders.Has(c.floor, order.Cabin) {
		c.orders.Remove(c.floor, currentKind, order.Cabin)
		c.openDoor()
		c.publishSnapshot()
		return
	}

	nextDir := c.findDirection()
	oppositeKind := order.KindForDirection(c.direction.Opposite())
	if nextDir != c.direction && c.orders.Has(c.floor, oppositeKind) {
		c.orders.Remove(c.floor, oppositeKind)
		c.openDoor()
		c.publishSnapshot()
		return
	}

	if c.orders.HasAny() && c.doorTimer.IsFinished() {
		c.drive()
	}
	c.publishSnapshot()
}

func (c *Controller) drive() {
	c.direction = c.findDirection()
	if err := c.device.SetBit(c.channels.DirectionBit, directionBit(c.direction)); err != nil {
		c.logger.Warn("direction bit write failed", "error", err)
	}
	if err := c.device.WriteAnalog(c.channels.MotorAnalog, iodevice.AnalogForSpeed(c.speed)); err != nil {
		c.logger.Warn("motor analog write failed", "error", err)
	}
	c.moving = true
}

func (c *Controller) stopElevator() {
	if !c.moving {
		return
	}
	cur := directionBit(c.direction)
	opposite := uint8(1) - cur
	if err := c.device.SetBit(c.channels.DirectionBit, opposite); err != nil {
		c.logger.Warn("brake pulse write failed", "error", err)
	}
	c.sleepBrakePulse()
	if err := c.device.SetBit(c.channels.DirectionBit, cur); err != nil {
		c.logger.Warn("direction bit restore failed", "error", err)
	}
	if err := c.device.WriteAnalog(c.channels.MotorAnalog, iodevice.StopAnalog); err != nil {
		c.logger.Warn("motor stop write failed", "error", err)
	}
	c.moving = false
}

// findDirection scans from the current floor in the current direction for
// any order; if none is found it returns the opposite direction, even when
// no orders exist anywhere (harmless: no motion will be commanded).
func (c *Controller) findDirection() order.Direction {
	if c.scanForOrder(c.direction) {
		return c.direction
	}
	return c.direction.Opposite()
}

func (c *Controller) scanForOrder(dir order.Direction) bool {
	if dir == order.Up {
		for f := c.floor; f < c.numFloors; f++ {
			if c.orders.HasAnyAt(f) {
				return true
			}
		}
		return false
	}
	for f := c.floor; f >= 0; f-- {
		if c.orders.HasAnyAt(f) {
			return true
		}
	}
	return false
}

func (c *Controller) openDoor() {
	c.setLamp(c.channels.CabinLamp, c.floor, lampOff)
	if err := c.device.SetBit(c.channels.DoorOpenBit, doorBitOpen); err != nil {
		c.logger.Warn("door open write failed", "error", err)
	}
	c.doorTimer.Start()
}

func (c *Controller) doorClose() {
	if err := c.device.SetBit(c.channels.DoorOpenBit, doorBitClosed); err != nil {
		c.logger.Warn("door close write failed", "error", err)
	}
	c.shouldDrive()
}

func (c *Controller) lostConnection() {
	for f := 0; f < c.numFloors; f++ {
		c.setLamp(c.channels.HallUpLamp, f, lampOff)
		c.setLamp(c.channels.HallDownLamp, f, lampOff)
	}
	c.orders.RemoveAllNonCabin()
	c.publishSnapshot()
}

func (c *Controller) handleObstruction() {
	if !c.doorTimer.IsFinished() {
		c.doorTimer.Start()
	}
}

func (c *Controller) setHallLight(direction order.Direction, floor int, value bool) {
	v := lampOff
	if value {
		v = lampOn
	}
	if direction == order.Up {
		c.setLamp(c.channels.HallUpLamp, floor, v)
	} else {
		c.setLamp(c.channels.HallDownLamp, floor, v)
	}
}

func directionBit(d order.Direction) uint8 {
	if d == order.Up {
		return 0
	}
	return 1
}

