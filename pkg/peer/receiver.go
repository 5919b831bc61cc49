package peer

import (
	"context"
	"errors"
	"time"

	"github.com/liftnode/liftnode/pkg/order"
	"github.com/liftnode/liftnode/pkg/transport"
)

const receiveTimeout = 100 * time.Millisecond

func (p *Peer) receiverLoop(ctx context.Context) {
	p.logger.Info("starting receiver loop")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited receiver loop")
			return
		default:
		}

		payload, peerID, err := p.transport.Receive(receiveTimeout)
		switch {
		case err == nil:
			dec, derr := decodeHeartbeat(p.cfg.NumFloors, payload)
			if derr != nil {
				p.logger.Warn("malformed heartbeat, discarding", "peer", peerID, "error", derr)
				break
			}
			p.observe(peerID, dec)
		case errors.Is(err, transport.ErrTimeout):
			// Nothing arrived this tick; still fall through to timeouts.
		default:
			p.logger.Warn("receive failed", "error", err)
		}

		p.handleTimeouts()
	}
}

func (p *Peer) observe(peerID string, dec decodedHeartbeat) {
	p.mu.Lock()
	p.views[peerID] = &peerEntry{info: dec.Info, lastSeen: p.clock.Now()}
	p.mu.Unlock()

	p.handleStartedOrders(peerID, dec.StartedOrders)
	p.handleNewOrders(dec.NewOrders)
	p.handleGlobalHallLights()
}

// handleStartedOrders clears any awaiting_start entries peerID has now
// fulfilled by publishing o in its own started_orders.
func (p *Peer) handleStartedOrders(peerID string, started []order.Order) {
	if len(started) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.awaiting[peerID]
	if len(entries) == 0 {
		return
	}
	kept := entries[:0]
	for _, e := range entries {
		fulfilled := false
		for _, o := range started {
			if o == e.order {
				fulfilled = true
				break
			}
		}
		if !fulfilled {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(p.awaiting, peerID)
	} else {
		p.awaiting[peerID] = kept
	}
}

func (p *Peer) handleNewOrders(newOrders []order.Order) {
	for _, o := range newOrders {
		p.tryAssign(o, nil)
	}
}

// tryAssign runs the cost arbitration for o against every alive peer not in
// excluded. A self win enqueues receive_order; any other winner is recorded
// in awaiting_start pending its own started_orders acknowledgement.
func (p *Peer) tryAssign(o order.Order, excluded map[string]bool) {
	self := p.localID()

	p.mu.Lock()
	cands := []candidate{{id: self, info: p.snapshot()}}
	for id, entry := range p.views {
		if id == self || excluded[id] {
			continue
		}
		cands = append(cands, candidate{id: id, info: entry.info})
	}
	p.mu.Unlock()

	if excluded[self] {
		cands = cands[1:]
	}

	winner, _, ok := assign(o, cands, p.cfg.Weights)
	if !ok {
		return
	}

	if winner == self {
		p.hooks.ReceiveOrder(o)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.awaiting[winner] {
		if e.order == o {
			return // already pending on this same winner
		}
	}
	ex := make(map[string]bool, len(excluded)+1)
	for k := range excluded {
		ex[k] = true
	}
	p.awaiting[winner] = append(p.awaiting[winner], &awaitingEntry{
		order:    o,
		excluded: ex,
		deadline: p.clock.Now().Add(p.cfg.announcePeriod()),
	})
}

// handleGlobalHallLights recomputes the union of every alive peer's hall
// rows (including this node's own) and enqueues set_hall_light for each
// cell whose value changed since the last computation.
func (p *Peer) handleGlobalHallLights() {
	self := p.snapshot()
	up, down, _ := self.Orders.Columns()

	p.mu.Lock()
	for _, entry := range p.views {
		u, d, _ := entry.info.Orders.Columns()
		for floor := 0; floor < p.cfg.NumFloors; floor++ {
			up[floor] = up[floor] || u[floor]
			down[floor] = down[floor] || d[floor]
		}
	}

	var changes []func()
	for floor := 0; floor < p.cfg.NumFloors; floor++ {
		if up[floor] != p.hallUp[floor] {
			v := up[floor]
			f := floor
			changes = append(changes, func() { p.hooks.SetHallLight(order.Up, f, v) })
			p.hallUp[floor] = v
		}
		if down[floor] != p.hallDown[floor] {
			v := down[floor]
			f := floor
			changes = append(changes, func() { p.hooks.SetHallLight(order.Down, f, v) })
			p.hallDown[floor] = v
		}
	}
	p.mu.Unlock()

	for _, c := range changes {
		c()
	}
}

// handleTimeouts declares any peer silent for longer than TimeoutLimit
// dead, reassigns its outstanding non-cabin orders, and re-arbitrates any
// awaiting_start entry whose deadline has passed without acknowledgement.
func (p *Peer) handleTimeouts() {
	now := p.clock.Now()

	p.mu.Lock()
	var dead []string
	for id, entry := range p.views {
		if now.Sub(entry.lastSeen) > p.cfg.TimeoutLimit {
			dead = append(dead, id)
		}
	}
	deadOrders := make(map[string][]order.Order, len(dead))
	for _, id := range dead {
		entry := p.views[id]
		var orders []order.Order
		entry.info.Orders.Each(func(o order.Order) {
			if o.Kind != order.Cabin {
				orders = append(orders, o)
			}
		})
		deadOrders[id] = orders
		delete(p.views, id)
		delete(p.awaiting, id)
		p.logger.Info("declared peer dead", "peer", id)
	}

	var expired []struct {
		winner string
		entry  *awaitingEntry
	}
	for winner, entries := range p.awaiting {
		kept := entries[:0]
		for _, e := range entries {
			if now.After(e.deadline) {
				expired = append(expired, struct {
					winner string
					entry  *awaitingEntry
				}{winner, e})
			} else {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(p.awaiting, winner)
		} else {
			p.awaiting[winner] = kept
		}
	}
	p.mu.Unlock()

	for _, id := range dead {
		for _, o := range deadOrders[id] {
			p.tryAssign(o, map[string]bool{id: true})
		}
	}
	for _, x := range expired {
		ex := make(map[string]bool, len(x.entry.excluded)+1)
		for k := range x.entry.excluded {
			ex[k] = true
		}
		ex[x.winner] = true
		p.tryAssign(x.entry.order, ex)
	}
}
