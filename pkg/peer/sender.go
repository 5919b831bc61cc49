package peer

import (
	"context"
	"time"

	"github.com/liftnode/liftnode/pkg/order"
)

type scheduled struct {
	order  order.Order
	expiry time.Time
}

func (p *Peer) senderLoop(ctx context.Context) {
	ticker := p.clock.NewTicker(p.cfg.heartbeatPeriod())
	defer ticker.Stop()

	var activeNew, activeStarted []scheduled
	lostNotified := false

	p.logger.Info("starting sender loop", "period", p.cfg.heartbeatPeriod())
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited sender loop")
			return
		case <-ticker.Chan():
			activeNew = p.refreshSchedule(activeNew, p.pendingNew)
			activeStarted = p.refreshSchedule(activeStarted, p.pendingStarted)

			payload, err := encodeHeartbeat(p.snapshot(), ordersOf(activeNew), ordersOf(activeStarted))
			if err != nil {
				p.logger.Error("encode failed, skipping this tick", "error", err)
				continue
			}

			if err := p.transport.Send(payload); err != nil {
				p.logger.Warn("send failed", "error", err)
				if !lostNotified {
					p.hooks.LostConnection()
					lostNotified = true
				}
				drain(p.pendingNew)
				activeNew = nil
				p.clock.Sleep(p.cfg.ReconnectInterval)
				continue
			}
			lostNotified = false
		}
	}
}

// refreshSchedule drops expired entries, drains at most one fresh order
// from pending, and returns the still-active schedule.
func (p *Peer) refreshSchedule(active []scheduled, pending chan order.Order) []scheduled {
	now := p.clock.Now()
	kept := active[:0]
	for _, s := range active {
		if now.Before(s.expiry) {
			kept = append(kept, s)
		}
	}

	select {
	case o := <-pending:
		kept = append(kept, scheduled{order: o, expiry: now.Add(p.cfg.announcePeriod())})
	default:
	}
	return kept
}

func ordersOf(active []scheduled) []order.Order {
	out := make([]order.Order, len(active))
	for i, s := range active {
		out[i] = s.order
	}
	return out
}

func drain(ch chan order.Order) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
