// Package poller debounces raw hardware inputs into clean rising-edge
// actions delivered to the Controller's event queue: a ticker-driven
// background loop sampling a slice of registered channels.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/liftnode/liftnode/pkg/iodevice"
)

type registration struct {
	channel   int32
	action    func()
	lastLevel uint8
}

// Poller samples registered input channels at a fixed frequency and
// enqueues a zero-argument action on each rising (0->1) edge. A steady
// level or a falling edge enqueues nothing. Channels equal to
// iodevice.Absent must never be registered.
type Poller struct {
	device iodevice.Device
	logger *slog.Logger
	period time.Duration
	enq    func(func())

	mu    sync.Mutex
	regs  []*registration
	wg    sync.WaitGroup
}

// New creates a Poller that samples device every period and calls enqueue
// for each rising edge it observes. enqueue must never block the caller.
func New(device iodevice.Device, period time.Duration, enqueue func(func()), logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		device: device,
		period: period,
		enq:    enqueue,
		logger: logger.With("service", "[POLL]"),
	}
}

// Register associates action with channel. Registering iodevice.Absent is
// a programming error the caller must avoid -- Register silently ignores
// it rather than sampling a channel that doesn't exist.
func (p *Poller) Register(channel int32, action func()) {
	if channel == iodevice.Absent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regs = append(p.regs, &registration{channel: channel, action: action})
}

// Run starts the sampling loop; it blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	p.logger.Info("starting poll loop", "period", p.period)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited poll loop")
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *Poller) sample() {
	p.mu.Lock()
	regs := make([]*registration, len(p.regs))
	copy(regs, p.regs)
	p.mu.Unlock()

	for _, r := range regs {
		level, err := p.device.ReadBit(r.channel)
		if err != nil {
			// Transient read error: treat as unchanged, keep polling.
			p.logger.Warn("read failed, treating as unchanged", "channel", r.channel, "error", err)
			continue
		}
		if level == 1 && r.lastLevel == 0 {
			p.enq(r.action)
		}
		r.lastLevel = level
	}
}

// Wait blocks until Run has returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}
