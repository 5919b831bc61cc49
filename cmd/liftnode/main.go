// Command liftnode runs one car's full stack: edge-polled I/O, the car
// state machine, and the distributed order-assignment protocol, wired
// together and left running until the stop button or an OS signal asks
// for shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/liftnode/liftnode/pkg/config"
	"github.com/liftnode/liftnode/pkg/controller"
	"github.com/liftnode/liftnode/pkg/iodevice"
	"github.com/liftnode/liftnode/pkg/iodevice/simulated"
	"github.com/liftnode/liftnode/pkg/order"
	"github.com/liftnode/liftnode/pkg/peer"
	"github.com/liftnode/liftnode/pkg/persist"
	"github.com/liftnode/liftnode/pkg/poller"
	"github.com/liftnode/liftnode/pkg/transport"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	store, err := persist.Open(cfg.PersistPath, cfg.NumFloors, logger)
	if err != nil {
		logger.Error("persist store open failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	tp, err := transport.DialUDPMulticast(cfg.MulticastGroup, cfg.MulticastPort, 2, nil)
	if err != nil {
		logger.Error("multicast dial failed", "error", err)
		os.Exit(1)
	}
	defer tp.Close()

	// No physical I/O driver exists in this repository; a real deployment
	// supplies its own iodevice.Device and wires it in here instead.
	device := simulated.New()

	channels := controller.DefaultChannels(cfg.NumFloors)

	ctrl := controller.New(cfg.NumFloors, cfg.Speed, device, channels, cfg.DoorOpen, nil, store, nil, logger)

	peerCfg := peer.Config{
		NumFloors: cfg.NumFloors,
		Weights: peer.Weights{
			Floor:     cfg.FloorWeight,
			Order:     cfg.OrderWeight,
			Direction: cfg.DirectionWeight,
		},
		TimeoutLimit:         cfg.TimeoutLimit,
		BroadcastHeartbeats:  cfg.BroadcastHeartbeats,
		HeartbeatFrequencyHz: cfg.HeartbeatFrequencyHz,
		ReconnectInterval:    cfg.ReconnectInterval,
	}
	networkPeer := peer.New(peerCfg, tp, ctrl, ctrl.Snapshot, nil, logger)
	ctrl.SetAnnouncer(networkPeer)

	ctrl.Startup()

	edgePoller := poller.New(device, cfg.HeartbeatPeriod(), ctrl.Enqueue, logger)
	registerInputs(edgePoller, channels, ctrl)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	go ctrl.Run(ctx)
	networkPeer.Start(ctx)
	go edgePoller.Run(ctx)

	select {
	case <-ctx.Done():
	case <-ctrl.StopRequested():
		logger.Info("stop button pressed, shutting down")
		cancel()
	}

	ctrl.Wait()
	networkPeer.Wait()
	edgePoller.Wait()
	logger.Info("liftnode exited")
}

// registerInputs wires every button, floor sensor and stop line onto the
// Edge Poller, skipping any channel the building's wiring leaves absent.
func registerInputs(p *poller.Poller, ch controller.Channels, ctrl *controller.Controller) {
	for floor, c := range ch.CabinButton {
		floor := floor
		if c == iodevice.Absent {
			continue
		}
		p.Register(c, func() { ctrl.ButtonPressed(order.Cabin, floor) })
	}
	for floor, c := range ch.HallUpButton {
		floor := floor
		if c == iodevice.Absent {
			continue
		}
		p.Register(c, func() { ctrl.ButtonPressed(order.HallUp, floor) })
	}
	for floor, c := range ch.HallDownButton {
		floor := floor
		if c == iodevice.Absent {
			continue
		}
		p.Register(c, func() { ctrl.ButtonPressed(order.HallDown, floor) })
	}
	for floor, c := range ch.FloorSensor {
		floor := floor
		if c == iodevice.Absent {
			continue
		}
		p.Register(c, func() { ctrl.FloorReached(floor) })
	}
	if ch.StopButton != iodevice.Absent {
		p.Register(ch.StopButton, ctrl.StopButton)
	}
	if ch.Obstruction != iodevice.Absent {
		p.Register(ch.Obstruction, ctrl.ObstructionSensed)
	}
}
