// Package simulated is an in-memory iodevice.Device used by tests and by
// cmd/liftnode, standing in for hardware that is not physically attached.
package simulated

import (
	"sync"

	"github.com/liftnode/liftnode/pkg/iodevice"
)

// Device is a goroutine-safe, in-memory implementation of iodevice.Device.
// Digital bits default to 0; reading an unset channel returns (0, nil).
type Device struct {
	mu      sync.Mutex
	bits    map[int32]uint8
	analogs map[int32]uint16
}

func New() *Device {
	return &Device{
		bits:    make(map[int32]uint8),
		analogs: make(map[int32]uint16),
	}
}

func (d *Device) SetBit(channel int32, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bits[channel] = value
	return nil
}

func (d *Device) ReadBit(channel int32) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bits[channel], nil
}

func (d *Device) WriteAnalog(channel int32, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.analogs[channel] = value
	return nil
}

// Bit returns the last value set on channel, for test assertions.
func (d *Device) Bit(channel int32) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bits[channel]
}

// Analog returns the last value written on channel, for test assertions.
func (d *Device) Analog(channel int32) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.analogs[channel]
}

// Press sets channel to 1, the rising edge a button press produces; the
// level stays high until Release. Intended for tests that drive the Edge
// Poller.
func (d *Device) Press(channel int32) {
	_ = d.SetBit(channel, 1)
}

// Release sets channel back to 0 (falling edge, ignored by the poller).
func (d *Device) Release(channel int32) {
	_ = d.SetBit(channel, 0)
}

var _ iodevice.Device = (*Device)(nil)
