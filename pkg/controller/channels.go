package controller

import "github.com/liftnode/liftnode/pkg/iodevice"

// Channels maps every car signal onto a hardware channel. A slice entry of
// iodevice.Absent means that floor's line is not wired. DefaultChannels
// supplies a synthesized layout; a building with different wiring needs
// its own Channels value.
type Channels struct {
	CabinButton    []int32
	HallUpButton   []int32
	HallDownButton []int32
	FloorSensor    []int32
	CabinLamp      []int32
	HallUpLamp     []int32
	HallDownLamp   []int32
	FloorIndicator []int32

	DoorOpenBit  int32
	DirectionBit int32
	MotorAnalog  int32
	StopButton   int32
	Obstruction  int32 // edge-triggered input for Controller.ObstructionSensed
}

// DefaultChannels synthesizes a sequential channel layout for numFloors.
// Real deployments supply their own wiring; this is the fallback used when
// no channel map is otherwise configured, keeping the sentinel rule
// (top-floor UP, bottom-floor DOWN absent) intact.
func DefaultChannels(numFloors int) Channels {
	seq := func(base int32) []int32 {
		out := make([]int32, numFloors)
		for i := range out {
			out[i] = base + int32(i)
		}
		return out
	}

	hallUp := seq(100)
	hallUp[numFloors-1] = iodevice.Absent
	hallDown := seq(200)
	hallDown[0] = iodevice.Absent

	return Channels{
		CabinButton:    seq(0),
		HallUpButton:   hallUp,
		HallDownButton: hallDown,
		FloorSensor:    seq(300),
		CabinLamp:      seq(400),
		HallUpLamp:     seq(500),
		HallDownLamp:   seq(600),
		FloorIndicator: seq(700),
		DoorOpenBit:    800,
		DirectionBit:   801,
		MotorAnalog:    802,
		StopButton:     803,
		Obstruction:    804,
	}
}
