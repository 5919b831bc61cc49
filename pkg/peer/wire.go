package peer

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/liftnode/liftnode/pkg/order"
)

// Info is the ElevatorInfo snapshot a node publishes about itself and
// tracks for every peer it hears from.
type Info struct {
	Floor     int
	Direction order.Direction
	Orders    *order.Set
}

type orderDTO struct {
	Kind  string `json:"kind"`
	Floor int    `json:"floor"`
}

type ordersDTO struct {
	Up   []bool `json:"UP"`
	Down []bool `json:"DOWN"`
	In   []bool `json:"IN"`
}

// heartbeatDTO is the wire record exchanged between nodes. Unknown trailing
// fields are tolerated by construction: sonic's default decode ignores
// fields absent from the struct.
type heartbeatDTO struct {
	Floor         int        `json:"floor"`
	Direction     string     `json:"direction"`
	Orders        ordersDTO  `json:"orders"`
	NewOrders     []orderDTO `json:"new_orders"`
	StartedOrders []orderDTO `json:"started_orders"`
}

func kindToWire(k order.Kind) string {
	switch k {
	case order.HallUp:
		return "HALL_UP"
	case order.HallDown:
		return "HALL_DOWN"
	default:
		return "CABIN"
	}
}

func kindFromWire(s string) order.Kind {
	switch s {
	case "HALL_UP":
		return order.HallUp
	case "HALL_DOWN":
		return order.HallDown
	default:
		return order.Cabin
	}
}

func directionToWire(d order.Direction) string {
	return d.String()
}

func directionFromWire(s string) order.Direction {
	if s == "DOWN" {
		return order.Down
	}
	return order.Up
}

func ordersToDTO(orders []order.Order) []orderDTO {
	out := make([]orderDTO, len(orders))
	for i, o := range orders {
		out[i] = orderDTO{Kind: kindToWire(o.Kind), Floor: o.Floor}
	}
	return out
}

func ordersFromDTO(dtos []orderDTO) []order.Order {
	out := make([]order.Order, len(dtos))
	for i, d := range dtos {
		out[i] = order.Order{Kind: kindFromWire(d.Kind), Floor: d.Floor}
	}
	return out
}

func encodeHeartbeat(info Info, newOrders, startedOrders []order.Order) ([]byte, error) {
	up, down, in := info.Orders.Columns()
	dto := heartbeatDTO{
		Floor:         info.Floor,
		Direction:     directionToWire(info.Direction),
		Orders:        ordersDTO{Up: up, Down: down, In: in},
		NewOrders:     ordersToDTO(newOrders),
		StartedOrders: ordersToDTO(startedOrders),
	}
	payload, err := sonic.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("peer: encode heartbeat: %w", err)
	}
	return payload, nil
}

type decodedHeartbeat struct {
	Info          Info
	NewOrders     []order.Order
	StartedOrders []order.Order
}

func decodeHeartbeat(numFloors int, payload []byte) (decodedHeartbeat, error) {
	var dto heartbeatDTO
	if err := sonic.Unmarshal(payload, &dto); err != nil {
		return decodedHeartbeat{}, fmt.Errorf("peer: decode heartbeat: %w", err)
	}
	info := Info{
		Floor:     dto.Floor,
		Direction: directionFromWire(dto.Direction),
		Orders:    order.SetFromColumns(numFloors, dto.Orders.Up, dto.Orders.Down, dto.Orders.In),
	}
	return decodedHeartbeat{
		Info:          info,
		NewOrders:     ordersFromDTO(dto.NewOrders),
		StartedOrders: ordersFromDTO(dto.StartedOrders),
	}, nil
}
