package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftnode/liftnode/pkg/order"
)

func TestCostReturnsNegativeOneWhenPeerAlreadyOwnsOrder(t *testing.T) {
	orders := order.NewSet(4)
	orders.Add(order.Order{Kind: order.HallUp, Floor: 2})
	e := Info{Floor: 0, Direction: order.Up, Orders: orders}

	w := Weights{Floor: 1, Order: 2, Direction: 4}
	assert.Equal(t, -1.0, cost(order.Order{Kind: order.HallUp, Floor: 2}, e, w))
}

func TestCostPenalizesOpposingDirectionOrdersInRange(t *testing.T) {
	w := Weights{Floor: 1, Order: 2, Direction: 4}

	withOpposing := order.NewSet(6)
	withOpposing.Add(order.Order{Kind: order.HallDown, Floor: 5})
	e := Info{Floor: 0, Direction: order.Up, Orders: withOpposing}

	o := order.Order{Kind: order.HallUp, Floor: 4}
	// o.floor(4) falls within [e.floor(0), x.floor(5)], and x's direction
	// (DOWN) opposes o's (UP): floor_distance=4, +DIRECTION_WEIGHT, +ORDER_WEIGHT.
	assert.Equal(t, 4.0+4.0+2.0, cost(o, e, w))
}

func TestAssignPicksMinimumCostCandidate(t *testing.T) {
	w := Weights{Floor: 1, Order: 2, Direction: 4}
	o := order.Order{Kind: order.HallUp, Floor: 1}

	near := candidate{id: "near", info: Info{Floor: 0, Direction: order.Up, Orders: order.NewSet(4)}}
	far := candidate{id: "far", info: Info{Floor: 3, Direction: order.Up, Orders: order.NewSet(4)}}

	winner, c, ok := assign(o, []candidate{far, near}, w)
	require.True(t, ok)
	assert.Equal(t, "near", winner)
	assert.Equal(t, 1.0, c)
}

func TestAssignBreaksTiesLexicographically(t *testing.T) {
	w := Weights{Floor: 1, Order: 2, Direction: 4}
	o := order.Order{Kind: order.HallUp, Floor: 1}

	a := candidate{id: "b-node", info: Info{Floor: 0, Direction: order.Up, Orders: order.NewSet(4)}}
	b := candidate{id: "a-node", info: Info{Floor: 0, Direction: order.Up, Orders: order.NewSet(4)}}

	winner, _, ok := assign(o, []candidate{a, b}, w)
	require.True(t, ok)
	assert.Equal(t, "a-node", winner, "equal cost must tie-break on the lower peer identifier")
}

func TestAssignSkipsCandidatesThatAlreadyOwnTheOrder(t *testing.T) {
	w := Weights{Floor: 1, Order: 2, Direction: 4}
	o := order.Order{Kind: order.HallUp, Floor: 1}

	owns := order.NewSet(4)
	owns.Add(o)
	owner := candidate{id: "owner", info: Info{Floor: 1, Direction: order.Up, Orders: owns}}

	winner, _, ok := assign(o, []candidate{owner}, w)
	assert.False(t, ok, "the only candidate already owns the order, so there is no reassignment")
	assert.Empty(t, winner)
}
