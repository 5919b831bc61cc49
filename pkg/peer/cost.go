package peer

import (
	"github.com/liftnode/liftnode/pkg/order"
)

// Weights are the cost function's tunable coefficients, read from Config.
type Weights struct {
	Floor     float64
	Order     float64
	Direction float64
}

// cost scores how well-suited e is to serve o. It returns -1 when e already
// owns o (no reassignment is ever beneficial in that case); otherwise lower
// is better.
func cost(o order.Order, e Info, w Weights) float64 {
	if e.Orders.Has(o.Floor, o.Kind) {
		return -1
	}

	total := float64(abs(e.Floor-o.Floor)) * w.Floor

	var direction order.Direction
	hasDirection := o.Kind.IsHall()
	if hasDirection {
		direction = o.Kind.Direction()
	}

	e.Orders.Each(func(x order.Order) {
		if x.Kind == order.Cabin {
			return
		}
		lo, hi := e.Floor, x.Floor
		if lo > hi {
			lo, hi = hi, lo
		}
		if hasDirection && o.Floor >= lo && o.Floor <= hi && x.Kind.Direction() != direction {
			total += w.Direction
		}
		total += w.Order
	})

	return total
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// candidate is one peer's identity and published Info, the unit the
// arbitration function picks a winner from.
type candidate struct {
	id   string
	info Info
}

// assign returns the identifier of the candidate best suited to serve o and
// the cost it was won with. It returns ok=false when every candidate
// already owns o or the candidate list is empty.
func assign(o order.Order, candidates []candidate, w Weights) (winner string, winnerCost float64, ok bool) {
	ok = false
	for _, c := range candidates {
		cst := cost(o, c.info, w)
		if cst < 0 {
			continue
		}
		if !ok || cst < winnerCost || (cst == winnerCost && c.id < winner) {
			winner, winnerCost, ok = c.id, cst, true
		}
	}
	return winner, winnerCost, ok
}
