package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddIdempotent(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: Cabin, Floor: 2})
	s.Add(Order{Kind: Cabin, Floor: 2})
	assert.True(t, s.Has(2, Cabin))

	count := 0
	s.Each(func(Order) { count++ })
	assert.Equal(t, 1, count)
}

func TestSetRejectsImpossibleOrders(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: HallUp, Floor: 3})   // top floor
	s.Add(Order{Kind: HallDown, Floor: 0}) // bottom floor
	assert.False(t, s.Has(3, HallUp))
	assert.False(t, s.Has(0, HallDown))
	assert.False(t, s.HasAny())
}

func TestRemoveAtPreservesOppositeDirection(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: HallUp, Floor: 1})
	s.Add(Order{Kind: HallDown, Floor: 1})
	s.Add(Order{Kind: Cabin, Floor: 1})

	s.RemoveAt(1, Up)

	assert.False(t, s.Has(1, HallUp))
	assert.False(t, s.Has(1, Cabin))
	assert.True(t, s.Has(1, HallDown), "opposite direction call belongs to a different run")
}

func TestRemoveAllNonCabinKeepsCabin(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: HallUp, Floor: 1})
	s.Add(Order{Kind: Cabin, Floor: 3})

	s.RemoveAllNonCabin()

	assert.False(t, s.HasAnyAt(1))
	assert.True(t, s.Has(3, Cabin))
}

func TestColumnsRoundTrip(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: HallUp, Floor: 1})
	s.Add(Order{Kind: HallDown, Floor: 2})
	s.Add(Order{Kind: Cabin, Floor: 3})

	up, down, in := s.Columns()
	restored := SetFromColumns(4, up, down, in)

	var want, got []Order
	s.Each(func(o Order) { want = append(want, o) })
	restored.Each(func(o Order) { got = append(got, o) })
	assert.Equal(t, want, got)
}

func TestCabinOnlyRestrictsToCabin(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: HallUp, Floor: 1})
	s.Add(Order{Kind: Cabin, Floor: 2})

	cabin := s.CabinOnly()

	assert.False(t, cabin.HasAnyAt(1))
	assert.True(t, cabin.Has(2, Cabin))
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := NewSet(4)
	s.Add(Order{Kind: Cabin, Floor: 1})

	snap := s.Snapshot()
	s.Add(Order{Kind: Cabin, Floor: 2})

	assert.True(t, s.Has(2, Cabin))
	assert.False(t, snap.Has(2, Cabin))
}
