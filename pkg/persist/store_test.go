package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftnode/liftnode/pkg/order"
)

func TestPersistLoadRoundTripRestrictsToCabin(t *testing.T) {
	store, err := Open(":memory:", 4, nil)
	require.NoError(t, err)
	defer store.Close()

	full := order.NewSet(4)
	full.Add(order.Order{Kind: order.Cabin, Floor: 1})
	full.Add(order.Order{Kind: order.Cabin, Floor: 2})
	full.Add(order.Order{Kind: order.HallUp, Floor: 0})

	require.NoError(t, store.Persist(full))

	loaded := store.Load()
	assert.True(t, loaded.Has(1, order.Cabin))
	assert.True(t, loaded.Has(2, order.Cabin))
	assert.False(t, loaded.HasAnyAt(0), "hall calls must never be persisted")
}

func TestLoadOnMissingDataReturnsEmptySet(t *testing.T) {
	store, err := Open(":memory:", 4, nil)
	require.NoError(t, err)
	defer store.Close()

	loaded := store.Load()
	assert.False(t, loaded.HasAny())
}

func TestPersistOverwritesPreviousSnapshot(t *testing.T) {
	store, err := Open(":memory:", 4, nil)
	require.NoError(t, err)
	defer store.Close()

	first := order.NewSet(4)
	first.Add(order.Order{Kind: order.Cabin, Floor: 3})
	require.NoError(t, store.Persist(first))

	second := order.NewSet(4)
	second.Add(order.Order{Kind: order.Cabin, Floor: 0})
	require.NoError(t, store.Persist(second))

	loaded := store.Load()
	assert.False(t, loaded.Has(3, order.Cabin))
	assert.True(t, loaded.Has(0, order.Cabin))
}
