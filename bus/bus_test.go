package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rysweet/skwaq-sub005/core"
)

func TestPublishExactType(t *testing.T) {
	b := NewInMemoryBus()

	var got []core.Event
	b.Subscribe(core.TypeLifecycle, func(ev core.Event) error {
		got = append(got, ev)
		return nil
	})

	ev := core.NewLifecycleEvent("a", core.PhaseStarted, core.StateRunning, nil)
	require.NoError(t, b.Publish(ev))

	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
}

func TestCovariantDelivery(t *testing.T) {
	b := NewInMemoryBus()

	var rootCount, lifecycleCount int
	b.Subscribe(core.TypeEvent, func(core.Event) error {
		rootCount++
		return nil
	})
	b.Subscribe(core.TypeLifecycle, func(core.Event) error {
		lifecycleCount++
		return nil
	})

	require.NoError(t, b.Publish(core.NewLifecycleEvent("a", core.PhaseCreated, core.StateInitialized, nil)))
	require.NoError(t, b.Publish(core.NewCommunicationEvent("a", "b", "status_update", "", nil)))

	assert.Equal(t, 2, rootCount, "root subscriber sees every subtype")
	assert.Equal(t, 1, lifecycleCount, "subtype subscriber sees only its own kind")
}

func TestFanOutCompleteDespiteFailures(t *testing.T) {
	b := NewInMemoryBus()

	var order []int
	b.Subscribe(core.TypeCommunication, func(core.Event) error {
		order = append(order, 1)
		return errors.New("first handler fails")
	})
	b.Subscribe(core.TypeCommunication, func(core.Event) error {
		order = append(order, 2)
		panic("second handler panics")
	})
	b.Subscribe(core.TypeCommunication, func(core.Event) error {
		order = append(order, 3)
		return nil
	})

	require.NoError(t, b.Publish(core.NewCommunicationEvent("a", "", "status_update", "", nil)))
	assert.Equal(t, []int{1, 2, 3}, order, "all handlers run once, in registration order")
}

func TestUnsubscribeRemovesExactlyOne(t *testing.T) {
	b := NewInMemoryBus()

	var aCount, bCount int
	idA := b.Subscribe(core.TypeEvent, func(core.Event) error { aCount++; return nil })
	b.Subscribe(core.TypeEvent, func(core.Event) error { bCount++; return nil })

	assert.Len(t, b.Subscribers(core.TypeLifecycle), 2)

	assert.True(t, b.Unsubscribe(idA))
	assert.False(t, b.Unsubscribe(idA), "second removal is a no-op")
	assert.Len(t, b.Subscribers(core.TypeLifecycle), 1)

	require.NoError(t, b.Publish(core.NewLifecycleEvent("a", core.PhaseStarted, core.StateRunning, nil)))
	assert.Equal(t, 0, aCount)
	assert.Equal(t, 1, bCount)
}

func TestSubscribersMatchesCovariantly(t *testing.T) {
	b := NewInMemoryBus()
	root := b.Subscribe(core.TypeEvent, func(core.Event) error { return nil })
	result := b.Subscribe(core.TypeTaskResult, func(core.Event) error { return nil })
	b.Subscribe(core.TypeTaskAssignment, func(core.Event) error { return nil })

	ids := b.Subscribers(core.TypeTaskResult)
	assert.Equal(t, []string{root, result}, ids)
}
