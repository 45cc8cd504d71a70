package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rysweet/skwaq-sub005/core"
)

// fakeAgent is a minimal core.Agent for registry tests.
type fakeAgent struct {
	id, name, typ string
	state         core.State
	startCalls    atomic.Int32
	stopCalls     atomic.Int32
	startErr      error
}

func newFakeAgent(id, name, typ string) *fakeAgent {
	return &fakeAgent{id: id, name: name, typ: typ, state: core.StateInitialized}
}

func (f *fakeAgent) ID() string             { return f.id }
func (f *fakeAgent) Name() string           { return f.name }
func (f *fakeAgent) Description() string    { return "" }
func (f *fakeAgent) Type() string           { return f.typ }
func (f *fakeAgent) Capabilities() []string { return nil }
func (f *fakeAgent) State() core.State      { return f.state }

func (f *fakeAgent) Start(context.Context) error {
	f.startCalls.Add(1)
	if f.startErr != nil {
		f.state = core.StateError
		return f.startErr
	}
	f.state = core.StateRunning
	return nil
}

func (f *fakeAgent) Stop(context.Context) error {
	f.stopCalls.Add(1)
	f.state = core.StateStopped
	return nil
}

func (f *fakeAgent) Pause() error                  { return nil }
func (f *fakeAgent) Resume() error                 { return nil }
func (f *fakeAgent) ProcessEvent(core.Event) error { return nil }

func TestRegisterIndexesConsistently(t *testing.T) {
	r := New()
	a := newFakeAgent("id-1", "alpha", "knowledge")
	b := newFakeAgent("id-2", "beta", "knowledge")
	c := newFakeAgent("id-3", "gamma", "critic")

	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(c))

	assert.Equal(t, a, r.Get("id-1"))
	assert.Equal(t, b, r.GetByName("beta"))
	assert.Len(t, r.GetByType("knowledge"), 2)
	assert.Len(t, r.All(), 3)

	assert.Error(t, r.Register(a), "duplicate id rejected")
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	r := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(newFakeAgent(id, "name-"+id, "worker")))
	}
	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID())
	assert.Equal(t, "a", all[1].ID())
	assert.Equal(t, "b", all[2].ID())
}

func TestUnregisterRemovesFromAllIndices(t *testing.T) {
	r := New()
	a := newFakeAgent("id-1", "alpha", "knowledge")
	require.NoError(t, r.Register(a))

	r.Unregister("id-1")
	assert.Nil(t, r.Get("id-1"))
	assert.Nil(t, r.GetByName("alpha"))
	assert.Empty(t, r.GetByType("knowledge"))
	assert.Empty(t, r.All())

	// Unknown id is a warned no-op, not an error.
	r.Unregister("id-1")
}

func TestStartAllStopsAllSnapshotEligibility(t *testing.T) {
	r := New()
	fresh := newFakeAgent("id-1", "fresh", "worker")
	running := newFakeAgent("id-2", "running", "worker")
	running.state = core.StateRunning
	stopped := newFakeAgent("id-3", "stopped", "worker")
	stopped.state = core.StateStopped

	require.NoError(t, r.Register(fresh))
	require.NoError(t, r.Register(running))
	require.NoError(t, r.Register(stopped))

	require.NoError(t, r.StartAll(context.Background()))
	assert.Equal(t, int32(1), fresh.startCalls.Load())
	assert.Equal(t, int32(0), running.startCalls.Load(), "already running agents are skipped")
	assert.Equal(t, int32(1), stopped.startCalls.Load(), "stopped agents may restart")

	require.NoError(t, r.StopAll(context.Background()))
	assert.Equal(t, int32(1), fresh.stopCalls.Load())
	assert.Equal(t, int32(1), running.stopCalls.Load())
}

func TestStartAllReportsFirstError(t *testing.T) {
	r := New()
	bad := newFakeAgent("id-1", "bad", "worker")
	bad.startErr = errors.New("hook exploded")
	good := newFakeAgent("id-2", "good", "worker")

	require.NoError(t, r.Register(bad))
	require.NoError(t, r.Register(good))

	err := r.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook exploded")
	assert.Equal(t, int32(1), good.startCalls.Load(), "siblings still start")
}

func TestClear(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(newFakeAgent("id-1", "alpha", "worker")))
	r.Clear()
	assert.Empty(t, r.All())
	assert.Nil(t, r.Get("id-1"))
}
