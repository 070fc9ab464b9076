package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
)

// fakeTransport is an in-memory Transport recording sent frames.
type fakeTransport struct {
	mu      sync.Mutex
	state   ReadyState
	frames  [][]byte
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: StateOpen}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeTransport) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateClosed
	return nil
}

func (f *fakeTransport) setState(s ReadyState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func TestRegisterAndGet(t *testing.T) {
	registry := NewRegistry(nil)

	conn := registry.Register("cp-001", newFakeTransport())
	require.NotNil(t, conn)
	assert.Equal(t, "cp-001", conn.Shortcode())

	got, ok := registry.Get("cp-001")
	require.True(t, ok)
	assert.Same(t, conn, got)

	_, ok = registry.Get("cp-404")
	assert.False(t, ok)
}

func TestRegisterReplacesAndFailsPriorPending(t *testing.T) {
	registry := NewRegistry(nil)

	priorTransport := newFakeTransport()
	prior := registry.Register("cp-001", priorTransport)
	call, err := prior.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)

	replacement := registry.Register("cp-001", newFakeTransport())

	got, ok := registry.Get("cp-001")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, registry.Len())

	// The stale socket is torn down, not left to the peer.
	assert.Equal(t, StateClosed, priorTransport.ReadyState())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = call.Wait(ctx)
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestSweepInactive(t *testing.T) {
	registry := NewRegistry(nil)

	openTransport := newFakeTransport()
	deadTransport := newFakeTransport()
	registry.Register("cp-alive", openTransport)
	dead := registry.Register("cp-dead", deadTransport)

	call, err := dead.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)

	deadTransport.setState(StateClosed)
	evicted := registry.SweepInactive()
	assert.Equal(t, 1, evicted)

	_, ok := registry.Get("cp-dead")
	assert.False(t, ok)
	_, ok = registry.Get("cp-alive")
	assert.True(t, ok)

	// Pending calls on the evicted connection fail fast.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = call.Wait(ctx)
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestSweepKeepsConnecting(t *testing.T) {
	registry := NewRegistry(nil)

	transport := newFakeTransport()
	transport.setState(StateConnecting)
	registry.Register("cp-001", transport)

	assert.Equal(t, 0, registry.SweepInactive())
	assert.Equal(t, 1, registry.Len())
}

func TestAddPendingRejectsDuplicateID(t *testing.T) {
	registry := NewRegistry(nil)
	conn := registry.Register("cp-001", newFakeTransport())

	_, err := conn.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)

	_, err = conn.AddPending("id-1", ocpp.ActionReset)
	assert.Error(t, err)
}

func TestPendingSingleResolution(t *testing.T) {
	registry := NewRegistry(nil)
	conn := registry.Register("cp-001", newFakeTransport())

	call, err := conn.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)

	result := &ocpp.CallResult{ID: "id-1"}
	assert.True(t, call.Resolve(result))
	// Whoever comes second is a no-op.
	assert.False(t, call.Fail(errors.ErrTimeout))
	assert.False(t, call.Resolve(&ocpp.CallResult{ID: "id-1"}))

	env, err := call.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, env)
}

func TestPendingConcurrentRace(t *testing.T) {
	registry := NewRegistry(nil)
	conn := registry.Register("cp-001", newFakeTransport())

	call, err := conn.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)

	var wg sync.WaitGroup
	fired := make(chan bool, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fired <- call.Resolve(&ocpp.CallResult{ID: "id-1"})
	}()
	go func() {
		defer wg.Done()
		fired <- call.Fail(errors.ErrTimeout)
	}()
	wg.Wait()
	close(fired)

	winners := 0
	for won := range fired {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestTakePending(t *testing.T) {
	registry := NewRegistry(nil)
	conn := registry.Register("cp-001", newFakeTransport())

	_, err := conn.AddPending("id-1", ocpp.ActionReset)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.PendingCount())

	call, ok := conn.TakePending("id-1")
	require.True(t, ok)
	assert.Equal(t, "id-1", call.ID())
	assert.Equal(t, 0, conn.PendingCount())

	_, ok = conn.TakePending("id-1")
	assert.False(t, ok)
}

func TestConnectionSendPropagatesTransportError(t *testing.T) {
	registry := NewRegistry(nil)
	transport := newFakeTransport()
	transport.sendErr = errors.ErrInternal
	conn := registry.Register("cp-001", transport)

	err := conn.Send(&ocpp.CallResult{ID: "id-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInternal)
	assert.Empty(t, transport.frames)
}

func TestConnectionSendWritesFrame(t *testing.T) {
	registry := NewRegistry(nil)
	transport := newFakeTransport()
	conn := registry.Register("cp-001", transport)

	err := conn.Send(&ocpp.CallResult{ID: "id-1"})
	require.NoError(t, err)
	require.Len(t, transport.frames, 1)
	assert.Equal(t, `[3,"id-1",{}]`, string(transport.frames[0]))
}

func TestAllReturnsSnapshot(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("cp-001", newFakeTransport())
	registry.Register("cp-002", newFakeTransport())

	all := registry.All()
	assert.Len(t, all, 2)

	delete(all, "cp-001")
	assert.Equal(t, 2, registry.Len())
}
