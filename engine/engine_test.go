package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/events"
	"github.com/gitanogama/ocpp-manager/handler"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

type fakeTransport struct {
	mu     sync.Mutex
	state  connection.ReadyState
	frames [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: connection.StateOpen}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeTransport) ReadyState() connection.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = connection.StateClosed
	return nil
}

func (f *fakeTransport) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeTransport) frame(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i]
}

// waitFrames blocks until the transport has at least n frames.
func (f *fakeTransport) waitFrames(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.frameCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames, have %d", n, f.frameCount())
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	engine      *Engine
	connections *connection.Registry
	store       *store.Store
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	schemas, err := schema.NewRegistry()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	connections := connection.NewRegistry(logger)
	handlers := handler.All(handler.Deps{
		Store:   s,
		Schemas: schemas,
		Events:  events.NewPublisher(nil, logger),
		Logger:  logger,
	})

	eng := New(Config{
		Connections: connections,
		Store:       s,
		Schemas:     schemas,
		Handlers:    handlers,
		Logger:      logger,
		CallTimeout: timeout,
	})
	return &fixture{engine: eng, connections: connections, store: s}
}

func decodeCall(t *testing.T, data []byte) *ocpp.Call {
	t.Helper()
	env, err := ocpp.Decode(data)
	require.NoError(t, err)
	call, ok := env.(*ocpp.Call)
	require.True(t, ok, "expected a call frame, got type %d", env.Type())
	return call
}

func TestSendCallNotConnected(t *testing.T) {
	f := newFixture(t, time.Second)

	_, err := f.engine.SendCall(context.Background(), "cp-404",
		ocpp.ActionReset, ocpp.ResetRequest{Type: ocpp.ResetTypeSoft})
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestSendCallRejectsInactiveConnection(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)
	require.NoError(t, transport.Close())

	_, err := f.engine.SendCall(context.Background(), "cp-001",
		ocpp.ActionReset, ocpp.ResetRequest{Type: ocpp.ResetTypeSoft})
	assert.ErrorIs(t, err, errors.ErrNotConnected)
	// Nothing reached the wire.
	assert.Zero(t, transport.frameCount())
}

func TestSendCallRoundTrip(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	type result struct {
		status string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		status, err := f.engine.Reset(context.Background(), "cp-001", ocpp.ResetTypeSoft)
		done <- result{status, err}
	}()

	transport.waitFrames(t, 1)
	call := decodeCall(t, transport.frame(0))
	assert.Equal(t, ocpp.ActionReset, call.Action)
	assert.NotEmpty(t, call.ID)
	assert.JSONEq(t, `{"type":"Soft"}`, string(call.Payload))

	f.engine.OnMessage(context.Background(), "cp-001",
		[]byte(`[3,"`+call.ID+`",{"status":"Accepted"}]`))

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "Accepted", got.status)

	conn, ok := f.connections.Get("cp-001")
	require.True(t, ok)
	assert.Zero(t, conn.PendingCount())
}

func TestSendCallTimeoutThenLateReplyDropped(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	_, err := f.engine.SendCall(context.Background(), "cp-001",
		ocpp.ActionReset, ocpp.ResetRequest{Type: ocpp.ResetTypeSoft})
	assert.ErrorIs(t, err, errors.ErrTimeout)

	conn, ok := f.connections.Get("cp-001")
	require.True(t, ok)
	assert.Zero(t, conn.PendingCount())

	// The late reply finds no pending entry and is dropped quietly.
	call := decodeCall(t, transport.frame(0))
	f.engine.OnMessage(context.Background(), "cp-001",
		[]byte(`[3,"`+call.ID+`",{"status":"Accepted"}]`))
	assert.Zero(t, conn.PendingCount())
}

func TestSendCallRemoteError(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.SendCall(context.Background(), "cp-001",
			ocpp.ActionUnlockConnector, ocpp.UnlockConnectorRequest{ConnectorID: 1})
		done <- err
	}()

	transport.waitFrames(t, 1)
	call := decodeCall(t, transport.frame(0))
	f.engine.OnMessage(context.Background(), "cp-001",
		[]byte(`[4,"`+call.ID+`","NotSupported","no latch",{}]`))

	err := <-done
	require.Error(t, err)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, ocpp.ErrorCodeNotSupported, remote.Code)
	assert.Equal(t, "no latch", remote.Description)
}

func TestSendCallRejectsMalformedResult(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Reset(context.Background(), "cp-001", ocpp.ResetTypeSoft)
		done <- err
	}()

	transport.waitFrames(t, 1)
	call := decodeCall(t, transport.frame(0))
	f.engine.OnMessage(context.Background(), "cp-001",
		[]byte(`[3,"`+call.ID+`",{"status":123}]`))

	assert.ErrorIs(t, <-done, errors.ErrInvalidResponse)
}

func TestOnMessageDispatchesCall(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	f.engine.OnMessage(context.Background(), "cp-001", []byte(`[2,"77","Heartbeat",{}]`))

	transport.waitFrames(t, 1)
	env, err := ocpp.Decode(transport.frame(0))
	require.NoError(t, err)
	result, ok := env.(*ocpp.CallResult)
	require.True(t, ok)
	assert.Equal(t, "77", result.ID)

	var resp ocpp.HeartbeatResponse
	require.NoError(t, json.Unmarshal(result.Payload, &resp))
	assert.NotEmpty(t, resp.CurrentTime)

	// First contact auto-created the device and stamped liveness.
	cp, err := f.store.FindChargePointByShortcode(context.Background(), "cp-001")
	require.NoError(t, err)
	assert.Equal(t, "Detected Charger", cp.FriendlyName)
	assert.NotNil(t, cp.LastHeartbeat)
}

func TestOnMessageUnknownActionAnswersNotSupported(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	f.engine.OnMessage(context.Background(), "cp-001", []byte(`[2,"9","FooBar",{}]`))

	transport.waitFrames(t, 1)
	env, err := ocpp.Decode(transport.frame(0))
	require.NoError(t, err)
	callError, ok := env.(*ocpp.CallError)
	require.True(t, ok)
	assert.Equal(t, "9", callError.ID)
	assert.Equal(t, ocpp.ErrorCodeNotSupported, callError.Code)
}

// Frames attributed to a shortcode with no registered connection are
// dropped before they can create or touch any device state.
func TestOnMessageUnregisteredDeviceDropped(t *testing.T) {
	f := newFixture(t, time.Second)

	f.engine.OnMessage(context.Background(), "cp-ghost", []byte(`[2,"1","Heartbeat",{}]`))

	_, err := f.store.FindChargePointByShortcode(context.Background(), "cp-ghost")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestOnMessageDropsMalformedFrame(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	f.engine.OnMessage(context.Background(), "cp-001", []byte(`not json`))
	f.engine.OnMessage(context.Background(), "cp-001", []byte(`{"an":"object"}`))
	f.engine.OnMessage(context.Background(), "cp-001", []byte(`[7,"id",{}]`))

	assert.Zero(t, transport.frameCount())
	// Liveness still counted even though every frame was dropped.
	cp, err := f.store.FindChargePointByShortcode(context.Background(), "cp-001")
	require.NoError(t, err)
	assert.NotNil(t, cp.LastHeartbeat)
}

func TestOnMessageHandlerFailureBecomesCallError(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	// StopTransaction for a session that does not exist fails closed.
	f.engine.OnMessage(context.Background(), "cp-001",
		[]byte(`[2,"55","StopTransaction",{"transactionId":9999,"meterStop":0,"timestamp":"2026-03-14T09:30:00Z"}]`))

	transport.waitFrames(t, 1)
	env, err := ocpp.Decode(transport.frame(0))
	require.NoError(t, err)
	callError, ok := env.(*ocpp.CallError)
	require.True(t, ok)
	assert.Equal(t, "55", callError.ID)
	assert.Equal(t, ocpp.ErrorCodePropertyConstraintViolation, callError.Code)
}

func TestOnMessageUnmatchedReplyDropped(t *testing.T) {
	f := newFixture(t, time.Second)
	transport := newFakeTransport()
	f.connections.Register("cp-001", transport)

	f.engine.OnMessage(context.Background(), "cp-001", []byte(`[3,"never-sent",{}]`))
	assert.Zero(t, transport.frameCount())
}
