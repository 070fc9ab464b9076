package connection

import (
	"fmt"
	"sync"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
)

// Connection is the live duplex channel for one charge point. It owns the
// pending outbound call table for that channel. Connections are created
// by Registry.Register and destroyed by eviction.
type Connection struct {
	shortcode string
	transport Transport

	mu      sync.Mutex
	pending map[string]*PendingCall
}

func newConnection(shortcode string, transport Transport) *Connection {
	return &Connection{
		shortcode: shortcode,
		transport: transport,
		pending:   make(map[string]*PendingCall),
	}
}

// Shortcode returns the charge point identifier this connection serves.
func (c *Connection) Shortcode() string { return c.shortcode }

// ReadyState returns the transport's current lifecycle state.
func (c *Connection) ReadyState() ReadyState { return c.transport.ReadyState() }

// Send serializes an envelope and writes it to the transport.
func (c *Connection) Send(env ocpp.Envelope) error {
	data, err := env.MarshalWire()
	if err != nil {
		return errors.WrapInvalid(err, "Connection", "Send", "marshal envelope")
	}
	if err := c.transport.Send(data); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrInternal, err),
			"Connection", "Send", "write frame")
	}
	return nil
}

// AddPending registers a pending outbound call under its correlation id.
// The table never holds two entries with the same id.
func (c *Connection) AddPending(id string, action ocpp.Action) (*PendingCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[id]; exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("correlation id %q already pending", id),
			"Connection", "AddPending", "duplicate id check")
	}

	call := newPendingCall(id, action)
	c.pending[id] = call
	return call, nil
}

// TakePending removes and returns the pending call for a correlation id.
// The second return is false when the id is unknown - already retired or
// never issued on this connection.
func (c *Connection) TakePending(id string) (*PendingCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return call, ok
}

// RemovePending drops the table entry for id without resolving the call.
// Used by the deadline path after it has already failed the caller.
func (c *Connection) RemovePending(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// PendingCount returns the number of outstanding outbound calls.
func (c *Connection) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// FailAllPending retires every outstanding call with err and empties the
// table. Called on eviction so callers fail fast instead of waiting out
// their deadlines.
func (c *Connection) FailAllPending(err error) {
	c.mu.Lock()
	calls := make([]*PendingCall, 0, len(c.pending))
	for _, call := range c.pending {
		calls = append(calls, call)
	}
	c.pending = make(map[string]*PendingCall)
	c.mu.Unlock()

	for _, call := range calls {
		call.Fail(err)
	}
}

// Close tears down the underlying transport.
func (c *Connection) Close() error {
	return c.transport.Close()
}
