package connection

// ReadyState mirrors the transport's connection lifecycle. Transitions
// only move forward.
type ReadyState int

// Transport readiness states.
const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

// String returns the string representation of ReadyState
func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Active reports whether the state still carries traffic.
func (s ReadyState) Active() bool {
	return s == StateConnecting || s == StateOpen
}

// Transport abstracts the duplex channel under a Connection. The
// WebSocket gateway provides the production implementation; tests use
// in-memory fakes.
type Transport interface {
	// Send writes one text frame to the peer.
	Send(data []byte) error
	// ReadyState returns the current connection lifecycle state.
	ReadyState() ReadyState
	// Close tears down the channel.
	Close() error
}
