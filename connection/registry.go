package connection

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/gitanogama/ocpp-manager/errors"
)

// Registry tracks the one active Connection per charge point shortcode.
// It is safe for concurrent use from all connection-handling goroutines;
// no registry operation blocks on network I/O.
type Registry struct {
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		connections: make(map[string]*Connection),
	}
}

// Register creates the Connection entry for shortcode, replacing any
// prior entry. A replaced connection has its pending calls failed with
// ErrNotConnected so their callers do not wait out the deadline, and
// its transport closed so the stale socket does not linger until the
// peer notices.
func (r *Registry) Register(shortcode string, transport Transport) *Connection {
	conn := newConnection(shortcode, transport)

	r.mu.Lock()
	prior, replaced := r.connections[shortcode]
	r.connections[shortcode] = conn
	r.mu.Unlock()

	if replaced {
		prior.FailAllPending(errors.ErrNotConnected)
		_ = prior.Close()
		r.logger.Info("replaced connection", "shortcode", shortcode)
	} else {
		r.logger.Info("registered connection", "shortcode", shortcode)
	}

	return conn
}

// Get returns the active connection for shortcode.
func (r *Registry) Get(shortcode string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[shortcode]
	return conn, ok
}

// All returns a snapshot of all currently tracked connections.
func (r *Registry) All() map[string]*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Connection, len(r.connections))
	maps.Copy(result, r.connections)
	return result
}

// Len returns the number of tracked connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// SweepInactive evicts every connection whose transport readiness is
// neither connecting nor open, failing its pending calls with
// ErrNotConnected. It is invoked from connection-close handling rather
// than on an independent timer. Returns the number of evicted entries.
func (r *Registry) SweepInactive() int {
	r.mu.Lock()
	var evicted []*Connection
	for shortcode, conn := range r.connections {
		if conn.ReadyState().Active() {
			continue
		}
		delete(r.connections, shortcode)
		evicted = append(evicted, conn)
	}
	r.mu.Unlock()

	for _, conn := range evicted {
		conn.FailAllPending(errors.ErrNotConnected)
		r.logger.Info("removed inactive connection", "shortcode", conn.Shortcode())
	}
	return len(evicted)
}
