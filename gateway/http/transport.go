package http

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gitanogama/ocpp-manager/connection"
)

const writeTimeout = 10 * time.Second

// wsTransport adapts a gorilla websocket connection to the connection
// package's Transport. Gorilla permits one concurrent writer, so writes
// are serialized behind a mutex.
type wsTransport struct {
	mu    sync.Mutex
	ws    *websocket.Conn
	state connection.ReadyState
}

func newWSTransport(ws *websocket.Conn) *wsTransport {
	return &wsTransport{ws: ws, state: connection.StateOpen}
}

// Send writes one text frame.
func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.ws.WriteMessage(websocket.TextMessage, data)
}

// ReadyState reports the transport lifecycle state.
func (t *wsTransport) ReadyState() connection.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close marks the transport closed and tears down the socket. Safe to
// call more than once.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == connection.StateClosed {
		return nil
	}
	t.state = connection.StateClosed
	return t.ws.Close()
}
