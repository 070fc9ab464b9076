package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/gitanogama/ocpp-manager/schema"
)

const (
	// ocppSubprotocol is the websocket subprotocol OCPP 1.6 JSON mandates.
	ocppSubprotocol = "ocpp1.6"

	readLimit = 256 * 1024

	// Per-connection inbound message budget. A charge point sending
	// faster than this is misbehaving; excess frames are dropped.
	messageRate  = rate.Limit(20)
	messageBurst = 40
)

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{ocppSubprotocol},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Charge points are not browsers; origin checks do not apply.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades GET /ocpp/1.6/{shortcode} and runs the read
// loop for the device. Each accepted socket replaces any prior
// connection registered under the same shortcode.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	shortcode := schema.NormalizeIdentifier(r.PathValue("shortcode"))
	if shortcode == "" {
		http.Error(w, "missing shortcode", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"shortcode", shortcode, "error", err)
		return
	}
	ws.SetReadLimit(readLimit)

	transport := newWSTransport(ws)
	s.connections.Register(shortcode, transport)
	s.logger.Info("charge point connected",
		"shortcode", shortcode, "remote", r.RemoteAddr,
		"subprotocol", ws.Subprotocol())

	// The handler goroutine is the connection's read loop; it lives for
	// as long as the socket does.
	s.readLoop(shortcode, transport)
}

// readLoop pumps inbound frames into the engine until the socket dies,
// then retires the connection. It runs once per accepted socket.
func (s *Server) readLoop(shortcode string, transport *wsTransport) {
	defer func() {
		_ = transport.Close()
		evicted := s.connections.SweepInactive()
		s.logger.Info("charge point disconnected",
			"shortcode", shortcode, "evicted", evicted)
	}()

	limiter := rate.NewLimiter(messageRate, messageBurst)
	for {
		messageType, data, err := transport.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed",
					"shortcode", shortcode, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			s.logger.Warn("message rate exceeded, dropping frame",
				"shortcode", shortcode)
			continue
		}

		handleCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		s.engine.OnMessage(handleCtx, shortcode, data)
		cancel()
	}
}
