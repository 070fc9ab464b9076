package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/engine"
	"github.com/gitanogama/ocpp-manager/events"
	"github.com/gitanogama/ocpp-manager/handler"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

type fixture struct {
	server   *Server
	ts       *httptest.Server
	store    *store.Store
	registry *connection.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	schemas, err := schema.NewRegistry()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := connection.NewRegistry(logger)
	eng := engine.New(engine.Config{
		Connections: registry,
		Store:       s,
		Schemas:     schemas,
		Handlers: handler.All(handler.Deps{
			Store:   s,
			Schemas: schemas,
			Events:  events.NewPublisher(nil, logger),
			Logger:  logger,
		}),
		Logger:      logger,
		CallTimeout: 2 * time.Second,
	})

	server := NewServer(Config{
		Engine:      eng,
		Connections: registry,
		Store:       s,
		Logger:      logger,
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: server, ts: ts, store: s, registry: registry}
}

func (f *fixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// dial opens a charge point websocket against the test server.
func (f *fixture) dial(t *testing.T, shortcode string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ocpp/1.6/" + shortcode
	dialer := websocket.Dialer{Subprotocols: []string{"ocpp1.6"}}
	ws, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChargerCRUD(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode":    "CP-001",
		"friendlyName": "Garage",
		"status":       "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created chargerView
	decodeInto(t, resp, &created)
	// Shortcodes are case insensitive and stored normalized.
	assert.Equal(t, "cp-001", created.Shortcode)
	assert.Equal(t, connectivityOffline, created.Connectivity)

	resp = f.request(t, http.MethodGet, "/api/chargers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []chargerView
	decodeInto(t, resp, &list)
	assert.Len(t, list, 1)

	resp = f.request(t, http.MethodPut, "/api/chargers/cp-001", map[string]string{
		"friendlyName": "Driveway",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated chargerView
	decodeInto(t, resp, &updated)
	assert.Equal(t, "Driveway", updated.FriendlyName)

	resp = f.request(t, http.MethodGet, "/api/chargers/cp-404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/api/chargers/cp-001", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/chargers/cp-001", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateChargerRequiresShortcode(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"friendlyName": "No code",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketHeartbeatRoundTrip(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ws := f.dial(t, "CP-001")
	assert.Equal(t, "ocpp1.6", ws.Subprotocol())

	require.NoError(t, ws.WriteMessage(websocket.TextMessage,
		[]byte(`[2,"hb-1","Heartbeat",{}]`)))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)

	env, err := ocpp.Decode(frame)
	require.NoError(t, err)
	result, ok := env.(*ocpp.CallResult)
	require.True(t, ok)
	assert.Equal(t, "hb-1", result.ID)

	var hb ocpp.HeartbeatResponse
	require.NoError(t, json.Unmarshal(result.Payload, &hb))
	assert.NotEmpty(t, hb.CurrentTime)

	// The charger now reports Online over the API.
	resp = f.request(t, http.MethodGet, "/api/chargers/cp-001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view chargerView
	decodeInto(t, resp, &view)
	assert.Equal(t, connectivityOnline, view.Connectivity)
}

func TestWebSocketDisconnectSweepsRegistry(t *testing.T) {
	f := newFixture(t)
	ws := f.dial(t, "cp-001")

	waitFor(t, func() bool { return f.registry.Len() == 1 })
	require.NoError(t, ws.Close())
	waitFor(t, func() bool { return f.registry.Len() == 0 })
}

func TestResetWithoutConnection(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/chargers/cp-001/reset",
		map[string]string{"type": "Soft"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestResetRejectsBadType(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/chargers/cp-001/reset",
		map[string]string{"type": "Medium"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// replyTo answers the next call of the given action on the socket.
func replyTo(t *testing.T, ws *websocket.Conn, action ocpp.Action, payload string) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, frame, err := ws.ReadMessage()
		require.NoError(t, err)
		env, err := ocpp.Decode(frame)
		require.NoError(t, err)
		call, ok := env.(*ocpp.Call)
		if !ok || call.Action != action {
			continue
		}
		require.NoError(t, ws.WriteMessage(websocket.TextMessage,
			[]byte(`[3,"`+call.ID+`",`+payload+`]`)))
		return
	}
}

func TestRemoteStopStampsReason(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cp, err := f.store.FindChargePointByShortcode(context.Background(), "cp-001")
	require.NoError(t, err)

	tx, err := f.store.InsertTransaction(context.Background(), store.Transaction{
		ChargePointID: cp.ID, ConnectorID: 1, StartTime: time.Now(),
	})
	require.NoError(t, err)

	ws := f.dial(t, "cp-001")
	go replyTo(t, ws, ocpp.ActionRemoteStopTransaction, `{"status":"Accepted"}`)

	resp = f.request(t, http.MethodPost,
		"/api/transactions/"+jsonInt(tx.ID)+"/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]string
	decodeInto(t, resp, &result)
	assert.Equal(t, "Accepted", result["status"])

	waitFor(t, func() bool {
		found, err := f.store.FindTransaction(context.Background(), tx.ID)
		return err == nil && found.Reason == string(ocpp.ReasonRemoteStop)
	})
}

func TestResetRoundTripOverWebSocket(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ws := f.dial(t, "cp-001")
	go replyTo(t, ws, ocpp.ActionReset, `{"status":"Accepted"}`)

	resp = f.request(t, http.MethodPost, "/api/chargers/cp-001/reset",
		map[string]string{"type": "Soft"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]string
	decodeInto(t, resp, &result)
	assert.Equal(t, "Accepted", result["status"])
}

func TestAuthorizationEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/chargers", map[string]string{
		"shortcode": "cp-001", "status": "Accepted",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The idTag is case-insensitive and stored in canonical lowercase.
	resp = f.request(t, http.MethodPost, "/api/chargers/cp-001/authorizations",
		map[string]string{"idTag": "TAG-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var auth store.ChargeAuthorization
	decodeInto(t, resp, &auth)

	resp = f.request(t, http.MethodGet, "/api/chargers/cp-001/authorizations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []store.AuthorizationRecord
	decodeInto(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "tag-1", list[0].Tag)

	resp = f.request(t, http.MethodDelete, "/api/authorizations/"+jsonInt(auth.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings map[string]int
	decodeInto(t, resp, &settings)
	assert.Equal(t, 300, settings["heartbeatInterval"])

	resp = f.request(t, http.MethodPut, "/api/settings",
		map[string]int{"heartbeatInterval": 120})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/settings", nil)
	decodeInto(t, resp, &settings)
	assert.Equal(t, 120, settings["heartbeatInterval"])

	resp = f.request(t, http.MethodPut, "/api/settings",
		map[string]int{"heartbeatInterval": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
