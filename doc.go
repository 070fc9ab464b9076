// Package ocppmanager is an OCPP 1.6-J central system: charge points
// connect over WebSocket and exchange JSON-framed Call / CallResult /
// CallError messages with the backend.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          gateway/http               │  WebSocket upgrade, read loop,
//	│  (ws endpoint + admin REST API)     │  admin + metrics endpoints
//	└─────────────────────────────────────┘
//	           ↓ raw frames
//	┌─────────────────────────────────────┐
//	│            engine                   │  Outbound calls (correlation,
//	│  (SendCall, OnMessage dispatch)     │  timeouts), inbound routing
//	└─────────────────────────────────────┘
//	           ↓ validated payloads
//	┌─────────────────────────────────────┐
//	│           handler                   │  One handler per OCPP action:
//	│  (Boot, Authorize, Start/Stop, ...) │  charge point state machine
//	└─────────────────────────────────────┘
//	           ↓ persists via
//	┌─────────────────────────────────────┐
//	│            store                    │  SQLite: charge points,
//	│  (+ events: NATS fan-out)           │  authorizations, transactions
//	└─────────────────────────────────────┘
//
// # Packages
//
// Protocol:
//   - ocpp: wire envelope codec, action and error code enums, payload types
//   - schema: per-action JSON Schema validation (requests strict, responses
//     validated where a shape is registered)
//   - connection: connection registry, per-connection pending call table
//   - engine: call correlation, timeouts, inbound dispatch to handlers
//   - handler: action handlers (BootNotification through StopTransaction)
//
// Infrastructure:
//   - gateway/http: WebSocket endpoint, admin REST API, /metrics, /healthz
//   - store: SQLite persistence (modernc.org/sqlite, WAL)
//   - events: optional NATS event publishing on ocpp.event.> subjects
//   - metric: Prometheus registry and process collectors
//   - config: YAML configuration with defaults and validation
//   - errors: classified errors (transient / invalid / fatal) and the
//     protocol error taxonomy
//
// # Failure policy
//
// Inbound handlers fail open where the charge point must keep operating
// (BootNotification answers Rejected on backend failure, Authorize answers
// Invalid) and fail closed where silently inventing state would corrupt
// billing (StopTransaction on an unknown transaction id). Outbound calls
// carry a 10 second deadline; a connection eviction fails its pending
// calls immediately instead of letting callers wait out the timer.
package ocppmanager
