// Package handler implements the charge-point-initiated side of the
// protocol: one handler per inbound action, each owning that action's
// validation policy and its effect on the persisted charge point state.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gitanogama/ocpp-manager/events"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// Context carries the per-message state a handler sees: the charge point
// the message arrived from and the receive time. It is immutable from
// the handler's point of view.
type Context struct {
	ChargePoint store.ChargePoint
	ReceivedAt  time.Time
}

// Handler processes one inbound Call action. The returned value is
// marshaled into the CallResult payload; a returned error becomes a
// CallError on the wire. Handlers that degrade gracefully (fail open)
// swallow their internal failures and return a conservative payload
// instead.
type Handler interface {
	// Action names the inbound action this handler serves.
	Action() ocpp.Action
	// Handle validates and applies one request, returning the response
	// payload value.
	Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error)
}

// Deps bundles the collaborators shared by every handler.
type Deps struct {
	Store   *store.Store
	Schemas *schema.Registry
	Events  *events.Publisher
	Logger  *slog.Logger
}

// All constructs the full inbound handler set keyed by action.
func All(deps Deps) map[ocpp.Action]Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	handlers := []Handler{
		&bootNotificationHandler{deps},
		&heartbeatHandler{deps},
		&authorizeHandler{deps},
		&statusNotificationHandler{deps},
		&meterValuesHandler{deps},
		&startTransactionHandler{deps},
		&stopTransactionHandler{deps},
	}
	result := make(map[ocpp.Action]Handler, len(handlers))
	for _, h := range handlers {
		result[h.Action()] = h
	}
	return result
}

// wireTime formats a timestamp the way the protocol expects.
func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
