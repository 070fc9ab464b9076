package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/handler"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/store"
)

// detectedName labels charge points auto-created on first contact so
// operators can spot devices awaiting adoption.
const detectedName = "Detected Charger"

// OnMessage processes one raw inbound frame from a charge point. The
// frame must arrive on a registered connection; anything else is logged
// and dropped before it touches any state. Every accepted frame counts
// as device liveness. A frame that cannot be decoded is logged and
// dropped; the connection stays up. Calls are answered on the same
// connection, and a handler failure always becomes a CallError rather
// than silence.
func (e *Engine) OnMessage(ctx context.Context, shortcode string, data []byte) {
	now := time.Now()

	conn, ok := e.connections.Get(shortcode)
	if !ok {
		e.logger.Warn("dropping frame from unregistered device", "shortcode", shortcode)
		return
	}

	cp, err := e.ensureChargePoint(ctx, shortcode)
	if err != nil {
		e.logger.Error("charge point resolution failed",
			"shortcode", shortcode, "error", err)
		return
	}
	if err := e.store.TouchHeartbeat(ctx, cp.ID, now); err != nil {
		e.logger.Warn("heartbeat stamp failed",
			"shortcode", shortcode, "error", err)
	}

	env, err := ocpp.Decode(data)
	if err != nil {
		e.metrics.messagesReceived.WithLabelValues("malformed").Inc()
		e.logger.Warn("dropping malformed frame",
			"shortcode", shortcode, "error", err)
		return
	}

	switch m := env.(type) {
	case *ocpp.Call:
		e.metrics.messagesReceived.WithLabelValues("call").Inc()
		e.handleCall(ctx, shortcode, cp, conn, m, now)
	case *ocpp.CallResult:
		e.metrics.messagesReceived.WithLabelValues("call_result").Inc()
		e.resolvePending(shortcode, conn, m)
	case *ocpp.CallError:
		e.metrics.messagesReceived.WithLabelValues("call_error").Inc()
		e.resolvePending(shortcode, conn, m)
	}
}

// ensureChargePoint resolves the device row for a shortcode, creating a
// placeholder on first contact.
func (e *Engine) ensureChargePoint(ctx context.Context, shortcode string) (store.ChargePoint, error) {
	cp, err := e.store.FindChargePointByShortcode(ctx, shortcode)
	if err == nil {
		return cp, nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return store.ChargePoint{}, err
	}

	created, err := e.store.InsertChargePoint(ctx, store.ChargePoint{
		Shortcode:    shortcode,
		FriendlyName: detectedName,
		Status:       "Pending",
	})
	if err != nil {
		return store.ChargePoint{}, err
	}
	e.logger.Info("auto-created charge point", "shortcode", shortcode)
	return created, nil
}

func (e *Engine) handleCall(ctx context.Context, shortcode string, cp store.ChargePoint, conn *connection.Connection, call *ocpp.Call, now time.Time) {
	h, registered := e.handlers[call.Action]
	if !call.Action.Known() || !registered {
		e.reply(shortcode, conn.Send, &ocpp.CallError{
			ID:          call.ID,
			Code:        ocpp.ErrorCodeNotSupported,
			Description: string(call.Action) + " is not supported",
		})
		return
	}

	resp, err := h.Handle(ctx, handler.Context{ChargePoint: cp, ReceivedAt: now}, call.Payload)
	if err != nil {
		e.metrics.handlerErrors.WithLabelValues(string(call.Action)).Inc()
		e.logger.Warn("handler failed",
			"shortcode", shortcode, "action", call.Action, "error", err)
		e.reply(shortcode, conn.Send, &ocpp.CallError{
			ID:          call.ID,
			Code:        errorCodeFor(err),
			Description: err.Error(),
		})
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		e.logger.Error("response marshal failed",
			"shortcode", shortcode, "action", call.Action, "error", err)
		e.reply(shortcode, conn.Send, &ocpp.CallError{
			ID:          call.ID,
			Code:        ocpp.ErrorCodeInternalError,
			Description: "response serialization failed",
		})
		return
	}
	e.reply(shortcode, conn.Send, &ocpp.CallResult{ID: call.ID, Payload: payload})
}

func (e *Engine) reply(shortcode string, send func(ocpp.Envelope) error, env ocpp.Envelope) {
	if err := send(env); err != nil {
		e.logger.Warn("reply write failed",
			"shortcode", shortcode, "uniqueId", env.UniqueID(), "error", err)
	}
}

// resolvePending hands a reply envelope to the outbound call awaiting
// it. Replies with no pending entry, typically answers that arrived
// after their deadline, are logged and dropped.
func (e *Engine) resolvePending(shortcode string, conn *connection.Connection, env ocpp.Envelope) {
	pending, ok := conn.TakePending(env.UniqueID())
	if !ok {
		e.logger.Warn("dropping unmatched reply",
			"shortcode", shortcode, "uniqueId", env.UniqueID())
		return
	}
	pending.Resolve(env)
}

// errorCodeFor maps a handler failure onto the wire error code set.
func errorCodeFor(err error) ocpp.ErrorCode {
	switch {
	case stderrors.Is(err, errors.ErrInvalidRequest):
		return ocpp.ErrorCodeFormationViolation
	case stderrors.Is(err, errors.ErrNotSupported):
		return ocpp.ErrorCodeNotSupported
	case stderrors.Is(err, errors.ErrNotFound):
		return ocpp.ErrorCodePropertyConstraintViolation
	default:
		return ocpp.ErrorCodeInternalError
	}
}
