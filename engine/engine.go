package engine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/handler"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// DefaultCallTimeout bounds how long an outbound call waits for its
// reply before failing with ErrTimeout.
const DefaultCallTimeout = 10 * time.Second

// RemoteError is a CallError envelope surfaced as a Go error: the charge
// point answered, and the answer was a refusal.
type RemoteError struct {
	Code        ocpp.ErrorCode
	Description string
	Details     json.RawMessage
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %s: %s", e.Code, e.Description)
}

// Config assembles an Engine's collaborators.
type Config struct {
	Connections *connection.Registry
	Store       *store.Store
	Schemas     *schema.Registry
	Handlers    map[ocpp.Action]handler.Handler
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
	// CallTimeout overrides DefaultCallTimeout when positive.
	CallTimeout time.Duration
}

// Engine drives both directions of the protocol over registered
// connections. It is safe for concurrent use.
type Engine struct {
	connections *connection.Registry
	store       *store.Store
	schemas     *schema.Registry
	handlers    map[ocpp.Action]handler.Handler
	logger      *slog.Logger
	metrics     *metrics
	callTimeout time.Duration

	// newID mints correlation ids; swapped out in tests.
	newID func() string
}

// New builds an Engine from its configuration.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Engine{
		connections: cfg.Connections,
		store:       cfg.Store,
		schemas:     cfg.Schemas,
		handlers:    cfg.Handlers,
		logger:      logger,
		metrics:     newMetrics(cfg.Registerer),
		callTimeout: timeout,
		newID:       uuid.NewString,
	}
}

// SendCall issues one outbound call to a charge point and waits for the
// matching reply. It returns the CallResult payload after shape
// validation. A CallError reply surfaces as a RemoteError; no reply
// within the deadline surfaces as ErrTimeout; an unregistered or
// inactive connection surfaces as ErrNotConnected with nothing written.
func (e *Engine) SendCall(ctx context.Context, shortcode string, action ocpp.Action, payload any) (json.RawMessage, error) {
	conn, ok := e.connections.Get(shortcode)
	if !ok || !conn.ReadyState().Active() {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrNotConnected, shortcode),
			"Engine", "SendCall", "connection lookup")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Engine", "SendCall", "marshal payload")
	}

	id := e.newID()
	call := &ocpp.Call{ID: id, Action: action, Payload: raw}
	if err := conn.Send(call); err != nil {
		return nil, err
	}
	e.metrics.callsSent.WithLabelValues(string(action)).Inc()

	pending, err := conn.AddPending(id, action)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	reply, waitErr := pending.Wait(waitCtx)
	if waitErr != nil {
		if ctxErr := waitCtx.Err(); ctxErr != nil && stderrors.Is(waitErr, ctxErr) {
			failure := errors.WrapTransient(
				fmt.Errorf("%w: %s after %s", errors.ErrTimeout, action, e.callTimeout),
				"Engine", "SendCall", "await reply")
			if stderrors.Is(ctxErr, context.Canceled) {
				failure = errors.WrapTransient(ctxErr, "Engine", "SendCall", "await reply")
			}
			// Retire the call; if the reply beat us to it, take the reply.
			if pending.Fail(failure) {
				conn.RemovePending(id)
				e.metrics.callTimeouts.Inc()
				return nil, failure
			}
			reply, waitErr = pending.Wait(context.Background())
		}
		if waitErr != nil {
			return nil, waitErr
		}
	}
	e.metrics.callDuration.Observe(time.Since(started).Seconds())

	switch env := reply.(type) {
	case *ocpp.CallResult:
		if err := e.schemas.ValidateResponse(action, env.Payload); err != nil {
			return nil, err
		}
		return env.Payload, nil
	case *ocpp.CallError:
		e.metrics.remoteErrors.Inc()
		return nil, errors.WrapInvalid(
			&RemoteError{Code: env.Code, Description: env.Description, Details: env.Details},
			"Engine", "SendCall", string(action)+" call")
	default:
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: unexpected reply envelope type %d", errors.ErrInternal, reply.Type()),
			"Engine", "SendCall", "match reply")
	}
}

// SendMessage writes one envelope to a charge point without awaiting a
// reply.
func (e *Engine) SendMessage(shortcode string, env ocpp.Envelope) error {
	conn, ok := e.connections.Get(shortcode)
	if !ok || !conn.ReadyState().Active() {
		return errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrNotConnected, shortcode),
			"Engine", "SendMessage", "connection lookup")
	}
	return conn.Send(env)
}
