package connection

import (
	"context"

	"sync"

	"github.com/gitanogama/ocpp-manager/ocpp"
)

// PendingCall is one outstanding outbound call awaiting its CallResult or
// CallError. It resolves exactly once: the reply path, the deadline timer
// and connection eviction race on it, and whichever fires first wins. The
// losers' attempts are no-ops.
type PendingCall struct {
	id     string
	action ocpp.Action

	once sync.Once
	done chan struct{}
	env  ocpp.Envelope
	err  error
}

func newPendingCall(id string, action ocpp.Action) *PendingCall {
	return &PendingCall{
		id:     id,
		action: action,
		done:   make(chan struct{}),
	}
}

// ID returns the correlation id of the call.
func (p *PendingCall) ID() string { return p.id }

// Action returns the action the call carries.
func (p *PendingCall) Action() ocpp.Action { return p.action }

// Resolve completes the call with an inbound reply envelope. It reports
// whether this invocation was the one that fired.
func (p *PendingCall) Resolve(env ocpp.Envelope) bool {
	fired := false
	p.once.Do(func() {
		p.env = env
		close(p.done)
		fired = true
	})
	return fired
}

// Fail completes the call with an error. It reports whether this
// invocation was the one that fired.
func (p *PendingCall) Fail(err error) bool {
	fired := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		fired = true
	})
	return fired
}

// Wait blocks until the call resolves or ctx expires. On resolution it
// returns the reply envelope (a CallResult or CallError) or the failure
// the call was retired with.
func (p *PendingCall) Wait(ctx context.Context) (ocpp.Envelope, error) {
	select {
	case <-p.done:
		return p.env, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
