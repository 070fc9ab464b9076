// Package engine is the protocol core: it correlates outbound calls with
// their replies under a fixed deadline, and dispatches every inbound
// frame to the action handler that owns it. The engine is transport
// agnostic; the websocket gateway feeds it raw frames and it answers
// through the connection registry.
package engine
