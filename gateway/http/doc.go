// Package http is the outer surface of the OCPP manager: the websocket
// endpoint charge points dial into, the operator REST API, health and
// metrics. It owns transport concerns only; protocol semantics live in
// the engine and its handlers.
package http
