// Package schema provides per-action payload validation for the OCPP
// protocol engine. Every action registers a request shape and, for
// central-system-initiated actions, a response shape. Shapes are JSON
// Schema documents compiled once at startup with gojsonschema.
//
// Validation yields either nil or a structured failure naming the first
// offending field. Whether a validation failure is fatal for a message is
// decided by the action handler (fail-open handlers degrade, fail-closed
// handlers propagate), not by this layer.
package schema
