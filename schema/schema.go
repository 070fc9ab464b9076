package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
)

// ValidationError describes the first offending field of a payload that
// failed shape validation.
type ValidationError struct {
	Action ocpp.Action `json:"action"`
	Field  string      `json:"field"`
	Detail string      `json:"detail"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ve.Action, ve.Field, ve.Detail)
}

// Registry holds the compiled request and response shapes for every
// registered action. It is immutable after construction and safe for
// concurrent use.
type Registry struct {
	requests  map[ocpp.Action]*gojsonschema.Schema
	responses map[ocpp.Action]*gojsonschema.Schema
}

// NewRegistry compiles all action shape definitions. A definition that
// fails to compile is a programming error and aborts startup.
func NewRegistry() (*Registry, error) {
	registry := &Registry{
		requests:  make(map[ocpp.Action]*gojsonschema.Schema, len(requestDefinitions)),
		responses: make(map[ocpp.Action]*gojsonschema.Schema, len(responseDefinitions)),
	}

	for action, definition := range requestDefinitions {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definition))
		if err != nil {
			return nil, errors.WrapFatal(err, "schema", "NewRegistry",
				fmt.Sprintf("compile %s request shape", action))
		}
		registry.requests[action] = compiled
	}

	for action, definition := range responseDefinitions {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definition))
		if err != nil {
			return nil, errors.WrapFatal(err, "schema", "NewRegistry",
				fmt.Sprintf("compile %s response shape", action))
		}
		registry.responses[action] = compiled
	}

	return registry, nil
}

// ValidateRequest checks an inbound Call payload against the action's
// request shape. Actions without a registered request shape are rejected
// with ErrNotSupported; the dispatcher filters those earlier, so hitting
// it here means a handler was registered without a shape.
func (r *Registry) ValidateRequest(action ocpp.Action, payload json.RawMessage) error {
	compiled, ok := r.requests[action]
	if !ok {
		return errors.WrapInvalid(errors.ErrNotSupported, "schema", "ValidateRequest",
			fmt.Sprintf("%s request shape lookup", action))
	}
	if failure := validate(action, compiled, payload); failure != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidRequest, failure),
			"schema", "ValidateRequest", fmt.Sprintf("%s payload validation", action))
	}
	return nil
}

// ValidateResponse checks an inbound CallResult payload against the
// action's response shape. Actions with no registered response shape are
// permissive: any payload passes.
func (r *Registry) ValidateResponse(action ocpp.Action, payload json.RawMessage) error {
	compiled, ok := r.responses[action]
	if !ok {
		return nil
	}
	if failure := validate(action, compiled, payload); failure != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidResponse, failure),
			"schema", "ValidateResponse", fmt.Sprintf("%s payload validation", action))
	}
	return nil
}

func validate(action ocpp.Action, compiled *gojsonschema.Schema, payload json.RawMessage) *ValidationError {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return &ValidationError{Action: action, Field: "(root)", Detail: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if field == "" {
		field = "(root)"
	}
	return &ValidationError{Action: action, Field: field, Detail: first.Description()}
}

// NormalizeIdentifier lower-cases a case-insensitive protocol identifier
// such as a charge point shortcode or an RFID idTag, so map keys and
// database lookups agree regardless of how the device cased it.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
