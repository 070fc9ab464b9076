package ocpp

import (
	"encoding/json"
	"fmt"

	"github.com/gitanogama/ocpp-manager/errors"
)

// MessageType is the leading discriminator of a wire message array.
type MessageType int

// Wire message type discriminators.
const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

// Envelope is the tagged union over the three wire message variants.
// An Envelope is immutable once parsed.
type Envelope interface {
	// Type returns the leading discriminator of the wire array.
	Type() MessageType
	// UniqueID returns the correlation id pairing a Call with its reply.
	UniqueID() string
	// MarshalWire serializes the envelope back to its exact array form.
	MarshalWire() ([]byte, error)
}

// Call is a request envelope: [2, uniqueId, action, payload].
type Call struct {
	ID      string
	Action  Action
	Payload json.RawMessage
}

// Type implements Envelope.
func (c *Call) Type() MessageType { return MessageTypeCall }

// UniqueID implements Envelope.
func (c *Call) UniqueID() string { return c.ID }

// MarshalWire implements Envelope.
func (c *Call) MarshalWire() ([]byte, error) {
	return json.Marshal([]any{int(MessageTypeCall), c.ID, c.Action, rawOrEmpty(c.Payload)})
}

// CallResult is a successful reply envelope: [3, uniqueId, payload].
type CallResult struct {
	ID      string
	Payload json.RawMessage
}

// Type implements Envelope.
func (r *CallResult) Type() MessageType { return MessageTypeCallResult }

// UniqueID implements Envelope.
func (r *CallResult) UniqueID() string { return r.ID }

// MarshalWire implements Envelope.
func (r *CallResult) MarshalWire() ([]byte, error) {
	return json.Marshal([]any{int(MessageTypeCallResult), r.ID, rawOrEmpty(r.Payload)})
}

// CallError is an error reply envelope:
// [4, uniqueId, errorCode, description, details].
type CallError struct {
	ID          string
	Code        ErrorCode
	Description string
	Details     json.RawMessage
}

// Type implements Envelope.
func (e *CallError) Type() MessageType { return MessageTypeCallError }

// UniqueID implements Envelope.
func (e *CallError) UniqueID() string { return e.ID }

// MarshalWire implements Envelope.
func (e *CallError) MarshalWire() ([]byte, error) {
	return json.Marshal([]any{int(MessageTypeCallError), e.ID, e.Code, e.Description, rawOrEmpty(e.Details)})
}

// rawOrEmpty substitutes an empty object for an absent payload so the
// serialized array always has its full element count.
func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

// Decode parses a raw text frame into one of the three envelope variants.
// The frame must be a JSON array whose first element is a valid message
// type discriminator and whose shape matches the matched variant. Any
// other input yields an invalid-classified error; the caller is expected
// to log and drop the frame without tearing down the connection loop.
func Decode(data []byte) (Envelope, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse message array")
	}
	if len(elements) < 3 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("message array has %d elements, need at least 3", len(elements)),
			"ocpp", "Decode", "validate array length")
	}

	var messageType int
	if err := json.Unmarshal(elements[0], &messageType); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse message type")
	}

	var id string
	if err := json.Unmarshal(elements[1], &id); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse unique id")
	}

	switch MessageType(messageType) {
	case MessageTypeCall:
		return decodeCall(id, elements)
	case MessageTypeCallResult:
		return &CallResult{ID: id, Payload: elements[2]}, nil
	case MessageTypeCallError:
		return decodeCallError(id, elements)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown message type %d", messageType),
			"ocpp", "Decode", "match message type")
	}
}

func decodeCall(id string, elements []json.RawMessage) (*Call, error) {
	if len(elements) != 4 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("call array has %d elements, need 4", len(elements)),
			"ocpp", "Decode", "validate call shape")
	}

	var action Action
	if err := json.Unmarshal(elements[2], &action); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse action")
	}

	return &Call{ID: id, Action: action, Payload: elements[3]}, nil
}

func decodeCallError(id string, elements []json.RawMessage) (*CallError, error) {
	if len(elements) < 4 || len(elements) > 5 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("call error array has %d elements, need 4 or 5", len(elements)),
			"ocpp", "Decode", "validate call error shape")
	}

	var code ErrorCode
	if err := json.Unmarshal(elements[2], &code); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse error code")
	}

	var description string
	if err := json.Unmarshal(elements[3], &description); err != nil {
		return nil, errors.WrapInvalid(err, "ocpp", "Decode", "parse error description")
	}

	callError := &CallError{ID: id, Code: code, Description: description}
	if len(elements) == 5 {
		callError.Details = elements[4]
	}
	return callError, nil
}
