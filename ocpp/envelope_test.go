package ocpp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/errors"
)

func TestDecodeCall(t *testing.T) {
	raw := []byte(`[2,"19223201","BootNotification",{"chargePointVendor":"VendorX","chargePointModel":"SingleSocketCharger"}]`)

	env, err := Decode(raw)
	require.NoError(t, err)

	call, ok := env.(*Call)
	require.True(t, ok)
	assert.Equal(t, MessageTypeCall, call.Type())
	assert.Equal(t, "19223201", call.UniqueID())
	assert.Equal(t, ActionBootNotification, call.Action)

	var payload BootNotificationRequest
	require.NoError(t, json.Unmarshal(call.Payload, &payload))
	assert.Equal(t, "VendorX", payload.ChargePointVendor)
}

func TestDecodeCallResult(t *testing.T) {
	raw := []byte(`[3,"19223201",{"status":"Accepted"}]`)

	env, err := Decode(raw)
	require.NoError(t, err)

	result, ok := env.(*CallResult)
	require.True(t, ok)
	assert.Equal(t, "19223201", result.UniqueID())
	assert.JSONEq(t, `{"status":"Accepted"}`, string(result.Payload))
}

func TestDecodeCallError(t *testing.T) {
	raw := []byte(`[4,"19223201","NotSupported","action is not supported",{}]`)

	env, err := Decode(raw)
	require.NoError(t, err)

	callError, ok := env.(*CallError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeNotSupported, callError.Code)
	assert.Equal(t, "action is not supported", callError.Description)
}

func TestDecodeCallErrorWithoutDetails(t *testing.T) {
	raw := []byte(`[4,"id-1","GenericError","boom"]`)

	env, err := Decode(raw)
	require.NoError(t, err)

	callError, ok := env.(*CallError)
	require.True(t, ok)
	assert.Nil(t, callError.Details)
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an array", `{"type":2}`},
		{"not json", `garbage`},
		{"too short", `[2,"id"]`},
		{"unknown discriminator", `[9,"id",{}]`},
		{"call missing payload", `[2,"id","Heartbeat"]`},
		{"call extra element", `[2,"id","Heartbeat",{},{}]`},
		{"non-string id", `[2,42,"Heartbeat",{}]`},
		{"call error six elements", `[4,"id","GenericError","boom",{},{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestMarshalWireShapes(t *testing.T) {
	call := &Call{ID: "abc", Action: ActionReset, Payload: json.RawMessage(`{"type":"Soft"}`)}
	data, err := call.MarshalWire()
	require.NoError(t, err)
	assert.Equal(t, `[2,"abc","Reset",{"type":"Soft"}]`, string(data))

	result := &CallResult{ID: "abc", Payload: json.RawMessage(`{"status":"Accepted"}`)}
	data, err = result.MarshalWire()
	require.NoError(t, err)
	assert.Equal(t, `[3,"abc",{"status":"Accepted"}]`, string(data))

	callError := &CallError{ID: "abc", Code: ErrorCodeInternalError, Description: "boom"}
	data, err = callError.MarshalWire()
	require.NoError(t, err)
	assert.Equal(t, `[4,"abc","InternalError","boom",{}]`, string(data))
}

func TestMarshalWireEmptyPayload(t *testing.T) {
	call := &Call{ID: "abc", Action: ActionHeartbeat}
	data, err := call.MarshalWire()
	require.NoError(t, err)
	assert.Equal(t, `[2,"abc","Heartbeat",{}]`, string(data))
}

// Decoding then re-encoding a well-formed envelope must reproduce the
// identical array structure.
func TestRoundTripIdentity(t *testing.T) {
	frames := []string{
		`[2,"id-1","StatusNotification",{"connectorId":1,"errorCode":"NoError","status":"Available"}]`,
		`[3,"id-2",{"currentTime":"2026-08-29T10:00:00Z"}]`,
		`[4,"id-3","ProtocolError","payload incomplete",{"field":"idTag"}]`,
	}

	for _, frame := range frames {
		env, err := Decode([]byte(frame))
		require.NoError(t, err)

		out, err := env.MarshalWire()
		require.NoError(t, err)
		assert.JSONEq(t, frame, string(out))
	}
}

func TestActionKnown(t *testing.T) {
	assert.True(t, ActionBootNotification.Known())
	assert.True(t, ActionRemoteStopTransaction.Known())
	assert.False(t, Action("FluxCapacitorUpdate").Known())
}
