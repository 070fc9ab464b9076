package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFormat(t *testing.T) {
	base := fmt.Errorf("boom")
	err := Wrap(base, "Engine", "SendCall", "write envelope")
	require.Error(t, err)
	assert.Equal(t, "Engine.SendCall: write envelope failed: boom", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"timeout is transient", ErrTimeout, ErrorTransient},
		{"not connected is transient", ErrNotConnected, ErrorTransient},
		{"invalid request", ErrInvalidRequest, ErrorInvalid},
		{"invalid response", ErrInvalidResponse, ErrorInvalid},
		{"not supported", ErrNotSupported, ErrorInvalid},
		{"missing config is fatal", ErrMissingConfig, ErrorFatal},
		{"unknown defaults transient", fmt.Errorf("whatever"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifiedWrapPreservesSentinel(t *testing.T) {
	err := WrapInvalid(ErrNotFound, "StopTransaction", "Handle", "transaction lookup")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "StopTransaction", ce.Component)
	assert.Equal(t, "Handle", ce.Operation)
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}
