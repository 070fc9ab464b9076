package ocpp

// ErrorCode is the machine-readable code carried by a CallError envelope.
type ErrorCode string

// The fixed OCPP 1.6 error code set. The misspelling in
// ErrorCodeOccurenceConstraintViolation is part of the protocol.
const (
	// ErrorCodeNotSupported - requested action is recognized but not
	// supported by the receiver.
	ErrorCodeNotSupported ErrorCode = "NotSupported"
	// ErrorCodeInternalError - an internal error occurred and the receiver
	// was not able to process the requested action successfully.
	ErrorCodeInternalError ErrorCode = "InternalError"
	// ErrorCodeProtocolError - payload for action is incomplete.
	ErrorCodeProtocolError ErrorCode = "ProtocolError"
	// ErrorCodeSecurityError - a security issue prevented the receiver
	// from completing the action.
	ErrorCodeSecurityError ErrorCode = "SecurityError"
	// ErrorCodeFormationViolation - payload is syntactically incorrect or
	// does not conform to the PDU structure for the action.
	ErrorCodeFormationViolation ErrorCode = "FormationViolation"
	// ErrorCodePropertyConstraintViolation - payload is syntactically
	// correct but at least one field contains an invalid value.
	ErrorCodePropertyConstraintViolation ErrorCode = "PropertyConstraintViolation"
	// ErrorCodeOccurenceConstraintViolation - payload violates occurrence
	// constraints.
	ErrorCodeOccurenceConstraintViolation ErrorCode = "OccurenceConstraintViolation"
	// ErrorCodeTypeConstraintViolation - payload violates data type
	// constraints.
	ErrorCodeTypeConstraintViolation ErrorCode = "TypeConstraintViolation"
	// ErrorCodeGenericError - any other error.
	ErrorCodeGenericError ErrorCode = "GenericError"
)
