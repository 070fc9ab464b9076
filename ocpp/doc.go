// Package ocpp defines the OCPP 1.6-J wire protocol: the three message
// envelope variants (Call, CallResult, CallError) framed as JSON arrays,
// the fixed action and error code enumerations, and the payload types
// exchanged by the core actions.
//
// The array framing is part of the wire contract and is bit-exact:
//
//	Call:       [2, "<uniqueId>", "<Action>", <payload>]
//	CallResult: [3, "<uniqueId>", <payload>]
//	CallError:  [4, "<uniqueId>", "<ErrorCode>", "<description>", <details>]
//
// Decoding then re-encoding any well-formed envelope reproduces the
// identical array structure.
package ocpp
