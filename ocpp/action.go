package ocpp

// Action is the name of an OCPP operation carried in a Call envelope.
type Action string

// The fixed OCPP 1.6 action set. Charge-point-initiated actions arrive
// through the inbound dispatcher; central-system-initiated actions are
// sent through the outbound call protocol.
const (
	ActionAuthorize              Action = "Authorize"
	ActionBootNotification       Action = "BootNotification"
	ActionChangeAvailability     Action = "ChangeAvailability"
	ActionChangeConfiguration    Action = "ChangeConfiguration"
	ActionClearCache             Action = "ClearCache"
	ActionDataTransfer           Action = "DataTransfer"
	ActionGetConfiguration       Action = "GetConfiguration"
	ActionHeartbeat              Action = "Heartbeat"
	ActionMeterValues            Action = "MeterValues"
	ActionRemoteStartTransaction Action = "RemoteStartTransaction"
	ActionRemoteStopTransaction  Action = "RemoteStopTransaction"
	ActionReset                  Action = "Reset"
	ActionStartTransaction       Action = "StartTransaction"
	ActionStatusNotification     Action = "StatusNotification"
	ActionStopTransaction        Action = "StopTransaction"
	ActionUnlockConnector        Action = "UnlockConnector"
)

var knownActions = map[Action]struct{}{
	ActionAuthorize:              {},
	ActionBootNotification:       {},
	ActionChangeAvailability:     {},
	ActionChangeConfiguration:    {},
	ActionClearCache:             {},
	ActionDataTransfer:           {},
	ActionGetConfiguration:       {},
	ActionHeartbeat:              {},
	ActionMeterValues:            {},
	ActionRemoteStartTransaction: {},
	ActionRemoteStopTransaction:  {},
	ActionReset:                  {},
	ActionStartTransaction:       {},
	ActionStatusNotification:     {},
	ActionStopTransaction:        {},
	ActionUnlockConnector:        {},
}

// Known reports whether a is part of the fixed OCPP 1.6 action set.
func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}

func (a Action) String() string {
	return string(a)
}
