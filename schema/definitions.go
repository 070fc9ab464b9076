package schema

import "github.com/gitanogama/ocpp-manager/ocpp"

// OCPP 1.6 bounds case-insensitive identifier strings at fixed lengths
// (CiString20/25/50 in the protocol text). The shapes below carry those
// caps as maxLength constraints.

const idTokenSchema = `{
	"type": "string",
	"minLength": 1,
	"maxLength": 20
}`

var requestDefinitions = map[ocpp.Action]string{
	ocpp.ActionBootNotification: `{
		"type": "object",
		"required": ["chargePointVendor", "chargePointModel"],
		"properties": {
			"chargePointVendor": {"type": "string", "maxLength": 25},
			"chargePointModel": {"type": "string", "maxLength": 20},
			"chargePointSerialNumber": {"type": "string", "maxLength": 25},
			"chargeBoxSerialNumber": {"type": "string", "maxLength": 20},
			"firmwareVersion": {"type": "string", "maxLength": 50},
			"iccid": {"type": "string", "maxLength": 20},
			"imsi": {"type": "string", "maxLength": 20},
			"meterType": {"type": "string", "maxLength": 25},
			"meterSerialNumber": {"type": "string", "maxLength": 25}
		}
	}`,

	ocpp.ActionHeartbeat: `{
		"type": "object",
		"properties": {}
	}`,

	ocpp.ActionAuthorize: `{
		"type": "object",
		"required": ["idTag"],
		"properties": {
			"idTag": ` + idTokenSchema + `
		}
	}`,

	ocpp.ActionStatusNotification: `{
		"type": "object",
		"required": ["connectorId", "errorCode", "status"],
		"properties": {
			"connectorId": {"type": "integer", "minimum": 0},
			"errorCode": {
				"type": "string",
				"enum": ["ConnectorLockFailure", "EVCommunicationError", "GroundFailure",
					"HighTemperature", "InternalError", "LocalListConflict", "NoError",
					"OtherError", "OverCurrentFailure", "PowerMeterFailure",
					"PowerSwitchFailure", "ReaderFailure", "ResetFailure",
					"UnderVoltage", "OverVoltage", "WeakSignal"]
			},
			"info": {"type": "string", "maxLength": 50},
			"status": {
				"type": "string",
				"enum": ["Available", "Preparing", "Charging", "SuspendedEVSE",
					"SuspendedEV", "Finishing", "Reserved", "Unavailable", "Faulted"]
			},
			"timestamp": {"type": "string", "format": "date-time"},
			"vendorId": {"type": "string", "maxLength": 255},
			"vendorErrorCode": {"type": "string", "maxLength": 50}
		}
	}`,

	ocpp.ActionMeterValues: `{
		"type": "object",
		"required": ["connectorId", "meterValue"],
		"properties": {
			"connectorId": {"type": "integer", "minimum": 0},
			"transactionId": {"type": "integer"},
			"meterValue": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["timestamp", "sampledValue"],
					"properties": {
						"timestamp": {"type": "string", "format": "date-time"},
						"sampledValue": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["value"],
								"properties": {
									"value": {"type": "string"},
									"context": {"type": "string"},
									"format": {"type": "string"},
									"measurand": {"type": "string"},
									"phase": {"type": "string"},
									"location": {"type": "string"},
									"unit": {"type": "string"}
								}
							}
						}
					}
				}
			}
		}
	}`,

	ocpp.ActionStartTransaction: `{
		"type": "object",
		"required": ["connectorId", "idTag", "meterStart", "timestamp"],
		"properties": {
			"connectorId": {"type": "integer", "minimum": 0},
			"idTag": ` + idTokenSchema + `,
			"meterStart": {"type": "integer"},
			"reservationId": {"type": "integer"},
			"timestamp": {"type": "string", "format": "date-time"}
		}
	}`,

	ocpp.ActionStopTransaction: `{
		"type": "object",
		"required": ["meterStop", "timestamp", "transactionId"],
		"properties": {
			"idTag": ` + idTokenSchema + `,
			"meterStop": {"type": "integer"},
			"timestamp": {"type": "string", "format": "date-time"},
			"transactionId": {"type": "integer"},
			"reason": {
				"type": "string",
				"enum": ["DeAuthorized", "EmergencyStop", "EVDisconnected", "HardReset",
					"Local", "Other", "PowerLoss", "Reboot", "Remote", "SoftReset",
					"UnlockCommand"]
			},
			"transactionData": {"type": "array"}
		}
	}`,
}

// Response shapes for central-system-initiated calls. The outbound
// protocol validates an inbound CallResult payload against these before
// resolving the pending call.
var responseDefinitions = map[ocpp.Action]string{
	ocpp.ActionReset: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "enum": ["Accepted", "Rejected"]}
		}
	}`,

	ocpp.ActionUnlockConnector: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "enum": ["Unlocked", "UnlockFailed", "NotSupported"]}
		}
	}`,

	ocpp.ActionRemoteStopTransaction: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "enum": ["Accepted", "Rejected"]}
		}
	}`,

	ocpp.ActionChangeConfiguration: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"type": "string", "enum": ["Accepted", "Rejected", "RebootRequired", "NotSupported"]}
		}
	}`,

	ocpp.ActionGetConfiguration: `{
		"type": "object",
		"properties": {
			"configurationKey": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["key", "readonly"],
					"properties": {
						"key": {"type": "string", "maxLength": 50},
						"readonly": {"type": "boolean"},
						"value": {"type": "string", "maxLength": 500}
					}
				}
			},
			"unknownKey": {
				"type": "array",
				"items": {"type": "string", "maxLength": 50}
			}
		}
	}`,
}
