package ocpp

// RegistrationStatus is the result of registration in response to a
// BootNotification request.
type RegistrationStatus string

// Registration statuses.
const (
	RegistrationStatusAccepted RegistrationStatus = "Accepted"
	RegistrationStatusPending  RegistrationStatus = "Pending"
	RegistrationStatusRejected RegistrationStatus = "Rejected"
)

// AuthorizationStatus is the status in an IdTagInfo.
type AuthorizationStatus string

// Authorization statuses.
const (
	AuthorizationStatusAccepted     AuthorizationStatus = "Accepted"
	AuthorizationStatusBlocked      AuthorizationStatus = "Blocked"
	AuthorizationStatusExpired      AuthorizationStatus = "Expired"
	AuthorizationStatusInvalid      AuthorizationStatus = "Invalid"
	AuthorizationStatusConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

// ChargePointStatus is the status reported in a StatusNotification request.
type ChargePointStatus string

// Charge point statuses.
const (
	ChargePointStatusAvailable     ChargePointStatus = "Available"
	ChargePointStatusPreparing     ChargePointStatus = "Preparing"
	ChargePointStatusCharging      ChargePointStatus = "Charging"
	ChargePointStatusSuspendedEVSE ChargePointStatus = "SuspendedEVSE"
	ChargePointStatusSuspendedEV   ChargePointStatus = "SuspendedEV"
	ChargePointStatusFinishing     ChargePointStatus = "Finishing"
	ChargePointStatusReserved      ChargePointStatus = "Reserved"
	ChargePointStatusUnavailable   ChargePointStatus = "Unavailable"
	ChargePointStatusFaulted       ChargePointStatus = "Faulted"
)

// Reason is the reason for stopping a transaction.
type Reason string

// Stop reasons.
const (
	ReasonDeAuthorized   Reason = "DeAuthorized"
	ReasonEmergencyStop  Reason = "EmergencyStop"
	ReasonEVDisconnected Reason = "EVDisconnected"
	ReasonHardReset      Reason = "HardReset"
	ReasonLocal          Reason = "Local"
	ReasonOther          Reason = "Other"
	ReasonPowerLoss      Reason = "PowerLoss"
	ReasonReboot         Reason = "Reboot"
	ReasonRemote         Reason = "Remote"
	ReasonSoftReset      Reason = "SoftReset"
	ReasonUnlockCommand  Reason = "UnlockCommand"
	// ReasonRemoteStop is recorded when the central system stops a
	// transaction through a RemoteStopTransaction call.
	ReasonRemoteStop Reason = "RemoteStopTransaction"
)

// ResetType selects a hard or soft device reset.
type ResetType string

// Reset types.
const (
	ResetTypeHard ResetType = "Hard"
	ResetTypeSoft ResetType = "Soft"
)

// IdTagInfo carries the authorization verdict for an identifier token.
type IdTagInfo struct {
	Status      AuthorizationStatus `json:"status"`
	ExpiryDate  string              `json:"expiryDate,omitempty"`
	ParentIdTag string              `json:"parentIdTag,omitempty"`
}

// BootNotificationRequest is sent by a charge point after (re)boot.
type BootNotificationRequest struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

// BootNotificationResponse acknowledges a BootNotification.
type BootNotificationResponse struct {
	CurrentTime string             `json:"currentTime"`
	Interval    int                `json:"interval"`
	Status      RegistrationStatus `json:"status"`
}

// HeartbeatResponse acknowledges a Heartbeat.
type HeartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

// AuthorizeRequest asks whether an identifier token may charge.
type AuthorizeRequest struct {
	IdTag string `json:"idTag"`
}

// AuthorizeResponse carries the authorization verdict.
type AuthorizeResponse struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}

// StatusNotificationRequest reports a connector status change.
type StatusNotificationRequest struct {
	ConnectorID     int               `json:"connectorId"`
	Status          ChargePointStatus `json:"status"`
	ErrorCode       string            `json:"errorCode"`
	Info            string            `json:"info,omitempty"`
	Timestamp       string            `json:"timestamp,omitempty"`
	VendorID        string            `json:"vendorId,omitempty"`
	VendorErrorCode string            `json:"vendorErrorCode,omitempty"`
}

// SampledValue is a single reading inside a MeterValue batch.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Format    string `json:"format,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Location  string `json:"location,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// MeterValue is a timestamped batch of sampled values.
type MeterValue struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// MeterValuesRequest delivers metering samples for a connector.
type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int64       `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

// StartTransactionRequest opens a charging session.
type StartTransactionRequest struct {
	ConnectorID   int    `json:"connectorId"`
	IdTag         string `json:"idTag"`
	MeterStart    int64  `json:"meterStart"`
	ReservationID *int64 `json:"reservationId,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// StartTransactionResponse acknowledges a StartTransaction. TransactionID
// is -1 when the identifier token was not accepted.
type StartTransactionResponse struct {
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
	TransactionID int64     `json:"transactionId"`
}

// StopTransactionRequest closes a charging session.
type StopTransactionRequest struct {
	IdTag           string       `json:"idTag,omitempty"`
	MeterStop       int64        `json:"meterStop"`
	Timestamp       string       `json:"timestamp"`
	TransactionID   int64        `json:"transactionId"`
	Reason          Reason       `json:"reason,omitempty"`
	TransactionData []MeterValue `json:"transactionData,omitempty"`
}

// StopTransactionResponse acknowledges a StopTransaction.
type StopTransactionResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

// ResetRequest asks a charge point to reboot.
type ResetRequest struct {
	Type ResetType `json:"type"`
}

// ResetResponse acknowledges a Reset.
type ResetResponse struct {
	Status string `json:"status"`
}

// UnlockConnectorRequest asks a charge point to unlock a connector.
type UnlockConnectorRequest struct {
	ConnectorID int `json:"connectorId"`
}

// UnlockConnectorResponse acknowledges an UnlockConnector.
type UnlockConnectorResponse struct {
	Status string `json:"status"`
}

// RemoteStopTransactionRequest asks a charge point to stop a transaction.
type RemoteStopTransactionRequest struct {
	TransactionID int64 `json:"transactionId"`
}

// RemoteStopTransactionResponse acknowledges a RemoteStopTransaction.
type RemoteStopTransactionResponse struct {
	Status string `json:"status"`
}

// ChangeConfigurationRequest changes a configuration key on the device.
type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChangeConfigurationResponse acknowledges a ChangeConfiguration.
type ChangeConfigurationResponse struct {
	Status string `json:"status"`
}

// KeyValue is one configuration entry in a GetConfiguration response.
type KeyValue struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value,omitempty"`
}

// GetConfigurationRequest reads configuration keys from the device.
type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty"`
}

// GetConfigurationResponse lists configuration entries.
type GetConfigurationResponse struct {
	ConfigurationKey []KeyValue `json:"configurationKey,omitempty"`
	UnknownKey       []string   `json:"unknownKey,omitempty"`
}
