package engine

import (
	"context"
	"encoding/json"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
)

// Reset asks a charge point to reboot and returns the reported status.
func (e *Engine) Reset(ctx context.Context, shortcode string, resetType ocpp.ResetType) (string, error) {
	payload, err := e.SendCall(ctx, shortcode, ocpp.ActionReset,
		ocpp.ResetRequest{Type: resetType})
	if err != nil {
		return "", err
	}
	var resp ocpp.ResetResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.WrapInvalid(err, "Engine", "Reset", "decode response")
	}
	return resp.Status, nil
}

// UnlockConnector asks a charge point to release a connector latch.
func (e *Engine) UnlockConnector(ctx context.Context, shortcode string, connectorID int) (string, error) {
	payload, err := e.SendCall(ctx, shortcode, ocpp.ActionUnlockConnector,
		ocpp.UnlockConnectorRequest{ConnectorID: connectorID})
	if err != nil {
		return "", err
	}
	var resp ocpp.UnlockConnectorResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.WrapInvalid(err, "Engine", "UnlockConnector", "decode response")
	}
	return resp.Status, nil
}

// RemoteStopTransaction asks a charge point to end a running session.
// On acceptance the stop reason is stamped on the session now, so the
// terminal StopTransaction from the device closes it as Completed even
// when the device omits its own reason.
func (e *Engine) RemoteStopTransaction(ctx context.Context, shortcode string, transactionID int64) (string, error) {
	payload, err := e.SendCall(ctx, shortcode, ocpp.ActionRemoteStopTransaction,
		ocpp.RemoteStopTransactionRequest{TransactionID: transactionID})
	if err != nil {
		return "", err
	}
	var resp ocpp.RemoteStopTransactionResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.WrapInvalid(err, "Engine", "RemoteStopTransaction", "decode response")
	}

	if resp.Status == "Accepted" {
		if err := e.store.StampTransactionReason(ctx, transactionID,
			string(ocpp.ReasonRemoteStop)); err != nil {
			e.logger.Warn("remote stop reason stamp failed",
				"shortcode", shortcode, "transactionId", transactionID, "error", err)
		}
	}
	return resp.Status, nil
}

// ChangeConfiguration sets one configuration key on a charge point.
func (e *Engine) ChangeConfiguration(ctx context.Context, shortcode, key, value string) (string, error) {
	payload, err := e.SendCall(ctx, shortcode, ocpp.ActionChangeConfiguration,
		ocpp.ChangeConfigurationRequest{Key: key, Value: value})
	if err != nil {
		return "", err
	}
	var resp ocpp.ChangeConfigurationResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.WrapInvalid(err, "Engine", "ChangeConfiguration", "decode response")
	}
	return resp.Status, nil
}

// GetConfiguration reads configuration keys from a charge point. An
// empty keys slice requests the full set.
func (e *Engine) GetConfiguration(ctx context.Context, shortcode string, keys []string) (ocpp.GetConfigurationResponse, error) {
	payload, err := e.SendCall(ctx, shortcode, ocpp.ActionGetConfiguration,
		ocpp.GetConfigurationRequest{Key: keys})
	if err != nil {
		return ocpp.GetConfigurationResponse{}, err
	}
	var resp ocpp.GetConfigurationResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return ocpp.GetConfigurationResponse{}, errors.WrapInvalid(err, "Engine", "GetConfiguration", "decode response")
	}
	return resp, nil
}
