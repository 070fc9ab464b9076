package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// stopTransactionHandler closes charging sessions. It fails closed: a
// StopTransaction naming an unknown transaction propagates the lookup
// failure, because silently acknowledging it would strand the charge
// point's bookkeeping and ours in different states. A transaction that
// already reached a terminal status is immutable; a repeated stop is
// rejected rather than allowed to rewrite the record.
//
// A session closes Completed when a stop reason is on record, from this
// request or stamped earlier by a remote stop, and Failed otherwise.
type stopTransactionHandler struct {
	deps Deps
}

func (h *stopTransactionHandler) Action() ocpp.Action { return ocpp.ActionStopTransaction }

func (h *stopTransactionHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		return nil, err
	}

	var req ocpp.StopTransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.WrapInvalid(err, "StopTransaction", "Handle", "decode request")
	}

	tx, err := h.deps.Store.FindTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != store.TransactionActive {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: transaction %d already stopped", errors.ErrInvalidRequest, tx.ID),
			"StopTransaction", "Handle", "transaction state check")
	}

	reason := string(req.Reason)
	if reason == "" {
		reason = tx.Reason
	}
	status := store.TransactionFailed
	if reason != "" {
		status = store.TransactionCompleted
	}

	stopTime := msg.ReceivedAt
	if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
		stopTime = parsed
	}

	if err := h.deps.Store.CloseTransaction(ctx, tx.ID, req.MeterStop, stopTime, status, reason); err != nil {
		return nil, err
	}

	// Trailing meter data rides along with the stop.
	for _, value := range req.TransactionData {
		sample, err := json.Marshal(value)
		if err != nil {
			continue
		}
		err = h.deps.Store.InsertTelemetry(ctx, store.Telemetry{
			TransactionID: &tx.ID,
			ChargePointID: tx.ChargePointID,
			ConnectorID:   tx.ConnectorID,
			Sample:        string(sample),
		})
		if err != nil {
			h.deps.Logger.Error("transaction data insert failed",
				"shortcode", msg.ChargePoint.Shortcode,
				"transactionId", tx.ID, "error", err)
		}
	}

	h.deps.Events.TransactionStopped(msg.ChargePoint.Shortcode, tx.ID,
		req.MeterStop, status, reason)

	// The idTag on a stop is informational; the session is already
	// closed, so the verdict is echoed back but never blocks the stop.
	resp := ocpp.StopTransactionResponse{}
	if req.IdTag != "" {
		info := idTagVerdict(ctx, h.deps, msg.ChargePoint,
			schema.NormalizeIdentifier(req.IdTag))
		resp.IdTagInfo = &info
	}
	return resp, nil
}
