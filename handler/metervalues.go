package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/store"
)

// meterValuesHandler stores reported meter samples as raw telemetry.
// The named transactionId is resolved first; samples are associated
// only when it names a session that is still active, and stored
// unassociated otherwise. A connector the system has not seen yet is
// created on the fly. The acknowledgement is always the empty object;
// a storage failure loses samples, never the session.
type meterValuesHandler struct {
	deps Deps
}

func (h *meterValuesHandler) Action() ocpp.Action { return ocpp.ActionMeterValues }

func (h *meterValuesHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	ack := struct{}{}

	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		h.deps.Logger.Warn("meter values rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return ack, nil
	}

	var req ocpp.MeterValuesRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.deps.Logger.Warn("meter values rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return ack, nil
	}

	txID := req.TransactionID
	if txID != nil {
		tx, err := h.deps.Store.FindTransaction(ctx, *txID)
		if err != nil || tx.Status != store.TransactionActive {
			h.deps.Logger.Warn("meter values name no active transaction",
				"shortcode", msg.ChargePoint.Shortcode, "transactionId", *txID)
			txID = nil
		}
	}

	h.ensureConnector(ctx, msg, req.ConnectorID)

	stored := 0
	for _, value := range req.MeterValue {
		sample, err := json.Marshal(value)
		if err != nil {
			h.deps.Logger.Warn("meter sample marshal failed",
				"shortcode", msg.ChargePoint.Shortcode, "error", err)
			continue
		}
		err = h.deps.Store.InsertTelemetry(ctx, store.Telemetry{
			TransactionID: txID,
			ChargePointID: msg.ChargePoint.ID,
			ConnectorID:   req.ConnectorID,
			Sample:        string(sample),
		})
		if err != nil {
			h.deps.Logger.Error("telemetry insert failed",
				"shortcode", msg.ChargePoint.Shortcode, "error", err)
			continue
		}
		stored++
	}

	if stored > 0 {
		h.deps.Events.MeterSampled(msg.ChargePoint.Shortcode, req.ConnectorID, stored)
	}
	return ack, nil
}

// ensureConnector creates the connector row for a meter report naming a
// connector the system has not seen. An existing row is left untouched;
// status stays owned by StatusNotification.
func (h *meterValuesHandler) ensureConnector(ctx context.Context, msg Context, connectorID int) {
	if connectorID <= 0 {
		return
	}
	_, err := h.deps.Store.FindConnector(ctx, msg.ChargePoint.ID, connectorID)
	if err == nil {
		return
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		h.deps.Logger.Error("connector lookup failed",
			"shortcode", msg.ChargePoint.Shortcode, "connectorId", connectorID, "error", err)
		return
	}
	err = h.deps.Store.UpsertConnector(ctx, store.Connector{
		ChargePointID: msg.ChargePoint.ID,
		ConnectorID:   connectorID,
	})
	if err != nil {
		h.deps.Logger.Error("connector create failed",
			"shortcode", msg.ChargePoint.Shortcode, "connectorId", connectorID, "error", err)
	}
}
