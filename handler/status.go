package handler

import (
	"context"
	"encoding/json"

	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/store"
)

// statusNotificationHandler records connector status transitions.
// Connector number 0 addresses the charge point as a whole and carries
// no connector row; the message then only counts as liveness, which the
// dispatcher has already recorded. The acknowledgement is always the
// empty object.
type statusNotificationHandler struct {
	deps Deps
}

func (h *statusNotificationHandler) Action() ocpp.Action { return ocpp.ActionStatusNotification }

func (h *statusNotificationHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	ack := struct{}{}

	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		h.deps.Logger.Warn("status notification rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return ack, nil
	}

	var req ocpp.StatusNotificationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.deps.Logger.Warn("status notification rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return ack, nil
	}

	if req.ConnectorID == 0 {
		return ack, nil
	}

	err := h.deps.Store.UpsertConnector(ctx, store.Connector{
		ChargePointID: msg.ChargePoint.ID,
		ConnectorID:   req.ConnectorID,
		Status:        string(req.Status),
		ErrorCode:     req.ErrorCode,
		Info:          req.Info,
	})
	if err != nil {
		h.deps.Logger.Error("connector upsert failed",
			"shortcode", msg.ChargePoint.Shortcode,
			"connectorId", req.ConnectorID, "error", err)
		return ack, nil
	}

	h.deps.Events.StatusChanged(msg.ChargePoint.Shortcode, req.ConnectorID,
		string(req.Status), req.ErrorCode)
	return ack, nil
}
