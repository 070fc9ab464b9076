package handler

import (
	"context"
	"encoding/json"

	"github.com/gitanogama/ocpp-manager/ocpp"
)

// heartbeatHandler answers the periodic liveness ping. The dispatcher
// already stamps last-seen for every inbound message, so the handler
// only has to report the current time. It never fails.
type heartbeatHandler struct {
	deps Deps
}

func (h *heartbeatHandler) Action() ocpp.Action { return ocpp.ActionHeartbeat }

func (h *heartbeatHandler) Handle(_ context.Context, msg Context, payload json.RawMessage) (any, error) {
	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		h.deps.Logger.Warn("heartbeat payload rejected, answering anyway",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
	}
	return ocpp.HeartbeatResponse{CurrentTime: wireTime(msg.ReceivedAt)}, nil
}
