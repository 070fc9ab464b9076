package handler

import (
	"context"
	"encoding/json"

	"github.com/gitanogama/ocpp-manager/ocpp"
)

const defaultHeartbeatInterval = 300

// bootNotificationHandler records the device identity a charge point
// reports after (re)boot. It fails open: any internal failure still
// produces a well-formed response, with status Rejected, so the device
// retries its boot later instead of hanging on a CallError.
type bootNotificationHandler struct {
	deps Deps
}

func (h *bootNotificationHandler) Action() ocpp.Action { return ocpp.ActionBootNotification }

func (h *bootNotificationHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	rejected := ocpp.BootNotificationResponse{
		CurrentTime: wireTime(msg.ReceivedAt),
		Interval:    defaultHeartbeatInterval,
		Status:      ocpp.RegistrationStatusRejected,
	}

	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		h.deps.Logger.Warn("boot notification rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return rejected, nil
	}

	var req ocpp.BootNotificationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.deps.Logger.Warn("boot notification rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return rejected, nil
	}

	cp := msg.ChargePoint
	cp.Vendor = req.ChargePointVendor
	cp.Model = req.ChargePointModel
	cp.FirmwareVersion = req.FirmwareVersion
	if err := h.deps.Store.UpdateChargePoint(ctx, cp); err != nil {
		h.deps.Logger.Error("boot notification update failed",
			"shortcode", cp.Shortcode, "error", err)
		return rejected, nil
	}

	interval := defaultHeartbeatInterval
	if settings, err := h.deps.Store.GetSettings(ctx); err == nil {
		interval = settings.HeartbeatInterval
	} else {
		h.deps.Logger.Warn("settings lookup failed, using default interval",
			"error", err)
	}

	status := registrationStatus(cp.Status)
	h.deps.Events.Booted(cp.Shortcode, cp.Vendor, cp.Model, string(status))

	return ocpp.BootNotificationResponse{
		CurrentTime: wireTime(msg.ReceivedAt),
		Interval:    interval,
		Status:      status,
	}, nil
}

// registrationStatus maps the stored charge point status onto the wire
// enum. Operator-accepted devices get Accepted; everything else stays
// Pending until an operator decides.
func registrationStatus(stored string) ocpp.RegistrationStatus {
	switch ocpp.RegistrationStatus(stored) {
	case ocpp.RegistrationStatusAccepted:
		return ocpp.RegistrationStatusAccepted
	case ocpp.RegistrationStatusRejected:
		return ocpp.RegistrationStatusRejected
	default:
		return ocpp.RegistrationStatusPending
	}
}
