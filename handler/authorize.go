package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// authorizeHandler answers pre-charge authorization checks. It fails
// open to Invalid: a device is never left waiting on a CallError for a
// question that has a safe negative answer.
//
// Verdict order: unknown tag is Invalid, an expired grant is Expired, a
// grant scoped to a different charge point is Blocked, anything else
// reports the stored grant status.
type authorizeHandler struct {
	deps Deps
}

func (h *authorizeHandler) Action() ocpp.Action { return ocpp.ActionAuthorize }

func (h *authorizeHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	invalid := ocpp.AuthorizeResponse{
		IdTagInfo: ocpp.IdTagInfo{Status: ocpp.AuthorizationStatusInvalid},
	}

	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		h.deps.Logger.Warn("authorize request rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return invalid, nil
	}

	var req ocpp.AuthorizeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.deps.Logger.Warn("authorize request rejected",
			"shortcode", msg.ChargePoint.Shortcode, "error", err)
		return invalid, nil
	}

	info := idTagVerdict(ctx, h.deps, msg.ChargePoint,
		schema.NormalizeIdentifier(req.IdTag))
	return ocpp.AuthorizeResponse{IdTagInfo: info}, nil
}

// idTagVerdict resolves the authorization verdict for an identifier
// token from the perspective of one charge point. The token must
// already be normalized. Lookup failures degrade to Invalid.
func idTagVerdict(ctx context.Context, deps Deps, cp store.ChargePoint, idTag string) ocpp.IdTagInfo {
	rec, err := deps.Store.FindAuthorizationByTag(ctx, idTag)
	if err != nil {
		if !stderrors.Is(err, errors.ErrNotFound) {
			deps.Logger.Error("authorization lookup failed",
				"shortcode", cp.Shortcode, "error", err)
		}
		return ocpp.IdTagInfo{Status: ocpp.AuthorizationStatusInvalid}
	}

	info := ocpp.IdTagInfo{
		Status:      ocpp.AuthorizationStatus(rec.Status),
		ParentIdTag: rec.ParentIdTag,
	}
	if rec.ExpiryDate != nil {
		info.ExpiryDate = wireTime(*rec.ExpiryDate)
	}

	switch {
	case rec.ExpiryDate != nil && rec.ExpiryDate.Before(time.Now()):
		info.Status = ocpp.AuthorizationStatusExpired
	case rec.ChargePointID != cp.ID:
		info.Status = ocpp.AuthorizationStatusBlocked
	}
	return info
}
