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

// noTransaction is the transactionId reported when no session was
// opened. The field is mandatory on the wire, so a sentinel stands in.
const noTransaction int64 = -1

// startTransactionHandler opens charging sessions. Unlike Authorize it
// checks the grant scoped to the calling charge point: a tag that is
// valid somewhere else still gets Invalid here, and no session row is
// created for any non-accepted verdict. A request naming a connector
// the system has never seen is an error, not a degraded answer.
type startTransactionHandler struct {
	deps Deps
}

func (h *startTransactionHandler) Action() ocpp.Action { return ocpp.ActionStartTransaction }

func (h *startTransactionHandler) Handle(ctx context.Context, msg Context, payload json.RawMessage) (any, error) {
	if err := h.deps.Schemas.ValidateRequest(h.Action(), payload); err != nil {
		return nil, err
	}

	var req ocpp.StartTransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.WrapInvalid(err, "StartTransaction", "Handle", "decode request")
	}

	if _, err := h.deps.Store.FindConnector(ctx, msg.ChargePoint.ID, req.ConnectorID); err != nil {
		return nil, err
	}

	idTag := schema.NormalizeIdentifier(req.IdTag)
	_, err := h.deps.Store.FindValidAuthorization(ctx, idTag, msg.ChargePoint.ID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return ocpp.StartTransactionResponse{
				IdTagInfo:     ocpp.IdTagInfo{Status: ocpp.AuthorizationStatusInvalid},
				TransactionID: noTransaction,
			}, nil
		}
		return nil, err
	}

	startTime := msg.ReceivedAt
	if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
		startTime = parsed
	}

	tx, err := h.deps.Store.InsertTransaction(ctx, store.Transaction{
		ChargePointID: msg.ChargePoint.ID,
		ConnectorID:   req.ConnectorID,
		IdTag:         idTag,
		MeterStart:    req.MeterStart,
		StartTime:     startTime,
	})
	if err != nil {
		return nil, err
	}

	h.deps.Events.TransactionStarted(msg.ChargePoint.Shortcode, tx.ID,
		req.ConnectorID, idTag)

	return ocpp.StartTransactionResponse{
		IdTagInfo:     ocpp.IdTagInfo{Status: ocpp.AuthorizationStatusAccepted},
		TransactionID: tx.ID,
	}, nil
}
