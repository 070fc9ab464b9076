package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gitanogama/ocpp-manager/engine"
	"github.com/gitanogama/ocpp-manager/errors"
	"github.com/gitanogama/ocpp-manager/ocpp"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// Connectivity values reported on charger views.
const (
	connectivityOnline  = "Online"
	connectivityOffline = "Offline"
)

type chargerView struct {
	ID              int64      `json:"id"`
	Shortcode       string     `json:"shortcode"`
	FriendlyName    string     `json:"friendlyName"`
	Model           string     `json:"model,omitempty"`
	Vendor          string     `json:"vendor,omitempty"`
	FirmwareVersion string     `json:"firmwareVersion,omitempty"`
	Status          string     `json:"status"`
	Connectivity    string     `json:"connectivity"`
	LastHeartbeat   *time.Time `json:"lastHeartbeat,omitempty"`
}

func (s *Server) chargerView(cp store.ChargePoint) chargerView {
	connectivity := connectivityOffline
	if conn, ok := s.connections.Get(cp.Shortcode); ok && conn.ReadyState().Active() {
		connectivity = connectivityOnline
	}
	return chargerView{
		ID:              cp.ID,
		Shortcode:       cp.Shortcode,
		FriendlyName:    cp.FriendlyName,
		Model:           cp.Model,
		Vendor:          cp.Vendor,
		FirmwareVersion: cp.FirmwareVersion,
		Status:          cp.Status,
		Connectivity:    connectivity,
		LastHeartbeat:   cp.LastHeartbeat,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the protocol error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var remote *engine.RemoteError
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case stderrors.Is(err, errors.ErrNotConnected):
		status = http.StatusServiceUnavailable
	case stderrors.Is(err, errors.ErrTimeout):
		status = http.StatusGatewayTimeout
	case stderrors.As(err, &remote):
		status = http.StatusBadGateway
	case errors.IsInvalid(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.WrapInvalid(err, "Gateway", "decodeBody", "parse request body")
	}
	return nil
}

func (s *Server) findCharger(ctx context.Context, r *http.Request) (store.ChargePoint, error) {
	shortcode := schema.NormalizeIdentifier(r.PathValue("shortcode"))
	return s.store.FindChargePointByShortcode(ctx, shortcode)
}

func (s *Server) handleListChargers(w http.ResponseWriter, r *http.Request) {
	chargers, err := s.store.ListChargePoints(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]chargerView, 0, len(chargers))
	for _, cp := range chargers {
		views = append(views, s.chargerView(cp))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCharger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shortcode    string `json:"shortcode"`
		FriendlyName string `json:"friendlyName"`
		Status       string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	shortcode := schema.NormalizeIdentifier(req.Shortcode)
	if shortcode == "" {
		s.writeError(w, errors.WrapInvalid(errors.ErrInvalidRequest,
			"Gateway", "handleCreateCharger", "shortcode check"))
		return
	}
	cp, err := s.store.InsertChargePoint(r.Context(), store.ChargePoint{
		Shortcode:    shortcode,
		FriendlyName: req.FriendlyName,
		Status:       req.Status,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.chargerView(cp))
}

func (s *Server) handleGetCharger(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chargerView(cp))
}

func (s *Server) handleUpdateCharger(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		FriendlyName *string `json:"friendlyName"`
		Status       *string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.FriendlyName != nil {
		cp.FriendlyName = *req.FriendlyName
	}
	if req.Status != nil {
		cp.Status = *req.Status
	}
	if err := s.store.UpdateChargePoint(r.Context(), cp); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chargerView(cp))
}

func (s *Server) handleDeleteCharger(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if conn, ok := s.connections.Get(cp.Shortcode); ok {
		_ = conn.Close()
		s.connections.SweepInactive()
	}
	if err := s.store.DeleteChargePoint(r.Context(), cp.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	connectors, err := s.store.ListConnectors(r.Context(), cp.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectors)
}

func (s *Server) handleListChargerTransactions(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	transactions, err := s.store.ListTransactions(r.Context(), cp.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Type ocpp.ResetType `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Type != ocpp.ResetTypeHard && req.Type != ocpp.ResetTypeSoft {
		s.writeError(w, errors.WrapInvalid(errors.ErrInvalidRequest,
			"Gateway", "handleReset", "reset type check"))
		return
	}
	status, err := s.engine.Reset(r.Context(), cp.Shortcode, req.Type)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		ConnectorID int `json:"connectorId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.engine.UnlockConnector(r.Context(), cp.Shortcode, req.ConnectorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.engine.GetConfiguration(r.Context(), cp.Shortcode, r.URL.Query()["key"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangeConfiguration(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.engine.ChangeConfiguration(r.Context(), cp.Shortcode, req.Key, req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	records, err := s.store.ListAuthorizations(r.Context(), cp.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateAuthorization(w http.ResponseWriter, r *http.Request) {
	cp, err := s.findCharger(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		IdTag       string     `json:"idTag"`
		ExpiryDate  *time.Time `json:"expiryDate"`
		ParentIdTag string     `json:"parentIdTag"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	idTag := schema.NormalizeIdentifier(req.IdTag)
	if idTag == "" {
		s.writeError(w, errors.WrapInvalid(errors.ErrInvalidRequest,
			"Gateway", "handleCreateAuthorization", "idTag check"))
		return
	}
	tag, err := s.store.FindOrCreateRfidTag(r.Context(), idTag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	auth, err := s.store.InsertAuthorization(r.Context(), store.ChargeAuthorization{
		RfidTagID:     tag.ID,
		ChargePointID: cp.ID,
		ExpiryDate:    req.ExpiryDate,
		ParentIdTag:   req.ParentIdTag,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, auth)
}

func (s *Server) handleDeleteAuthorization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, errors.WrapInvalid(err,
			"Gateway", "handleDeleteAuthorization", "parse id"))
		return
	}
	if err := s.store.DeleteAuthorization(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.store.ListTransactions(r.Context(), 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, errors.WrapInvalid(err,
			"Gateway", "handleGetTransaction", "parse id"))
		return
	}
	tx, err := s.store.FindTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	telemetry, err := s.store.ListTelemetry(r.Context(), tx.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": tx,
		"telemetry":   telemetry,
	})
}

func (s *Server) handleRemoteStop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, errors.WrapInvalid(err,
			"Gateway", "handleRemoteStop", "parse id"))
		return
	}
	tx, err := s.store.FindTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cp, err := s.store.FindChargePointByID(r.Context(), tx.ChargePointID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.engine.RemoteStopTransaction(r.Context(), cp.Shortcode, tx.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"heartbeatInterval": settings.HeartbeatInterval,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HeartbeatInterval int `json:"heartbeatInterval"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.HeartbeatInterval <= 0 {
		s.writeError(w, errors.WrapInvalid(errors.ErrInvalidRequest,
			"Gateway", "handleUpdateSettings", "interval check"))
		return
	}
	if err := s.store.UpdateSettings(r.Context(), store.Settings{
		HeartbeatInterval: req.HeartbeatInterval,
	}); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"heartbeatInterval": req.HeartbeatInterval,
	})
}
