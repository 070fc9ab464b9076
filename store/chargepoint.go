package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"
)

// ChargePoint is one managed charging station, keyed by its shortcode.
type ChargePoint struct {
	ID              int64
	Shortcode       string
	FriendlyName    string
	Model           string
	Vendor          string
	FirmwareVersion string
	Status          string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Connector is one physical connector on a charge point. Connector
// number 0 means the charge point as a whole and is never stored here.
type Connector struct {
	ID            int64
	ChargePointID int64
	ConnectorID   int
	Status        string
	ErrorCode     string
	Info          string
	UpdatedAt     time.Time
}

const chargePointColumns = `id, shortcode, friendly_name, model, vendor,
	firmware_version, status, last_heartbeat, created_at, updated_at`

func scanChargePoint(row interface{ Scan(...any) error }) (ChargePoint, error) {
	var (
		cp                         ChargePoint
		lastHeartbeat              sql.NullString
		createdAtRaw, updatedAtRaw string
	)
	err := row.Scan(&cp.ID, &cp.Shortcode, &cp.FriendlyName, &cp.Model,
		&cp.Vendor, &cp.FirmwareVersion, &cp.Status, &lastHeartbeat,
		&createdAtRaw, &updatedAtRaw)
	if err != nil {
		return ChargePoint{}, err
	}
	if lastHeartbeat.Valid {
		t, err := parseTS(lastHeartbeat.String)
		if err != nil {
			return ChargePoint{}, fmt.Errorf("parse last_heartbeat: %w", err)
		}
		cp.LastHeartbeat = &t
	}
	if cp.CreatedAt, err = parseTS(createdAtRaw); err != nil {
		return ChargePoint{}, fmt.Errorf("parse created_at: %w", err)
	}
	if cp.UpdatedAt, err = parseTS(updatedAtRaw); err != nil {
		return ChargePoint{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return cp, nil
}

// FindChargePointByShortcode looks up a charge point by its shortcode.
func (s *Store) FindChargePointByShortcode(ctx context.Context, shortcode string) (ChargePoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chargePointColumns+` FROM charge_point WHERE shortcode = ?`,
		shortcode)
	cp, err := scanChargePoint(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return ChargePoint{}, notFound("charge point", shortcode)
	}
	if err != nil {
		return ChargePoint{}, fmt.Errorf("find charge point: %w", err)
	}
	return cp, nil
}

// FindChargePointByID looks up a charge point by primary key.
func (s *Store) FindChargePointByID(ctx context.Context, id int64) (ChargePoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chargePointColumns+` FROM charge_point WHERE id = ?`, id)
	cp, err := scanChargePoint(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return ChargePoint{}, notFound("charge point", fmt.Sprint(id))
	}
	if err != nil {
		return ChargePoint{}, fmt.Errorf("find charge point: %w", err)
	}
	return cp, nil
}

// ListChargePoints returns every charge point ordered by shortcode.
func (s *Store) ListChargePoints(ctx context.Context) ([]ChargePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chargePointColumns+` FROM charge_point ORDER BY shortcode`)
	if err != nil {
		return nil, fmt.Errorf("list charge points: %w", err)
	}
	defer rows.Close()

	var result []ChargePoint
	for rows.Next() {
		cp, err := scanChargePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("list charge points: %w", err)
		}
		result = append(result, cp)
	}
	return result, rows.Err()
}

// InsertChargePoint creates a new charge point row and returns it with
// its assigned id and timestamps.
func (s *Store) InsertChargePoint(ctx context.Context, cp ChargePoint) (ChargePoint, error) {
	now := time.Now()
	if cp.Status == "" {
		cp.Status = "Pending"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO charge_point
			(shortcode, friendly_name, model, vendor, firmware_version, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.Shortcode, cp.FriendlyName, cp.Model, cp.Vendor,
		cp.FirmwareVersion, cp.Status, ts(now), ts(now))
	if err != nil {
		return ChargePoint{}, fmt.Errorf("insert charge point: %w", err)
	}
	cp.ID, err = res.LastInsertId()
	if err != nil {
		return ChargePoint{}, fmt.Errorf("insert charge point: %w", err)
	}
	cp.CreatedAt = now.UTC().Truncate(time.Second)
	cp.UpdatedAt = cp.CreatedAt
	return cp, nil
}

// UpdateChargePoint persists mutable charge point fields.
func (s *Store) UpdateChargePoint(ctx context.Context, cp ChargePoint) error {
	var lastHeartbeat any
	if cp.LastHeartbeat != nil {
		lastHeartbeat = ts(*cp.LastHeartbeat)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE charge_point SET
			friendly_name = ?, model = ?, vendor = ?, firmware_version = ?,
			status = ?, last_heartbeat = ?, updated_at = ?
		 WHERE id = ?`,
		cp.FriendlyName, cp.Model, cp.Vendor, cp.FirmwareVersion,
		cp.Status, lastHeartbeat, ts(time.Now()), cp.ID)
	if err != nil {
		return fmt.Errorf("update charge point: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update charge point: %w", err)
	}
	if affected == 0 {
		return notFound("charge point", fmt.Sprint(cp.ID))
	}
	return nil
}

// TouchHeartbeat stamps the current time as the charge point's last
// heartbeat. Every inbound message counts as liveness, not just the
// Heartbeat action.
func (s *Store) TouchHeartbeat(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE charge_point SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		ts(at), ts(at), id)
	if err != nil {
		return fmt.Errorf("touch heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch heartbeat: %w", err)
	}
	if affected == 0 {
		return notFound("charge point", fmt.Sprint(id))
	}
	return nil
}

// DeleteChargePoint removes a charge point and, via cascade, its
// connectors, authorizations and transactions.
func (s *Store) DeleteChargePoint(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM charge_point WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete charge point: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete charge point: %w", err)
	}
	if affected == 0 {
		return notFound("charge point", fmt.Sprint(id))
	}
	return nil
}

// FindConnector looks up one connector of a charge point by its
// point-local connector number.
func (s *Store) FindConnector(ctx context.Context, chargePointID int64, connectorID int) (Connector, error) {
	var (
		conn         Connector
		updatedAtRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, charge_point_id, connector_id, status, error_code, info, updated_at
		 FROM connector WHERE charge_point_id = ? AND connector_id = ?`,
		chargePointID, connectorID,
	).Scan(&conn.ID, &conn.ChargePointID, &conn.ConnectorID, &conn.Status,
		&conn.ErrorCode, &conn.Info, &updatedAtRaw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Connector{}, notFound("connector", fmt.Sprintf("%d/%d", chargePointID, connectorID))
	}
	if err != nil {
		return Connector{}, fmt.Errorf("find connector: %w", err)
	}
	if conn.UpdatedAt, err = parseTS(updatedAtRaw); err != nil {
		return Connector{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return conn, nil
}

// UpsertConnector inserts or refreshes the status row for one connector.
func (s *Store) UpsertConnector(ctx context.Context, conn Connector) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connector (charge_point_id, connector_id, status, error_code, info, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(charge_point_id, connector_id) DO UPDATE SET
			status = excluded.status,
			error_code = excluded.error_code,
			info = excluded.info,
			updated_at = excluded.updated_at`,
		conn.ChargePointID, conn.ConnectorID, conn.Status, conn.ErrorCode,
		conn.Info, ts(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert connector: %w", err)
	}
	return nil
}

// ListConnectors returns every connector of a charge point ordered by
// connector number.
func (s *Store) ListConnectors(ctx context.Context, chargePointID int64) ([]Connector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, charge_point_id, connector_id, status, error_code, info, updated_at
		 FROM connector WHERE charge_point_id = ? ORDER BY connector_id`,
		chargePointID)
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	defer rows.Close()

	var result []Connector
	for rows.Next() {
		var (
			conn         Connector
			updatedAtRaw string
		)
		err := rows.Scan(&conn.ID, &conn.ChargePointID, &conn.ConnectorID,
			&conn.Status, &conn.ErrorCode, &conn.Info, &updatedAtRaw)
		if err != nil {
			return nil, fmt.Errorf("list connectors: %w", err)
		}
		if conn.UpdatedAt, err = parseTS(updatedAtRaw); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		result = append(result, conn)
	}
	return result, rows.Err()
}
