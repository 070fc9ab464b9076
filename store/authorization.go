package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"
)

// RfidTag is one physical identification token. Tags are auto-created on
// first sight so operators can grant access to tokens the system has
// already observed.
type RfidTag struct {
	ID           int64
	Tag          string
	FriendlyName string
	CreatedAt    time.Time
}

// ChargeAuthorization grants one RFID tag access to one charge point.
type ChargeAuthorization struct {
	ID            int64
	RfidTagID     int64
	ChargePointID int64
	Status        string
	ExpiryDate    *time.Time
	ParentIdTag   string
	CreatedAt     time.Time
}

// AuthorizationRecord is the denormalized view the handlers consume: the
// grant joined with its tag text.
type AuthorizationRecord struct {
	ChargeAuthorization
	Tag string
}

// FindOrCreateRfidTag returns the tag row for a token value, creating it
// on first sight.
func (s *Store) FindOrCreateRfidTag(ctx context.Context, tag string) (RfidTag, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rfid_tag (tag, created_at) VALUES (?, ?)
		 ON CONFLICT(tag) DO NOTHING`,
		tag, ts(now))
	if err != nil {
		return RfidTag{}, fmt.Errorf("create rfid tag: %w", err)
	}

	var (
		row          RfidTag
		createdAtRaw string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, tag, friendly_name, created_at FROM rfid_tag WHERE tag = ?`,
		tag,
	).Scan(&row.ID, &row.Tag, &row.FriendlyName, &createdAtRaw)
	if err != nil {
		return RfidTag{}, fmt.Errorf("find rfid tag: %w", err)
	}
	if row.CreatedAt, err = parseTS(createdAtRaw); err != nil {
		return RfidTag{}, fmt.Errorf("parse created_at: %w", err)
	}
	return row, nil
}

// InsertAuthorization grants a tag access to a charge point.
func (s *Store) InsertAuthorization(ctx context.Context, auth ChargeAuthorization) (ChargeAuthorization, error) {
	now := time.Now()
	if auth.Status == "" {
		auth.Status = "Accepted"
	}
	var expiry any
	if auth.ExpiryDate != nil {
		expiry = ts(*auth.ExpiryDate)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO charge_authorization
			(rfid_tag_id, charge_point_id, status, expiry_date, parent_id_tag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		auth.RfidTagID, auth.ChargePointID, auth.Status, expiry,
		auth.ParentIdTag, ts(now))
	if err != nil {
		return ChargeAuthorization{}, fmt.Errorf("insert authorization: %w", err)
	}
	auth.ID, err = res.LastInsertId()
	if err != nil {
		return ChargeAuthorization{}, fmt.Errorf("insert authorization: %w", err)
	}
	auth.CreatedAt = now.UTC().Truncate(time.Second)
	return auth, nil
}

// DeleteAuthorization revokes one grant.
func (s *Store) DeleteAuthorization(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM charge_authorization WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete authorization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete authorization: %w", err)
	}
	if affected == 0 {
		return notFound("authorization", fmt.Sprint(id))
	}
	return nil
}

const authorizationColumns = `a.id, a.rfid_tag_id, a.charge_point_id,
	a.status, a.expiry_date, a.parent_id_tag, a.created_at, t.tag`

func scanAuthorization(row interface{ Scan(...any) error }) (AuthorizationRecord, error) {
	var (
		rec          AuthorizationRecord
		expiry       sql.NullString
		createdAtRaw string
	)
	err := row.Scan(&rec.ID, &rec.RfidTagID, &rec.ChargePointID, &rec.Status,
		&expiry, &rec.ParentIdTag, &createdAtRaw, &rec.Tag)
	if err != nil {
		return AuthorizationRecord{}, err
	}
	if expiry.Valid {
		t, err := parseTS(expiry.String)
		if err != nil {
			return AuthorizationRecord{}, fmt.Errorf("parse expiry_date: %w", err)
		}
		rec.ExpiryDate = &t
	}
	if rec.CreatedAt, err = parseTS(createdAtRaw); err != nil {
		return AuthorizationRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}

// FindAuthorizationByTag returns the most recent grant for a tag on any
// charge point. The Authorize handler uses it to distinguish an unknown
// tag from one granted elsewhere.
func (s *Store) FindAuthorizationByTag(ctx context.Context, tag string) (AuthorizationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorizationColumns+`
		 FROM charge_authorization a
		 JOIN rfid_tag t ON t.id = a.rfid_tag_id
		 WHERE t.tag = ?
		 ORDER BY a.created_at DESC, a.id DESC LIMIT 1`,
		tag)
	rec, err := scanAuthorization(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return AuthorizationRecord{}, notFound("authorization", tag)
	}
	if err != nil {
		return AuthorizationRecord{}, fmt.Errorf("find authorization: %w", err)
	}
	return rec, nil
}

// FindValidAuthorization returns an unexpired Accepted grant for the tag
// scoped to one charge point. The tag row is created on first sight even
// when no grant exists yet.
func (s *Store) FindValidAuthorization(ctx context.Context, tag string, chargePointID int64) (AuthorizationRecord, error) {
	if _, err := s.FindOrCreateRfidTag(ctx, tag); err != nil {
		return AuthorizationRecord{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorizationColumns+`
		 FROM charge_authorization a
		 JOIN rfid_tag t ON t.id = a.rfid_tag_id
		 WHERE t.tag = ? AND a.charge_point_id = ? AND a.status = 'Accepted'
		   AND (a.expiry_date IS NULL OR a.expiry_date > ?)
		 ORDER BY a.created_at DESC, a.id DESC LIMIT 1`,
		tag, chargePointID, ts(time.Now()))
	rec, err := scanAuthorization(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return AuthorizationRecord{}, notFound("authorization", tag)
	}
	if err != nil {
		return AuthorizationRecord{}, fmt.Errorf("find valid authorization: %w", err)
	}
	return rec, nil
}

// ListAuthorizations returns every grant for one charge point, newest
// first.
func (s *Store) ListAuthorizations(ctx context.Context, chargePointID int64) ([]AuthorizationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+authorizationColumns+`
		 FROM charge_authorization a
		 JOIN rfid_tag t ON t.id = a.rfid_tag_id
		 WHERE a.charge_point_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`,
		chargePointID)
	if err != nil {
		return nil, fmt.Errorf("list authorizations: %w", err)
	}
	defer rows.Close()

	var result []AuthorizationRecord
	for rows.Next() {
		rec, err := scanAuthorization(rows)
		if err != nil {
			return nil, fmt.Errorf("list authorizations: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
