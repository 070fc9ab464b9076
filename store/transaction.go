package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"
)

// Transaction lifecycle states.
const (
	TransactionActive    = "Active"
	TransactionCompleted = "Completed"
	TransactionFailed    = "Failed"
)

// Transaction is one charging session on a connector.
type Transaction struct {
	ID            int64
	ChargePointID int64
	ConnectorID   int
	IdTag         string
	MeterStart    int64
	MeterStop     *int64
	StartTime     time.Time
	StopTime      *time.Time
	Status        string
	Reason        string
}

// Telemetry is one stored meter sample, kept as the raw JSON the charge
// point reported.
type Telemetry struct {
	ID            int64
	TransactionID *int64
	ChargePointID int64
	ConnectorID   int
	Sample        string
	CreatedAt     time.Time
}

const transactionColumns = `id, charge_point_id, connector_id, id_tag,
	meter_start, meter_stop, start_time, stop_time, status, reason`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var (
		tx           Transaction
		meterStop    sql.NullInt64
		startTimeRaw string
		stopTime     sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.ChargePointID, &tx.ConnectorID, &tx.IdTag,
		&tx.MeterStart, &meterStop, &startTimeRaw, &stopTime, &tx.Status,
		&tx.Reason)
	if err != nil {
		return Transaction{}, err
	}
	if meterStop.Valid {
		v := meterStop.Int64
		tx.MeterStop = &v
	}
	if tx.StartTime, err = parseTS(startTimeRaw); err != nil {
		return Transaction{}, fmt.Errorf("parse start_time: %w", err)
	}
	if stopTime.Valid {
		t, err := parseTS(stopTime.String)
		if err != nil {
			return Transaction{}, fmt.Errorf("parse stop_time: %w", err)
		}
		tx.StopTime = &t
	}
	return tx, nil
}

// InsertTransaction opens a charging session and returns it with its
// assigned id, which doubles as the wire transactionId.
func (s *Store) InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.Status == "" {
		tx.Status = TransactionActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO charge_transaction
			(charge_point_id, connector_id, id_tag, meter_start, start_time, status, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ChargePointID, tx.ConnectorID, tx.IdTag, tx.MeterStart,
		ts(tx.StartTime), tx.Status, tx.Reason)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID, err = res.LastInsertId()
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// FindTransaction looks up a session by its id.
func (s *Store) FindTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM charge_transaction WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Transaction{}, notFound("transaction", fmt.Sprint(id))
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return tx, nil
}

// CloseTransaction records the end of a session: final meter reading,
// stop time, terminal status and the stop reason when one was reported.
// Only an Active session can be closed; a terminal row is never
// rewritten.
func (s *Store) CloseTransaction(ctx context.Context, id int64, meterStop int64, stopTime time.Time, status, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE charge_transaction
		 SET meter_stop = ?, stop_time = ?, status = ?, reason = ?
		 WHERE id = ? AND status = ?`,
		meterStop, ts(stopTime), status, reason, id, TransactionActive)
	if err != nil {
		return fmt.Errorf("close transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close transaction: %w", err)
	}
	if affected == 0 {
		return notFound("transaction", fmt.Sprint(id))
	}
	return nil
}

// StampTransactionReason records a stop reason ahead of the terminal
// StopTransaction, used when the operator remote-stops a session. Only
// an Active session can be stamped.
func (s *Store) StampTransactionReason(ctx context.Context, id int64, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE charge_transaction SET reason = ? WHERE id = ? AND status = ?`,
		reason, id, TransactionActive)
	if err != nil {
		return fmt.Errorf("stamp transaction reason: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stamp transaction reason: %w", err)
	}
	if affected == 0 {
		return notFound("transaction", fmt.Sprint(id))
	}
	return nil
}

// ListTransactions returns sessions newest first, optionally filtered to
// one charge point. chargePointID 0 means all.
func (s *Store) ListTransactions(ctx context.Context, chargePointID int64) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM charge_transaction`
	var args []any
	if chargePointID != 0 {
		query += ` WHERE charge_point_id = ?`
		args = append(args, chargePointID)
	}
	query += ` ORDER BY start_time DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// FindActiveTransaction returns the open session on one connector, if
// any.
func (s *Store) FindActiveTransaction(ctx context.Context, chargePointID int64, connectorID int) (Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM charge_transaction
		 WHERE charge_point_id = ? AND connector_id = ? AND status = ?
		 ORDER BY start_time DESC, id DESC LIMIT 1`,
		chargePointID, connectorID, TransactionActive)
	tx, err := scanTransaction(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Transaction{}, notFound("transaction",
			fmt.Sprintf("active on %d/%d", chargePointID, connectorID))
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("find active transaction: %w", err)
	}
	return tx, nil
}

// InsertTelemetry stores one raw meter sample. transactionID is nil for
// samples reported outside any session.
func (s *Store) InsertTelemetry(ctx context.Context, rec Telemetry) error {
	var txID any
	if rec.TransactionID != nil {
		txID = *rec.TransactionID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telemetry (transaction_id, charge_point_id, connector_id, sample, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		txID, rec.ChargePointID, rec.ConnectorID, rec.Sample, ts(time.Now()))
	if err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}
	return nil
}

// ListTelemetry returns stored samples oldest first, optionally
// filtered to one transaction. transactionID 0 means all samples,
// including those stored without a session association.
func (s *Store) ListTelemetry(ctx context.Context, transactionID int64) ([]Telemetry, error) {
	query := `SELECT id, transaction_id, charge_point_id, connector_id, sample, created_at
		 FROM telemetry`
	var args []any
	if transactionID != 0 {
		query += ` WHERE transaction_id = ?`
		args = append(args, transactionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer rows.Close()

	var result []Telemetry
	for rows.Next() {
		var (
			rec          Telemetry
			txID         sql.NullInt64
			createdAtRaw string
		)
		err := rows.Scan(&rec.ID, &txID, &rec.ChargePointID, &rec.ConnectorID,
			&rec.Sample, &createdAtRaw)
		if err != nil {
			return nil, fmt.Errorf("list telemetry: %w", err)
		}
		if txID.Valid {
			v := txID.Int64
			rec.TransactionID = &v
		}
		if rec.CreatedAt, err = parseTS(createdAtRaw); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
