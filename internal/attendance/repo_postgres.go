package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accessx/internal/model"
)

// PostgresRepo persists attendance records in Postgres. The unique index on
// (session_id, wallet_address) is what makes Insert safe under concurrency.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo on the shared DB handle.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Insert writes a new record. A conflicting (session, wallet) pair inserts
// nothing and returns ErrDuplicate.
func (r *PostgresRepo) Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, session_id, wallet_address, email,
			token_id, tx_hash, signature, student_image, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (session_id, wallet_address) DO NOTHING
	`, rec.ID, rec.SessionID, rec.WalletAddress, rec.Email,
		rec.TokenID, rec.TxHash, rec.Signature, nullString(rec.StudentImage), rec.Timestamp)
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("insert attendance record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.AttendanceRecord{}, ErrDuplicate
	}
	return rec, nil
}

// FindBySessionAndWallet returns the record for the pair, or nil when absent.
func (r *PostgresRepo) FindBySessionAndWallet(ctx context.Context, sessionID, walletAddress string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, wallet_address, email, token_id, tx_hash, signature, student_image, timestamp
		FROM attendance_records
		WHERE session_id = $1 AND wallet_address = $2
	`, sessionID, walletAddress)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindByWalletAndEmail returns the wallet's records for an email, most recent first.
func (r *PostgresRepo) FindByWalletAndEmail(ctx context.Context, walletAddress, email string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, wallet_address, email, token_id, tx_hash, signature, student_image, timestamp
		FROM attendance_records
		WHERE wallet_address = $1 AND email = $2
		ORDER BY timestamp DESC
	`, walletAddress, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListBySession returns a session's records in arrival order.
func (r *PostgresRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, wallet_address, email, token_id, tx_hash, signature, student_image, timestamp
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Delete removes one record by id.
func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteBySession removes all records for a session. The schema-level cascade
// already covers session deletes; this exists for store impls without one.
func (r *PostgresRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE session_id = $1`, sessionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.AttendanceRecord, error) {
	var (
		rec   model.AttendanceRecord
		image sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.WalletAddress, &rec.Email,
		&rec.TokenID, &rec.TxHash, &rec.Signature, &image, &rec.Timestamp)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	rec.StudentImage = image.String
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]model.AttendanceRecord, error) {
	var res []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
