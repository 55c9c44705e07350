package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accessx/internal/model"
)

// PostgresRepo persists sessions in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo on the shared DB handle.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Create inserts the session.
func (r *PostgresRepo) Create(ctx context.Context, s model.Session) (model.Session, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, nonce, title, date, start_time, end_time,
			instructor_wallet, instructor_latitude, instructor_longitude, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.SessionID, s.Nonce, s.Title, s.Date,
		nullString(s.StartTime), nullString(s.EndTime), nullString(s.InstructorWallet),
		s.InstructorLatitude, s.InstructorLongitude, s.CreatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// GetByID returns the session or ErrNotFound.
func (r *PostgresRepo) GetByID(ctx context.Context, sessionID string) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, nonce, title, date, start_time, end_time,
			instructor_wallet, instructor_latitude, instructor_longitude, created_at
		FROM sessions WHERE session_id = $1
	`, sessionID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	return s, nil
}

// List returns sessions newest first, optionally scoped to an instructor wallet.
func (r *PostgresRepo) List(ctx context.Context, instructorWallet string) ([]model.Session, error) {
	query := `
		SELECT session_id, nonce, title, date, start_time, end_time,
			instructor_wallet, instructor_latitude, instructor_longitude, created_at
		FROM sessions`
	args := []any{}
	if instructorWallet != "" {
		query += ` WHERE instructor_wallet = $1`
		args = append(args, instructorWallet)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Delete removes the session; attendance records cascade at the schema level.
func (r *PostgresRepo) Delete(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		s                          model.Session
		startTime, endTime, wallet sql.NullString
	)
	err := row.Scan(&s.SessionID, &s.Nonce, &s.Title, &s.Date, &startTime, &endTime,
		&wallet, &s.InstructorLatitude, &s.InstructorLongitude, &s.CreatedAt)
	if err != nil {
		return model.Session{}, err
	}
	s.StartTime = startTime.String
	s.EndTime = endTime.String
	s.InstructorWallet = wallet.String
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
