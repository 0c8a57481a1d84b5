package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a recorded camera session.
type Session struct {
	ID             string     `json:"id"`
	Device         int        `json:"device"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	StartedAt      time.Time  `json:"started_at"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	Frames         int64      `json:"frames"`
	DetectorErrors int64      `json:"detector_errors"`
	EndReason      string     `json:"end_reason,omitempty"`
}

// SessionRepository provides operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new, running session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, device, width, height, started_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Device, sess.Width, sess.Height, sess.StartedAt,
	)
	return err
}

// Finish records the end of a session.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, frames, detectorErrors int64, reason string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ?, frames = ?, detector_errors = ?, end_reason = ?
		 WHERE id = ?`,
		stoppedAt, frames, detectorErrors, reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, device, width, height, started_at, stopped_at, frames, detector_errors, end_reason
		 FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions, newest first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, device, width, height, started_at, stopped_at, frames, detector_errors, end_reason
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its power events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*Session, error) {
	sess := &Session{}
	var stopped sql.NullTime
	err := s.Scan(&sess.ID, &sess.Device, &sess.Width, &sess.Height, &sess.StartedAt,
		&stopped, &sess.Frames, &sess.DetectorErrors, &sess.EndReason)
	if err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		sess.StoppedAt = &t
	}
	return sess, nil
}
