package store

import (
	"database/sql"
	"time"
)

// PowerEvent records a bulb power transition.
type PowerEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Power     string    `json:"power"`
	HandState string    `json:"hand_state"`
	Fingers   int       `json:"fingers"`
	CreatedAt time.Time `json:"created_at"`
}

// PowerEventRepository provides operations for power events.
type PowerEventRepository struct {
	db *sql.DB
}

// PowerEvents returns the power event repository for this store.
func (s *Store) PowerEvents() *PowerEventRepository {
	return &PowerEventRepository{db: s.db}
}

// Record inserts an event and sets its ID.
func (r *PowerEventRepository) Record(e *PowerEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO power_events (session_id, power, hand_state, fingers, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.Power, e.HandState, e.Fingers, e.CreatedAt,
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's events in order.
func (r *PowerEventRepository) ListBySession(sessionID string) ([]*PowerEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, power, hand_state, fingers, created_at
		 FROM power_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*PowerEvent
	for rows.Next() {
		e := &PowerEvent{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Power, &e.HandState, &e.Fingers, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
