package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ColorEvent records one debounced color change.
type ColorEvent struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Previous   string    `json:"previous"`
	Color      string    `json:"color"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventRepository provides operations on color events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the color event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Add stores e and bumps its session's trigger count.
func (r *EventRepository) Add(e *ColorEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE sessions SET triggers = triggers + 1 WHERE id = ?`, e.SessionID)
	if err != nil {
		return err
	}
	if err := expectOne(result); err != nil {
		return fmt.Errorf("session %s: %w", e.SessionID, err)
	}

	result, err = tx.Exec(
		`INSERT INTO color_events (session_id, previous, color, x, y, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Previous, e.Color, e.X, e.Y, e.OccurredAt,
	)
	if err != nil {
		return err
	}
	if e.ID, err = result.LastInsertId(); err != nil {
		return err
	}

	return tx.Commit()
}

// ListBySession returns a session's events in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*ColorEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, previous, color, x, y, occurred_at
		 FROM color_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*ColorEvent{}
	for rows.Next() {
		e := &ColorEvent{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Previous, &e.Color, &e.X, &e.Y, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
