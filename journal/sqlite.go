package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(e OrderEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(id, time, instrument, name, side, quantity, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time, e.Instrument, e.Name, e.Side, e.Quantity, e.Status, e.Detail,
	)
	return err
}

func (j *SQLite) RecordEvent(e SessionEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO events (id, time, kind, detail)
		VALUES (?, ?, ?, ?)`,
		e.ID, e.Time, e.Kind, e.Detail,
	)
	return err
}

// ListOrders returns the journaled order events for an instrument in
// insertion order. An empty instrument lists everything.
func (j *SQLite) ListOrders(instrument string) ([]OrderEvent, error) {
	query := `SELECT id, time, instrument, name, side, quantity, status, detail FROM orders`
	args := []any{}
	if instrument != "" {
		query += ` WHERE instrument = ?`
		args = append(args, instrument)
	}
	query += ` ORDER BY id`

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderEvent
	for rows.Next() {
		var e OrderEvent
		if err := rows.Scan(&e.ID, &e.Time, &e.Instrument, &e.Name, &e.Side, &e.Quantity, &e.Status, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
