package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS security_events (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	description TEXT,
	ip_address  TEXT,
	user_agent  TEXT,
	location    TEXT,
	device_type TEXT,
	success     INTEGER NOT NULL,
	timestamp   DATETIME NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_security_events_user_time
	ON security_events (user_id, timestamp DESC);
`

// SQLiteStore is the durable [Store] for single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the event database at path and
// applies the schema. SQLite works best with a single writer, so the pool
// is capped at one connection.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("events: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements [Store].
func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("events: encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	success := 0
	if event.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events
			(id, user_id, event_type, description, ip_address, user_agent,
			 location, device_type, success, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.UserID,
		string(event.Type),
		event.Description,
		event.IPAddress,
		event.UserAgent,
		event.Location,
		event.DeviceType,
		success,
		event.Timestamp.UTC(),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("events: insert: %w", err)
	}
	return nil
}

// ListByUser implements [Store].
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, description, ip_address, user_agent,
		       location, device_type, success, timestamp, metadata
		FROM security_events
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("events: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event                                           Event
			eventType                                       string
			description, ip, ua, location, device, metadata sql.NullString
			success                                         int
			ts                                              time.Time
		)
		if err := rows.Scan(
			&event.ID, &event.UserID, &eventType, &description, &ip, &ua,
			&location, &device, &success, &ts, &metadata,
		); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}

		event.Type = Type(eventType)
		event.Description = description.String
		event.IPAddress = ip.String
		event.UserAgent = ua.String
		event.Location = location.String
		event.DeviceType = device.String
		event.Success = success == 1
		event.Timestamp = ts
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
				return nil, fmt.Errorf("events: decode metadata: %w", err)
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// DeleteByUser implements [Store].
func (s *SQLiteStore) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM security_events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("events: delete: %w", err)
	}
	return nil
}

// Close implements [Store].
func (s *SQLiteStore) Close() error { return s.db.Close() }
