// Package sendlog persists broadcast history in Postgres. The log is
// optional; when no database is configured the service runs without it.
package sendlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/converze/newsletter/internal/broadcast"
)

const schema = `
CREATE TABLE IF NOT EXISTS broadcast_history (
    id            BIGSERIAL PRIMARY KEY,
    broadcast_id  TEXT NOT NULL,
    campaign_type TEXT NOT NULL,
    subject       TEXT NOT NULL,
    sent          INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    total         INTEGER NOT NULL,
    sent_at       TIMESTAMPTZ NOT NULL
)`

// Entry is one persisted broadcast record.
type Entry struct {
	ID           int64     `json:"id"`
	BroadcastID  string    `json:"broadcastId"`
	CampaignType string    `json:"campaignType"`
	Subject      string    `json:"subject"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	Total        int       `json:"total"`
	SentAt       time.Time `json:"sentAt"`
}

// Store reads and writes the broadcast history table.
type Store struct {
	db *sql.DB
}

// New opens the history database. The schema is created on first use.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection (used in tests).
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init verifies connectivity and creates the table if needed.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging history database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}
	return nil
}

// Record inserts one completed broadcast.
func (s *Store) Record(ctx context.Context, entry broadcast.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO broadcast_history (broadcast_id, campaign_type, subject, sent, failed, total, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.BroadcastID, entry.CampaignType, entry.Subject, entry.Sent, entry.Failed, entry.Total, entry.SentAt)
	if err != nil {
		return fmt.Errorf("inserting broadcast history: %w", err)
	}
	return nil
}

// List returns the most recent broadcasts, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, broadcast_id, campaign_type, subject, sent, failed, total, sent_at
		 FROM broadcast_history
		 ORDER BY sent_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying broadcast history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BroadcastID, &e.CampaignType, &e.Subject, &e.Sent, &e.Failed, &e.Total, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
