// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite stores triage records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bcem/triage/internal/models"
	"github.com/bcem/triage/internal/store"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "emails.db"

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a store.Store backed by SQLite.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the schema.
// Pass ":memory:" for an in-memory database (used by tests).
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure email schema: %w", err)
	}
	slog.Info("sqlite store initialised", "path", path)
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			message_id         TEXT PRIMARY KEY,
			thread_id          TEXT NOT NULL DEFAULT '',
			sender             TEXT NOT NULL,
			recipient          TEXT NOT NULL DEFAULT '',
			subject            TEXT NOT NULL,
			body               TEXT NOT NULL,
			date               TEXT NOT NULL,
			sentiment          TEXT NOT NULL,
			sentiment_positive REAL,
			sentiment_negative REAL,
			sentiment_neutral  REAL,
			category           TEXT NOT NULL,
			urgency            INTEGER NOT NULL,
			summary            TEXT NOT NULL,
			suggested_action   TEXT NOT NULL,
			actions            TEXT NOT NULL DEFAULT 'none',
			reply_text         TEXT NOT NULL DEFAULT '',
			event_link         TEXT NOT NULL DEFAULT '',
			notified           INTEGER NOT NULL DEFAULT 0,
			processed_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
		CREATE INDEX IF NOT EXISTS idx_emails_urgency ON emails(urgency);
		CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date);
	`)
	return err
}

// Upsert inserts or replaces the record keyed on message_id.
func (s *Store) Upsert(ctx context.Context, r models.StoredRecord) error {
	pos, neg, neu := store.NullableScores(r.Analysis.Sentiment.Scores)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (`+store.Columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id          = excluded.thread_id,
			sender             = excluded.sender,
			recipient          = excluded.recipient,
			subject            = excluded.subject,
			body               = excluded.body,
			date               = excluded.date,
			sentiment          = excluded.sentiment,
			sentiment_positive = excluded.sentiment_positive,
			sentiment_negative = excluded.sentiment_negative,
			sentiment_neutral  = excluded.sentiment_neutral,
			category           = excluded.category,
			urgency            = excluded.urgency,
			summary            = excluded.summary,
			suggested_action   = excluded.suggested_action,
			actions            = excluded.actions,
			reply_text         = excluded.reply_text,
			event_link         = excluded.event_link,
			notified           = excluded.notified,
			processed_at       = excluded.processed_at
	`,
		r.MessageID, r.ThreadID, r.Sender, r.Recipient, r.Subject, r.Body, formatTime(r.Date),
		string(r.Analysis.Sentiment.Label), pos, neg, neu,
		r.Analysis.Category, int(r.Analysis.Urgency), r.Analysis.Summary, r.Analysis.SuggestedAction,
		r.Outcome.KindString(), r.Outcome.ReplyText, r.Outcome.EventLink, r.Outcome.Notified,
		formatTime(r.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.MessageID, err)
	}
	return nil
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (*models.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+store.Columns+` FROM emails WHERE message_id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return r, nil
}

// ListByUrgency returns records ordered by urgency, then date, descending.
func (s *Store) ListByUrgency(ctx context.Context, limit int) ([]models.StoredRecord, error) {
	if limit <= 0 {
		limit = store.MaxListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+store.Columns+`
		FROM emails
		ORDER BY urgency DESC, date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var records []models.StoredRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// CountByCategory groups records by category.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM emails GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// Close closes the database once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		slog.Info("sqlite store closed")
	})
	return s.closeErr
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.StoredRecord, error) {
	var (
		r                  models.StoredRecord
		date, processedAt  string
		sentiment, actions string
		urgency            int
		pos, neg, neu      *float64
	)
	err := row.Scan(
		&r.MessageID, &r.ThreadID, &r.Sender, &r.Recipient, &r.Subject, &r.Body, &date,
		&sentiment, &pos, &neg, &neu,
		&r.Analysis.Category, &urgency, &r.Analysis.Summary, &r.Analysis.SuggestedAction,
		&actions, &r.Outcome.ReplyText, &r.Outcome.EventLink, &r.Outcome.Notified, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	if r.ProcessedAt, err = parseTime(processedAt); err != nil {
		return nil, fmt.Errorf("parse processed_at: %w", err)
	}
	r.Analysis.Sentiment = models.Sentiment{
		Label:  models.SentimentLabel(sentiment),
		Scores: store.ScoresFromNullable(pos, neg, neu),
	}
	r.Analysis.Urgency = models.Urgency(urgency)
	r.Outcome.Kinds = models.ParseKinds(actions)
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
