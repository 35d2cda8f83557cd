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

// Package postgres stores triage records in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/triage/internal/models"
	"github.com/bcem/triage/internal/store"
)

// Store is a store.Store backed by a Postgres pool.
type Store struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and ensures the schema. The Store owns the pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStore creates an email store backed by the given Postgres pool.
// It ensures the emails table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure email schema: %w", err)
	}
	slog.Info("postgres store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS emails (
			message_id         TEXT PRIMARY KEY,
			thread_id          TEXT NOT NULL DEFAULT '',
			sender             TEXT NOT NULL,
			recipient          TEXT NOT NULL DEFAULT '',
			subject            TEXT NOT NULL,
			body               TEXT NOT NULL,
			date               TIMESTAMPTZ NOT NULL,
			sentiment          TEXT NOT NULL,
			sentiment_positive DOUBLE PRECISION,
			sentiment_negative DOUBLE PRECISION,
			sentiment_neutral  DOUBLE PRECISION,
			category           TEXT NOT NULL,
			urgency            SMALLINT NOT NULL,
			summary            TEXT NOT NULL,
			suggested_action   TEXT NOT NULL,
			actions            TEXT NOT NULL DEFAULT 'none',
			reply_text         TEXT NOT NULL DEFAULT '',
			event_link         TEXT NOT NULL DEFAULT '',
			notified           BOOLEAN NOT NULL DEFAULT FALSE,
			processed_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
		CREATE INDEX IF NOT EXISTS idx_emails_urgency ON emails(urgency);
		CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date);
	`)
	return err
}

// Upsert inserts or updates the record keyed on message_id.
func (s *Store) Upsert(ctx context.Context, r models.StoredRecord) error {
	pos, neg, neu := store.NullableScores(r.Analysis.Sentiment.Scores)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO emails (`+store.Columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (message_id) DO UPDATE SET
			thread_id          = EXCLUDED.thread_id,
			sender             = EXCLUDED.sender,
			recipient          = EXCLUDED.recipient,
			subject            = EXCLUDED.subject,
			body               = EXCLUDED.body,
			date               = EXCLUDED.date,
			sentiment          = EXCLUDED.sentiment,
			sentiment_positive = EXCLUDED.sentiment_positive,
			sentiment_negative = EXCLUDED.sentiment_negative,
			sentiment_neutral  = EXCLUDED.sentiment_neutral,
			category           = EXCLUDED.category,
			urgency            = EXCLUDED.urgency,
			summary            = EXCLUDED.summary,
			suggested_action   = EXCLUDED.suggested_action,
			actions            = EXCLUDED.actions,
			reply_text         = EXCLUDED.reply_text,
			event_link         = EXCLUDED.event_link,
			notified           = EXCLUDED.notified,
			processed_at       = EXCLUDED.processed_at
	`,
		r.MessageID, r.ThreadID, r.Sender, r.Recipient, r.Subject, r.Body, r.Date,
		string(r.Analysis.Sentiment.Label), pos, neg, neu,
		r.Analysis.Category, int16(r.Analysis.Urgency), r.Analysis.Summary, r.Analysis.SuggestedAction,
		r.Outcome.KindString(), r.Outcome.ReplyText, r.Outcome.EventLink, r.Outcome.Notified,
		r.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.MessageID, err)
	}
	return nil
}

// Get retrieves a single record by message ID.
func (s *Store) Get(ctx context.Context, id string) (*models.StoredRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+store.Columns+` FROM emails WHERE message_id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	rows, err := s.pool.Query(ctx, `
		SELECT `+store.Columns+`
		FROM emails
		ORDER BY urgency DESC, date DESC
		LIMIT $1
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
	rows, err := s.pool.Query(ctx, `SELECT category, COUNT(*) FROM emails GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = int(n)
	}
	return counts, rows.Err()
}

// Close closes the pool once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.pool.Close()
		slog.Info("postgres store closed")
	})
	return nil
}

// scanRecord scans a single row into a StoredRecord.
func scanRecord(row pgx.Row) (*models.StoredRecord, error) {
	var (
		r                  models.StoredRecord
		sentiment, actions string
		urgency            int16
		pos, neg, neu      *float64
	)
	err := row.Scan(
		&r.MessageID, &r.ThreadID, &r.Sender, &r.Recipient, &r.Subject, &r.Body, &r.Date,
		&sentiment, &pos, &neg, &neu,
		&r.Analysis.Category, &urgency, &r.Analysis.Summary, &r.Analysis.SuggestedAction,
		&actions, &r.Outcome.ReplyText, &r.Outcome.EventLink, &r.Outcome.Notified, &r.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Analysis.Sentiment = models.Sentiment{
		Label:  models.SentimentLabel(sentiment),
		Scores: store.ScoresFromNullable(pos, neg, neu),
	}
	r.Analysis.Urgency = models.Urgency(urgency)
	r.Outcome.Kinds = models.ParseKinds(actions)
	return &r, nil
}
