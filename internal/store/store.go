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

// Package store defines durable storage for triage records. Implementations
// live in the sqlite and postgres subpackages.
package store

import (
	"context"
	"errors"

	"github.com/bcem/triage/internal/models"
)

// ErrNotFound is returned by Get for an unknown message ID.
var ErrNotFound = errors.New("store: record not found")

// Store persists one record per message ID. Writing an existing ID replaces
// the previous record.
type Store interface {
	// Upsert writes rec atomically, replacing any record with the same
	// MessageID.
	Upsert(ctx context.Context, rec models.StoredRecord) error
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (*models.StoredRecord, error)
	// ListByUrgency returns up to limit records, most urgent first and then
	// newest first. A non-positive limit returns all records.
	ListByUrgency(ctx context.Context, limit int) ([]models.StoredRecord, error)
	// CountByCategory returns the number of records per category.
	CountByCategory(ctx context.Context) (map[string]int, error)
	// Close releases the connection. Calls after the first are no-ops.
	Close() error
}

// Columns lists the emails table columns in the order both implementations
// read and write them.
const Columns = `message_id, thread_id, sender, recipient, subject, body, date,
	sentiment, sentiment_positive, sentiment_negative, sentiment_neutral,
	category, urgency, summary, suggested_action,
	actions, reply_text, event_link, notified, processed_at`

// MaxListLimit stands in for "no limit" in ListByUrgency queries.
const MaxListLimit = 1<<31 - 1

// NullableScores splits an optional distribution into nullable columns.
func NullableScores(d *models.Distribution) (pos, neg, neu *float64) {
	if d == nil {
		return nil, nil, nil
	}
	return &d.Positive, &d.Negative, &d.Neutral
}

// ScoresFromNullable rebuilds the distribution; any NULL column yields nil.
func ScoresFromNullable(pos, neg, neu *float64) *models.Distribution {
	if pos == nil || neg == nil || neu == nil {
		return nil
	}
	return &models.Distribution{Positive: *pos, Negative: *neg, Neutral: *neu}
}
