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

// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bcem/triage/internal/models"
	"github.com/bcem/triage/internal/store"
)

// Factory returns an empty store. The store is closed by the caller.
type Factory func(t *testing.T) store.Store

// Record builds a record with the given identity, urgency and date.
func Record(id string, urgency models.Urgency, date time.Time) models.StoredRecord {
	return models.StoredRecord{
		Message: models.Message{
			MessageID: id,
			ThreadID:  "thread-" + id,
			Sender:    "alice@example.com",
			Recipient: "me@example.com",
			Subject:   "Subject " + id,
			Body:      "Body " + id,
			Date:      date,
		},
		Analysis: models.AnalysisResult{
			Sentiment:       models.NeutralSentiment(),
			Category:        models.CategoryGeneral,
			Urgency:         urgency,
			Summary:         "Summary " + id,
			SuggestedAction: "Read when available",
		},
		ProcessedAt: date.Add(time.Minute),
	}
}

// Run exercises the store.Store contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("UpsertThenGet", func(t *testing.T) { testUpsertThenGet(t, newStore(t)) })
	t.Run("UpsertIsIdempotent", func(t *testing.T) { testUpsertIsIdempotent(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("ListByUrgency", func(t *testing.T) { testListByUrgency(t, newStore(t)) })
	t.Run("CountByCategory", func(t *testing.T) { testCountByCategory(t, newStore(t)) })
	t.Run("CloseTwice", func(t *testing.T) { testCloseTwice(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testUpsertThenGet(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	rec := Record("m1", models.UrgencyHigh, base)
	rec.Analysis.Sentiment = models.SentimentFromScores(models.Distribution{Positive: 0.1, Negative: 0.7, Neutral: 0.2})
	rec.Analysis.Category = models.CategoryMeeting
	rec.Outcome = models.ActionOutcome{
		Kinds:     []models.ActionKind{models.ActionCreateCalendarEvent, models.ActionNotifyChannel},
		EventLink: "https://calendar/evt",
		Notified:  true,
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Subject != rec.Subject || got.ThreadID != rec.ThreadID || got.Body != rec.Body {
		t.Errorf("message fields = %+v", got.Message)
	}
	if !got.Date.Equal(rec.Date) || !got.ProcessedAt.Equal(rec.ProcessedAt) {
		t.Errorf("times = %v / %v", got.Date, got.ProcessedAt)
	}
	if got.Analysis.Sentiment.Label != models.SentimentNegative {
		t.Errorf("sentiment = %q", got.Analysis.Sentiment.Label)
	}
	if got.Analysis.Sentiment.Scores == nil || got.Analysis.Sentiment.Scores.Negative != 0.7 {
		t.Errorf("scores = %+v", got.Analysis.Sentiment.Scores)
	}
	if got.Analysis.Urgency != models.UrgencyHigh || got.Analysis.Category != models.CategoryMeeting {
		t.Errorf("analysis = %+v", got.Analysis)
	}
	if got.Outcome.KindString() != "create_calendar_event+notify_channel" || !got.Outcome.Notified || got.Outcome.EventLink != "https://calendar/evt" {
		t.Errorf("outcome = %+v", got.Outcome)
	}
}

// testUpsertIsIdempotent verifies that writing the same ID twice leaves one
// record holding the last write.
func testUpsertIsIdempotent(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	first := Record("m1", models.UrgencyLow, base)
	first.Analysis.Sentiment = models.Sentiment{Label: models.SentimentPositive}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	second := Record("m1", models.UrgencyMedium, base)
	second.Analysis.Summary = "rewritten"
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	all, err := s.ListByUrgency(ctx, 0)
	if err != nil {
		t.Fatalf("ListByUrgency: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("records = %d, want 1", len(all))
	}
	if all[0].Analysis.Summary != "rewritten" || all[0].Analysis.Urgency != models.UrgencyMedium {
		t.Errorf("record not overwritten: %+v", all[0].Analysis)
	}
	if all[0].Analysis.Sentiment.Label != models.SentimentNeutral || all[0].Analysis.Sentiment.Scores == nil {
		t.Errorf("sentiment not overwritten: %+v", all[0].Analysis.Sentiment)
	}
}

func testGetMissing(t *testing.T, s store.Store) {
	defer s.Close()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// testListByUrgency verifies urgency DESC, date DESC ordering and the limit.
func testListByUrgency(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	for _, rec := range []models.StoredRecord{
		Record("low-new", models.UrgencyLow, base.Add(3*time.Hour)),
		Record("high-old", models.UrgencyHigh, base),
		Record("high-new", models.UrgencyHigh, base.Add(time.Hour)),
		Record("med", models.UrgencyMedium, base.Add(2*time.Hour)),
	} {
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %s: %v", rec.MessageID, err)
		}
	}

	all, err := s.ListByUrgency(ctx, 0)
	if err != nil {
		t.Fatalf("ListByUrgency: %v", err)
	}
	want := []string{"high-new", "high-old", "med", "low-new"}
	if got := ids(all); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	top, err := s.ListByUrgency(ctx, 2)
	if err != nil {
		t.Fatalf("ListByUrgency(2): %v", err)
	}
	if got := ids(top); fmt.Sprint(got) != fmt.Sprint(want[:2]) {
		t.Errorf("limited = %v, want %v", got, want[:2])
	}
}

func testCountByCategory(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	for i, category := range []string{models.CategoryMeeting, models.CategoryMeeting, models.CategoryFinance} {
		rec := Record(fmt.Sprintf("m%d", i), models.UrgencyLow, base)
		rec.Analysis.Category = category
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	counts, err := s.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("CountByCategory: %v", err)
	}
	if counts[models.CategoryMeeting] != 2 || counts[models.CategoryFinance] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func testCloseTwice(t *testing.T, s store.Store) {
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func ids(records []models.StoredRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.MessageID)
	}
	return out
}
