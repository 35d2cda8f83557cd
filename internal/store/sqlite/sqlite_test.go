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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcem/triage/internal/models"
	"github.com/bcem/triage/internal/store"
	"github.com/bcem/triage/internal/store/storetest"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, openMemory)
}

// TestReopenKeepsRecords verifies records survive closing and reopening a
// database file, and that reopening does not recreate the schema.
func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "emails.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := storetest.Record("m1", models.UrgencyMedium, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Analysis.Urgency != models.UrgencyMedium {
		t.Errorf("urgency = %v", got.Analysis.Urgency)
	}
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	a := formatTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	b := formatTime(time.Date(2024, 5, 1, 10, 0, 0, 500_000_000, time.UTC))
	if !(a < b) {
		t.Errorf("%q should sort before %q", a, b)
	}
}

func TestNullScores(t *testing.T) {
	s := openMemory(t)
	defer s.Close()
	ctx := context.Background()

	rec := storetest.Record("m1", models.UrgencyLow, time.Now().UTC().Truncate(time.Second))
	rec.Analysis.Sentiment = models.Sentiment{Label: models.SentimentPositive}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Analysis.Sentiment.Scores != nil {
		t.Errorf("scores = %+v, want nil", got.Analysis.Sentiment.Scores)
	}
}
