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

package analysis

import (
	"context"
	"testing"

	"github.com/nalgeon/be"

	"github.com/bcem/triage/internal/models"
)

func TestLexicon_Sentiment(t *testing.T) {
	b := NewLexiconBackend()
	ctx := context.Background()

	s, _ := b.Sentiment(ctx, "Thanks, great work!")
	be.Equal(t, s.Label, models.SentimentPositive)

	s, _ = b.Sentiment(ctx, "This is unacceptable, the product arrived broken.")
	be.Equal(t, s.Label, models.SentimentNegative)

	s, _ = b.Sentiment(ctx, "The report is attached.")
	be.Equal(t, s.Label, models.SentimentNeutral)
}

func TestLexicon_SummarizeLeadSentences(t *testing.T) {
	b := NewLexiconBackend()
	got, err := b.Summarize(context.Background(), "One two three. Four five six. Seven eight.", 6)
	be.Err(t, err, nil)
	be.Equal(t, got, "One two three. Four five six.")

	got, _ = b.Summarize(context.Background(), "a b c d e f g h", 3)
	be.Equal(t, got, "a b c")
}

func TestSentences(t *testing.T) {
	be.Equal(t, sentences("Hi. How are you? Fine"), []string{"Hi.", "How are you?", "Fine"})
}
