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
	"strings"
	"unicode"

	"github.com/bcem/triage/internal/models"
)

var (
	positiveWords = map[string]bool{
		"thanks": true, "thank": true, "great": true, "good": true, "happy": true,
		"glad": true, "excellent": true, "appreciate": true, "love": true,
		"pleased": true, "wonderful": true, "congratulations": true, "awesome": true,
	}
	negativeWords = map[string]bool{
		"bad": true, "angry": true, "disappointed": true, "terrible": true,
		"awful": true, "unacceptable": true, "complaint": true, "problem": true,
		"issue": true, "broken": true, "frustrated": true, "refund": true,
		"failed": true, "wrong": true, "worst": true, "upset": true,
	}
)

// defaultReply is sent for meeting requests when no model drafts one.
const defaultReply = "Hi,\n\nThanks for reaching out. I've put a tentative slot on the calendar and will confirm the details shortly.\n\nBest regards."

// LexiconBackend is a deterministic, offline backend. It scores sentiment
// from word lists, summarises by taking lead sentences, and replies from a
// template.
type LexiconBackend struct{}

// NewLexiconBackend returns the offline backend.
func NewLexiconBackend() *LexiconBackend {
	return &LexiconBackend{}
}

func (*LexiconBackend) Name() string { return "lexicon" }

func (*LexiconBackend) Sentiment(_ context.Context, text string) (models.Sentiment, error) {
	var pos, neg float64
	for _, w := range words(text) {
		switch {
		case positiveWords[w]:
			pos++
		case negativeWords[w]:
			neg++
		}
	}
	if pos+neg == 0 {
		return models.NeutralSentiment(), nil
	}
	total := pos + neg + 0.5
	return models.SentimentFromScores(models.Distribution{
		Positive: pos / total,
		Negative: neg / total,
		Neutral:  0.5 / total,
	}), nil
}

func (*LexiconBackend) Summarize(_ context.Context, text string, maxWords int) (string, error) {
	var out []string
	for _, sentence := range sentences(text) {
		fields := strings.Fields(sentence)
		if len(out)+len(fields) > maxWords {
			if len(out) == 0 {
				out = fields[:maxWords]
			}
			break
		}
		out = append(out, fields...)
	}
	return strings.Join(out, " "), nil
}

func (*LexiconBackend) DraftReply(context.Context, string) (string, error) {
	return defaultReply, nil
}

// words lower-cases text and splits it on anything that is not a letter.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// sentences splits text after '.', '!' or '?'.
func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
