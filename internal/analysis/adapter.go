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
	"log/slog"
	"strings"
	"time"

	"github.com/bcem/triage/internal/decision"
	"github.com/bcem/triage/internal/guard"
	"github.com/bcem/triage/internal/models"
)

const (
	// DefaultMaxInputChars is the body cap applied before any backend call.
	DefaultMaxInputChars = 1000

	// DefaultMaxSummaryChars bounds the length of a returned summary.
	DefaultMaxSummaryChars = 600

	// DefaultTimeout bounds each backend call.
	DefaultTimeout = 30 * time.Second

	minSentimentChars = 5
	shortInputWords   = 15
	shortSummaryWords = 20
	fallbackWords     = 25
	modelSummaryWords = 80
)

// AdapterConfig holds the Adapter's dependencies and limits.
type AdapterConfig struct {
	Backend         Backend
	MaxInputChars   int
	MaxSummaryChars int
	Timeout         time.Duration
	Logger          *slog.Logger
}

// Adapter is the boundary around all text inference. It is safe to share
// between callers that do not analyse concurrently; backends are not assumed
// to be re-entrant.
type Adapter struct {
	backend    Backend
	maxInput   int
	maxSummary int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewAdapter creates an Adapter. Zero limits fall back to the defaults.
func NewAdapter(cfg AdapterConfig) *Adapter {
	a := &Adapter{
		backend:    cfg.Backend,
		maxInput:   cfg.MaxInputChars,
		maxSummary: cfg.MaxSummaryChars,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
	if a.backend == nil {
		a.backend = NewLexiconBackend()
	}
	if a.maxInput <= 0 {
		a.maxInput = DefaultMaxInputChars
	}
	if a.maxSummary <= 0 {
		a.maxSummary = DefaultMaxSummaryChars
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

type loggerKey struct{}

// WithLogger returns a context whose fallback warnings are written through
// logger, so they carry the caller's attributes such as message_id.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func (a *Adapter) log(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return a.logger
}

// MaxInputChars reports the configured input cap.
func (a *Adapter) MaxInputChars() int { return a.maxInput }

// Analyze runs all four analyses over body. Every failure has a default, so
// the only error returned is ctx's own when the caller has been cancelled.
func (a *Adapter) Analyze(ctx context.Context, body string) (models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}

	text := Truncate(body, a.maxInput)
	res := models.AnalysisResult{
		Sentiment: a.Sentiment(ctx, text),
		Category:  a.Category(text),
		Urgency:   a.Urgency(text),
		Summary:   a.Summary(ctx, text),
	}
	res.SuggestedAction = decision.SuggestAction(res.Category, res.Urgency)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Sentiment scores text, returning the neutral default for short input or
// any backend failure.
func (a *Adapter) Sentiment(ctx context.Context, text string) models.Sentiment {
	text = strings.TrimSpace(Truncate(text, a.maxInput))
	if len([]rune(text)) < minSentimentChars {
		return models.NeutralSentiment()
	}

	s, err := guard.Do(ctx, "sentiment", a.timeout, func(ctx context.Context) (models.Sentiment, error) {
		return a.backend.Sentiment(ctx, text)
	})
	if err != nil {
		a.log(ctx).Warn("sentiment analysis failed, using neutral default",
			"backend", a.backend.Name(),
			"error", err,
		)
		return models.NeutralSentiment()
	}

	switch {
	case s.Label != "":
		return s
	case s.Scores != nil:
		return models.SentimentFromScores(*s.Scores)
	default:
		return models.NeutralSentiment()
	}
}

// Summary condenses text. Short input is returned nearly verbatim; backend
// failures fall back to the first words of the input.
func (a *Adapter) Summary(ctx context.Context, text string) string {
	text = strings.TrimSpace(Truncate(text, a.maxInput))
	if text == "" {
		return ""
	}

	fields := strings.Fields(text)
	if len(fields) < shortInputWords {
		return leadingWords(fields, shortSummaryWords)
	}

	s, err := guard.Do(ctx, "summary", a.timeout, func(ctx context.Context) (string, error) {
		return a.backend.Summarize(ctx, text, modelSummaryWords)
	})
	s = strings.TrimSpace(s)
	if err != nil || s == "" {
		a.log(ctx).Warn("summarization failed, using leading words",
			"backend", a.backend.Name(),
			"error", err,
		)
		return a.naiveSummary(text, fields)
	}

	s = Truncate(withTerminalPunctuation(s), a.maxSummary)
	if len([]rune(s)) > len([]rune(text)) {
		return a.naiveSummary(text, fields)
	}
	return s
}

// Urgency classifies text with the ordered urgency rules.
func (a *Adapter) Urgency(text string) models.Urgency {
	return DetectUrgency(Truncate(text, a.maxInput))
}

// Category classifies text with the ordered category rules.
func (a *Adapter) Category(text string) string {
	return ClassifyCategory(Truncate(text, a.maxInput))
}

// DraftReply asks the backend for a reply, falling back to a fixed
// acknowledgement.
func (a *Adapter) DraftReply(ctx context.Context, body string) string {
	text := Truncate(body, a.maxInput)
	reply, err := guard.Do(ctx, "draft_reply", a.timeout, func(ctx context.Context) (string, error) {
		return a.backend.DraftReply(ctx, text)
	})
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		a.log(ctx).Warn("reply drafting failed, using template",
			"backend", a.backend.Name(),
			"error", err,
		)
		return defaultReply
	}
	return reply
}

func (a *Adapter) naiveSummary(text string, fields []string) string {
	s := leadingWords(fields, fallbackWords)
	if len([]rune(s)) > len([]rune(text)) {
		s = strings.Join(fields, " ")
	}
	return Truncate(s, a.maxSummary)
}

// leadingWords joins the first n words, marking elision with "...".
func leadingWords(fields []string, n int) string {
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ") + "..."
}

func withTerminalPunctuation(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "..."
}
