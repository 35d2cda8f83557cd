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

// Package decision maps an analysis result to the set of automated actions
// to take for a message.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bcem/triage/internal/guard"
	"github.com/bcem/triage/internal/models"
)

// Searcher is the web-search collaborator consulted for information requests.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// ReplyRequest describes a reply to send. When Generate is set the body is
// drafted at execution time; otherwise Body is sent as is.
type ReplyRequest struct {
	To       string
	Subject  string
	Body     string
	Generate bool
}

// CalendarRequest describes the placeholder event to create.
type CalendarRequest struct {
	Title       string
	Description string
}

// Plan is the set of actions chosen for one message. Nil fields are not
// executed.
type Plan struct {
	Reply    *ReplyRequest
	Calendar *CalendarRequest
	Alert    *models.Alert
}

// Kinds lists the planned actions in a stable order.
func (p Plan) Kinds() []models.ActionKind {
	var kinds []models.ActionKind
	if p.Calendar != nil {
		kinds = append(kinds, models.ActionCreateCalendarEvent)
	}
	if p.Reply != nil {
		kinds = append(kinds, models.ActionSendReply)
	}
	if p.Alert != nil {
		kinds = append(kinds, models.ActionNotifyChannel)
	}
	return kinds
}

// Empty reports whether nothing is planned.
func (p Plan) Empty() bool {
	return p.Reply == nil && p.Calendar == nil && p.Alert == nil
}

// Engine decides actions. Its only side effect is the web search issued for
// information requests.
type Engine struct {
	searcher Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil searcher disables search replies.
func NewEngine(searcher Searcher, timeout time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{searcher: searcher, timeout: timeout, logger: logger}
}

// Decide chooses the actions for msg given its analysis.
func (e *Engine) Decide(ctx context.Context, msg models.Message, res models.AnalysisResult) Plan {
	var results []models.SearchResult
	if res.Category == models.CategoryInformation {
		results = e.search(ctx, msg)
	}
	return PlanFor(msg, res, results)
}

func (e *Engine) search(ctx context.Context, msg models.Message) []models.SearchResult {
	if e.searcher == nil {
		return nil
	}
	results, err := guard.Do(ctx, "web_search", e.timeout, func(ctx context.Context) ([]models.SearchResult, error) {
		return e.searcher.Search(ctx, msg.Body)
	})
	if err != nil {
		e.logger.Warn("web search failed, skipping reply",
			"message_id", msg.MessageID,
			"error", err,
		)
		return nil
	}
	return results
}

// PlanFor is the pure decision policy. results are the search hits for an
// information request and are ignored for every other category.
func PlanFor(msg models.Message, res models.AnalysisResult, results []models.SearchResult) Plan {
	var plan Plan

	switch res.Category {
	case models.CategoryMeeting:
		plan.Calendar = &CalendarRequest{Title: msg.Subject, Description: msg.Body}
		plan.Reply = &ReplyRequest{To: msg.Sender, Subject: msg.Subject, Generate: true}
	case models.CategoryInformation:
		if len(results) > 0 {
			plan.Reply = &ReplyRequest{To: msg.Sender, Subject: msg.Subject, Body: FormatDigest(results)}
		}
	}

	if ShouldNotify(res) {
		plan.Alert = &models.Alert{
			Sender:    msg.Sender,
			Subject:   msg.Subject,
			Urgency:   res.Urgency,
			Sentiment: res.Sentiment.Label,
			Summary:   res.Summary,
		}
	}
	return plan
}

// ShouldNotify is the notification side-decision, independent of replies.
func ShouldNotify(res models.AnalysisResult) bool {
	return res.Urgency == models.UrgencyHigh ||
		res.Sentiment.IsNegative() ||
		res.Category == models.CategoryMeeting
}

// FormatDigest renders search results as a reply body.
func FormatDigest(results []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("Hello,\n\nThanks for your question. Here are some search results I found:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Title, r.Snippet, r.Link)
	}
	b.WriteString("\nBest regards.")
	return b.String()
}
