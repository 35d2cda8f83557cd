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

package decision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/bcem/triage/internal/models"
)

type stubSearcher struct {
	results []models.SearchResult
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func testMessage(body string) models.Message {
	return models.Message{
		MessageID: "msg-1",
		Sender:    "alice@example.com",
		Subject:   "Hello",
		Body:      body,
	}
}

func analysis(category string, urgency models.Urgency, label models.SentimentLabel) models.AnalysisResult {
	return models.AnalysisResult{
		Category:  category,
		Urgency:   urgency,
		Sentiment: models.Sentiment{Label: label},
		Summary:   "summary",
	}
}

func TestPlanFor_MeetingSchedulesRepliesAndNotifies(t *testing.T) {
	msg := testMessage("Hi, can we schedule a meeting tomorrow?")
	plan := PlanFor(msg, analysis(models.CategoryMeeting, models.UrgencyLow, models.SentimentNeutral), nil)

	be.True(t, plan.Calendar != nil)
	be.Equal(t, plan.Calendar.Title, "Hello")
	be.True(t, plan.Reply != nil)
	be.True(t, plan.Reply.Generate)
	be.Equal(t, plan.Reply.To, "alice@example.com")
	be.True(t, plan.Alert != nil)
	be.Equal(t, plan.Kinds(), []models.ActionKind{
		models.ActionCreateCalendarEvent,
		models.ActionSendReply,
		models.ActionNotifyChannel,
	})
}

// TestPlanFor_MeetingNegativeIsOrthogonal covers calendar and notification
// firing together.
func TestPlanFor_MeetingNegativeIsOrthogonal(t *testing.T) {
	plan := PlanFor(testMessage("meeting"), analysis(models.CategoryMeeting, models.UrgencyLow, models.SentimentNegative), nil)
	be.True(t, plan.Calendar != nil)
	be.True(t, plan.Alert != nil)
	be.Equal(t, plan.Alert.Sentiment, models.SentimentNegative)
}

func TestPlanFor_InformationWithResults(t *testing.T) {
	results := []models.SearchResult{{Title: "Go", Snippet: "A language", Link: "https://go.dev"}}
	plan := PlanFor(testMessage("more information please"), analysis(models.CategoryInformation, models.UrgencyLow, models.SentimentNeutral), results)

	be.True(t, plan.Reply != nil)
	be.True(t, !plan.Reply.Generate)
	be.True(t, strings.Contains(plan.Reply.Body, "- Go: A language (https://go.dev)"))
	be.True(t, plan.Calendar == nil)
	be.True(t, plan.Alert == nil)
}

func TestPlanFor_InformationWithoutResults(t *testing.T) {
	plan := PlanFor(testMessage("information"), analysis(models.CategoryInformation, models.UrgencyLow, models.SentimentNeutral), nil)
	be.True(t, plan.Empty())
}

func TestPlanFor_OtherCategoriesNeverReply(t *testing.T) {
	results := []models.SearchResult{{Title: "ignored"}}
	for _, c := range []string{models.CategoryFinance, models.CategoryJobs, models.CategorySecurity, models.CategoryGeneral} {
		plan := PlanFor(testMessage("x"), analysis(c, models.UrgencyMedium, models.SentimentPositive), results)
		if !plan.Empty() {
			t.Errorf("category %s: plan = %+v, want empty", c, plan)
		}
	}
}

func TestPlanFor_HighUrgencyNotifiesOnly(t *testing.T) {
	plan := PlanFor(testMessage("final notice"), analysis(models.CategoryFinance, models.UrgencyHigh, models.SentimentNeutral), nil)
	be.True(t, plan.Reply == nil)
	be.True(t, plan.Calendar == nil)
	be.True(t, plan.Alert != nil)
	be.Equal(t, plan.Alert.Urgency, models.UrgencyHigh)
}

func TestPlanFor_EmptyAnalysis(t *testing.T) {
	res := models.AnalysisResult{
		Sentiment: models.NeutralSentiment(),
		Category:  models.CategoryGeneral,
		Urgency:   models.UrgencyLow,
	}
	plan := PlanFor(testMessage(""), res, nil)
	be.True(t, plan.Empty())
	be.Equal(t, len(plan.Kinds()), 0)
}

func TestEngine_DecideSearchesOnlyForInformation(t *testing.T) {
	s := &stubSearcher{results: []models.SearchResult{{Title: "t", Snippet: "s", Link: "l"}}}
	e := NewEngine(s, time.Second, nil)

	plan := e.Decide(context.Background(), testMessage("what is your pricing? more information"),
		analysis(models.CategoryInformation, models.UrgencyLow, models.SentimentNeutral))
	be.True(t, plan.Reply != nil)
	be.Equal(t, s.queries, []string{"what is your pricing? more information"})

	e.Decide(context.Background(), testMessage("meeting"), analysis(models.CategoryMeeting, models.UrgencyLow, models.SentimentNeutral))
	be.Equal(t, len(s.queries), 1)
}

func TestEngine_SearchFailureMeansNoReply(t *testing.T) {
	e := NewEngine(&stubSearcher{err: errors.New("quota exceeded")}, time.Second, nil)
	plan := e.Decide(context.Background(), testMessage("information"),
		analysis(models.CategoryInformation, models.UrgencyLow, models.SentimentNeutral))
	be.True(t, plan.Reply == nil)
}

func TestEngine_NilSearcher(t *testing.T) {
	e := NewEngine(nil, time.Second, nil)
	plan := e.Decide(context.Background(), testMessage("information"),
		analysis(models.CategoryInformation, models.UrgencyLow, models.SentimentNeutral))
	be.True(t, plan.Empty())
}

func TestFormatDigest(t *testing.T) {
	got := FormatDigest([]models.SearchResult{
		{Title: "A", Snippet: "first", Link: "https://a"},
		{Title: "B", Snippet: "second", Link: "https://b"},
	})
	want := "Hello,\n\nThanks for your question. Here are some search results I found:\n" +
		"- A: first (https://a)\n" +
		"- B: second (https://b)\n" +
		"\nBest regards."
	be.Equal(t, got, want)
}

func TestSuggestAction_Precedence(t *testing.T) {
	tests := []struct {
		category string
		urgency  models.Urgency
		want     string
	}{
		{models.CategoryFinance, models.UrgencyHigh, "Respond immediately"},
		{models.CategoryJobs, models.UrgencyHigh, "Respond immediately"},
		{models.CategoryFinance, models.UrgencyMedium, "Review within 24 hours"},
		{models.CategoryJobs, models.UrgencyMedium, "Follow up if interested"},
		{models.CategoryGeneral, models.UrgencyMedium, "Address soon"},
		{models.CategoryMeeting, models.UrgencyLow, "Read when available"},
		{models.CategoryJobs, models.UrgencyLow, "Follow up if interested"},
	}
	for _, tt := range tests {
		be.Equal(t, SuggestAction(tt.category, tt.urgency), tt.want)
	}
}
