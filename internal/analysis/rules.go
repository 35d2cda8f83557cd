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
	"strings"

	"github.com/bcem/triage/internal/models"
)

// Rule pairs a label with the phrases that select it. Rules are evaluated
// in slice order and the first rule with any matching phrase wins.
type Rule[L any] struct {
	Label   L
	Phrases []string
}

// matches reports whether lower (already lower-cased) contains any phrase.
func (r Rule[L]) matches(lower string) bool {
	for _, p := range r.Phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// firstMatch returns the label of the first matching rule, or fallback.
func firstMatch[L any](rules []Rule[L], text string, fallback L) L {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lower) {
			return r.Label
		}
	}
	return fallback
}

// UrgencyRules checks urgent phrases before important ones. Matching is
// plain substring containment, so "deadline" inside unrelated text still
// yields High.
var UrgencyRules = []Rule[models.Urgency]{
	{
		Label: models.UrgencyHigh,
		Phrases: []string{
			"last call", "disappear at", "closing today", "deadline",
			"act now", "limited time", "final notice", "urgent", "asap",
			"immediately",
		},
	},
	{
		Label: models.UrgencyMedium,
		Phrases: []string{
			"important", "update", "alert", "verify", "action required",
			"respond", "attention", "priority",
		},
	},
}

// CategoryRules is the declared category order. Ties between categories
// resolve to whichever appears first here.
var CategoryRules = []Rule[string]{
	{Label: models.CategoryMeeting, Phrases: []string{"meeting", "schedule", "calendar", "availability", "appointment"}},
	{Label: models.CategoryInformation, Phrases: []string{"information", "question", "inquiry", "enquiry", "learn more", "details"}},
	{Label: models.CategoryFinance, Phrases: []string{"upi", "transaction", "bank", "hdfc", "payment", "account", "billing", "invoice"}},
	{Label: models.CategoryJobs, Phrases: []string{"job", "career", "hiring", "role", "apply", "recruitment", "position"}},
	{Label: models.CategoryPromotions, Phrases: []string{"sale", "offer", "deal", "discount", "new!", "promo"}},
	{Label: models.CategoryOpportunities, Phrases: []string{"referral", "earn", "program", "income", "reward"}},
	{Label: models.CategoryGovernment, Phrases: []string{"ministry", "bharat", "defence", "dynamics", "govt"}},
	{Label: models.CategorySecurity, Phrases: []string{"otp", "login", "verification", "alert", "security"}},
}

// DetectUrgency classifies text against UrgencyRules.
func DetectUrgency(text string) models.Urgency {
	if strings.TrimSpace(text) == "" {
		return models.UrgencyLow
	}
	return firstMatch(UrgencyRules, text, models.UrgencyLow)
}

// ClassifyCategory classifies text against CategoryRules.
func ClassifyCategory(text string) string {
	if strings.TrimSpace(text) == "" {
		return models.CategoryGeneral
	}
	return firstMatch(CategoryRules, text, models.CategoryGeneral)
}

// Truncate returns at most max runes of s. A non-positive max leaves s as is.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
