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

package models

import "fmt"

// SentimentLabel is the coarse polarity of a message.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Distribution holds per-label sentiment scores as reported by a backend.
type Distribution struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Sentiment carries a label and, when the backend produced one, the score
// distribution it was derived from.
type Sentiment struct {
	Label  SentimentLabel `json:"label"`
	Scores *Distribution  `json:"scores,omitempty"`
}

// NeutralSentiment is the fallback for short input and backend failures.
func NeutralSentiment() Sentiment {
	return Sentiment{
		Label:  SentimentNeutral,
		Scores: &Distribution{Positive: 0, Negative: 0, Neutral: 1},
	}
}

// SentimentFromScores derives the label from the highest score. Ties favour
// neutral, then negative.
func SentimentFromScores(d Distribution) Sentiment {
	label := SentimentNeutral
	best := d.Neutral
	if d.Negative > best {
		label, best = SentimentNegative, d.Negative
	}
	if d.Positive > best {
		label = SentimentPositive
	}
	return Sentiment{Label: label, Scores: &d}
}

// IsNegative reports whether the sentiment should be treated as negative.
func (s Sentiment) IsNegative() bool {
	return s.Label == SentimentNegative
}

// Urgency is the ordinal urgency of a message.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "Low"
	case UrgencyMedium:
		return "Medium"
	case UrgencyHigh:
		return "High"
	default:
		return fmt.Sprintf("Urgency(%d)", int(u))
	}
}

// Category labels. Exactly one is assigned per message.
const (
	CategoryMeeting       = "meeting"
	CategoryInformation   = "information"
	CategoryFinance       = "finance"
	CategoryJobs          = "jobs"
	CategoryPromotions    = "promotions"
	CategoryOpportunities = "opportunities"
	CategoryGovernment    = "government"
	CategorySecurity      = "security"
	CategoryGeneral       = "general"
)

// AnalysisResult is derived from a message body and attached to the message
// for the duration of one pipeline pass.
type AnalysisResult struct {
	Sentiment       Sentiment `json:"sentiment"`
	Category        string    `json:"category"`
	Urgency         Urgency   `json:"urgency"`
	Summary         string    `json:"summary"`
	SuggestedAction string    `json:"suggested_action"`
}
