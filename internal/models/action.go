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

import (
	"sort"
	"strings"
)

// ActionKind names an automated side effect.
type ActionKind string

const (
	ActionNone                ActionKind = "none"
	ActionSendReply           ActionKind = "send_reply"
	ActionCreateCalendarEvent ActionKind = "create_calendar_event"
	ActionNotifyChannel       ActionKind = "notify_channel"
)

// ActionOutcome summarises the actions that completed for one message.
type ActionOutcome struct {
	Kinds     []ActionKind `json:"kinds"`
	ReplyText string       `json:"reply_text,omitempty"`
	EventLink string       `json:"event_link,omitempty"`
	Notified  bool         `json:"notified"`
}

// Has reports whether kind completed.
func (o ActionOutcome) Has(kind ActionKind) bool {
	for _, k := range o.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// KindString renders the completed kinds as a stable "a+b" string, or "none".
func (o ActionOutcome) KindString() string {
	return JoinKinds(o.Kinds)
}

// JoinKinds renders kinds sorted and joined with "+", or "none" when empty.
func JoinKinds(kinds []ActionKind) string {
	if len(kinds) == 0 {
		return string(ActionNone)
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// ParseKinds is the inverse of JoinKinds.
func ParseKinds(s string) []ActionKind {
	s = strings.TrimSpace(s)
	if s == "" || s == string(ActionNone) {
		return nil
	}
	var kinds []ActionKind
	for _, p := range strings.Split(s, "+") {
		if p = strings.TrimSpace(p); p != "" {
			kinds = append(kinds, ActionKind(p))
		}
	}
	return kinds
}

// Alert is the structured payload sent to the chat channel.
type Alert struct {
	Sender    string         `json:"sender"`
	Subject   string         `json:"subject"`
	Urgency   Urgency        `json:"urgency"`
	Sentiment SentimentLabel `json:"sentiment"`
	Summary   string         `json:"summary"`
}
