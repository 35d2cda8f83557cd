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

// Package models defines the data structures shared across the triage pipeline.
package models

import "time"

// Header defaults applied when a message lacks the corresponding header.
const (
	DefaultSubject = "No Subject"
	DefaultSender  = "Unknown Sender"
	DefaultDate    = "Unknown Date"

	// PlaceholderBody is used when a message has neither a text/plain nor a
	// text/html part.
	PlaceholderBody = "(no body)"
)

// Message is a single email as seen by the pipeline. It is built once from
// collaborator data and treated as read-only afterwards.
type Message struct {
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Date      time.Time `json:"date"`
}

// StoredRecord is the persisted row for one message: the message itself, its
// analysis, and a summary of the actions that completed.
type StoredRecord struct {
	Message
	Analysis    AnalysisResult `json:"analysis"`
	Outcome     ActionOutcome  `json:"outcome"`
	ProcessedAt time.Time      `json:"processed_at"`
}
