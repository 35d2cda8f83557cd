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

// Package mail defines the mail transport boundary and converts transport
// payloads into canonical messages.
package mail

import (
	"context"
	"errors"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/bcem/triage/internal/models"
)

// ErrNotFound is returned by Get when the message no longer exists.
var ErrNotFound = errors.New("mail: message not found")

// Transport lists, fetches and sends mail for a single mailbox.
type Transport interface {
	// ListUnread returns up to max unread message IDs in fetch order.
	ListUnread(ctx context.Context, max int) ([]string, error)
	// Get retrieves one message without marking it read.
	Get(ctx context.Context, id string) (*RawMessage, error)
	// Send delivers a plain-text message.
	Send(ctx context.Context, to, subject, body string) error
}

// Part is one leaf MIME part, already decoded to text.
type Part struct {
	MimeType string
	Content  string
}

// RawMessage is a transport-neutral message as fetched from the server.
type RawMessage struct {
	ID           string
	ThreadID     string
	Headers      map[string]string
	Parts        []Part
	InternalDate time.Time
}

// Header returns the first header whose name matches key case-insensitively.
func (r *RawMessage) Header(key string) string {
	if v, ok := r.Headers[key]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Parse converts raw into a Message. The body is the first text/plain part,
// else the first text/html part as is, else models.PlaceholderBody, and is
// cut to maxBody runes when maxBody is positive.
func Parse(raw *RawMessage, maxBody int) models.Message {
	msg := models.Message{
		MessageID: raw.ID,
		ThreadID:  raw.ThreadID,
		Sender:    orDefault(raw.Header("From"), models.DefaultSender),
		Recipient: strings.TrimSpace(raw.Header("To")),
		Subject:   orDefault(raw.Header("Subject"), models.DefaultSubject),
		Body:      truncate(body(raw.Parts), maxBody),
		Date:      parseDate(raw.Header("Date"), raw.InternalDate),
	}
	return msg
}

func body(parts []Part) string {
	for _, mt := range []string{"text/plain", "text/html"} {
		for _, p := range parts {
			if strings.EqualFold(p.MimeType, mt) {
				return p.Content
			}
		}
	}
	return models.PlaceholderBody
}

func parseDate(header string, internal time.Time) time.Time {
	if header != "" {
		if t, err := netmail.ParseDate(header); err == nil {
			return t
		}
	}
	if !internal.IsZero() {
		return internal
	}
	return time.Now().UTC()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
