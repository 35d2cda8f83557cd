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

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// graphMessageResponse creates a minimal Graph API message response body.
func graphMessageResponse(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"conversationId":   "conv-" + id,
		"subject":          "Test Subject " + id,
		"receivedDateTime": "2024-05-01T09:00:00Z",
		"from": map[string]interface{}{
			"emailAddress": map[string]interface{}{
				"address": "sender@test.com",
				"name":    "Sender",
			},
		},
		"toRecipients": []map[string]interface{}{
			{
				"emailAddress": map[string]interface{}{
					"address": "user@test.com",
				},
			},
		},
		"body": map[string]interface{}{
			"contentType": "text",
			"content":     "Test body for " + id,
		},
		"internetMessageHeaders": []map[string]string{
			{"name": "X-Mailer", "value": "test"},
		},
	}
}

func TestGraph_ListUnread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/user-1/mailFolders/inbox/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("$filter") != "isRead eq false" || q.Get("$top") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]string{{"id": "msg-1"}, {"id": "msg-2"}, {"id": "msg-3"}},
		})
	}))
	defer server.Close()

	g := NewGraphTransport(server.Client(), server.URL, "user-1")
	ids, err := g.ListUnread(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(ids) != 2 || ids[0] != "msg-1" || ids[1] != "msg-2" {
		t.Errorf("ids = %v", ids)
	}
}

// TestGraph_ListUnreadUnauthorized verifies listing failures surface as errors.
func TestGraph_ListUnreadUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewGraphTransport(server.Client(), server.URL, "u").ListUnread(context.Background(), 5)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 error, got %v", err)
	}
}

func TestGraph_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != `outlook.body-content-type="text"` {
			t.Errorf("missing Prefer header")
		}
		json.NewEncoder(w).Encode(graphMessageResponse("msg-1"))
	}))
	defer server.Close()

	raw, err := NewGraphTransport(server.Client(), server.URL, "u").Get(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	msg := Parse(raw, 0)
	if msg.MessageID != "msg-1" || msg.ThreadID != "conv-msg-1" {
		t.Errorf("ids = %q / %q", msg.MessageID, msg.ThreadID)
	}
	if msg.Sender != "Sender <sender@test.com>" {
		t.Errorf("sender = %q", msg.Sender)
	}
	if msg.Recipient != "user@test.com" {
		t.Errorf("recipient = %q", msg.Recipient)
	}
	if msg.Body != "Test body for msg-1" {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Date.Year() != 2024 {
		t.Errorf("date = %v", msg.Date)
	}
	if raw.Header("x-mailer") != "test" {
		t.Errorf("internet headers not carried")
	}
}

func TestGraph_GetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewGraphTransport(server.Client(), server.URL, "u").Get(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGraph_Send(t *testing.T) {
	var got struct {
		Message struct {
			Subject string `json:"subject"`
			Body    struct {
				Content string `json:"content"`
			} `json:"body"`
			ToRecipients []struct {
				EmailAddress struct {
					Address string `json:"address"`
				} `json:"emailAddress"`
			} `json:"toRecipients"`
		} `json:"message"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/u/sendMail" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := NewGraphTransport(server.Client(), server.URL, "u").Send(context.Background(), "a@b.c", "Re: hi", "thanks")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Message.Subject != "Re: hi" || got.Message.Body.Content != "thanks" {
		t.Errorf("payload = %+v", got.Message)
	}
	if len(got.Message.ToRecipients) != 1 || got.Message.ToRecipients[0].EmailAddress.Address != "a@b.c" {
		t.Errorf("recipients = %+v", got.Message.ToRecipients)
	}
}
