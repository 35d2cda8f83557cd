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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/bcem/triage/internal/models"
)

func newOllamaServer(t *testing.T, reply string, check func(chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if check != nil {
			check(req)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: reply}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllama_Sentiment(t *testing.T) {
	var got chatRequest
	srv := newOllamaServer(t, `{"positive":0.1,"negative":0.7,"neutral":0.2}`, func(r chatRequest) { got = r })

	b := NewOllamaBackend(srv.URL+"/", "llama3")
	s, err := b.Sentiment(context.Background(), "this is broken")
	be.Err(t, err, nil)
	be.Equal(t, s.Label, models.SentimentNegative)
	be.Equal(t, got.Model, "llama3")
	be.True(t, got.Format != nil)
	be.Equal(t, got.Stream, false)
	be.Equal(t, b.Name(), "ollama/llama3")
}

func TestOllama_SentimentBadJSON(t *testing.T) {
	srv := newOllamaServer(t, "not json", nil)
	_, err := NewOllamaBackend(srv.URL, "m").Sentiment(context.Background(), "hello there")
	be.True(t, err != nil)
}

func TestOllama_DraftReplyQuotesLeadingBody(t *testing.T) {
	var prompt string
	srv := newOllamaServer(t, "  Sounds good.  ", func(r chatRequest) { prompt = r.Messages[len(r.Messages)-1].Content })

	body := strings.Repeat("x", 500)
	reply, err := NewOllamaBackend(srv.URL, "m").DraftReply(context.Background(), body)
	be.Err(t, err, nil)
	be.Equal(t, reply, "Sounds good.")
	be.Equal(t, prompt, "Reply to this email: "+strings.Repeat("x", replyPromptChars))
}

func TestOllama_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaBackend(srv.URL, "m").Summarize(context.Background(), "text", 10)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "500"))
}
