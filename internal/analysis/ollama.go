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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bcem/triage/internal/models"
)

// replyPromptChars bounds how much of the body is quoted in the reply prompt.
const replyPromptChars = 200

// OllamaBackend calls a local Ollama server's /api/chat endpoint.
type OllamaBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaBackend creates a backend for the given server and model. The
// HTTP client has no timeout of its own; the Adapter's guard bounds calls.
func NewOllamaBackend(baseURL, model string) *OllamaBackend {
	return &OllamaBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

func (b *OllamaBackend) Name() string { return "ollama/" + b.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   any           `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// sentimentSchema asks the model for a score per label.
var sentimentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"positive": map[string]string{"type": "number"},
		"negative": map[string]string{"type": "number"},
		"neutral":  map[string]string{"type": "number"},
	},
	"required": []string{"positive", "negative", "neutral"},
}

func (b *OllamaBackend) Sentiment(ctx context.Context, text string) (models.Sentiment, error) {
	out, err := b.chat(ctx, []chatMessage{
		{Role: "system", Content: "Score the sentiment of the email. Respond with JSON scores between 0 and 1 that sum to 1."},
		{Role: "user", Content: text},
	}, sentimentSchema)
	if err != nil {
		return models.Sentiment{}, err
	}

	var d models.Distribution
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		return models.Sentiment{}, fmt.Errorf("decode sentiment scores: %w", err)
	}
	return models.SentimentFromScores(d), nil
}

func (b *OllamaBackend) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	return b.chat(ctx, []chatMessage{
		{Role: "system", Content: fmt.Sprintf("Summarise the email in at most %d words. Reply with the summary only.", maxWords)},
		{Role: "user", Content: text},
	}, nil)
}

func (b *OllamaBackend) DraftReply(ctx context.Context, text string) (string, error) {
	return b.chat(ctx, []chatMessage{
		{Role: "user", Content: "Reply to this email: " + Truncate(text, replyPromptChars)},
	}, nil)
}

func (b *OllamaBackend) chat(ctx context.Context, messages []chatMessage, format any) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    b.model,
		Messages: messages,
		Format:   format,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: unexpected status %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return strings.TrimSpace(result.Message.Content), nil
}
