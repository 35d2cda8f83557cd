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

// Package notify posts triage alerts to a Slack channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bcem/triage/internal/models"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

const (
	colorHigh   = "#FF0000"
	colorNormal = "#FFA500"
)

// SlackClient sends alerts with chat.postMessage.
type SlackClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewSlackClient creates a client authenticated with a bot token.
func NewSlackClient(httpClient *http.Client, baseURL, token string) *SlackClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlackClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type string     `json:"type"`
	Text textObject `json:"text"`
}

type attachment struct {
	Color  string  `json:"color"`
	Blocks []block `json:"blocks"`
}

type postMessageRequest struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Post sends alert to channel. Slack reports API failures with HTTP 200 and
// ok=false; both that and non-200 responses are errors.
func (c *SlackClient) Post(ctx context.Context, channel string, alert models.Alert) error {
	body, err := json.Marshal(postMessageRequest{
		Channel: channel,
		Text:    "Important Email Received: " + alert.Subject,
		Attachments: []attachment{{
			Color: AlertColor(alert.Urgency),
			Blocks: []block{{
				Type: "section",
				Text: textObject{Type: "mrkdwn", Text: FormatAlert(alert)},
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned HTTP %d", resp.StatusCode)
	}

	var result postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack: %s", result.Error)
	}
	return nil
}

// FormatAlert renders the mrkdwn body of an alert.
func FormatAlert(a models.Alert) string {
	return fmt.Sprintf("*Important Email Received!*\n*Subject:* %s\n*From:* %s\n*Urgency:* %s\n*Sentiment:* %s\n*Summary:* %s",
		a.Subject, a.Sender, a.Urgency, a.Sentiment, a.Summary)
}

// AlertColor is red for High urgency and orange otherwise.
func AlertColor(u models.Urgency) string {
	if u >= models.UrgencyHigh {
		return colorHigh
	}
	return colorNormal
}
