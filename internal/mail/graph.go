// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// DefaultGraphBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphConfig identifies the app registration and mailbox.
type GraphConfig struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	UserID       string
}

// NewGraphHTTPClient returns an HTTP client that attaches app-only tokens
// obtained with the client credentials grant.
func NewGraphHTTPClient(ctx context.Context, cfg GraphConfig) *http.Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return creds.Client(ctx)
}

// GraphTransport reads and sends mail for one user through Microsoft Graph.
type GraphTransport struct {
	httpClient *http.Client
	baseURL    string
	userID     string
}

// NewGraphTransport creates a Graph transport. httpClient must already carry
// credentials, see NewGraphHTTPClient.
func NewGraphTransport(httpClient *http.Client, baseURL, userID string) *GraphTransport {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	return &GraphTransport{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
	}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

func (a graphAddress) String() string {
	if a.EmailAddress.Name == "" {
		return a.EmailAddress.Address
	}
	return fmt.Sprintf("%s <%s>", a.EmailAddress.Name, a.EmailAddress.Address)
}

// graphMessage represents the relevant fields from a Graph API message response.
type graphMessage struct {
	ID               string         `json:"id"`
	ConversationID   string         `json:"conversationId"`
	Subject          string         `json:"subject"`
	From             graphAddress   `json:"from"`
	ToRecipients     []graphAddress `json:"toRecipients"`
	ReceivedDateTime string         `json:"receivedDateTime"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	InternetMessageHeaders []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"internetMessageHeaders"`
}

// ListUnread returns up to max unread inbox message IDs, newest first.
func (g *GraphTransport) ListUnread(ctx context.Context, max int) ([]string, error) {
	q := url.Values{}
	q.Set("$filter", "isRead eq false")
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$select", "id")
	if max > 0 {
		q.Set("$top", strconv.Itoa(max))
	}
	reqURL := fmt.Sprintf("%s/users/%s/mailFolders/inbox/messages?%s", g.baseURL, url.PathEscape(g.userID), q.Encode())

	var page struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	resp, err := g.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list unread: graph API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}

	ids := make([]string, 0, len(page.Value))
	for _, m := range page.Value {
		ids = append(ids, m.ID)
		if max > 0 && len(ids) == max {
			break
		}
	}
	return ids, nil
}

// Get retrieves one message. Graph does not mark messages read on GET.
func (g *GraphTransport) Get(ctx context.Context, id string) (*RawMessage, error) {
	reqURL := fmt.Sprintf("%s/users/%s/messages/%s?$select=id,conversationId,subject,from,toRecipients,receivedDateTime,body,internetMessageHeaders",
		g.baseURL, url.PathEscape(g.userID), url.PathEscape(id))

	resp, err := g.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API returned HTTP %d for message %s", resp.StatusCode, id)
	}

	raw, err := parseGraphMessage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return raw, nil
}

// Send posts a plain-text message through sendMail.
func (g *GraphTransport) Send(ctx context.Context, to, subject, body string) error {
	payload := map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body": map[string]string{
				"contentType": "Text",
				"content":     body,
			},
			"toRecipients": []map[string]any{
				{"emailAddress": map[string]string{"address": to}},
			},
		},
		"saveToSentItems": true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMail: %w", err)
	}

	reqURL := fmt.Sprintf("%s/users/%s/sendMail", g.baseURL, url.PathEscape(g.userID))
	resp, err := g.do(ctx, http.MethodPost, reqURL, data)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send mail: graph API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (g *GraphTransport) do(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "outlook.body-content-type=\"text\"")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.httpClient.Do(req)
}

// parseGraphMessage converts a Graph API message response into a RawMessage.
// Structured fields win over the raw internet headers.
func parseGraphMessage(body io.Reader) (*RawMessage, error) {
	var msg graphMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode graph message: %w", err)
	}

	headers := make(map[string]string, len(msg.InternetMessageHeaders)+3)
	for _, h := range msg.InternetMessageHeaders {
		headers[h.Name] = h.Value
	}
	if msg.Subject != "" {
		headers["Subject"] = msg.Subject
	}
	if from := msg.From.String(); from != "" {
		headers["From"] = from
	}
	if len(msg.ToRecipients) > 0 {
		to := make([]string, 0, len(msg.ToRecipients))
		for _, r := range msg.ToRecipients {
			to = append(to, r.String())
		}
		headers["To"] = strings.Join(to, ", ")
	}

	raw := &RawMessage{
		ID:       msg.ID,
		ThreadID: msg.ConversationID,
		Headers:  headers,
	}
	if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
		raw.InternalDate = t
	}
	if msg.Body.Content != "" {
		mimeType := "text/plain"
		if strings.EqualFold(msg.Body.ContentType, "html") {
			mimeType = "text/html"
		}
		raw.Parts = []Part{{MimeType: mimeType, Content: msg.Body.Content}}
	}
	return raw, nil
}
