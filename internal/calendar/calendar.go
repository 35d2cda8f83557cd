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

// Package calendar creates placeholder events in Google Calendar.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the Google Calendar v3 API root.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	calendarScope = "https://www.googleapis.com/auth/calendar.events"
)

// Credentials is an installed-app OAuth2 client plus a stored refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// NewHTTPClient returns a client whose access tokens are refreshed from
// creds.RefreshToken as they expire.
func NewHTTPClient(ctx context.Context, creds Credentials) *http.Client {
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		Scopes:       []string{calendarScope},
	}
	return oauth2.NewClient(ctx, cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}))
}

// Client inserts events into one calendar.
type Client struct {
	httpClient *http.Client
	baseURL    string
	calendarID string
}

// NewClient creates a Calendar client. calendarID defaults to "primary".
func NewClient(httpClient *http.Client, baseURL, calendarID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

// CreateEvent inserts an event and returns its htmlLink. Times are rendered
// in tz, which must be an IANA zone name.
func (c *Client) CreateEvent(ctx context.Context, title, description string, start, end time.Time, tz string) (string, error) {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tz, err)
	}

	body, err := json.Marshal(event{
		Summary:     title,
		Description: description,
		Start:       eventTime{DateTime: start.In(loc).Format(time.RFC3339), TimeZone: tz},
		End:         eventTime{DateTime: end.In(loc).Format(time.RFC3339), TimeZone: tz},
	})
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	reqURL := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar API returned HTTP %d", resp.StatusCode)
	}

	var created struct {
		HTMLLink string `json:"htmlLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}
	return created.HTMLLink, nil
}
