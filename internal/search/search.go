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

// Package search queries Google Programmable Search for information
// requests.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bcem/triage/internal/models"
)

// DefaultBaseURL is the Custom Search JSON API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Client calls the Custom Search JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cx         string
}

// NewClient creates a search client. An empty key or engine ID yields a
// client that always returns no results.
func NewClient(httpClient *http.Client, baseURL, apiKey, cx string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, cx: cx}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.cx != ""
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

// Search returns the first page of results for query. Missing credentials
// and non-200 responses yield an empty list and no error; transport and
// decode failures are errors.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if !c.Configured() || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("key", c.apiKey)
	q.Set("cx", c.cx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("search returned non-200, treating as no results", "status", resp.StatusCode)
		return nil, nil
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.SearchResult, 0, len(result.Items))
	for _, item := range result.Items {
		out = append(out, models.SearchResult{Title: item.Title, Snippet: item.Snippet, Link: item.Link})
	}
	return out, nil
}
