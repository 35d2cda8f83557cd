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

package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateEvent(t *testing.T) {
	var got event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendars/primary/events" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"evt1","htmlLink":"https://calendar.google.com/event?eid=evt1"}`))
	}))
	defer server.Close()

	start := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	link, err := NewClient(server.Client(), server.URL, "").CreateEvent(context.Background(), "Sync", "Agenda", start, start.Add(time.Hour), "Asia/Kolkata")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if link != "https://calendar.google.com/event?eid=evt1" {
		t.Errorf("link = %q", link)
	}
	if got.Summary != "Sync" || got.Description != "Agenda" {
		t.Errorf("event = %+v", got)
	}
	if got.Start.DateTime != "2024-05-02T14:30:00+05:30" || got.Start.TimeZone != "Asia/Kolkata" {
		t.Errorf("start = %+v", got.Start)
	}
	if got.End.DateTime != "2024-05-02T15:30:00+05:30" {
		t.Errorf("end = %+v", got.End)
	}
}

func TestCreateEvent_BadTimezone(t *testing.T) {
	c := NewClient(http.DefaultClient, "http://unused", "")
	if _, err := c.CreateEvent(context.Background(), "t", "d", time.Now(), time.Now(), "Not/AZone"); err == nil {
		t.Error("expected timezone error")
	}
}

func TestCreateEvent_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewClient(server.Client(), server.URL, "team").CreateEvent(context.Background(), "t", "d", time.Now(), time.Now().Add(time.Hour), "UTC")
	if err == nil {
		t.Error("expected error for 403")
	}
}

// TestNewHTTPClient_RefreshesToken verifies the refresh token is exchanged
// and the access token attached to API calls.
func TestNewHTTPClient_RefreshesToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt" {
			t.Errorf("unexpected token request %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"htmlLink":"x"}`))
	}))
	defer api.Close()

	httpClient := NewHTTPClient(context.Background(), Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "rt", TokenURL: tokenServer.URL})
	if _, err := NewClient(httpClient, api.URL, "").CreateEvent(context.Background(), "t", "d", time.Now(), time.Now().Add(time.Hour), "UTC"); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
}
