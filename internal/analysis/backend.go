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

// Package analysis wraps text inference behind a uniform, total interface.
//
// A Backend is one concrete model provider and may fail or stall. The Adapter
// bounds every backend call with the timeout guard, truncates input to the
// configured cap, and substitutes a documented default for every failure so
// that Analyze always yields a fully populated result.
package analysis

import (
	"context"

	"github.com/bcem/triage/internal/models"
)

// Backend is a single model provider.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Sentiment scores text. Implementations may return only a label, only
	// a distribution, or both.
	Sentiment(ctx context.Context, text string) (models.Sentiment, error)

	// Summarize condenses text to roughly maxWords words.
	Summarize(ctx context.Context, text string, maxWords int) (string, error)

	// DraftReply writes a short reply to the given email body.
	DraftReply(ctx context.Context, text string) (string, error)
}
