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

// Package action executes the side effects chosen by the decision engine.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bcem/triage/internal/decision"
	"github.com/bcem/triage/internal/guard"
	"github.com/bcem/triage/internal/models"
)

// ErrNotConfigured is returned for a planned action whose collaborator is
// not configured.
var ErrNotConfigured = errors.New("collaborator not configured")

const (
	// DefaultEventOffset places the placeholder event one day out.
	DefaultEventOffset = 24 * time.Hour

	// DefaultEventDuration is the placeholder event length.
	DefaultEventDuration = time.Hour

	replyPrefix = "Re: "
)

// Mailer sends replies.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Calendar creates events and returns a link to them.
type Calendar interface {
	CreateEvent(ctx context.Context, title, description string, start, end time.Time, tz string) (string, error)
}

// Notifier posts alerts to a chat channel.
type Notifier interface {
	Post(ctx context.Context, channel string, alert models.Alert) error
}

// Drafter writes reply bodies. It never fails; implementations fall back to
// a template.
type Drafter interface {
	DraftReply(ctx context.Context, body string) string
}

// Error records which action failed.
type Error struct {
	Kind models.ActionKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Config controls action execution.
type Config struct {
	// Timeout bounds each action. Zero disables the bound.
	Timeout       time.Duration
	Timezone      string
	Channel       string
	EventOffset   time.Duration
	EventDuration time.Duration
}

// Executor runs a plan's actions for one message.
type Executor struct {
	cfg      Config
	mailer   Mailer
	calendar Calendar
	notifier Notifier
	drafter  Drafter
	now      func() time.Time
}

// NewExecutor creates an Executor. Any collaborator may be nil; actions that
// need a nil collaborator fail with ErrNotConfigured.
func NewExecutor(cfg Config, mailer Mailer, calendar Calendar, notifier Notifier, drafter Drafter) *Executor {
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.EventOffset <= 0 {
		cfg.EventOffset = DefaultEventOffset
	}
	if cfg.EventDuration <= 0 {
		cfg.EventDuration = DefaultEventDuration
	}
	return &Executor{
		cfg:      cfg,
		mailer:   mailer,
		calendar: calendar,
		notifier: notifier,
		drafter:  drafter,
		now:      time.Now,
	}
}

// Execute runs every planned action concurrently, each once and each under
// its own deadline. The outcome lists only the actions that completed; the
// error joins one *Error per failed action.
func (e *Executor) Execute(ctx context.Context, msg models.Message, plan decision.Plan) (models.ActionOutcome, error) {
	var (
		mu      sync.Mutex
		outcome models.ActionOutcome
		done    = make(map[models.ActionKind]bool, 3)
		errs    []error
	)

	record := func(kind models.ActionKind, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, &Error{Kind: kind, Err: err})
			return
		}
		done[kind] = true
	}

	// A zero-value Group does not cancel siblings when one action fails.
	var g errgroup.Group

	if plan.Calendar != nil {
		req := *plan.Calendar
		g.Go(func() error {
			link, err := guard.Do(ctx, string(models.ActionCreateCalendarEvent), e.cfg.Timeout, func(ctx context.Context) (string, error) {
				return e.createEvent(ctx, req)
			})
			if err == nil {
				mu.Lock()
				outcome.EventLink = link
				mu.Unlock()
			}
			record(models.ActionCreateCalendarEvent, err)
			return nil
		})
	}

	if plan.Reply != nil {
		req := *plan.Reply
		g.Go(func() error {
			text, err := guard.Do(ctx, string(models.ActionSendReply), e.cfg.Timeout, func(ctx context.Context) (string, error) {
				return e.sendReply(ctx, msg, req)
			})
			if err == nil {
				mu.Lock()
				outcome.ReplyText = text
				mu.Unlock()
			}
			record(models.ActionSendReply, err)
			return nil
		})
	}

	if plan.Alert != nil {
		alert := *plan.Alert
		g.Go(func() error {
			err := guard.Run(ctx, string(models.ActionNotifyChannel), e.cfg.Timeout, func(ctx context.Context) error {
				if e.notifier == nil {
					return ErrNotConfigured
				}
				return e.notifier.Post(ctx, e.cfg.Channel, alert)
			})
			record(models.ActionNotifyChannel, err)
			return nil
		})
	}

	g.Wait()

	for _, kind := range plan.Kinds() {
		if done[kind] {
			outcome.Kinds = append(outcome.Kinds, kind)
		}
	}
	outcome.Notified = done[models.ActionNotifyChannel]
	return outcome, errors.Join(errs...)
}

func (e *Executor) createEvent(ctx context.Context, req decision.CalendarRequest) (string, error) {
	if e.calendar == nil {
		return "", ErrNotConfigured
	}
	start := e.now().Add(e.cfg.EventOffset)
	return e.calendar.CreateEvent(ctx, req.Title, req.Description, start, start.Add(e.cfg.EventDuration), e.cfg.Timezone)
}

func (e *Executor) sendReply(ctx context.Context, msg models.Message, req decision.ReplyRequest) (string, error) {
	if e.mailer == nil {
		return "", ErrNotConfigured
	}
	body := req.Body
	if req.Generate {
		if e.drafter == nil {
			return "", fmt.Errorf("draft reply: %w", ErrNotConfigured)
		}
		body = e.drafter.DraftReply(ctx, msg.Body)
	}
	if err := e.mailer.Send(ctx, req.To, replyPrefix+req.Subject, body); err != nil {
		return "", err
	}
	return body, nil
}
