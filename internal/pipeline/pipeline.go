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

// Package pipeline runs the per-message triage sequence over a batch of
// unread mail: fetch, analyse, decide, act and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/triage/internal/analysis"
	"github.com/bcem/triage/internal/decision"
	"github.com/bcem/triage/internal/mail"
	"github.com/bcem/triage/internal/models"
	"github.com/bcem/triage/internal/queue"
	"github.com/bcem/triage/internal/store"
)

// Stage is a point in one message's lifecycle.
type Stage string

const (
	StageFetched   Stage = "fetched"
	StageAnalyzed  Stage = "analyzed"
	StageDecided   Stage = "decided"
	StageActed     Stage = "acted"
	StagePersisted Stage = "persisted"
	StageFailed    Stage = "failed"
)

// Analyzer produces the analysis for a message body.
type Analyzer interface {
	Analyze(ctx context.Context, body string) (models.AnalysisResult, error)
}

// Decider chooses the actions for an analysed message.
type Decider interface {
	Decide(ctx context.Context, msg models.Message, res models.AnalysisResult) decision.Plan
}

// Executor runs a plan and reports what completed.
type Executor interface {
	Execute(ctx context.Context, msg models.Message, plan decision.Plan) (models.ActionOutcome, error)
}

// Publisher announces persisted records.
type Publisher interface {
	Publish(ctx context.Context, event queue.Event) error
}

// Metrics receives per-stage observations.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	Message(state string)
	Action(kind string, ok bool)
	Batch(succeeded, total int)
}

// MessageReport is the outcome of one message.
type MessageReport struct {
	MessageID string
	Subject   string
	Sender    string
	// Stage is StagePersisted on success, StageFailed otherwise.
	Stage Stage
	// FailedAt is the last stage reached before a failure.
	FailedAt  Stage
	Err       error
	Analysis  models.AnalysisResult
	Outcome   models.ActionOutcome
	ActionErr error
}

// Succeeded reports whether the record was persisted.
func (r MessageReport) Succeeded() bool { return r.Stage == StagePersisted }

// BatchResult summarises a completed run.
type BatchResult struct {
	RunID     string
	Succeeded int
	Total     int
	Reports   []MessageReport
	Elapsed   time.Duration
}

// Config holds the orchestrator's collaborators. Publisher and Metrics are
// optional.
type Config struct {
	Transport    mail.Transport
	Analyzer     Analyzer
	Decider      Decider
	Executor     Executor
	Store        store.Store
	Publisher    Publisher
	Metrics      Metrics
	MaxBodyChars int
	Logger       *slog.Logger
}

// Orchestrator processes batches sequentially, one message at a time.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger, now: time.Now}
}

// Run processes up to max unread messages. A listing failure is returned as
// an error; a failure on any single message is recorded in its report and
// the batch continues. Run stops early only when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, max int) (*BatchResult, error) {
	start := o.now()
	result := &BatchResult{RunID: uuid.NewString()}
	logger := o.logger.With("run_id", result.RunID)

	ids, err := o.cfg.Transport.ListUnread(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	result.Total = len(ids)

	logger.Info("starting triage batch", "messages", len(ids), "max", max)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}

		report := o.process(ctx, logger.With("message_id", id), result.RunID, id)
		if report.Succeeded() {
			result.Succeeded++
		}
		result.Reports = append(result.Reports, report)
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.Message(string(report.Stage))
		}
	}

	result.Elapsed = time.Since(start)
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.Batch(result.Succeeded, result.Total)
	}

	logger.Info("triage batch complete",
		"succeeded", result.Succeeded,
		"total", result.Total,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// process runs one message through every stage.
func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, runID, id string) MessageReport {
	report := MessageReport{MessageID: id}
	ctx = analysis.WithLogger(ctx, logger)
	fail := func(stage Stage, err error) MessageReport {
		report.Stage, report.FailedAt, report.Err = StageFailed, stage, err
		logger.Error("message failed", "stage", stage, "error", err)
		return report
	}

	var raw *mail.RawMessage
	err := o.timed(StageFetched, func() (err error) {
		raw, err = o.cfg.Transport.Get(ctx, id)
		return err
	})
	if err != nil {
		return fail(StageFetched, fmt.Errorf("fetch: %w", err))
	}

	msg := mail.Parse(raw, o.cfg.MaxBodyChars)
	if msg.MessageID == "" {
		msg.MessageID = id
	}
	report.Subject, report.Sender = msg.Subject, msg.Sender
	logger.Debug("message fetched", "stage", StageFetched, "subject", msg.Subject)

	// The placeholder marks a message without text parts; it is stored but
	// never analysed.
	text := msg.Body
	if text == models.PlaceholderBody {
		text = ""
	}

	var res models.AnalysisResult
	err = o.timed(StageAnalyzed, func() (err error) {
		res, err = o.cfg.Analyzer.Analyze(ctx, text)
		return err
	})
	if err != nil {
		return fail(StageFetched, fmt.Errorf("analyze: %w", err))
	}
	report.Analysis = res
	logger.Info("message analyzed",
		"stage", StageAnalyzed,
		"category", res.Category,
		"urgency", res.Urgency.String(),
		"sentiment", res.Sentiment.Label,
	)

	var plan decision.Plan
	o.timed(StageDecided, func() error {
		plan = o.cfg.Decider.Decide(ctx, msg, res)
		return nil
	})
	logger.Debug("actions decided", "stage", StageDecided, "actions", models.JoinKinds(plan.Kinds()))

	var outcome models.ActionOutcome
	var actionErr error
	if !plan.Empty() {
		o.timed(StageActed, func() error {
			outcome, actionErr = o.cfg.Executor.Execute(ctx, msg, plan)
			return nil
		})
	}
	report.Outcome, report.ActionErr = outcome, actionErr
	o.recordActions(plan, outcome)
	for _, err := range unjoin(actionErr) {
		logger.Warn("action failed", "stage", StageActed, "error", err)
	}

	rec := models.StoredRecord{
		Message:     msg,
		Analysis:    res,
		Outcome:     outcome,
		ProcessedAt: o.now().UTC(),
	}
	err = o.timed(StagePersisted, func() error {
		return o.cfg.Store.Upsert(ctx, rec)
	})
	if err != nil {
		return fail(StageActed, fmt.Errorf("persist: %w", err))
	}
	report.Stage = StagePersisted
	logger.Info("message persisted", "stage", StagePersisted, "actions", outcome.KindString())

	if o.cfg.Publisher != nil {
		if err := o.cfg.Publisher.Publish(ctx, queue.NewEvent(runID, rec)); err != nil {
			logger.Warn("publish triage event failed", "error", err)
		}
	}
	return report
}

func (o *Orchestrator) timed(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.ObserveStage(string(stage), time.Since(start))
	}
	return err
}

func (o *Orchestrator) recordActions(plan decision.Plan, outcome models.ActionOutcome) {
	if o.cfg.Metrics == nil {
		return
	}
	for _, kind := range plan.Kinds() {
		o.cfg.Metrics.Action(string(kind), outcome.Has(kind))
	}
}

// unjoin flattens an errors.Join result into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
