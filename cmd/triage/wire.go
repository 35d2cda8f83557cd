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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/triage/internal/action"
	"github.com/bcem/triage/internal/analysis"
	"github.com/bcem/triage/internal/calendar"
	"github.com/bcem/triage/internal/config"
	"github.com/bcem/triage/internal/decision"
	"github.com/bcem/triage/internal/mail"
	"github.com/bcem/triage/internal/metrics"
	"github.com/bcem/triage/internal/notify"
	"github.com/bcem/triage/internal/pipeline"
	"github.com/bcem/triage/internal/queue"
	"github.com/bcem/triage/internal/runlock"
	"github.com/bcem/triage/internal/search"
	"github.com/bcem/triage/internal/store"
	"github.com/bcem/triage/internal/store/postgres"
	"github.com/bcem/triage/internal/store/sqlite"
)

// runBatch wires every collaborator from cfg and processes one batch.
func runBatch(ctx context.Context, cfg *config.Config, out io.Writer) error {
	slog.Info("starting email triage",
		"provider", cfg.Mail.Provider,
		"backend", cfg.Analysis.Backend,
		"storage", cfg.Storage.Driver,
		"max", cfg.Batch.MaxMessages,
	)

	// --- Storage ---
	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	// --- Redis (optional): run lock and event queue ---
	var publisher pipeline.Publisher
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		qp := queue.NewPublisher(rdb, cfg.Redis.Queue)
		if err := qp.Ping(ctx); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		slog.Info("connected to Redis")

		lock, err := runlock.NewLocker(rdb, cfg.Redis.LockTTL).Acquire(ctx, cfg.Batch.LockName)
		if err != nil {
			return fmt.Errorf("acquire run lock %q: %w", cfg.Batch.LockName, err)
		}
		defer func() {
			// Release even if ctx was cancelled by a signal.
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("failed to release run lock", "error", err)
			}
		}()
		publisher = qp
	}

	// --- Mail transport ---
	transport, err := buildTransport(ctx, cfg.Mail)
	if err != nil {
		return err
	}

	// --- Analysis ---
	adapter := analysis.NewAdapter(analysis.AdapterConfig{
		Backend:         buildBackend(cfg.Analysis),
		MaxInputChars:   cfg.Analysis.MaxInputChars,
		MaxSummaryChars: cfg.Analysis.MaxSummaryChars,
		Timeout:         cfg.Analysis.Timeout,
	})

	// --- Decision and actions ---
	engine := decision.NewEngine(buildSearcher(cfg.Search), cfg.Batch.SearchTimeout, nil)
	executor := action.NewExecutor(action.Config{
		Timeout:  cfg.Batch.ActionTimeout,
		Timezone: cfg.Calendar.Timezone,
		Channel:  cfg.Slack.Channel,
	}, transport, buildCalendar(ctx, cfg.Calendar), buildNotifier(cfg.Slack), adapter)

	rec := metrics.New()
	orch := pipeline.New(pipeline.Config{
		Transport:    transport,
		Analyzer:     adapter,
		Decider:      engine,
		Executor:     executor,
		Store:        st,
		Publisher:    publisher,
		Metrics:      rec,
		MaxBodyChars: cfg.Batch.MaxBodyChars,
	})

	res, runErr := orch.Run(ctx, cfg.Batch.MaxMessages)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := rec.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			slog.Warn("failed to push metrics", "url", cfg.Metrics.PushgatewayURL, "error", err)
		}
	}

	if res != nil {
		if err := pipeline.WriteBatchReport(out, res); err != nil {
			return err
		}
	}
	return runErr
}

// showReport prints stored records, most urgent first, and the category
// counts.
func showReport(ctx context.Context, cfg *config.Config, limit int, out io.Writer) error {
	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListByUrgency(ctx, limit)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if err := pipeline.WriteRecords(out, records); err != nil {
		return err
	}

	counts, err := st.CountByCategory(ctx)
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintln(out)
	for _, c := range categories {
		fmt.Fprintf(out, "%-14s %d\n", c, counts[c])
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %q: %w", cfg.Path, err)
		}
		return s, nil
	}
}

func buildTransport(ctx context.Context, cfg config.MailConfig) (mail.Transport, error) {
	switch cfg.Provider {
	case "graph":
		gc := mail.GraphConfig{
			BaseURL:      cfg.Graph.BaseURL,
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			UserID:       cfg.Graph.UserID,
		}
		baseURL := gc.BaseURL
		if baseURL == "" {
			baseURL = mail.DefaultGraphBaseURL
		}
		return mail.NewGraphTransport(mail.NewGraphHTTPClient(ctx, gc), baseURL, gc.UserID), nil
	case "imap":
		from := cfg.IMAP.From
		if from == "" {
			from = cfg.IMAP.Username
		}
		return mail.NewIMAPTransport(mail.IMAPConfig{
			IMAPAddr:        cfg.IMAP.Addr,
			SMTPAddr:        cfg.IMAP.SMTPAddr,
			SMTPImplicitTLS: cfg.IMAP.SMTPImplicitTLS,
			Username:        cfg.IMAP.Username,
			Password:        cfg.IMAP.Password,
			Mailbox:         cfg.IMAP.Mailbox,
			From:            from,
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func buildBackend(cfg config.AnalysisConfig) analysis.Backend {
	if cfg.Backend == "ollama" {
		return analysis.NewOllamaBackend(cfg.OllamaURL, cfg.Model)
	}
	return analysis.NewLexiconBackend()
}

// The builders below return nil interfaces, never typed nil pointers, for
// collaborators that are not configured.

func buildSearcher(cfg config.SearchConfig) decision.Searcher {
	c := search.NewClient(http.DefaultClient, search.DefaultBaseURL, cfg.APIKey, cfg.CX)
	if !c.Configured() {
		slog.Info("web search not configured, information requests get no digest reply")
		return nil
	}
	return c
}

func buildCalendar(ctx context.Context, cfg config.CalendarConfig) action.Calendar {
	if !cfg.Enabled() {
		slog.Info("calendar not configured, meeting requests get no event")
		return nil
	}
	httpClient := calendar.NewHTTPClient(ctx, calendar.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
		TokenURL:     calendar.DefaultTokenURL,
	})
	return calendar.NewClient(httpClient, calendar.DefaultBaseURL, cfg.CalendarID)
}

func buildNotifier(cfg config.SlackConfig) action.Notifier {
	if cfg.Token == "" {
		slog.Info("slack not configured, alerts are disabled")
		return nil
	}
	return notify.NewSlackClient(http.DefaultClient, notify.DefaultBaseURL, cfg.Token)
}
