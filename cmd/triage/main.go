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


// Email triage command.
//
// Processes a batch of unread mail: each message is analysed, the follow-up
// actions are chosen and executed, and the result is stored for reporting.
//
// Usage:
//
//	triage run [--max 5]
//	triage report [--limit 20]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bcem/triage/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("triage failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "triage",
		Short:         "Analyse unread email and act on it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newReportCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch of unread messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max") {
				cfg.Batch.MaxMessages = max
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&max, "max", config.Defaults().Batch.MaxMessages, "maximum number of unread messages to process")
	return cmd
}

func newReportCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored messages, most urgent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return showReport(cmd.Context(), cfg, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to show (0 for all)")
	return cmd
}

// loadConfig reads and validates configuration, then installs the JSON
// logger at the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
