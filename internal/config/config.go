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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset. A missing default file is
// not an error.
const DefaultPath = "config.yaml"

// BatchConfig bounds one run.
type BatchConfig struct {
	MaxMessages   int           `yaml:"max_messages"`
	MaxBodyChars  int           `yaml:"max_body_chars"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	LockName      string        `yaml:"lock_name"`
}

// IMAPConfig is the IMAP/SMTP mailbox.
type IMAPConfig struct {
	Addr            string `yaml:"addr"`
	SMTPAddr        string `yaml:"smtp_addr"`
	SMTPImplicitTLS bool   `yaml:"smtp_implicit_tls"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Mailbox         string `yaml:"mailbox"`
	From            string `yaml:"from"`
}

// GraphConfig is the Microsoft 365 mailbox.
type GraphConfig struct {
	BaseURL      string `yaml:"base_url"`
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserID       string `yaml:"user_id"`
}

// MailConfig selects and configures the mail transport.
type MailConfig struct {
	Provider string      `yaml:"provider"` // "imap" or "graph"
	IMAP     IMAPConfig  `yaml:"imap"`
	Graph    GraphConfig `yaml:"graph"`
}

// AnalysisConfig selects the inference backend and its limits.
type AnalysisConfig struct {
	Backend         string        `yaml:"backend"` // "lexicon" or "ollama"
	OllamaURL       string        `yaml:"ollama_url"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxInputChars   int           `yaml:"max_input_chars"`
	MaxSummaryChars int           `yaml:"max_summary_chars"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the run lock and event queue. An empty URL disables
// both.
type RedisConfig struct {
	URL     string        `yaml:"url"`
	Queue   string        `yaml:"queue"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// CalendarConfig holds the Google OAuth client and refresh token.
type CalendarConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	CalendarID   string `yaml:"calendar_id"`
	Timezone     string `yaml:"timezone"`
}

// Enabled reports whether any calendar credential is set.
func (c CalendarConfig) Enabled() bool {
	return c.ClientID != "" || c.ClientSecret != "" || c.RefreshToken != ""
}

// SlackConfig is the alert destination.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// SearchConfig holds Google Programmable Search credentials.
type SearchConfig struct {
	APIKey string `yaml:"api_key"`
	CX     string `yaml:"cx"`
}

// MetricsConfig points at a Pushgateway. An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Config holds all configuration for the triage job.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Batch    BatchConfig    `yaml:"batch"`
	Mail     MailConfig     `yaml:"mail"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Calendar CalendarConfig `yaml:"calendar"`
	Slack    SlackConfig    `yaml:"slack"`
	Search   SearchConfig   `yaml:"search"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Defaults returns the configuration used before any file or environment
// override.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Batch: BatchConfig{
			MaxMessages:   5,
			MaxBodyChars:  1000,
			ActionTimeout: 30 * time.Second,
			SearchTimeout: 10 * time.Second,
			LockName:      "batch",
		},
		Mail: MailConfig{
			Provider: "imap",
			IMAP:     IMAPConfig{Mailbox: "INBOX"},
		},
		Analysis: AnalysisConfig{
			Backend:         "lexicon",
			OllamaURL:       "http://localhost:11434",
			Model:           "llama3.2",
			Timeout:         30 * time.Second,
			MaxInputChars:   1000,
			MaxSummaryChars: 600,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "emails.db",
		},
		Redis: RedisConfig{
			Queue:   "triage",
			LockTTL: 15 * time.Minute,
		},
		Calendar: CalendarConfig{
			CalendarID: "primary",
			Timezone:   "UTC",
		},
		Metrics: MetricsConfig{Job: "email_triage"},
	}
}

// Load reads configuration from CONFIG_PATH (default config.yaml, with env
// var expansion) and then applies environment overrides.
func Load() (*Config, error) {
	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path, explicit = DefaultPath, false
	}
	return LoadFile(path, explicit)
}

// LoadFile loads path. When required is false a missing file yields the
// defaults plus environment overrides.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets environment variables override file settings.
func applyEnv(cfg *Config) {
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.Batch.MaxMessages = envOrDefaultInt("BATCH_MAX_MESSAGES", cfg.Batch.MaxMessages)
	cfg.Batch.MaxBodyChars = envOrDefaultInt("BATCH_MAX_BODY_CHARS", cfg.Batch.MaxBodyChars)
	cfg.Batch.ActionTimeout = envOrDefaultDuration("ACTION_TIMEOUT", cfg.Batch.ActionTimeout)

	cfg.Mail.Provider = envOrDefault("MAIL_PROVIDER", cfg.Mail.Provider)
	cfg.Mail.IMAP.Addr = envOrDefault("IMAP_ADDR", cfg.Mail.IMAP.Addr)
	cfg.Mail.IMAP.SMTPAddr = envOrDefault("SMTP_ADDR", cfg.Mail.IMAP.SMTPAddr)
	cfg.Mail.IMAP.Username = envOrDefault("MAIL_USERNAME", cfg.Mail.IMAP.Username)
	cfg.Mail.IMAP.Password = envOrDefault("MAIL_PASSWORD", cfg.Mail.IMAP.Password)
	cfg.Mail.Graph.TenantID = envOrDefault("GRAPH_TENANT_ID", cfg.Mail.Graph.TenantID)
	cfg.Mail.Graph.ClientID = envOrDefault("GRAPH_CLIENT_ID", cfg.Mail.Graph.ClientID)
	cfg.Mail.Graph.ClientSecret = envOrDefault("GRAPH_CLIENT_SECRET", cfg.Mail.Graph.ClientSecret)
	cfg.Mail.Graph.UserID = envOrDefault("GRAPH_USER_ID", cfg.Mail.Graph.UserID)

	cfg.Analysis.Backend = envOrDefault("ANALYSIS_BACKEND", cfg.Analysis.Backend)
	cfg.Analysis.OllamaURL = envOrDefault("OLLAMA_URL", cfg.Analysis.OllamaURL)
	cfg.Analysis.Model = envOrDefault("OLLAMA_MODEL", cfg.Analysis.Model)
	cfg.Analysis.Timeout = envOrDefaultDuration("ANALYSIS_TIMEOUT", cfg.Analysis.Timeout)

	cfg.Storage.Driver = envOrDefault("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = envOrDefault("SQLITE_PATH", cfg.Storage.Path)
	cfg.Storage.DSN = envOrDefault("DATABASE_URL", cfg.Storage.DSN)

	cfg.Redis.URL = envOrDefault("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Queue = envOrDefault("TRIAGE_QUEUE", cfg.Redis.Queue)

	cfg.Calendar.ClientID = envOrDefault("GOOGLE_CLIENT_ID", cfg.Calendar.ClientID)
	cfg.Calendar.ClientSecret = envOrDefault("GOOGLE_CLIENT_SECRET", cfg.Calendar.ClientSecret)
	cfg.Calendar.RefreshToken = envOrDefault("GOOGLE_REFRESH_TOKEN", cfg.Calendar.RefreshToken)
	cfg.Calendar.Timezone = envOrDefault("CALENDAR_TIMEZONE", cfg.Calendar.Timezone)

	cfg.Slack.Token = envOrDefault("SLACK_BOT_TOKEN", cfg.Slack.Token)
	cfg.Slack.Channel = envOrDefault("SLACK_CHANNEL_ID", cfg.Slack.Channel)

	cfg.Search.APIKey = envOrDefault("GOOGLE_API_KEY", cfg.Search.APIKey)
	cfg.Search.CX = envOrDefault("GOOGLE_CX", cfg.Search.CX)

	cfg.Metrics.PushgatewayURL = envOrDefault("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Batch.MaxMessages <= 0 {
		add("batch.max_messages must be positive, got %d", c.Batch.MaxMessages)
	}

	switch c.Mail.Provider {
	case "imap":
		if c.Mail.IMAP.Addr == "" || c.Mail.IMAP.Username == "" || c.Mail.IMAP.Password == "" {
			add("mail.imap requires addr, username and password")
		}
	case "graph":
		g := c.Mail.Graph
		if g.TenantID == "" || g.ClientID == "" || g.ClientSecret == "" || g.UserID == "" {
			add("mail.graph requires tenant_id, client_id, client_secret and user_id")
		}
	default:
		add("mail.provider must be imap or graph, got %q", c.Mail.Provider)
	}

	switch c.Analysis.Backend {
	case "lexicon":
	case "ollama":
		if c.Analysis.OllamaURL == "" || c.Analysis.Model == "" {
			add("analysis.ollama_url and analysis.model are required for the ollama backend")
		}
	default:
		add("analysis.backend must be lexicon or ollama, got %q", c.Analysis.Backend)
	}

	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			add("storage.dsn is required for postgres")
		}
	default:
		add("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}

	if c.Calendar.Enabled() && (c.Calendar.ClientID == "" || c.Calendar.ClientSecret == "" || c.Calendar.RefreshToken == "") {
		add("calendar requires client_id, client_secret and refresh_token together")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		add("calendar.timezone: %w", err)
	}
	if c.Slack.Token != "" && c.Slack.Channel == "" {
		add("slack.channel is required when slack.token is set")
	}
	if (c.Search.APIKey == "") != (c.Search.CX == "") {
		add("search requires api_key and cx together")
	}

	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
