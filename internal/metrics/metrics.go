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

// Package metrics records batch run metrics and pushes them to a Prometheus
// Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job label.
const DefaultJob = "email_triage"

// Recorder holds one run's metrics in a private registry.
type Recorder struct {
	reg *prometheus.Registry

	messagesTotal   *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	batchMessages   *prometheus.GaugeVec
	lastRunUnixTime prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_messages_total",
				Help: "Messages processed, by final state",
			},
			[]string{"state"},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_actions_total",
				Help: "Automated actions attempted, by kind and result",
			},
			[]string{"kind", "result"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_stage_duration_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		batchMessages: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_batch_messages",
				Help: "Messages in the last batch, by result",
			},
			[]string{"result"},
		),
		lastRunUnixTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "triage_last_run_timestamp_seconds",
			Help: "Unix time the last batch finished",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Message counts a message reaching its final state.
func (r *Recorder) Message(state string) {
	r.messagesTotal.WithLabelValues(state).Inc()
}

// Action counts one action attempt.
func (r *Recorder) Action(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.actionsTotal.WithLabelValues(kind, result).Inc()
}

// Batch records the totals of a finished batch.
func (r *Recorder) Batch(succeeded, total int) {
	r.batchMessages.WithLabelValues("succeeded").Set(float64(succeeded))
	r.batchMessages.WithLabelValues("failed").Set(float64(total - succeeded))
	r.lastRunUnixTime.SetToCurrentTime()
}

// Push sends the registry to the Pushgateway at url, replacing the job's
// previous metrics.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(url, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
