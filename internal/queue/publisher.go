// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue publishes triage results to Redis as Celery-compatible tasks
// so downstream workers can react to processed mail.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/triage/internal/models"
)

const (
	// DefaultQueueName is the Redis list events are pushed to.
	DefaultQueueName = "triage"

	// EventTriageCompleted is emitted after a record is persisted.
	EventTriageCompleted = "triage.completed"

	taskName = "triage.tasks.email_triaged"

	pingTimeout = 2 * time.Second
)

// Pusher is the subset of the Redis client the publisher needs.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Event describes one triaged message.
type Event struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Category    string    `json:"category"`
	Urgency     string    `json:"urgency"`
	Sentiment   string    `json:"sentiment"`
	Actions     string    `json:"actions"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewEvent builds a triage.completed event from a stored record.
func NewEvent(runID string, rec models.StoredRecord) Event {
	return Event{
		EventID:     uuid.NewString(),
		Type:        EventTriageCompleted,
		RunID:       runID,
		MessageID:   rec.MessageID,
		ThreadID:    rec.ThreadID,
		Sender:      rec.Sender,
		Subject:     rec.Subject,
		Category:    rec.Analysis.Category,
		Urgency:     rec.Analysis.Urgency.String(),
		Sentiment:   string(rec.Analysis.Sentiment.Label),
		Actions:     rec.Outcome.KindString(),
		ProcessedAt: rec.ProcessedAt,
	}
}

// Publisher sends triage events to Redis in Celery task format.
type Publisher struct {
	rdb       Pusher
	queueName string
}

// NewPublisher returns a Publisher for queueName, or DefaultQueueName when
// empty.
func NewPublisher(rdb Pusher, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queueName: queueName}
}

// celeryTask is the task body a Celery worker decodes.
type celeryTask struct {
	ID      string         `json:"id"`
	Task    string         `json:"task"`
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
	Retries int            `json:"retries"`
	ETA     *string        `json:"eta"`
}

type celeryHeaders struct {
	Lang    string `json:"lang"`
	Task    string `json:"task"`
	ID      string `json:"id"`
	Retries int    `json:"retries"`
}

type deliveryInfo struct {
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

type celeryProperties struct {
	CorrelationID string       `json:"correlation_id"`
	DeliveryMode  int          `json:"delivery_mode"`
	DeliveryTag   string       `json:"delivery_tag"`
	BodyEncoding  string       `json:"body_encoding"`
	Exchange      string       `json:"exchange"`
	RoutingKey    string       `json:"routing_key"`
	DeliveryInfo  deliveryInfo `json:"delivery_info"`
}

// celeryMessage is the Redis transport envelope around a task.
type celeryMessage struct {
	Body            string           `json:"body"`
	ContentEncoding string           `json:"content-encoding"`
	ContentType     string           `json:"content-type"`
	Headers         celeryHeaders    `json:"headers"`
	Properties      celeryProperties `json:"properties"`
}

// encodeTask wraps payload as the single argument of a taskName task
// routed to queue.
func encodeTask(queue, taskID string, payload []byte) ([]byte, error) {
	body, err := json.Marshal(celeryTask{
		ID:     taskID,
		Task:   taskName,
		Args:   []any{string(payload)},
		Kwargs: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal celery task: %w", err)
	}

	msg, err := json.Marshal(celeryMessage{
		Body:            string(body),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers:         celeryHeaders{Lang: "py", Task: taskName, ID: taskID},
		Properties: celeryProperties{
			CorrelationID: taskID,
			DeliveryMode:  2,
			DeliveryTag:   taskID,
			BodyEncoding:  "utf-8",
			Exchange:      queue,
			RoutingKey:    queue,
			DeliveryInfo:  deliveryInfo{Exchange: queue, RoutingKey: queue},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal celery message: %w", err)
	}
	return msg, nil
}

// Publish serialises event and LPUSHes it as a Celery task. The event ID
// doubles as the task ID.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal triage event: %w", err)
	}

	msg, err := encodeTask(p.queueName, event.EventID, payload)
	if err != nil {
		return err
	}
	if err := p.rdb.LPush(ctx, p.queueName, string(msg)).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", p.queueName, err)
	}

	slog.Debug("published triage event",
		"event_id", event.EventID,
		"message_id", event.MessageID,
		"queue", p.queueName,
	)
	return nil
}

// Ping verifies the queue's Redis server answers within pingTimeout.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
