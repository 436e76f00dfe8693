// Package events publishes domain events to Kafka. Downstream consumers
// feed case-management and analytics from these topics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/triage"
)

// Default topics. Overridable per environment through the publisher
// options.
const (
	DefaultTriageTopic = "fraudops.triage.completed"
	DefaultAlertTopic  = "fraudops.alerts.created"
)

// writer is the slice of kafka.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the wire format for every published event.
type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher emits triage and alert events, one topic each. It satisfies
// the triage service's Publisher contract.
type Publisher struct {
	triageWriter writer
	alertWriter  writer
	logger       log.Logger
	now          func() time.Time
}

// Option adjusts publisher construction.
type Option func(*options)

type options struct {
	triageTopic string
	alertTopic  string
}

// WithTriageTopic overrides the triage completion topic.
func WithTriageTopic(topic string) Option {
	return func(o *options) { o.triageTopic = topic }
}

// WithAlertTopic overrides the alert creation topic.
func WithAlertTopic(topic string) Option {
	return func(o *options) { o.alertTopic = topic }
}

// NewPublisher wires a Kafka publisher against the given brokers.
func NewPublisher(brokers []string, logger log.Logger, opts ...Option) *Publisher {
	o := options{
		triageTopic: DefaultTriageTopic,
		alertTopic:  DefaultAlertTopic,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Publisher{
		triageWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    o.triageTopic,
			Balancer: &kafka.LeastBytes{},
		},
		alertWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    o.alertTopic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger.With("component", "events"),
		now:    time.Now,
	}
}

// TriageCompleted publishes a finished triage run, keyed by customer so
// partitions preserve per-customer ordering.
func (p *Publisher) TriageCompleted(ctx context.Context, res triage.RunResult) error {
	if err := p.publish(ctx, p.triageWriter, res.Result.CustomerID, "triage.completed", res); err != nil {
		return fmt.Errorf("publish triage completion for session %s: %w", res.SessionID, err)
	}
	p.logger.Info(ctx, "triage event published", "session_id", res.SessionID, "customer_id", res.Result.CustomerID)
	return nil
}

// AlertCreated publishes a newly raised alert, keyed by customer.
func (p *Publisher) AlertCreated(ctx context.Context, alert *fraud.Alert) error {
	if err := p.publish(ctx, p.alertWriter, alert.CustomerID, "alert.created", alert); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	p.logger.Info(ctx, "alert event published", "alert_id", alert.ID, "severity", string(alert.Severity))
	return nil
}

func (p *Publisher) publish(ctx context.Context, w writer, key, eventType string, payload any) error {
	data, err := json.Marshal(envelope{
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	if err := p.triageWriter.Close(); err != nil {
		return fmt.Errorf("close triage writer: %w", err)
	}
	if err := p.alertWriter.Close(); err != nil {
		return fmt.Errorf("close alert writer: %w", err)
	}
	return nil
}
