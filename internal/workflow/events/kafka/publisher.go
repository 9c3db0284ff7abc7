// Package kafka publishes transition events to a Kafka topic with franz-go.
//
// Publishing is fire-and-forget: produce errors are logged at warn level and
// never propagated, so broker trouble cannot roll back or delay a committed
// transition. Events are keyed by (entity_type, entity_id) so one entity's
// transitions land on one partition in commit order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"flowgate/internal/platform/config"
	"flowgate/internal/workflow/events"
)

// Publisher emits transition events to Kafka.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers and ensures the topic exists.
// Returns nil when no brokers are configured (eventing disabled).
func NewPublisher(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// ensureTopic creates the topic when it does not exist yet. Already-exists
// responses are fine: another instance won the race.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if details.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, -1, -1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %s: %w", topic, err)
	}
	return nil
}

// Publish produces the event asynchronously. Failures are logged, never
// returned.
func (p *Publisher) Publish(ctx context.Context, event events.TransitionEvent) {
	if p == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.WarnContext(ctx, "marshal transition event failed",
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"error", err.Error(),
		)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EntityType + "/" + event.EntityID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("publish transition event failed",
				"topic", p.topic,
				"entity_type", event.EntityType,
				"entity_id", event.EntityID,
				"error", err.Error(),
			)
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (p *Publisher) Close(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("flush kafka producer failed", "error", err.Error())
	}
	p.client.Close()
}
