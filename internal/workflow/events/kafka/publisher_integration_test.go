//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"flowgate/internal/platform/config"
	"flowgate/internal/workflow/events"
	"flowgate/internal/workflow/events/kafka"
	"flowgate/pkg/testutil/containers"
)

func TestPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.GetManager().GetRedpanda(t)

	cfg := config.KafkaConfig{
		Brokers: redpanda.Brokers,
		Topic:   "workflow.transitions.test",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	publisher, err := kafka.NewPublisher(ctx, cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, publisher)

	event := events.TransitionEvent{
		EntityType: "invoice",
		EntityID:   "INV-1",
		FromState:  "DRAFT",
		ToState:    "APPLIED",
		ActorID:    "u-1",
		ActorRole:  "owner",
		Version:    1,
		Timestamp:  time.Now().UTC(),
	}
	publisher.Publish(ctx, event)

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	publisher.Close(flushCtx)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancelPoll := context.WithTimeout(ctx, 15*time.Second)
	defer cancelPoll()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "invoice/INV-1", string(records[0].Key))

	var got events.TransitionEvent
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.EntityType, got.EntityType)
	require.Equal(t, event.ToState, got.ToState)
	require.Equal(t, event.Version, got.Version)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	ctx := context.Background()
	var publisher *kafka.Publisher
	publisher.Publish(ctx, events.TransitionEvent{})
	publisher.Close(ctx)
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	publisher, err := kafka.NewPublisher(context.Background(), config.KafkaConfig{}, nil)
	require.NoError(t, err)
	require.Nil(t, publisher)
}
