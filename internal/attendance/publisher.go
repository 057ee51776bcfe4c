package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is where attendance outcomes land unless configured
// otherwise.
const DefaultTopic = "presence.attendance"

// Publisher emits every finalized attendance outcome to Kafka so downstream
// systems (gradebooks, analytics) can react without polling the database.
type Publisher struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

func NewPublisher(client *kgo.Client, topic string, log *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{client: client, topic: topic, log: log}
}

// Publish produces one record keyed by lecture id, so all outcomes of a
// lecture stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, outcome *Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal attendance outcome: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(outcome.LectureID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce attendance outcome: %w", err)
	}

	p.log.DebugContext(ctx, "attendance outcome published",
		slog.String("session_id", outcome.SessionID),
		slog.String("decision", outcome.Decision))
	return nil
}

// EnsureTopic creates the topic if the broker does not auto-create it.
// Called once on startup.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	if topic == "" {
		topic = DefaultTopic
	}
	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, response := range responses {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, response.Err)
		}
	}
	return nil
}
