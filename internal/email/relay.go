package email

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// RelayProvider hands the rendered message to the outbound mail relay through Kafka.
type RelayProvider struct {
	publisher Publisher
	topic     string
}

func NewRelayProvider(publisher Publisher, topic string) *RelayProvider {
	return &RelayProvider{publisher: publisher, topic: topic}
}

func (p *RelayProvider) Name() string { return "relay" }

type relayEnvelope struct {
	MessageID string  `json:"message_id"`
	Message   Message `json:"message"`
}

func (p *RelayProvider) Send(ctx context.Context, msg Message) (Receipt, error) {
	if p.topic == "" {
		return Receipt{}, fmt.Errorf("relay: topic not configured")
	}
	id := uuid.NewString()
	key := msg.IdempotencyKey
	if key == "" {
		key = id
	}
	if err := p.publisher.Publish(ctx, p.topic, key, relayEnvelope{MessageID: id, Message: msg}); err != nil {
		return Receipt{}, fmt.Errorf("relay publish: %w", err)
	}
	return Receipt{Provider: p.Name(), MessageID: id}, nil
}

var _ Provider = (*RelayProvider)(nil)
