package email

import "context"

// Message is a rendered confirmation ready for delivery.
type Message struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Template string   `json:"template"`
	Text     string   `json:"text"`
	HTML     string   `json:"html"`
	// IdempotencyKey lets downstream relays drop duplicates.
	IdempotencyKey string `json:"idempotency_key"`
}

type Receipt struct {
	Provider  string
	MessageID string
}

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}
