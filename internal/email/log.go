package email

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogProvider writes messages to the log instead of delivering them. Local development only.
type LogProvider struct {
	logger logrus.FieldLogger
}

func NewLogProvider(logger logrus.FieldLogger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Send(_ context.Context, msg Message) (Receipt, error) {
	id := uuid.NewString()
	p.logger.WithFields(logrus.Fields{
		"to":         msg.To,
		"subject":    msg.Subject,
		"template":   msg.Template,
		"message_id": id,
	}).Info("[MOCK EMAIL] confirmation")
	return Receipt{Provider: p.Name(), MessageID: id}, nil
}

var _ Provider = (*LogProvider)(nil)
