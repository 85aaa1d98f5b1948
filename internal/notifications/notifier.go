package notifications

import (
	"context"

	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind      string
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers rendered messages to a channel such as email.
type Notifier interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the structured log. It stands in for a mail
// gateway in environments without one.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Deliver(ctx context.Context, msg Message) error {
	if n.logg == nil {
		return nil
	}
	n.logg.Info(n.logg.WithFields(ctx, map[string]any{
		"kind":      msg.Kind,
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	}), "notification delivered")
	return nil
}
