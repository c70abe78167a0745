package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier publishes story progress events. Delivery is best effort: a lost
// event never fails the workflow that produced it.
type Notifier interface {
	NotifyStoryUpdate(ctx context.Context, payload StoryUpdatePayload)
}

type rabbitMQNotifier struct {
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewRabbitMQNotifier creates a notifier publishing to the updates queue.
func NewRabbitMQNotifier(ch *amqp.Channel, queue string, logger *zap.Logger) Notifier {
	return &rabbitMQNotifier{
		channel: ch,
		queue:   queue,
		logger:  logger.Named("Notifier"),
	}
}

var _ Notifier = (*rabbitMQNotifier)(nil)

func (n *rabbitMQNotifier) NotifyStoryUpdate(ctx context.Context, payload StoryUpdatePayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Failed to marshal story update", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(ctx,
		"", n.queue, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        publisherAppID,
		},
	)
	if err != nil {
		n.logger.Warn("Failed to publish story update",
			zap.String("runID", payload.RunID.String()),
			zap.String("status", payload.Status),
			zap.Error(err))
		return
	}
	n.logger.Debug("Story update published",
		zap.String("runID", payload.RunID.String()),
		zap.String("status", payload.Status))
}
