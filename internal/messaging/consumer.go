package messaging

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one delivery body. A returned error rejects the
// message without requeue, routing it to the DLQ.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer pulls tasks from one queue and feeds them to a handler.
type Consumer struct {
	channel *amqp.Channel
	queue   string
	handler HandlerFunc
	logger  *zap.Logger
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(ch *amqp.Channel, queue string, handler HandlerFunc, logger *zap.Logger) *Consumer {
	return &Consumer{
		channel: ch,
		queue:   queue,
		handler: handler,
		logger:  logger.Named("Consumer").With(zap.String("queue", queue)),
	}
}

// Run consumes until ctx is cancelled or the channel closes. Each message is
// acked on success and nacked without requeue on failure; redelivery of
// unacked messages after a crash is what resumes interrupted runs.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	c.logger.Info("Consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping")
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				c.logger.Info("Delivery channel closed, consumer exiting")
				return nil
			}
			if err := c.handler(ctx, msg.Body); err != nil {
				c.logger.Error("Task failed, rejecting without requeue", zap.Error(err))
				if nackErr := msg.Nack(false, false); nackErr != nil {
					c.logger.Error("Failed to nack message", zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("Failed to ack message", zap.Error(ackErr))
			}
		}
	}
}
