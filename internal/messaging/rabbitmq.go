package messaging

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// Dead-letter topology shared by the task queues. Rejected tasks land in the
// DLQ for manual inspection instead of being redelivered forever.
const (
	deadLetterExchange = "storybook_tasks_dlx"
	deadLetterQueue    = "storybook_tasks_dlq"
	dlqRoutingKey      = "dlq"
)

// ConnectRabbitMQ dials RabbitMQ with a few retries.
func ConnectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	const maxRetries = 5
	const retryDelay = 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", i+1), zap.Int("max_attempts", maxRetries), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// SetupTopology declares the dead-letter exchange, the task queues bound to
// it, the updates queue, and the channel QoS. Queue parameters must stay
// identical everywhere the queues are declared.
func SetupTopology(ch *amqp.Channel, cfg *config.Config, logger *zap.Logger) error {
	if err := ch.ExchangeDeclare(deadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX %q: %w", deadLetterExchange, err)
	}

	if _, err := ch.QueueDeclare(deadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ %q: %w", deadLetterQueue, err)
	}
	if err := ch.QueueBind(deadLetterQueue, dlqRoutingKey, deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ %q to DLX %q: %w", deadLetterQueue, deadLetterExchange, err)
	}

	taskQueues := []string{cfg.GenerationQueue, cfg.IllustrationQueue}
	for _, queue := range taskQueues {
		args := amqp.Table{
			"x-queue-mode":              "lazy",
			"x-dead-letter-exchange":    deadLetterExchange,
			"x-dead-letter-routing-key": dlqRoutingKey,
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", queue, err)
		}
		logger.Info("Task queue declared", zap.String("queue", queue))
	}

	// Updates queue has no DLX: events are fire-and-forget.
	if _, err := ch.QueueDeclare(cfg.UpdatesQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.UpdatesQueue, err)
	}

	if err := ch.Qos(cfg.WorkerPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	logger.Info("RabbitMQ topology ready",
		zap.String("dlx", deadLetterExchange),
		zap.Int("prefetch", cfg.WorkerPrefetch))
	return nil
}
