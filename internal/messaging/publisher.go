package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publisherAppID = "storybook-server"

// TaskPublisher enqueues workflow tasks.
type TaskPublisher interface {
	PublishGenerationTask(ctx context.Context, payload GenerateStoryTaskPayload) error
	PublishIllustrationTask(ctx context.Context, payload IllustrateStoryTaskPayload) error
}

type rabbitMQPublisher struct {
	channel           *amqp.Channel
	generationQueue   string
	illustrationQueue string
	logger            *zap.Logger
}

// NewRabbitMQTaskPublisher creates a publisher over an open channel. The
// queues are expected to be declared already (see SetupTopology).
func NewRabbitMQTaskPublisher(ch *amqp.Channel, generationQueue, illustrationQueue string, logger *zap.Logger) TaskPublisher {
	return &rabbitMQPublisher{
		channel:           ch,
		generationQueue:   generationQueue,
		illustrationQueue: illustrationQueue,
		logger:            logger.Named("TaskPublisher"),
	}
}

var _ TaskPublisher = (*rabbitMQPublisher)(nil)

func (p *rabbitMQPublisher) PublishGenerationTask(ctx context.Context, payload GenerateStoryTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal generation task %s: %w", payload.RunID, err)
	}
	if err := p.publishMessage(ctx, p.generationQueue, body); err != nil {
		return fmt.Errorf("failed to publish generation task %s: %w", payload.RunID, err)
	}
	p.logger.Info("Generation task published", zap.String("runID", payload.RunID.String()))
	return nil
}

func (p *rabbitMQPublisher) PublishIllustrationTask(ctx context.Context, payload IllustrateStoryTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal illustration task %s: %w", payload.RunID, err)
	}
	if err := p.publishMessage(ctx, p.illustrationQueue, body); err != nil {
		return fmt.Errorf("failed to publish illustration task %s: %w", payload.RunID, err)
	}
	p.logger.Info("Illustration task published",
		zap.String("runID", payload.RunID.String()),
		zap.String("storyID", payload.StoryID.String()))
	return nil
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, queue string, body []byte) error {
	if p.channel == nil {
		return errors.New("RabbitMQ channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",    // default exchange
			queue, // routing key
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        publisherAppID,
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.String("queue", queue), zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("failed to publish to queue %s after retries: %w", queue, err)
}
