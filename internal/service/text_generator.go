package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/models"
)

// DefaultStoryPrompt is substituted when a generation request arrives with an
// empty prompt.
const DefaultStoryPrompt = "generate a kid story"

// storySystemPrompt instructs the model to emit the labeled format the parser
// understands.
const storySystemPrompt = `You are a children's book author. Write an illustrated storybook for the requested topic.

Format the story exactly like this:

**Book Title:** <title>
**Age Group:** <min>-<max>
**Core Concept:** <one sentence lesson of the story>

**Characters:**
* **<Name>:** <short description>
* **<Name>:** <short description>

Then write the pages. Each page looks like:

**Page <number>: <page title>**
**Illustration:** <a vivid one-sentence description of the picture for this page>
**Text:** <the page text, two or three short sentences>

You may add an interactive question for the reader at the end of a page's text, written in italics in parentheses, like *(What color is the fox?)*.
Write 5 to 8 pages. Use simple warm language appropriate for the age group.`

// TextGenerator produces raw story text from a reader's prompt.
type TextGenerator interface {
	GenerateStoryText(ctx context.Context, prompt string) (string, UsageInfo, error)
}

type textGenerator struct {
	client      AIClient
	policy      RetryPolicy
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewTextGenerator wraps an AIClient with retries and the storybook prompt.
func NewTextGenerator(client AIClient, cfg *config.Config, logger *zap.Logger) TextGenerator {
	return &textGenerator{
		client: client,
		policy: RetryPolicy{
			MaxAttempts: cfg.AIMaxAttempts,
			BaseDelay:   cfg.AIBaseRetryDelay,
			Factor:      2.0,
			Jitter:      true,
		},
		maxTokens:   cfg.AIMaxTokens,
		temperature: cfg.AITemperature,
		logger:      logger.Named("text_generator"),
	}
}

var _ TextGenerator = (*textGenerator)(nil)

// GenerateStoryText asks the text model for a story. An empty prompt falls
// back to DefaultStoryPrompt; whitespace-only model output counts as a failed
// attempt. All errors out of the client are retried up to the policy limit.
func (g *textGenerator) GenerateStoryText(ctx context.Context, prompt string) (string, UsageInfo, error) {
	if strings.TrimSpace(prompt) == "" {
		g.logger.Warn("Empty story prompt, using the default")
		prompt = DefaultStoryPrompt
	}

	params := GenerationParams{
		Temperature: &g.temperature,
		MaxTokens:   &g.maxTokens,
	}

	type generation struct {
		text  string
		usage UsageInfo
	}

	result, err := Retry(ctx, g.policy, nil, func(ctx context.Context) (generation, error) {
		text, usage, err := g.client.GenerateText(ctx, storySystemPrompt, prompt, params)
		if err != nil {
			g.logger.Warn("Story text attempt failed", zap.Error(err))
			return generation{}, err
		}
		if strings.TrimSpace(text) == "" {
			g.logger.Warn("Story text attempt produced empty output")
			return generation{}, fmt.Errorf("%w: model produced empty output", models.ErrGenerationFailed)
		}
		return generation{text: text, usage: usage}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", UsageInfo{}, err
		}
		return "", UsageInfo{}, fmt.Errorf("story text generation failed: %w", err)
	}

	g.logger.Info("Story text generated",
		zap.Int("chars", len(result.text)),
		zap.Int("total_tokens", result.usage.TotalTokens))
	return result.text, result.usage, nil
}
