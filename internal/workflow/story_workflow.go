package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storybook-server/internal/config"
	"storybook-server/internal/interfaces"
	"storybook-server/internal/messaging"
	"storybook-server/internal/models"
	"storybook-server/internal/schemas"
	"storybook-server/internal/service"
)

// Step result payloads, JSON-serialized into the step log.
type generatedText struct {
	Text        string `json:"text"`
	TotalTokens int    `json:"totalTokens"`
}

type persistedStory struct {
	StoryID uuid.UUID `json:"storyId"`
}

type illustrationOutcome struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type stepDone struct{}

// StoryWorkflow drives story generation runs: text generation, parsing,
// transactional persistence and the concurrent illustration fan-out.
type StoryWorkflow struct {
	tx          interfaces.TxManager
	stories     interfaces.StoryRepository
	steps       interfaces.StepLogRepository
	cache       interfaces.StoryCache
	textGen     service.TextGenerator
	illustrator service.IllustrationGenerator
	notifier    messaging.Notifier
	concurrency int
	rateLimit   float64
	logger      *zap.Logger
}

// NewStoryWorkflow wires the workflow dependencies.
func NewStoryWorkflow(
	tx interfaces.TxManager,
	stories interfaces.StoryRepository,
	steps interfaces.StepLogRepository,
	cache interfaces.StoryCache,
	textGen service.TextGenerator,
	illustrator service.IllustrationGenerator,
	notifier messaging.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *StoryWorkflow {
	return &StoryWorkflow{
		tx:          tx,
		stories:     stories,
		steps:       steps,
		cache:       cache,
		textGen:     textGen,
		illustrator: illustrator,
		notifier:    notifier,
		concurrency: cfg.IllustrationConcurrency,
		rateLimit:   cfg.IllustrationRateLimit,
		logger:      logger.Named("StoryWorkflow"),
	}
}

// RunGeneration executes a full story generation run. Completed steps are
// memoized in the step log, so re-running the same payload resumes the run.
// Once pages are persisted, illustration failures degrade the result instead
// of failing it: the story always reaches completed.
func (w *StoryWorkflow) RunGeneration(ctx context.Context, payload messaging.GenerateStoryTaskPayload) error {
	log := w.logger.With(zap.String("runID", payload.RunID.String()))
	log.Info("Starting story generation run", zap.Bool("illustrate", payload.Illustrate))
	runsStarted.WithLabelValues("generation").Inc()
	start := time.Now()
	defer func() {
		runDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	}()

	run := NewRun(payload.RunID, w.steps, w.tx, w.logger)

	gen, err := Step(ctx, run, "generate_text", func(ctx context.Context) (generatedText, error) {
		text, usage, err := w.textGen.GenerateStoryText(ctx, payload.Prompt)
		if err != nil {
			return generatedText{}, err
		}
		return generatedText{Text: text, TotalTokens: usage.TotalTokens}, nil
	})
	if err != nil {
		w.failRun(ctx, "generation", payload.RunID, uuid.Nil, err)
		return err
	}

	parsed, err := Step(ctx, run, "parse_story", func(ctx context.Context) (*models.ParsedStory, error) {
		return schemas.ParseStoryText(gen.Text), nil
	})
	if err != nil {
		w.failRun(ctx, "generation", payload.RunID, uuid.Nil, err)
		return err
	}
	if parsed.IsFallback() {
		// No story record for unusable model output: the run dies here.
		err := fmt.Errorf("%w: generated text has no parseable story structure", models.ErrGenerationFailed)
		log.Error("Story text could not be parsed, aborting run", zap.Error(err))
		w.failRun(ctx, "generation", payload.RunID, uuid.Nil, err)
		return err
	}

	persisted, err := Step(ctx, run, "persist_story", func(ctx context.Context) (persistedStory, error) {
		storyID := uuid.New()
		now := time.Now().UTC()
		err := w.tx.WithTx(ctx, func(q interfaces.DBTX) error {
			story := &models.Story{
				ID:          storyID,
				Prompt:      payload.Prompt,
				Title:       parsed.Title,
				AgeMin:      parsed.AgeGroup.Min,
				AgeMax:      parsed.AgeGroup.Max,
				CoreConcept: parsed.CoreConcept,
				Status:      models.StatusGenerating,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := w.stories.CreateStory(ctx, q, story); err != nil {
				return err
			}

			characters := make([]models.Character, 0, len(parsed.Characters))
			for _, c := range parsed.Characters {
				characters = append(characters, models.Character{
					Name:        c.Name,
					Description: c.Description,
					Role:        c.Role,
				})
			}
			if _, err := w.stories.AddCharacters(ctx, q, storyID, characters); err != nil {
				return err
			}

			pages := make([]models.Page, 0, len(parsed.Pages))
			for _, p := range parsed.Pages {
				page := models.Page{
					StoryID:            storyID,
					PageNumber:         p.PageNumber,
					Text:               p.Text,
					IllustrationPrompt: p.IllustrationPrompt,
				}
				if p.InteractiveQuestion != "" {
					question := p.InteractiveQuestion
					page.InteractiveQuestion = &question
				}
				pages = append(pages, page)
			}
			if _, err := w.stories.AddPages(ctx, q, storyID, pages); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			return persistedStory{}, err
		}
		return persistedStory{StoryID: storyID}, nil
	})
	if err != nil {
		w.failRun(ctx, "generation", payload.RunID, uuid.Nil, err)
		return err
	}
	storyID := persisted.StoryID
	log = log.With(zap.String("storyID", storyID.String()))

	if payload.Illustrate {
		_, err = Step(ctx, run, "mark_illustrating", func(ctx context.Context) (stepDone, error) {
			return stepDone{}, w.stories.UpdateStoryStatus(ctx, w.tx.DB(), storyID, models.StatusGeneratingIllustrations)
		})
		if err != nil {
			w.markStoryFailed(ctx, storyID)
			w.failRun(ctx, "generation", payload.RunID, storyID, err)
			return err
		}
		w.notifier.NotifyStoryUpdate(ctx, messaging.StoryUpdatePayload{
			RunID:   payload.RunID,
			StoryID: storyID,
			Status:  string(models.StatusGeneratingIllustrations),
		})

		outcome, err := Step(ctx, run, "illustrate_pages", func(ctx context.Context) (illustrationOutcome, error) {
			return w.illustratePages(ctx, storyID)
		})
		if err != nil {
			// Infrastructure error before the fan-out could even start.
			w.markStoryFailed(ctx, storyID)
			w.failRun(ctx, "generation", payload.RunID, storyID, err)
			return err
		}
		log.Info("Illustration fan-out finished",
			zap.Int("succeeded", outcome.Succeeded),
			zap.Int("failed", outcome.Failed),
			zap.Int("skipped", outcome.Skipped))
	}

	_, err = Step(ctx, run, "complete", func(ctx context.Context) (stepDone, error) {
		return stepDone{}, w.stories.UpdateStoryStatus(ctx, w.tx.DB(), storyID, models.StatusCompleted)
	})
	if err != nil {
		w.markStoryFailed(ctx, storyID)
		w.failRun(ctx, "generation", payload.RunID, storyID, err)
		return err
	}

	w.invalidateCache(ctx, storyID)
	w.notifier.NotifyStoryUpdate(ctx, messaging.StoryUpdatePayload{
		RunID:   payload.RunID,
		StoryID: storyID,
		Status:  string(models.StatusCompleted),
	})
	runsCompleted.WithLabelValues("generation", "success").Inc()
	log.Info("Story generation run completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// RunIllustration re-runs the illustration fan-out for an existing story.
// The story finishes as completed regardless of how many pages failed; it
// never drops back to failed from here.
func (w *StoryWorkflow) RunIllustration(ctx context.Context, payload messaging.IllustrateStoryTaskPayload) error {
	log := w.logger.With(
		zap.String("runID", payload.RunID.String()),
		zap.String("storyID", payload.StoryID.String()))
	log.Info("Starting re-illustration run")
	runsStarted.WithLabelValues("illustration").Inc()
	start := time.Now()
	defer func() {
		runDuration.WithLabelValues("illustration").Observe(time.Since(start).Seconds())
	}()

	run := NewRun(payload.RunID, w.steps, w.tx, w.logger)

	_, err := Step(ctx, run, "mark_illustrating", func(ctx context.Context) (stepDone, error) {
		return stepDone{}, w.stories.UpdateStoryStatus(ctx, w.tx.DB(), payload.StoryID, models.StatusGeneratingIllustrations)
	})
	if err != nil {
		w.failRun(ctx, "illustration", payload.RunID, payload.StoryID, err)
		return err
	}
	w.notifier.NotifyStoryUpdate(ctx, messaging.StoryUpdatePayload{
		RunID:   payload.RunID,
		StoryID: payload.StoryID,
		Status:  string(models.StatusGeneratingIllustrations),
	})

	outcome, err := Step(ctx, run, "illustrate_pages", func(ctx context.Context) (illustrationOutcome, error) {
		return w.illustratePages(ctx, payload.StoryID)
	})
	if err != nil {
		w.failRun(ctx, "illustration", payload.RunID, payload.StoryID, err)
		return err
	}
	log.Info("Illustration fan-out finished",
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", outcome.Failed),
		zap.Int("skipped", outcome.Skipped))

	_, err = Step(ctx, run, "complete", func(ctx context.Context) (stepDone, error) {
		return stepDone{}, w.stories.UpdateStoryStatus(ctx, w.tx.DB(), payload.StoryID, models.StatusCompleted)
	})
	if err != nil {
		w.failRun(ctx, "illustration", payload.RunID, payload.StoryID, err)
		return err
	}

	w.invalidateCache(ctx, payload.StoryID)
	w.notifier.NotifyStoryUpdate(ctx, messaging.StoryUpdatePayload{
		RunID:   payload.RunID,
		StoryID: payload.StoryID,
		Status:  string(models.StatusCompleted),
	})
	runsCompleted.WithLabelValues("illustration", "success").Inc()
	log.Info("Re-illustration run completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// illustratePages generates illustrations for every page of the story that
// does not have one yet. Pages run concurrently behind a worker limit and a
// shared rate limiter; one page failing never stops the others, so the
// outcome is always a full accounting of the fan-out.
func (w *StoryWorkflow) illustratePages(ctx context.Context, storyID uuid.UUID) (illustrationOutcome, error) {
	pages, err := w.stories.GetPagesByStoryID(ctx, w.tx.DB(), storyID)
	if err != nil {
		return illustrationOutcome{}, fmt.Errorf("failed to load pages for illustration: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(w.rateLimit), 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	var mu sync.Mutex
	outcome := illustrationOutcome{}

	for _, page := range pages {
		if page.IllustrationURL != nil {
			outcome.Skipped++
			continue
		}
		page := page
		g.Go(func() error {
			// Record the page as failed on any error; never abort siblings.
			if err := limiter.Wait(gctx); err != nil {
				mu.Lock()
				outcome.Failed++
				mu.Unlock()
				return nil
			}

			result, err := w.illustrator.GeneratePageIllustration(gctx, page.ID, page.IllustrationPrompt)
			if err != nil {
				w.logger.Warn("Page illustration failed",
					zap.String("storyID", storyID.String()),
					zap.Int("pageNumber", page.PageNumber),
					zap.Error(err))
				illustrationsFailed.Inc()
				mu.Lock()
				outcome.Failed++
				mu.Unlock()
				return nil
			}

			if err := w.stories.UpdatePageIllustration(gctx, w.tx.DB(), page.ID, result.URL, result.StorageRef); err != nil {
				w.logger.Error("Failed to save page illustration",
					zap.String("storyID", storyID.String()),
					zap.Int("pageNumber", page.PageNumber),
					zap.Error(err))
				illustrationsFailed.Inc()
				mu.Lock()
				outcome.Failed++
				mu.Unlock()
				return nil
			}

			illustrationsGenerated.Inc()
			mu.Lock()
			outcome.Succeeded++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcome, err
	}
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	return outcome, nil
}

// markStoryFailed is a best-effort status drop; the run error is what the
// caller reports.
func (w *StoryWorkflow) markStoryFailed(ctx context.Context, storyID uuid.UUID) {
	if err := w.stories.UpdateStoryStatus(ctx, w.tx.DB(), storyID, models.StatusFailed); err != nil {
		w.logger.Error("Failed to mark story as failed",
			zap.String("storyID", storyID.String()), zap.Error(err))
	}
	w.invalidateCache(ctx, storyID)
}

func (w *StoryWorkflow) failRun(ctx context.Context, kind string, runID, storyID uuid.UUID, cause error) {
	runsCompleted.WithLabelValues(kind, "failed").Inc()
	update := messaging.StoryUpdatePayload{
		RunID:  runID,
		Status: string(models.StatusFailed),
		Error:  cause.Error(),
	}
	if storyID != uuid.Nil {
		update.StoryID = storyID
	}
	w.notifier.NotifyStoryUpdate(ctx, update)
}

func (w *StoryWorkflow) invalidateCache(ctx context.Context, storyID uuid.UUID) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(ctx, storyID); err != nil {
		w.logger.Warn("Failed to invalidate story cache",
			zap.String("storyID", storyID.String()), zap.Error(err))
	}
}
