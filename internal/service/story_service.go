package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/messaging"
	"storybook-server/internal/models"
)

// StoryService is the API-facing surface: it enqueues workflow runs and
// serves reads, with assembled stories cached.
type StoryService interface {
	// StartGeneration enqueues a new story generation run and returns its ID.
	StartGeneration(ctx context.Context, prompt string, illustrate bool) (uuid.UUID, error)

	// StartIllustration enqueues a re-illustration run for an existing story.
	// Returns models.ErrStoryBusy while a run is still working on the story.
	StartIllustration(ctx context.Context, storyID uuid.UUID) (uuid.UUID, error)

	ListStories(ctx context.Context, limit int) ([]models.StorySummary, error)
	GetStory(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error)
	GetPage(ctx context.Context, storyID uuid.UUID, pageNumber int) (*models.Page, error)
	GetRunSteps(ctx context.Context, runID uuid.UUID) ([]models.WorkflowStep, error)
}

type storyService struct {
	tx        interfaces.TxManager
	stories   interfaces.StoryRepository
	steps     interfaces.StepLogRepository
	cache     interfaces.StoryCache
	publisher messaging.TaskPublisher
	logger    *zap.Logger
}

// NewStoryService wires the API service.
func NewStoryService(
	tx interfaces.TxManager,
	stories interfaces.StoryRepository,
	steps interfaces.StepLogRepository,
	cache interfaces.StoryCache,
	publisher messaging.TaskPublisher,
	logger *zap.Logger,
) StoryService {
	return &storyService{
		tx:        tx,
		stories:   stories,
		steps:     steps,
		cache:     cache,
		publisher: publisher,
		logger:    logger.Named("StoryService"),
	}
}

var _ StoryService = (*storyService)(nil)

func (s *storyService) StartGeneration(ctx context.Context, prompt string, illustrate bool) (uuid.UUID, error) {
	runID := uuid.New()
	payload := messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     prompt,
		Illustrate: illustrate,
	}
	if err := s.publisher.PublishGenerationTask(ctx, payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue generation run: %w", err)
	}
	s.logger.Info("Generation run enqueued",
		zap.String("runID", runID.String()), zap.Bool("illustrate", illustrate))
	return runID, nil
}

func (s *storyService) StartIllustration(ctx context.Context, storyID uuid.UUID) (uuid.UUID, error) {
	details, err := s.GetStory(ctx, storyID)
	if err != nil {
		return uuid.Nil, err
	}
	switch details.Status {
	case models.StatusGenerating, models.StatusGeneratingIllustrations:
		return uuid.Nil, models.ErrStoryBusy
	}

	runID := uuid.New()
	payload := messaging.IllustrateStoryTaskPayload{
		RunID:   runID,
		StoryID: storyID,
	}
	if err := s.publisher.PublishIllustrationTask(ctx, payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue illustration run: %w", err)
	}
	s.logger.Info("Illustration run enqueued",
		zap.String("runID", runID.String()), zap.String("storyID", storyID.String()))
	return runID, nil
}

func (s *storyService) ListStories(ctx context.Context, limit int) ([]models.StorySummary, error) {
	return s.stories.ListStories(ctx, s.tx.DB(), limit)
}

// GetStory reads through the cache. Stories still being worked on are served
// from the database only, so readers always see fresh progress.
func (s *storyService) GetStory(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error) {
	if s.cache != nil {
		if details, err := s.cache.Get(ctx, id); err == nil {
			return details, nil
		} else if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Story cache read failed, falling back to database",
				zap.String("storyID", id.String()), zap.Error(err))
		}
	}

	details, err := s.stories.GetStory(ctx, s.tx.DB(), id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && (details.Status == models.StatusCompleted || details.Status == models.StatusFailed) {
		if err := s.cache.Set(ctx, details); err != nil {
			s.logger.Warn("Failed to cache story",
				zap.String("storyID", id.String()), zap.Error(err))
		}
	}
	return details, nil
}

func (s *storyService) GetPage(ctx context.Context, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	return s.stories.GetPage(ctx, s.tx.DB(), storyID, pageNumber)
}

func (s *storyService) GetRunSteps(ctx context.Context, runID uuid.UUID) ([]models.WorkflowStep, error) {
	return s.steps.ListByRun(ctx, s.tx.DB(), runID)
}
