package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/messaging"
	"storybook-server/internal/mocks"
	"storybook-server/internal/models"
	"storybook-server/internal/service"
)

const sampleStoryText = `**Book Title:** The Brave Little Fox
**Age Group:** 3-5
**Core Concept:** Courage grows when you help a friend.

**Characters:**
* **Finn:** A small fox with a big heart.
* **Willow:** A wise old owl.

**Page 1: The Quiet Forest**
**Illustration:** A small orange fox at the edge of a sunny forest clearing.
**Text:** Finn the fox lived at the edge of a quiet forest. *(Can you spot the fox?)*

**Page 2: A Cry for Help**
**Illustration:** An owl tangled in a berry bush, a fox looking up at her.
**Text:** One day Finn heard a small voice calling from the berry bush.
`

type workflowFixture struct {
	workflow    *StoryWorkflow
	tx          *mocks.MockTxManager
	stories     *mocks.MockStoryRepository
	steps       *mocks.MockStepLogRepository
	cache       *mocks.MockStoryCache
	textGen     *mocks.MockTextGenerator
	illustrator *mocks.MockIllustrationGenerator
	notifier    *mocks.MockNotifier

	statuses      []models.StoryStatus
	notifications []messaging.StoryUpdatePayload
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		tx:          mocks.NewMockTxManager(t),
		stories:     mocks.NewMockStoryRepository(t),
		steps:       mocks.NewMockStepLogRepository(t),
		cache:       mocks.NewMockStoryCache(t),
		textGen:     mocks.NewMockTextGenerator(t),
		illustrator: mocks.NewMockIllustrationGenerator(t),
		notifier:    mocks.NewMockNotifier(t),
	}

	f.tx.On("DB").Return(nil).Maybe()
	f.tx.On("WithTx", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.notifier.On("NotifyStoryUpdate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.notifications = append(f.notifications, args.Get(1).(messaging.StoryUpdatePayload))
		}).Return().Maybe()

	cfg := &config.Config{
		IllustrationConcurrency: 2,
		IllustrationRateLimit:   1000,
	}
	f.workflow = NewStoryWorkflow(f.tx, f.stories, f.steps, f.cache,
		f.textGen, f.illustrator, f.notifier, cfg, zap.NewNop())
	return f
}

// expectFreshRun makes every step execute and record normally.
func (f *workflowFixture) expectFreshRun(runID uuid.UUID) {
	f.steps.On("Find", mock.Anything, mock.Anything, runID, mock.AnythingOfType("int")).
		Return(nil, models.ErrNotFound)
	f.steps.On("Record", mock.Anything, mock.Anything, mock.AnythingOfType("*models.WorkflowStep")).
		Return(nil)
}

// trackStatuses records every story status transition in order.
func (f *workflowFixture) trackStatuses() {
	f.stories.On("UpdateStoryStatus", mock.Anything, mock.Anything, mock.Anything, mock.AnythingOfType("models.StoryStatus")).
		Run(func(args mock.Arguments) {
			f.statuses = append(f.statuses, args.Get(3).(models.StoryStatus))
		}).Return(nil)
}

func (f *workflowFixture) notifiedStatuses() []string {
	statuses := make([]string, 0, len(f.notifications))
	for _, n := range f.notifications {
		statuses = append(statuses, n.Status)
	}
	return statuses
}

func TestRunGeneration_HappyPath(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	f.expectFreshRun(runID)
	f.trackStatuses()

	f.textGen.On("GenerateStoryText", mock.Anything, "a fox story").
		Return(sampleStoryText, service.UsageInfo{TotalTokens: 200}, nil).Once()

	f.stories.On("CreateStory", mock.Anything, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
		return s.Title == "The Brave Little Fox" &&
			s.AgeMin == 3 && s.AgeMax == 5 &&
			s.Status == models.StatusGenerating &&
			s.Prompt == "a fox story"
	})).Return(nil).Once()
	f.stories.On("AddCharacters", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(chars []models.Character) bool {
		return len(chars) == 2 && chars[0].Name == "Finn"
	})).Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()
	f.stories.On("AddPages", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(pages []models.Page) bool {
		return len(pages) == 2 && pages[0].PageNumber == 1 && pages[0].InteractiveQuestion != nil
	})).Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()

	pageOne := models.Page{ID: uuid.New(), PageNumber: 1, IllustrationPrompt: "A small orange fox"}
	pageTwo := models.Page{ID: uuid.New(), PageNumber: 2, IllustrationPrompt: "An owl tangled in a berry bush"}
	f.stories.On("GetPagesByStoryID", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Page{pageOne, pageTwo}, nil).Once()

	for _, page := range []models.Page{pageOne, pageTwo} {
		f.illustrator.On("GeneratePageIllustration", mock.Anything, page.ID, page.IllustrationPrompt).
			Return(&service.IllustrationResult{
				PageID:     page.ID,
				URL:        "http://cdn.local/" + page.ID.String() + ".png",
				StorageRef: page.ID.String() + ".png",
			}, nil).Once()
		f.stories.On("UpdatePageIllustration", mock.Anything, mock.Anything, page.ID, mock.Anything, mock.Anything).
			Return(nil).Once()
	}

	f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

	err := f.workflow.RunGeneration(t.Context(), messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     "a fox story",
		Illustrate: true,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.StoryStatus{
		models.StatusGeneratingIllustrations,
		models.StatusCompleted,
	}, f.statuses)
	assert.Equal(t, []string{
		string(models.StatusGeneratingIllustrations),
		string(models.StatusCompleted),
	}, f.notifiedStatuses())
	f.stories.AssertExpectations(t)
	f.illustrator.AssertExpectations(t)
}

func TestRunGeneration_WithoutIllustrations(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	f.expectFreshRun(runID)
	f.trackStatuses()

	f.textGen.On("GenerateStoryText", mock.Anything, "a fox story").
		Return(sampleStoryText, service.UsageInfo{}, nil).Once()
	f.stories.On("CreateStory", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.stories.On("AddCharacters", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()
	f.stories.On("AddPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()
	f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

	err := f.workflow.RunGeneration(t.Context(), messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     "a fox story",
		Illustrate: false,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.StoryStatus{models.StatusCompleted}, f.statuses)
	f.stories.AssertNotCalled(t, "GetPagesByStoryID")
	f.illustrator.AssertNotCalled(t, "GeneratePageIllustration")
}

func TestRunGeneration_UnparseableTextAbortsRun(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	f.expectFreshRun(runID)

	f.textGen.On("GenerateStoryText", mock.Anything, "a fox story").
		Return("The model rambled and produced nothing usable.", service.UsageInfo{}, nil).Once()

	err := f.workflow.RunGeneration(t.Context(), messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     "a fox story",
		Illustrate: true,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
	f.stories.AssertNotCalled(t, "CreateStory")
	require.Len(t, f.notifications, 1)
	assert.Equal(t, string(models.StatusFailed), f.notifications[0].Status)
	assert.NotEmpty(t, f.notifications[0].Error)
	assert.Equal(t, uuid.Nil, f.notifications[0].StoryID)
}

func TestRunGeneration_TextGenerationErrorFailsRun(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	f.expectFreshRun(runID)

	f.textGen.On("GenerateStoryText", mock.Anything, "a fox story").
		Return("", service.UsageInfo{}, models.ErrGenerationFailed).Once()

	err := f.workflow.RunGeneration(t.Context(), messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     "a fox story",
		Illustrate: true,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGenerationFailed)
	f.stories.AssertNotCalled(t, "CreateStory")
}

func TestRunGeneration_ResumeSkipsRecordedSteps(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	f.trackStatuses()

	recordedResult, err := json.Marshal(map[string]any{
		"text":        sampleStoryText,
		"totalTokens": 200,
	})
	require.NoError(t, err)
	f.steps.On("Find", mock.Anything, mock.Anything, runID, 0).
		Return(&models.WorkflowStep{
			RunID:     runID,
			StepIndex: 0,
			Name:      "generate_text",
			Result:    recordedResult,
		}, nil).Once()
	f.steps.On("Find", mock.Anything, mock.Anything, runID, mock.AnythingOfType("int")).
		Return(nil, models.ErrNotFound)
	f.steps.On("Record", mock.Anything, mock.Anything, mock.AnythingOfType("*models.WorkflowStep")).
		Return(nil)

	f.stories.On("CreateStory", mock.Anything, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
		return s.Title == "The Brave Little Fox"
	})).Return(nil).Once()
	f.stories.On("AddCharacters", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()
	f.stories.On("AddPages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()
	f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

	err = f.workflow.RunGeneration(t.Context(), messaging.GenerateStoryTaskPayload{
		RunID:      runID,
		Prompt:     "a fox story",
		Illustrate: false,
	})

	require.NoError(t, err)
	f.textGen.AssertNotCalled(t, "GenerateStoryText")
}

func TestRunIllustration_PartialFailureStillCompletes(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	storyID := uuid.New()
	f.expectFreshRun(runID)
	f.trackStatuses()

	existingURL := "http://cdn.local/already-there.png"
	done := models.Page{ID: uuid.New(), PageNumber: 1, IllustrationURL: &existingURL}
	good := models.Page{ID: uuid.New(), PageNumber: 2, IllustrationPrompt: "a sunny meadow"}
	bad := models.Page{ID: uuid.New(), PageNumber: 3, IllustrationPrompt: "a stormy sky"}
	f.stories.On("GetPagesByStoryID", mock.Anything, mock.Anything, storyID).
		Return([]models.Page{done, good, bad}, nil).Once()

	f.illustrator.On("GeneratePageIllustration", mock.Anything, good.ID, good.IllustrationPrompt).
		Return(&service.IllustrationResult{PageID: good.ID, URL: "http://cdn.local/new.png", StorageRef: "new.png"}, nil).Once()
	f.illustrator.On("GeneratePageIllustration", mock.Anything, bad.ID, bad.IllustrationPrompt).
		Return(nil, models.ErrIllustrationFailed).Once()
	f.stories.On("UpdatePageIllustration", mock.Anything, mock.Anything, good.ID, mock.Anything, mock.Anything).
		Return(nil).Once()
	f.cache.On("Invalidate", mock.Anything, storyID).Return(nil).Once()

	err := f.workflow.RunIllustration(t.Context(), messaging.IllustrateStoryTaskPayload{
		RunID:   runID,
		StoryID: storyID,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.StoryStatus{
		models.StatusGeneratingIllustrations,
		models.StatusCompleted,
	}, f.statuses)

	var recordedOutcome *illustrationOutcome
	for _, call := range f.steps.Calls {
		if call.Method != "Record" {
			continue
		}
		step := call.Arguments.Get(2).(*models.WorkflowStep)
		if step.Name != "illustrate_pages" {
			continue
		}
		var outcome illustrationOutcome
		require.NoError(t, json.Unmarshal(step.Result, &outcome))
		recordedOutcome = &outcome
	}
	require.NotNil(t, recordedOutcome)
	assert.Equal(t, 1, recordedOutcome.Succeeded)
	assert.Equal(t, 1, recordedOutcome.Failed)
	assert.Equal(t, 1, recordedOutcome.Skipped)
}

func TestRunIllustration_PageLoadErrorFailsRun(t *testing.T) {
	f := newWorkflowFixture(t)
	runID := uuid.New()
	storyID := uuid.New()
	f.expectFreshRun(runID)
	f.trackStatuses()

	f.stories.On("GetPagesByStoryID", mock.Anything, mock.Anything, storyID).
		Return(nil, errors.New("connection refused")).Once()

	err := f.workflow.RunIllustration(t.Context(), messaging.IllustrateStoryTaskPayload{
		RunID:   runID,
		StoryID: storyID,
	})

	require.Error(t, err)
	last := f.notifications[len(f.notifications)-1]
	assert.Equal(t, string(models.StatusFailed), last.Status)
	assert.Equal(t, storyID, last.StoryID)
}
