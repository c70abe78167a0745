package interfaces

import (
	"context"

	"github.com/google/uuid"

	"storybook-server/internal/models"
)

// StoryRepository defines the persistence operations the workflow and the API
// use as building blocks. Each mutation is a single atomic write against the
// backing store.
type StoryRepository interface {
	// CreateStory inserts a new story record with status "generating".
	CreateStory(ctx context.Context, querier DBTX, story *models.Story) error

	// AddCharacters bulk-inserts the characters of a story. The order field is
	// assigned from the slice position (0-based).
	AddCharacters(ctx context.Context, querier DBTX, storyID uuid.UUID, characters []models.Character) ([]uuid.UUID, error)

	// AddPages bulk-inserts the pages of a story. Page numbers come from the
	// records themselves and must be unique per story.
	AddPages(ctx context.Context, querier DBTX, storyID uuid.UUID, pages []models.Page) ([]uuid.UUID, error)

	// UpdateStoryStatus sets the status and refreshes updated_at.
	UpdateStoryStatus(ctx context.Context, querier DBTX, id uuid.UUID, status models.StoryStatus) error

	// UpdatePageIllustration sets the illustration URL and storage reference on
	// one page. Idempotent when re-invoked with the same values.
	UpdatePageIllustration(ctx context.Context, querier DBTX, pageID uuid.UUID, url, storageRef string) error

	// GetStory assembles a story with its ordered characters and pages.
	GetStory(ctx context.Context, querier DBTX, id uuid.UUID) (*models.StoryDetails, error)

	// GetPage returns a single page of a story by page number.
	GetPage(ctx context.Context, querier DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error)

	// GetPagesByStoryID returns the pages of a story ordered by page number.
	GetPagesByStoryID(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.Page, error)

	// ListStories returns recent stories with character and page counts, most
	// recently updated first, without page bodies.
	ListStories(ctx context.Context, querier DBTX, limit int) ([]models.StorySummary, error)
}

// StepLogRepository persists workflow step results. Record must be idempotent
// per (run id, step index) so a resumed run can safely re-record.
type StepLogRepository interface {
	// Find returns the recorded step or models.ErrNotFound.
	Find(ctx context.Context, querier DBTX, runID uuid.UUID, stepIndex int) (*models.WorkflowStep, error)

	// Record stores a completed step. A second Record with the same key is a
	// no-op: the first recorded result wins.
	Record(ctx context.Context, querier DBTX, step *models.WorkflowStep) error

	// ListByRun returns all recorded steps of a run ordered by step index.
	ListByRun(ctx context.Context, querier DBTX, runID uuid.UUID) ([]models.WorkflowStep, error)
}

// StoryCache is a read-through cache for assembled stories, keyed by story ID.
type StoryCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.StoryDetails, error)
	Set(ctx context.Context, details *models.StoryDetails) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}
