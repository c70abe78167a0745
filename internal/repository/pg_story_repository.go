package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storybook-server/internal/interfaces"
	"storybook-server/internal/models"
)

// Compile-time check
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

const (
	insertStoryQuery = `
        INSERT INTO stories
            (id, prompt, title, age_min, age_max, core_concept, status, created_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	insertCharacterQuery = `
        INSERT INTO characters (id, story_id, name, description, role, ord)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	insertPageQuery = `
        INSERT INTO pages
            (id, story_id, page_number, text, illustration_prompt, interactive_question)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	updateStoryStatusQuery = `
        UPDATE stories SET status = $1, updated_at = $2 WHERE id = $3
    `

	updatePageIllustrationQuery = `
        UPDATE pages SET illustration_url = $1, storage_ref = $2 WHERE id = $3
    `

	selectStoryQuery = `
        SELECT id, prompt, title, age_min, age_max, core_concept, status, created_at, updated_at
        FROM stories WHERE id = $1
    `

	selectCharactersQuery = `
        SELECT id, story_id, name, description, role, ord
        FROM characters WHERE story_id = $1 ORDER BY ord
    `

	selectPagesQuery = `
        SELECT id, story_id, page_number, text, illustration_prompt,
               illustration_url, storage_ref, interactive_question
        FROM pages WHERE story_id = $1 ORDER BY page_number
    `

	selectPageQuery = `
        SELECT id, story_id, page_number, text, illustration_prompt,
               illustration_url, storage_ref, interactive_question
        FROM pages WHERE story_id = $1 AND page_number = $2
    `

	listStoriesQuery = `
        SELECT s.id, s.prompt, s.title, s.age_min, s.age_max, s.core_concept,
               s.status, s.created_at, s.updated_at,
               (SELECT COUNT(*) FROM characters c WHERE c.story_id = s.id) AS character_count,
               (SELECT COUNT(*) FROM pages p WHERE p.story_id = s.id) AS page_count
        FROM stories s
        ORDER BY s.updated_at DESC
        LIMIT $1
    `
)

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository creates the PostgreSQL story repository. Methods take
// the querier explicitly so callers choose between the pool and a transaction.
func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

func (r *pgStoryRepository) CreateStory(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	logFields := []zap.Field{zap.String("storyID", story.ID.String())}
	r.logger.Debug("Creating story", logFields...)

	_, err := querier.Exec(ctx, insertStoryQuery,
		story.ID, story.Prompt, story.Title, story.AgeMin, story.AgeMax,
		story.CoreConcept, story.Status, story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", logFields...)
	return nil
}

func (r *pgStoryRepository) AddCharacters(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, characters []models.Character) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(characters))
	for i, character := range characters {
		id := character.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := querier.Exec(ctx, insertCharacterQuery,
			id, storyID, character.Name, character.Description, character.Role, i,
		)
		if err != nil {
			r.logger.Error("Failed to insert character",
				zap.String("storyID", storyID.String()), zap.String("name", character.Name), zap.Error(err))
			return nil, fmt.Errorf("failed to insert character %q: %w", character.Name, err)
		}
		ids = append(ids, id)
	}
	r.logger.Debug("Characters inserted",
		zap.String("storyID", storyID.String()), zap.Int("count", len(ids)))
	return ids, nil
}

func (r *pgStoryRepository) AddPages(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, pages []models.Page) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(pages))
	for _, page := range pages {
		id := page.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := querier.Exec(ctx, insertPageQuery,
			id, storyID, page.PageNumber, page.Text, page.IllustrationPrompt, page.InteractiveQuestion,
		)
		if err != nil {
			r.logger.Error("Failed to insert page",
				zap.String("storyID", storyID.String()), zap.Int("pageNumber", page.PageNumber), zap.Error(err))
			return nil, fmt.Errorf("failed to insert page %d: %w", page.PageNumber, err)
		}
		ids = append(ids, id)
	}
	r.logger.Debug("Pages inserted",
		zap.String("storyID", storyID.String()), zap.Int("count", len(ids)))
	return ids, nil
}

func (r *pgStoryRepository) UpdateStoryStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus) error {
	logFields := []zap.Field{zap.String("storyID", id.String()), zap.String("status", string(status))}

	commandTag, err := querier.Exec(ctx, updateStoryStatusQuery, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update story status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update story %s status: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update status of non-existent story", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Story status updated", logFields...)
	return nil
}

func (r *pgStoryRepository) UpdatePageIllustration(ctx context.Context, querier interfaces.DBTX, pageID uuid.UUID, url, storageRef string) error {
	logFields := []zap.Field{zap.String("pageID", pageID.String())}

	commandTag, err := querier.Exec(ctx, updatePageIllustrationQuery, url, storageRef, pageID)
	if err != nil {
		r.logger.Error("Failed to update page illustration", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update page %s illustration: %w", pageID, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update illustration of non-existent page", logFields...)
		return models.ErrNotFound
	}
	r.logger.Debug("Page illustration updated", logFields...)
	return nil
}

func (r *pgStoryRepository) GetStory(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.StoryDetails, error) {
	logFields := []zap.Field{zap.String("storyID", id.String())}

	details := &models.StoryDetails{}
	err := querier.QueryRow(ctx, selectStoryQuery, id).Scan(
		&details.ID, &details.Prompt, &details.Title, &details.AgeMin, &details.AgeMax,
		&details.CoreConcept, &details.Status, &details.CreatedAt, &details.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}

	if err := pgxscan.Select(ctx, querier, &details.Characters, selectCharactersQuery, id); err != nil {
		r.logger.Error("Failed to get story characters", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get characters of story %s: %w", id, err)
	}
	if err := pgxscan.Select(ctx, querier, &details.Pages, selectPagesQuery, id); err != nil {
		r.logger.Error("Failed to get story pages", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get pages of story %s: %w", id, err)
	}

	r.logger.Debug("Story retrieved",
		append(logFields, zap.Int("characters", len(details.Characters)), zap.Int("pages", len(details.Pages)))...)
	return details, nil
}

func (r *pgStoryRepository) GetPage(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, pageNumber int) (*models.Page, error) {
	logFields := []zap.Field{zap.String("storyID", storyID.String()), zap.Int("pageNumber", pageNumber)}

	page := &models.Page{}
	err := querier.QueryRow(ctx, selectPageQuery, storyID, pageNumber).Scan(
		&page.ID, &page.StoryID, &page.PageNumber, &page.Text, &page.IllustrationPrompt,
		&page.IllustrationURL, &page.StorageRef, &page.InteractiveQuestion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Page not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get page", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get page %d of story %s: %w", pageNumber, storyID, err)
	}
	return page, nil
}

func (r *pgStoryRepository) GetPagesByStoryID(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.Page, error) {
	var pages []models.Page
	if err := pgxscan.Select(ctx, querier, &pages, selectPagesQuery, storyID); err != nil {
		r.logger.Error("Failed to get pages",
			zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get pages of story %s: %w", storyID, err)
	}
	return pages, nil
}

func (r *pgStoryRepository) ListStories(ctx context.Context, querier interfaces.DBTX, limit int) ([]models.StorySummary, error) {
	var summaries []models.StorySummary
	if err := pgxscan.Select(ctx, querier, &summaries, listStoriesQuery, limit); err != nil {
		r.logger.Error("Failed to list stories", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	r.logger.Debug("Stories listed", zap.Int("count", len(summaries)))
	return summaries, nil
}
