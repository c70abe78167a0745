package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/models"
	"storybook-server/internal/service"
)

// Step name recorded last in a finished run.
const finalStepName = "complete"

// StoryHandler serves the storybook HTTP API.
type StoryHandler struct {
	service          service.StoryService
	defaultListLimit int
	logger           *zap.Logger
}

// NewStoryHandler creates the API handler.
func NewStoryHandler(s service.StoryService, defaultListLimit int, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service:          s,
		defaultListLimit: defaultListLimit,
		logger:           logger.Named("StoryHandler"),
	}
}

// RegisterRoutes mounts the API under /api. A non-nil auth middleware gates
// the write endpoints only; reads stay open.
func (h *StoryHandler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.GET("/stories", h.listStories)
		api.GET("/stories/:id", h.getStory)
		api.GET("/stories/:id/pages/:num", h.getPage)
		api.GET("/generations/:runId", h.getRunStatus)

		writes := api.Group("")
		if auth != nil {
			writes.Use(auth)
		}
		writes.POST("/stories", h.createStory)
		writes.POST("/stories/:id/illustrations", h.createIllustrations)
	}
}

// createStory enqueues a generation run and immediately returns 202 with the
// run ID; the story record appears once the workflow has parsed the text.
func (h *StoryHandler) createStory(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
		return
	}

	illustrate := true
	if req.Illustrate != nil {
		illustrate = *req.Illustrate
	}

	runID, err := h.service.StartGeneration(c.Request.Context(), req.Prompt, illustrate)
	if err != nil {
		h.logger.Error("Failed to start generation run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to start story generation"})
		return
	}
	c.JSON(http.StatusAccepted, RunAcceptedResponse{RunID: runID})
}

func (h *StoryHandler) createIllustrations(c *gin.Context) {
	storyID, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}

	runID, err := h.service.StartIllustration(c.Request.Context(), storyID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, APIError{Message: "story not found"})
		case errors.Is(err, models.ErrStoryBusy):
			c.JSON(http.StatusConflict, APIError{Message: "story generation is in progress"})
		default:
			h.logger.Error("Failed to start illustration run",
				zap.String("storyID", storyID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, APIError{Message: "failed to start illustration generation"})
		}
		return
	}
	c.JSON(http.StatusAccepted, RunAcceptedResponse{RunID: runID, StoryID: &storyID})
}

func (h *StoryHandler) listStories(c *gin.Context) {
	limit := h.defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, APIError{Message: "limit must be a positive integer"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	summaries, err := h.service.ListStories(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list stories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to list stories"})
		return
	}
	if summaries == nil {
		summaries = []models.StorySummary{}
	}
	c.JSON(http.StatusOK, gin.H{"stories": summaries})
}

func (h *StoryHandler) getStory(c *gin.Context) {
	storyID, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}

	details, err := h.service.GetStory(c.Request.Context(), storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, APIError{Message: "story not found"})
			return
		}
		h.logger.Error("Failed to get story",
			zap.String("storyID", storyID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to get story"})
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *StoryHandler) getPage(c *gin.Context) {
	storyID, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}
	pageNumber, err := strconv.Atoi(c.Param("num"))
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, APIError{Message: "page number must be a positive integer"})
		return
	}

	page, err := h.service.GetPage(c.Request.Context(), storyID, pageNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, APIError{Message: "page not found"})
			return
		}
		h.logger.Error("Failed to get page",
			zap.String("storyID", storyID.String()), zap.Int("pageNumber", pageNumber), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to get page"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// getRunStatus exposes the recorded workflow steps of a run. A run that has
// been accepted but not picked up yet shows as pending with no steps.
func (h *StoryHandler) getRunStatus(c *gin.Context) {
	runID, ok := h.parseUUID(c, c.Param("runId"))
	if !ok {
		return
	}

	steps, err := h.service.GetRunSteps(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get run steps",
			zap.String("runID", runID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "failed to get run status"})
		return
	}

	views := make([]RunStepView, 0, len(steps))
	state := "pending"
	for _, step := range steps {
		views = append(views, RunStepView{
			StepIndex:   step.StepIndex,
			Name:        step.Name,
			CompletedAt: step.CompletedAt,
		})
		state = "running"
		if step.Name == finalStepName {
			state = "completed"
		}
	}

	c.JSON(http.StatusOK, RunStatusResponse{RunID: runID, State: state, Steps: views})
}

func (h *StoryHandler) parseUUID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid id format"})
		return uuid.Nil, false
	}
	return id, true
}
