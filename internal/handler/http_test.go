package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/middleware"
	"storybook-server/internal/mocks"
	"storybook-server/internal/models"
)

const testListLimit = 50

func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockStoryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := mocks.NewMockStoryService(t)
	h := NewStoryHandler(svc, testListLimit, zap.NewNop())

	router := gin.New()
	h.RegisterRoutes(router, nil)
	return router, svc
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateStory_Accepted(t *testing.T) {
	router, svc := setupTestRouter(t)
	runID := uuid.New()
	svc.On("StartGeneration", mock.Anything, "a story about a brave fox", true).
		Return(runID, nil).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories",
		gin.H{"prompt": "a story about a brave fox"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp RunAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID, resp.RunID)
	assert.Nil(t, resp.StoryID)
	svc.AssertExpectations(t)
}

func TestCreateStory_IllustrateDisabled(t *testing.T) {
	router, svc := setupTestRouter(t)
	svc.On("StartGeneration", mock.Anything, "dragons", false).
		Return(uuid.New(), nil).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories",
		gin.H{"prompt": "dragons", "illustrate": false})

	require.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateStory_InvalidBody(t *testing.T) {
	router, svc := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "StartGeneration")
}

func TestCreateStory_PublishError(t *testing.T) {
	router, svc := setupTestRouter(t)
	svc.On("StartGeneration", mock.Anything, "dragons", true).
		Return(uuid.Nil, errors.New("broker down")).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories", gin.H{"prompt": "dragons"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateIllustrations_Accepted(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	runID := uuid.New()
	svc.On("StartIllustration", mock.Anything, storyID).Return(runID, nil).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories/"+storyID.String()+"/illustrations", nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp RunAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID, resp.RunID)
	require.NotNil(t, resp.StoryID)
	assert.Equal(t, storyID, *resp.StoryID)
}

func TestCreateIllustrations_StoryNotFound(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	svc.On("StartIllustration", mock.Anything, storyID).Return(uuid.Nil, models.ErrNotFound).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories/"+storyID.String()+"/illustrations", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateIllustrations_StoryBusy(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	svc.On("StartIllustration", mock.Anything, storyID).Return(uuid.Nil, models.ErrStoryBusy).Once()

	rec := performRequest(router, http.MethodPost, "/api/stories/"+storyID.String()+"/illustrations", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateIllustrations_InvalidID(t *testing.T) {
	router, svc := setupTestRouter(t)

	rec := performRequest(router, http.MethodPost, "/api/stories/not-a-uuid/illustrations", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "StartIllustration")
}

func TestListStories_DefaultLimit(t *testing.T) {
	router, svc := setupTestRouter(t)
	svc.On("ListStories", mock.Anything, testListLimit).
		Return([]models.StorySummary{{Story: models.Story{ID: uuid.New(), Title: "The Brave Fox"}}}, nil).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestListStories_LimitCapped(t *testing.T) {
	router, svc := setupTestRouter(t)
	svc.On("ListStories", mock.Anything, testListLimit).Return(nil, nil).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories?limit=500", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stories":[]}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestListStories_SmallerLimitHonored(t *testing.T) {
	router, svc := setupTestRouter(t)
	svc.On("ListStories", mock.Anything, 5).Return([]models.StorySummary{}, nil).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories?limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestListStories_InvalidLimit(t *testing.T) {
	router, svc := setupTestRouter(t)

	for _, limit := range []string{"0", "-1", "abc"} {
		rec := performRequest(router, http.MethodGet, "/api/stories?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
	svc.AssertNotCalled(t, "ListStories")
}

func TestGetStory_Found(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	details := &models.StoryDetails{
		Story: models.Story{ID: storyID, Title: "The Brave Fox", Status: models.StatusCompleted},
		Pages: []models.Page{{PageNumber: 1, Text: "Once upon a time."}},
	}
	svc.On("GetStory", mock.Anything, storyID).Return(details, nil).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories/"+storyID.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.StoryDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "The Brave Fox", got.Title)
	assert.Len(t, got.Pages, 1)
}

func TestGetStory_NotFound(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	svc.On("GetStory", mock.Anything, storyID).Return(nil, models.ErrNotFound).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories/"+storyID.String(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPage_Found(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	page := &models.Page{StoryID: storyID, PageNumber: 3, Text: "The fox found a friend."}
	svc.On("GetPage", mock.Anything, storyID, 3).Return(page, nil).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories/"+storyID.String()+"/pages/3", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.PageNumber)
}

func TestGetPage_InvalidNumber(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()

	for _, num := range []string{"0", "-2", "abc"} {
		rec := performRequest(router, http.MethodGet, "/api/stories/"+storyID.String()+"/pages/"+num, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "num=%s", num)
	}
	svc.AssertNotCalled(t, "GetPage")
}

func TestGetPage_NotFound(t *testing.T) {
	router, svc := setupTestRouter(t)
	storyID := uuid.New()
	svc.On("GetPage", mock.Anything, storyID, 9).Return(nil, models.ErrNotFound).Once()

	rec := performRequest(router, http.MethodGet, "/api/stories/"+storyID.String()+"/pages/9", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunStatus_States(t *testing.T) {
	now := time.Now().UTC()
	testCases := []struct {
		name      string
		steps     []models.WorkflowStep
		wantState string
	}{
		{
			name:      "no steps is pending",
			steps:     nil,
			wantState: "pending",
		},
		{
			name: "partial steps is running",
			steps: []models.WorkflowStep{
				{StepIndex: 0, Name: "generate_text", CompletedAt: now},
				{StepIndex: 1, Name: "parse_story", CompletedAt: now},
			},
			wantState: "running",
		},
		{
			name: "final step is completed",
			steps: []models.WorkflowStep{
				{StepIndex: 0, Name: "generate_text", CompletedAt: now},
				{StepIndex: 1, Name: "parse_story", CompletedAt: now},
				{StepIndex: 2, Name: "persist_story", CompletedAt: now},
				{StepIndex: 3, Name: "complete", CompletedAt: now},
			},
			wantState: "completed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, svc := setupTestRouter(t)
			runID := uuid.New()
			svc.On("GetRunSteps", mock.Anything, runID).Return(tc.steps, nil).Once()

			rec := performRequest(router, http.MethodGet, "/api/generations/"+runID.String(), nil)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp RunStatusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantState, resp.State)
			assert.Len(t, resp.Steps, len(tc.steps))
		})
	}
}

func setupAuthedRouter(t *testing.T, secret string) (*gin.Engine, *mocks.MockStoryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := mocks.NewMockStoryService(t)
	h := NewStoryHandler(svc, testListLimit, zap.NewNop())

	router := gin.New()
	h.RegisterRoutes(router, middleware.Auth(secret, zap.NewNop()))
	return router, svc
}

func TestAuth_GatesWritesOnly(t *testing.T) {
	const secret = "test-secret"
	router, svc := setupAuthedRouter(t, secret)

	svc.On("ListStories", mock.Anything, testListLimit).
		Return([]models.StorySummary{}, nil).Once()
	rec := performRequest(router, http.MethodGet, "/api/stories", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay open without a token")

	rec = performRequest(router, http.MethodPost, "/api/stories", gin.H{"prompt": "a fox"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "StartGeneration", mock.Anything, mock.Anything, mock.Anything)

	rec = performRequest(router, http.MethodPost, "/api/stories/"+uuid.NewString()+"/illustrations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AcceptsValidToken(t *testing.T) {
	const secret = "test-secret"
	router, svc := setupAuthedRouter(t, secret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	runID := uuid.New()
	svc.On("StartGeneration", mock.Anything, "a fox", true).Return(runID, nil).Once()

	raw, _ := json.Marshal(gin.H{"prompt": "a fox"})
	req := httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
