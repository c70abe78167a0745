package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/models"
)

// maxIllustrationPromptLen bounds the prompt sent to the image API.
const maxIllustrationPromptLen = 500

// defaultIllustrationPrompt is used when a page carries no illustration
// prompt, so every page still gets a picture.
const defaultIllustrationPrompt = "A colorful illustration for a children's storybook page"

// ImageAPIError is a non-2xx response from the image API. It keeps the status
// code so callers can decide whether the request is worth retrying.
type ImageAPIError struct {
	StatusCode int
	Body       string
}

func (e *ImageAPIError) Error() string {
	return fmt.Sprintf("image API returned status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is an image API 429 response.
func IsRateLimited(err error) bool {
	var apiErr *ImageAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IllustrationResult is a generated and stored page illustration.
type IllustrationResult struct {
	PageID     uuid.UUID
	URL        string
	StorageRef string
}

// IllustrationGenerator turns an illustration prompt into a stored image.
type IllustrationGenerator interface {
	GeneratePageIllustration(ctx context.Context, pageID uuid.UUID, prompt string) (*IllustrationResult, error)
}

type imageAPIRequest struct {
	Prompt string `json:"prompt"`
}

type illustrationGenerator struct {
	apiURL      string
	apiKey      string
	styleSuffix string
	httpClient  *http.Client
	policy      RetryPolicy
	blobs       BlobStore
	logger      *zap.Logger
}

// NewIllustrationGenerator builds the image pipeline: call the image API,
// store the returned bytes, hand back the public URL. Only rate-limit
// responses are retried.
func NewIllustrationGenerator(cfg *config.Config, blobs BlobStore, logger *zap.Logger) IllustrationGenerator {
	return &illustrationGenerator{
		apiURL:      cfg.ImageAPIURL,
		apiKey:      cfg.ImageAPIKey,
		styleSuffix: cfg.ImageStyleSuffix,
		httpClient:  &http.Client{Timeout: cfg.ImageTimeout},
		policy: RetryPolicy{
			MaxAttempts: cfg.ImageMaxAttempts,
			BaseDelay:   cfg.ImageBaseRetryDelay,
			Factor:      cfg.ImageRetryFactor,
		},
		blobs:  blobs,
		logger: logger.Named("illustrator"),
	}
}

var _ IllustrationGenerator = (*illustrationGenerator)(nil)

func (g *illustrationGenerator) GeneratePageIllustration(ctx context.Context, pageID uuid.UUID, prompt string) (*IllustrationResult, error) {
	log := g.logger.With(zap.String("page_id", pageID.String()))

	if prompt == "" {
		log.Warn("Page has no illustration prompt, using the default")
		prompt = defaultIllustrationPrompt
	}
	prompt = truncateAtRuneBoundary(prompt, maxIllustrationPromptLen)
	fullPrompt := prompt
	if g.styleSuffix != "" {
		fullPrompt = prompt + ", " + g.styleSuffix
	}

	log.Info("Generating page illustration")

	imageData, err := Retry(ctx, g.policy, func(err error) bool {
		if IsRateLimited(err) {
			log.Warn("Image API rate limit hit, backing off")
			return true
		}
		return false
	}, func(ctx context.Context) ([]byte, error) {
		return g.callImageAPI(ctx, fullPrompt)
	})
	if err != nil {
		log.Error("Image API call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrIllustrationFailed, err)
	}

	ref, err := g.blobs.Store(ctx, imageData)
	if err != nil {
		log.Error("Failed to store illustration", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrIllustrationFailed, err)
	}
	url := g.blobs.URL(ref)

	log.Info("Illustration stored", zap.String("ref", ref), zap.String("url", url))
	return &IllustrationResult{PageID: pageID, URL: url, StorageRef: ref}, nil
}

func (g *illustrationGenerator) callImageAPI(ctx context.Context, prompt string) ([]byte, error) {
	reqBody, err := json.Marshal(imageAPIRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ImageAPIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	if len(bodyBytes) == 0 {
		return nil, errors.New("image API returned empty data")
	}

	g.logger.Debug("Image API call succeeded",
		zap.Duration("duration", time.Since(start)),
		zap.Int("size_bytes", len(bodyBytes)))
	return bodyBytes, nil
}

// truncateAtRuneBoundary cuts s to at most max bytes without splitting a
// multi-byte rune at the cut point.
func truncateAtRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
