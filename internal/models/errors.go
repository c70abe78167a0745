package models

import "errors"

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrGenerationFailed - text generation exhausted retries or returned empty text.
// Fatal to a run before any story record exists.
var ErrGenerationFailed = errors.New("story text generation failed")

// ErrIllustrationFailed - a single page's image generation exhausted retries or
// hit a non-retryable error. Never fatal to the story as a whole.
var ErrIllustrationFailed = errors.New("illustration generation failed")

// ErrStoryBusy - a mutation was requested while the story is still being
// generated or illustrated.
var ErrStoryBusy = errors.New("story generation is in progress")

// Token verification errors used by the auth middleware.
var (
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("token is malformed")
)
