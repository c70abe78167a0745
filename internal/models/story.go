package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus defines the lifecycle states of a generated story.
//
// Transitions are monotonic: generating -> generating_illustrations -> completed.
// Any state may drop to failed until pages are persisted; after that, illustration
// failures never force failed. The standalone re-illustration flow cycles
// completed -> generating_illustrations -> completed.
type StoryStatus string

const (
	StatusGenerating              StoryStatus = "generating"
	StatusGeneratingIllustrations StoryStatus = "generating_illustrations"
	StatusCompleted               StoryStatus = "completed"
	StatusFailed                  StoryStatus = "failed"
)

// Character roles assigned by the parser.
const (
	RoleProtagonist = "protagonist"
	RoleSupporting  = "supporting"
)

// AgeRange is the inclusive reader age range of a story (Min <= Max).
type AgeRange struct {
	Min int `json:"min" db:"age_min"`
	Max int `json:"max" db:"age_max"`
}

// Story is one generated book. Owned by the workflow during generation,
// read-only to API consumers afterwards.
type Story struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Prompt      string      `json:"prompt" db:"prompt"`
	Title       string      `json:"title" db:"title"`
	AgeMin      int         `json:"ageMin" db:"age_min"`
	AgeMax      int         `json:"ageMax" db:"age_max"`
	CoreConcept string      `json:"coreConcept,omitempty" db:"core_concept"`
	Status      StoryStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// Character is a named story participant. Created in bulk right after the
// story record, immutable afterwards. Ord preserves the parsed order (0-based).
type Character struct {
	ID          uuid.UUID `json:"id" db:"id"`
	StoryID     uuid.UUID `json:"storyId" db:"story_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Role        string    `json:"role,omitempty" db:"role"`
	Ord         int       `json:"order" db:"ord"`
}

// Page is one unit of narrative plus illustration, keyed by page number.
// Illustration fields are the only ones mutated after creation, at most once.
type Page struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	StoryID             uuid.UUID `json:"storyId" db:"story_id"`
	PageNumber          int       `json:"pageNumber" db:"page_number"`
	Text                string    `json:"text" db:"text"`
	IllustrationPrompt  string    `json:"illustrationPrompt" db:"illustration_prompt"`
	IllustrationURL     *string   `json:"illustrationUrl,omitempty" db:"illustration_url"`
	StorageRef          *string   `json:"storageRef,omitempty" db:"storage_ref"`
	InteractiveQuestion *string   `json:"interactiveQuestion,omitempty" db:"interactive_question"`
}

// StoryDetails is a story assembled with its ordered characters and pages.
type StoryDetails struct {
	Story
	Characters []Character `json:"characters"`
	Pages      []Page      `json:"pages"`
}

// StorySummary is a listing row: story fields plus child counts, no page bodies.
type StorySummary struct {
	Story
	CharacterCount int `json:"characterCount" db:"character_count"`
	PageCount      int `json:"pageCount" db:"page_count"`
}
