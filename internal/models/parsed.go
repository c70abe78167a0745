package models

// ParsedStory is the structured result of parsing raw generated text.
// It is pure data: the parser never fails, it degrades to a fallback story.
type ParsedStory struct {
	Title       string            `json:"title"`
	AgeGroup    AgeRange          `json:"ageGroup"`
	CoreConcept string            `json:"coreConcept"`
	Characters  []ParsedCharacter `json:"characters"`
	Pages       []ParsedPage      `json:"pages"`
}

// ParsedCharacter is one character extracted from the Characters section.
type ParsedCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role,omitempty"`
}

// ParsedPage is one page extracted from a page block. A range header
// ("Page 2-4") yields several ParsedPages sharing the same content.
type ParsedPage struct {
	PageNumber          int    `json:"pageNumber"`
	Text                string `json:"text"`
	IllustrationPrompt  string `json:"illustrationPrompt"`
	InteractiveQuestion string `json:"interactiveQuestion,omitempty"`
}

// Fallback story constants. The fallback is a sentinel value, not an error:
// callers decide how to react to it.
const (
	FallbackTitle    = "Error Story"
	FallbackPageText = "An error occurred while parsing this story."
	DefaultTitle     = "Untitled Story"
	DefaultAgeMin    = 3
	DefaultAgeMax    = 5
)

// FallbackStory returns the deterministic placeholder used when input text
// carries no recognizable story structure.
func FallbackStory() *ParsedStory {
	return &ParsedStory{
		Title:      FallbackTitle,
		AgeGroup:   AgeRange{Min: DefaultAgeMin, Max: DefaultAgeMax},
		Characters: []ParsedCharacter{},
		Pages: []ParsedPage{
			{PageNumber: 1, Text: FallbackPageText},
		},
	}
}

// IsFallback reports whether the parsed story is the parse-failure sentinel.
func (p *ParsedStory) IsFallback() bool {
	return p.Title == FallbackTitle && len(p.Characters) == 0 &&
		len(p.Pages) == 1 && p.Pages[0].Text == FallbackPageText
}
