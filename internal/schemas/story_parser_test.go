package schemas_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/models"
	"storybook-server/internal/schemas"
)

const sampleStoryText = `Here is your story!

**Book Title:** The Brave Little Fox
**Age Group:** 6-8
**Core Concept:** Courage means trying even when you are scared.

**Characters:**
* **Felix:** A small orange fox with a big heart.
* **Oma Owl:** A wise old owl who lives in the hollow oak.
This line is not a character bullet and must be skipped.
* not a valid bullet either

**Page 1: The Quiet Forest**
**Illustration:** A small fox peeking out of a den at sunrise, watercolor style.
**Text:** Felix the fox had never left his den before. Today felt different. *(What color is the fox?)*

**Page 2-4: The Long Journey**
**Illustration:** A fox crossing a log bridge over a sparkling stream.
**Text:** Step by step, Felix crossed the old log bridge. The water sparkled below him.

**Page 5: Home Again**
**Illustration:** A fox and an owl watching the sunset from a hilltop.
**Text:** That night, Felix knew he could be brave.
`

func TestParseStoryText_FullDocument(t *testing.T) {
	parsed := schemas.ParseStoryText(sampleStoryText)

	assert.Equal(t, "The Brave Little Fox", parsed.Title)
	assert.Equal(t, models.AgeRange{Min: 6, Max: 8}, parsed.AgeGroup)
	assert.Equal(t, "Courage means trying even when you are scared.", parsed.CoreConcept)

	require.Len(t, parsed.Characters, 2)
	assert.Equal(t, "Felix", parsed.Characters[0].Name)
	assert.Equal(t, "A small orange fox with a big heart.", parsed.Characters[0].Description)
	assert.Equal(t, models.RoleProtagonist, parsed.Characters[0].Role)
	assert.Equal(t, "Oma Owl", parsed.Characters[1].Name)
	assert.Equal(t, models.RoleSupporting, parsed.Characters[1].Role)

	// 1 + (2,3,4) + 5
	require.Len(t, parsed.Pages, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, pageNumbers(parsed.Pages))
	assert.False(t, parsed.IsFallback())
}

func TestParseStoryText_Determinism(t *testing.T) {
	first := schemas.ParseStoryText(sampleStoryText)
	second := schemas.ParseStoryText(sampleStoryText)
	assert.Equal(t, first, second)
}

func TestParseStoryText_Fallback(t *testing.T) {
	for name, input := range map[string]string{
		"empty input":      "",
		"whitespace only":  "   \n\t  ",
		"garbage text":     "garbage with no markers whatsoever, just prose",
		"page like prose":  "Page 1 was turned. Nothing else happened.",
		"lonely asterisks": "** ** ** **",
	} {
		t.Run(name, func(t *testing.T) {
			parsed := schemas.ParseStoryText(input)

			assert.True(t, parsed.IsFallback())
			assert.Equal(t, models.FallbackTitle, parsed.Title)
			assert.Equal(t, models.AgeRange{Min: 3, Max: 5}, parsed.AgeGroup)
			assert.Empty(t, parsed.Characters)
			require.Len(t, parsed.Pages, 1)
			assert.Equal(t, 1, parsed.Pages[0].PageNumber)
			assert.NotEmpty(t, parsed.Pages[0].Text)
		})
	}
}

func TestParseStoryText_AgeGroup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.AgeRange
	}{
		{"range", "**Age Group:** 6-8\n", models.AgeRange{Min: 6, Max: 8}},
		{"single value", "**Age Group:** 10\n", models.AgeRange{Min: 10, Max: 10}},
		{"words around numbers", "**Age Group:** ages 4 to 7 years\n", models.AgeRange{Min: 4, Max: 7}},
		{"no integers in value", "**Age Group:** preschool\n", models.AgeRange{Min: 3, Max: 5}},
		{"field missing entirely", "**Book Title:** Something\n", models.AgeRange{Min: 3, Max: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := schemas.ParseStoryText(tt.text)
			assert.Equal(t, tt.want, parsed.AgeGroup)
		})
	}
}

func TestParseStoryText_MissingTitleDefaults(t *testing.T) {
	parsed := schemas.ParseStoryText("**Age Group:** 6-8\n")
	assert.Equal(t, models.DefaultTitle, parsed.Title)
}

func TestParseStoryText_PageRangeExpansion(t *testing.T) {
	text := "**Page 2-4: The Middle**\n" +
		"**Illustration:** A fox walking through tall grass.\n" +
		"**Text:** The grass whispered around him.\n"

	parsed := schemas.ParseStoryText(text)

	require.Len(t, parsed.Pages, 3)
	assert.Equal(t, []int{2, 3, 4}, pageNumbers(parsed.Pages))
	for _, page := range parsed.Pages {
		assert.Equal(t, "The grass whispered around him.", page.Text)
		assert.Equal(t, "A fox walking through tall grass.", page.IllustrationPrompt)
	}
}

func TestParseStoryText_InteractiveQuestion(t *testing.T) {
	text := "**Page 1: Start**\n" +
		"**Illustration:** A fox.\n" +
		"**Text:** Some narrative. *(What color is the fox?)*\n"

	parsed := schemas.ParseStoryText(text)

	require.Len(t, parsed.Pages, 1)
	assert.Equal(t, "Some narrative.", parsed.Pages[0].Text)
	assert.Equal(t, "What color is the fox?", parsed.Pages[0].InteractiveQuestion)
}

func TestParseStoryText_NoQuestionLeavesTextIntact(t *testing.T) {
	text := "**Page 1: Start**\n" +
		"**Illustration:** A fox.\n" +
		"**Text:** Just narrative, nothing to ask.\n"

	parsed := schemas.ParseStoryText(text)

	require.Len(t, parsed.Pages, 1)
	assert.Equal(t, "Just narrative, nothing to ask.", parsed.Pages[0].Text)
	assert.Empty(t, parsed.Pages[0].InteractiveQuestion)
}

func TestParseStoryText_TruncatesOversizedInput(t *testing.T) {
	// A valid header followed by a wall of text far beyond the parse bound.
	text := "**Book Title:** Big One\n**Age Group:** 3-5\n" + strings.Repeat("x", 100_000)

	parsed := schemas.ParseStoryText(text)

	assert.Equal(t, "Big One", parsed.Title)
	assert.Empty(t, parsed.Pages)
}

func TestParseStoryText_TruncationKeepsRuneBoundary(t *testing.T) {
	// Pad the page text so a four-byte rune straddles the 20000-byte bound.
	prefix := "**Book Title:** Big One\n**Page 1: The Wall**\n**Text:** "
	text := prefix + strings.Repeat("x", 19_998-len(prefix)) + strings.Repeat("\U0001F98A", 10)

	parsed := schemas.ParseStoryText(text)

	require.Len(t, parsed.Pages, 1)
	assert.True(t, utf8.ValidString(parsed.Pages[0].Text))
	assert.True(t, strings.HasSuffix(parsed.Pages[0].Text, "x"))
}

func pageNumbers(pages []models.ParsedPage) []int {
	nums := make([]int, 0, len(pages))
	for _, p := range pages {
		nums = append(nums, p.PageNumber)
	}
	return nums
}
