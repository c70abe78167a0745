package schemas

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"storybook-server/internal/models"
)

// maxStoryTextLen bounds the amount of raw model output we are willing to
// parse; anything beyond it is discarded before scanning.
const maxStoryTextLen = 20000

// Labeled fields and section markers expected in the generated text.
const (
	markerBookTitle    = "**Book Title:**"
	markerAgeGroup     = "**Age Group:**"
	markerCoreConcept  = "**Core Concept:**"
	markerCharacters   = "**Characters:**"
	markerIllustration = "**Illustration:**"
	markerText         = "**Text:**"
	markerPage         = "**Page"
)

var (
	// * **Name:** description
	characterLineRe = regexp.MustCompile(`\*\s*\*\*([^:*]+):\*\*\s*(.+)`)
	// blocks begin after "**Page " (with whitespace)
	pageSplitRe = regexp.MustCompile(`\*\*Page\s+`)
	// "3: Title**" or "2-4: Title**" at the start of a block
	pageHeaderRe = regexp.MustCompile(`^(\d+(?:-\d+)?):\s*([^*]+)\*\*`)
	// trailing italic parenthetical used as an interactive question
	questionRe = regexp.MustCompile(`\*\((.+?)\)\*`)
	digitsRe   = regexp.MustCompile(`\d+`)
)

// ParseStoryText transforms the semi-structured markdown-like output of the
// text model into a ParsedStory. It is pure and deterministic and never
// fails: input with no recognizable story structure yields the fallback
// sentinel (models.FallbackStory) instead of an error, so the caller decides
// how to react.
func ParseStoryText(storyText string) *models.ParsedStory {
	storyText = truncateAtRuneBoundary(storyText, maxStoryTextLen)
	cleanText := strings.TrimSpace(strings.ReplaceAll(storyText, "\r", ""))

	if !hasStoryMarkers(cleanText) {
		return models.FallbackStory()
	}

	title := extractBetween(cleanText, markerBookTitle, "\n")
	if title == "" {
		title = models.DefaultTitle
	}
	ageGroup := parseAgeGroup(extractBetween(cleanText, markerAgeGroup, "\n"))
	coreConcept := extractBetween(cleanText, markerCoreConcept, "\n")

	charactersSection := extractBetween(cleanText, markerCharacters, markerPage)
	characters := parseCharactersSection(charactersSection)

	pages := parsePagesSection(cleanText)

	return &models.ParsedStory{
		Title:       title,
		AgeGroup:    ageGroup,
		CoreConcept: coreConcept,
		Characters:  characters,
		Pages:       pages,
	}
}

// hasStoryMarkers reports whether the text carries at least one of the
// labeled fields or a page block the parser knows how to read.
func hasStoryMarkers(text string) bool {
	for _, marker := range []string{markerBookTitle, markerAgeGroup, markerCoreConcept, markerCharacters} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	for _, block := range pageSplitRe.Split(text, -1)[1:] {
		if pageHeaderRe.MatchString(block) {
			return true
		}
	}
	return false
}

// extractBetween returns the trimmed text between the first occurrence of
// start and the following occurrence of end. An empty end means "to the end
// of the input"; a missing end marker also extends to the end of the input.
// Returns "" when start is absent.
func extractBetween(text, start, end string) string {
	startIdx := strings.Index(text, start)
	if startIdx == -1 {
		return ""
	}
	fromStart := text[startIdx+len(start):]
	if end == "" {
		return strings.TrimSpace(fromStart)
	}
	if endIdx := strings.Index(fromStart, end); endIdx != -1 {
		fromStart = fromStart[:endIdx]
	}
	return strings.TrimSpace(fromStart)
}

// parseAgeGroup extracts every integer from the field value; min and max are
// the smallest and largest found. No integers (or no field) means the default
// range 3-5.
func parseAgeGroup(ageString string) models.AgeRange {
	nums := digitsRe.FindAllString(ageString, -1)
	if len(nums) == 0 {
		return models.AgeRange{Min: models.DefaultAgeMin, Max: models.DefaultAgeMax}
	}
	minAge, maxAge := -1, -1
	for _, s := range nums {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if minAge == -1 || n < minAge {
			minAge = n
		}
		if n > maxAge {
			maxAge = n
		}
	}
	if minAge == -1 {
		return models.AgeRange{Min: models.DefaultAgeMin, Max: models.DefaultAgeMax}
	}
	return models.AgeRange{Min: minAge, Max: maxAge}
}

// parseCharactersSection reads "* **Name:** description" bullets. The first
// parsed character is the protagonist, the rest are supporting. Lines that do
// not match the bullet pattern are skipped.
func parseCharactersSection(section string) []models.ParsedCharacter {
	characters := make([]models.ParsedCharacter, 0)
	if section == "" {
		return characters
	}
	for _, rawLine := range strings.Split(section, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || !strings.HasPrefix(line, "*") {
			continue
		}
		match := characterLineRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		role := models.RoleSupporting
		if len(characters) == 0 {
			role = models.RoleProtagonist
		}
		characters = append(characters, models.ParsedCharacter{
			Name:        strings.TrimSpace(match[1]),
			Description: strings.TrimSpace(match[2]),
			Role:        role,
		})
	}
	return characters
}

// parsePagesSection scans for page blocks headed "**Page N: Title**" or
// "**Page N-M: Title**". A range header emits one page per number in [N,M],
// each carrying a full copy of the block's text, illustration prompt and
// interactive question.
func parsePagesSection(text string) []models.ParsedPage {
	pages := make([]models.ParsedPage, 0)

	for _, block := range pageSplitRe.Split(text, -1)[1:] {
		header := pageHeaderRe.FindStringSubmatch(block)
		if header == nil {
			continue
		}
		pageLabel := header[1]

		bounds := strings.SplitN(pageLabel, "-", 2)
		startPage, err := strconv.Atoi(bounds[0])
		if err != nil {
			continue
		}
		endPage := startPage
		if len(bounds) == 2 {
			if endPage, err = strconv.Atoi(bounds[1]); err != nil {
				continue
			}
		}

		illustration := extractBetween(block, markerIllustration, "\n")
		textBody := extractBetween(block, markerText, "")

		question := ""
		if qm := questionRe.FindStringSubmatch(textBody); qm != nil {
			question = strings.TrimSpace(qm[1])
		}
		cleanBody := strings.TrimSpace(questionRe.ReplaceAllString(textBody, ""))

		for p := startPage; p <= endPage; p++ {
			pages = append(pages, models.ParsedPage{
				PageNumber:          p,
				Text:                cleanBody,
				IllustrationPrompt:  illustration,
				InteractiveQuestion: question,
			})
		}
	}
	return pages
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
