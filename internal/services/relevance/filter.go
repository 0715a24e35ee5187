package relevance

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// Filter narrows knowledge content to the sections that mention the
// question's keywords. It is a cheap substring pass, not a search
// index: the goal is a smaller prompt, not ranked retrieval.
type Filter struct {
	minKeywordLength int
	failOpen         bool
	logger           arbor.ILogger
}

// NewFilter creates a relevance filter.
func NewFilter(config *common.RelevanceConfig, logger arbor.ILogger) *Filter {
	return &Filter{
		minKeywordLength: config.MinKeywordLength,
		failOpen:         config.FailOpen,
		logger:           logger,
	}
}

// Relevant returns the sections of content that match the normalized
// question. The unavailability sentinel passes through untouched so
// callers can still detect it. When no section matches and the filter
// is configured fail-open, the full content comes back instead of
// nothing.
func (f *Filter) Relevant(question, content string) string {
	if content == models.SentinelUnavailable {
		return content
	}

	keywords := f.keywords(question)
	if len(keywords) == 0 {
		return content
	}

	sections := SplitSections(content)
	if len(sections) <= 1 {
		return content
	}

	var matched []string
	for _, section := range sections {
		lower := strings.ToLower(section)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				matched = append(matched, section)
				break
			}
		}
	}

	if len(matched) == 0 {
		if f.failOpen {
			f.logger.Debug().Int("keywords", len(keywords)).Msg("No sections matched, returning full content")
			return content
		}
		return ""
	}

	f.logger.Debug().
		Int("matched", len(matched)).
		Int("total", len(sections)).
		Msg("Filtered knowledge sections")

	return strings.Join(matched, "\n")
}

// keywords extracts the question words long enough to carry meaning.
func (f *Filter) keywords(question string) []string {
	words := strings.Fields(strings.ToLower(question))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, ",.!?:;\"'")
		if len([]rune(word)) > f.minKeywordLength {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// SplitSections splits section-formatted content on the "=== " header
// marker. Each returned section keeps its header line. Content without
// markers comes back as a single section.
func SplitSections(content string) []string {
	lines := strings.Split(content, "\n")
	var sections []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = current[:0]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, models.SectionMarker) {
			flush()
		}
		current = append(current, line)
	}
	flush()

	if len(sections) == 0 {
		return []string{content}
	}
	return sections
}
