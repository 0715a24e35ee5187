package relevance

import (
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

const testContent = `=== FACULTIES ===
name: Инженерный факультет | dean: Иванов И.И.
name: Экономический факультет | dean: Петрова А.А.

=== LIBRARY ===
name: Научная библиотека | location: корпус 2, этаж 1
hours: Пн-Пт 09:00-20:00 | phone: +7 900 000-00-00

=== HOURS ===
building: главный корпус | schedule: Пн-Сб 08:00-22:00
building: библиотека | schedule: Пн-Пт 09:00-20:00`

func newTestFilter(failOpen bool) *Filter {
	return NewFilter(&common.RelevanceConfig{
		MinKeywordLength: 3,
		FailOpen:         failOpen,
	}, arbor.NewLogger())
}

func TestRelevantSelectsMatchingSections(t *testing.T) {
	f := newTestFilter(true)

	got := f.Relevant("библиотека", testContent)

	if !strings.Contains(got, "=== LIBRARY ===") {
		t.Errorf("expected LIBRARY section in result, got:\n%s", got)
	}
	if !strings.Contains(got, "=== HOURS ===") {
		t.Errorf("expected HOURS section (mentions библиотека) in result, got:\n%s", got)
	}
	if strings.Contains(got, "=== FACULTIES ===") {
		t.Errorf("FACULTIES section should have been filtered out, got:\n%s", got)
	}
}

func TestRelevantScheduleQuestion(t *testing.T) {
	f := newTestFilter(true)

	// The normalizer turns "когда открыт главный корпус?" into a query
	// carrying the schedule tag; the HOURS section must survive.
	got := f.Relevant("время работы главный корпус", testContent)

	if !strings.Contains(got, "=== HOURS ===") {
		t.Errorf("expected HOURS section for schedule question, got:\n%s", got)
	}
}

func TestRelevantFailOpen(t *testing.T) {
	f := newTestFilter(true)

	got := f.Relevant("совершенно посторонний вопрос", testContent)
	if got != testContent {
		t.Errorf("fail-open filter should return full content when nothing matches, got:\n%s", got)
	}
}

func TestRelevantFailClosed(t *testing.T) {
	f := newTestFilter(false)

	got := f.Relevant("совершенно посторонний вопрос", testContent)
	if got != "" {
		t.Errorf("fail-closed filter should return empty when nothing matches, got:\n%s", got)
	}
}

func TestRelevantSentinelPassesThrough(t *testing.T) {
	f := newTestFilter(true)

	got := f.Relevant("библиотека", models.SentinelUnavailable)
	if got != models.SentinelUnavailable {
		t.Errorf("sentinel must pass through untouched, got %q", got)
	}
}

func TestRelevantShortWordsIgnored(t *testing.T) {
	f := newTestFilter(true)

	// Every query word is at or below the keyword length bound, so the
	// filter has nothing to match on and returns everything.
	got := f.Relevant("где он", testContent)
	if got != testContent {
		t.Errorf("expected full content for keyword-free query, got:\n%s", got)
	}
}

func TestSplitSections(t *testing.T) {
	sections := SplitSections(testContent)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	for i, header := range []string{"=== FACULTIES ===", "=== LIBRARY ===", "=== HOURS ==="} {
		if !strings.HasPrefix(sections[i], header) {
			t.Errorf("section %d: expected header %q, got %q", i, header, sections[i][:min(len(sections[i]), 30)])
		}
	}
}

func TestSplitSectionsNoMarkers(t *testing.T) {
	content := "plain text without any markers"
	sections := SplitSections(content)
	if len(sections) != 1 || sections[0] != content {
		t.Errorf("unmarked content should come back as a single section, got %v", sections)
	}
}
