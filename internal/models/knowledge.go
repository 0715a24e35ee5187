package models

import "time"

// SentinelUnavailable is the canonical marker for "no knowledge content
// could be fetched". It is cached and served like real content so a dead
// backend is not hammered, and it doubles as the user-facing message.
const SentinelUnavailable = "База знаний недоступна. Обратитесь к администратору."

// SectionMarker opens a section header line in knowledge content:
// "=== SECTION NAME ===".
const SectionMarker = "=== "

// KnowledgeSnapshot is one fetched view of the knowledge content.
type KnowledgeSnapshot struct {
	Text      string
	FetchedAt time.Time
}

// Unavailable reports whether this snapshot holds the unavailability
// sentinel instead of real content.
func (s KnowledgeSnapshot) Unavailable() bool {
	return s.Text == SentinelUnavailable
}

// Age returns how old the snapshot is at the given instant.
func (s KnowledgeSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
