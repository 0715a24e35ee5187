package query

import (
	"strings"
)

// greetings are leading pleasantries stripped from the front of a
// question before it reaches retrieval or the cache key.
var greetings = []string{
	"привет",
	"здравствуйте",
	"доброе утро",
	"добрый день",
	"добрый вечер",
	"пожалуйста",
	"скажи",
	"расскажи",
	"покажи",
	"подскажи",
	"помоги",
	"дай информацию о",
}

// fillers are standalone words removed anywhere in the question.
var fillers = []string{
	"мне",
	"немного",
	"очень",
	"кратко",
	"подробно",
	"пожалуйста",
	"чуть-чуть",
	"просто",
}

// locationCues mark the question as asking where something is.
var locationCues = []string{
	"где",
	"как найти",
	"как попасть",
	"расположен",
	"находится",
}

// scheduleCues mark the question as asking about opening hours.
var scheduleCues = []string{
	"когда",
	"часы работы",
	"время работы",
	"график работы",
	"режим работы",
	"открыто",
	"закрыто",
}

const (
	locationTag = "местоположение"
	scheduleTag = "время работы"
)

// Normalizer rewrites free-form questions into a canonical retrieval
// form: lowercase, pleasantries stripped, intent tags prepended. The
// rewrite is deterministic and idempotent, so cache keys built from
// its output are stable.
type Normalizer struct{}

// NewNormalizer creates a query normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize canonicalizes a question. An input that is empty after
// trimming comes back empty.
func (n *Normalizer) Normalize(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return ""
	}

	// Strip leading greetings repeatedly: "привет, скажи пожалуйста..."
	// sheds all three. The phrase must end at a word boundary, so
	// "подскажи" strips but "подскажите" stays intact.
	for {
		stripped := q
		for _, greeting := range greetings {
			rest, ok := strings.CutPrefix(stripped, greeting)
			if !ok {
				continue
			}
			if rest != "" && strings.IndexByte(",.!? ", rest[0]) < 0 {
				continue
			}
			stripped = strings.TrimSpace(strings.TrimLeft(rest, ",.!? "))
		}
		if stripped == q {
			break
		}
		q = stripped
	}

	// Drop filler words.
	words := strings.Fields(q)
	kept := words[:0]
	for _, word := range words {
		trimmed := strings.Trim(word, ",.!?")
		if isFiller(trimmed) {
			continue
		}
		kept = append(kept, word)
	}
	q = strings.Join(kept, " ")

	// Tag intent. Tags are only prepended when not already present, so
	// normalizing twice yields the same string.
	if containsAny(q, locationCues) && !strings.Contains(q, locationTag) {
		q = locationTag + " " + q
	}
	if containsAny(q, scheduleCues) && !strings.Contains(q, scheduleTag) {
		q = scheduleTag + " " + q
	}

	return strings.TrimSpace(q)
}

func isFiller(word string) bool {
	for _, filler := range fillers {
		if word == filler {
			return true
		}
	}
	return false
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}
