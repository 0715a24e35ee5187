package interfaces

import "context"

// KnowledgeSource fetches the full knowledge content from one backing
// store. Implementations render their records into section-formatted
// text ("=== NAME ===" headers); the caller owns caching and fallback.
type KnowledgeSource interface {
	// Name identifies the source in priority ordering and logs.
	Name() string

	// FetchAll returns the complete knowledge text. An empty result
	// with a nil error is treated as a failed fetch by callers.
	FetchAll(ctx context.Context) (string, error)
}
