package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Cache serves knowledge content from backing sources through a TTL
// cache. Sources are tried in priority order on refresh; the first one
// that yields content wins. When every source fails the unavailability
// sentinel is cached for the same TTL so a dead backend is not hammered
// on every request.
type Cache struct {
	sources []interfaces.KnowledgeSource
	ttl     time.Duration
	logger  arbor.ILogger

	mu       sync.Mutex
	snapshot models.KnowledgeSnapshot

	now func() time.Time // test hook
}

// NewCache creates a knowledge cache over the given sources. Source
// order is fetch order.
func NewCache(config *common.KnowledgeConfig, sources []interfaces.KnowledgeSource, logger arbor.ILogger) *Cache {
	return &Cache{
		sources: sources,
		ttl:     common.ParseDurationOr(config.TTL, 5*time.Minute),
		logger:  logger,
		now:     time.Now,
	}
}

// Content returns the current knowledge text, refreshing from the
// backing sources when the cached snapshot is stale. Concurrent
// callers during a refresh block on the same fetch; exactly one
// request hits the sources per expiry.
func (c *Cache) Content(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.snapshot.FetchedAt.IsZero() && c.now().Sub(c.snapshot.FetchedAt) < c.ttl {
		return c.snapshot.Text
	}

	text := c.refresh(ctx)
	c.snapshot = models.KnowledgeSnapshot{Text: text, FetchedAt: c.now()}
	return text
}

// Available reports whether the last snapshot held real content. A
// cold cache counts as unavailable.
func (c *Cache) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.snapshot.FetchedAt.IsZero() && !c.snapshot.Unavailable()
}

// SourceNames lists the configured sources in priority order.
func (c *Cache) SourceNames() []string {
	names := make([]string, 0, len(c.sources))
	for _, source := range c.sources {
		names = append(names, source.Name())
	}
	return names
}

// refresh tries each source in order and returns the first non-empty
// content, or the sentinel when all sources fail. Caller holds the lock.
func (c *Cache) refresh(ctx context.Context) string {
	start := c.now()

	for _, source := range c.sources {
		content, err := source.FetchAll(ctx)
		if err != nil {
			c.logger.Warn().Str("source", source.Name()).Err(err).Msg("Knowledge source fetch failed")
			continue
		}
		if content == "" {
			c.logger.Warn().Str("source", source.Name()).Msg("Knowledge source returned no content")
			continue
		}

		c.logger.Info().
			Str("source", source.Name()).
			Int("size", len(content)).
			Dur("duration", c.now().Sub(start)).
			Msg("Knowledge content refreshed")
		return content
	}

	c.logger.Error().
		Int("sources", len(c.sources)).
		Dur("duration", c.now().Sub(start)).
		Msg("All knowledge sources failed, caching unavailability")
	return models.SentinelUnavailable
}
