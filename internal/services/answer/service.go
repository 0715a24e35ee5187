package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/answercache"
	"github.com/ternarybob/respondeo/internal/services/knowledge"
	"github.com/ternarybob/respondeo/internal/services/query"
	"github.com/ternarybob/respondeo/internal/services/relevance"
	"github.com/ternarybob/respondeo/internal/worker"
)

// fallbackAnswer replaces generations too short to be useful.
const fallbackAnswer = "Извините, я не смог сформировать ответ на основе имеющейся информации."

// Service orchestrates the question-answering pipeline: normalize,
// retrieve, filter, check the cache, generate, cache the result. All
// failures map to the models error kinds so handlers can translate
// them uniformly.
type Service struct {
	knowledge  *knowledge.Cache
	filter     *relevance.Filter
	normalizer *query.Normalizer
	cache      *answercache.Cache
	llm        interfaces.LLMService
	pool       *worker.Pool
	logger     arbor.ILogger

	genTimeout      time.Duration
	minAnswerLength int
}

var _ interfaces.AnswerService = (*Service)(nil)

// NewService wires the answering pipeline together.
func NewService(
	cfg *common.LLMConfig,
	knowledgeCache *knowledge.Cache,
	filter *relevance.Filter,
	normalizer *query.Normalizer,
	cache *answercache.Cache,
	llm interfaces.LLMService,
	pool *worker.Pool,
	logger arbor.ILogger,
) *Service {
	minAnswerLength := cfg.MinAnswerLength
	if minAnswerLength <= 0 {
		minAnswerLength = 10
	}

	return &Service{
		knowledge:       knowledgeCache,
		filter:          filter,
		normalizer:      normalizer,
		cache:           cache,
		llm:             llm,
		pool:            pool,
		logger:          logger,
		genTimeout:      common.ParseDurationOr(cfg.Timeout, 60*time.Second),
		minAnswerLength: minAnswerLength,
	}
}

// Answer runs the full pipeline for one question.
func (s *Service) Answer(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}

	normalized := s.normalizer.Normalize(question)

	content := s.knowledge.Content(ctx)
	if content == models.SentinelUnavailable || strings.TrimSpace(content) == "" {
		s.logger.Warn().Str("question", normalized).Msg("Knowledge content unavailable")
		return nil, models.ErrKnowledgeUnavailable
	}

	relevant := s.filter.Relevant(normalized, content)
	if strings.TrimSpace(relevant) == "" {
		return nil, models.ErrKnowledgeUnavailable
	}

	key := answercache.Key(normalized, answercache.Fingerprint(relevant))
	if cached, ok := s.cache.Lookup(key); ok {
		s.logger.Debug().Str("question", normalized).Msg("Answer served from cache")
		return &models.AskResponse{
			Answer:            cached,
			ProcessingSeconds: time.Since(start).Seconds(),
			Cached:            true,
		}, nil
	}

	answer, err := s.generate(ctx, relevant, question, strings.TrimSpace(req.APIKey))
	if err != nil {
		return nil, err
	}

	if len([]rune(strings.TrimSpace(answer))) < s.minAnswerLength {
		s.logger.Warn().
			Str("question", normalized).
			Int("length", len(answer)).
			Msg("Generated answer too short, using fallback")
		answer = fallbackAnswer
	}

	s.cache.Store(key, answer)

	s.logger.Info().
		Str("question", normalized).
		Dur("duration", time.Since(start)).
		Msg("Answer generated")

	return &models.AskResponse{
		Answer:            answer,
		ProcessingSeconds: time.Since(start).Seconds(),
		Cached:            false,
	}, nil
}

// generate dispatches the model call to the worker pool and waits for
// the result or the generation deadline, whichever comes first. A task
// that outlives the deadline is abandoned; its eventual result is
// discarded by the buffered channel.
func (s *Service) generate(ctx context.Context, content, question, apiKey string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	prompt := BuildPrompt(content, question)

	done := s.pool.Submit(genCtx, func(context.Context) (string, error) {
		return s.llm.Generate(genCtx, prompt, apiKey)
	})

	select {
	case result := <-done:
		if result.Err != nil {
			if errors.Is(result.Err, context.DeadlineExceeded) {
				return "", models.ErrGenerationTimeout
			}
			s.logger.Error().Err(result.Err).Msg("Generation failed")
			return "", models.ErrGeneration
		}
		return result.Value, nil
	case <-genCtx.Done():
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", models.ErrGenerationTimeout
		}
		return "", models.ErrGeneration
	}
}

// ClearCache drops all cached answers and returns the previous size.
func (s *Service) ClearCache() int {
	size := s.cache.Clear()
	s.logger.Info().Int("old_size", size).Msg("Response cache cleared")
	return size
}

// CacheSize returns the current number of cached answers.
func (s *Service) CacheSize() int {
	return s.cache.Size()
}

// KnowledgeAvailable reports whether the knowledge cache currently
// holds real content. Used by the health endpoint.
func (s *Service) KnowledgeAvailable() bool {
	return s.knowledge.Available()
}
