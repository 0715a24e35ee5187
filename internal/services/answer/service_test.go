package answer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
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

const testKnowledge = `=== LIBRARY ===
name: Научная библиотека | location: корпус 2
hours: Пн-Пт 09:00-20:00

=== FACULTIES ===
name: Инженерный факультет | dean: Иванов И.И.`

// stubSource serves fixed content or fails.
type stubSource struct {
	content string
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchAll(ctx context.Context) (string, error) {
	return s.content, s.err
}

// stubLLM counts generations and returns a canned or computed answer.
type stubLLM struct {
	calls    atomic.Int64
	response string
	err      error
	delay    time.Duration
	fn       func(prompt string) (string, error)

	mu      sync.Mutex
	lastKey string
}

func (s *stubLLM) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastKey = apiKey
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.fn != nil {
		return s.fn(prompt)
	}
	return s.response, s.err
}

func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }

func (s *stubLLM) GetMode() interfaces.LLMMode { return interfaces.LLMModeMock }

func (s *stubLLM) Close() error { return nil }

type serviceOptions struct {
	source  *stubSource
	llm     *stubLLM
	timeout string
}

func newTestService(t *testing.T, opts serviceOptions) *Service {
	t.Helper()
	logger := arbor.NewLogger()

	if opts.source == nil {
		opts.source = &stubSource{content: testKnowledge}
	}
	if opts.llm == nil {
		opts.llm = &stubLLM{response: "Библиотека находится в корпусе 2."}
	}
	if opts.timeout == "" {
		opts.timeout = "5s"
	}

	pool := worker.NewPool(2, logger)
	pool.Start()
	t.Cleanup(pool.Stop)

	knowledgeCache := knowledge.NewCache(
		&common.KnowledgeConfig{TTL: "5m"},
		[]interfaces.KnowledgeSource{opts.source},
		logger,
	)

	return NewService(
		&common.LLMConfig{Timeout: opts.timeout, MinAnswerLength: 10},
		knowledgeCache,
		relevance.NewFilter(&common.RelevanceConfig{MinKeywordLength: 3, FailOpen: true}, logger),
		query.NewNormalizer(),
		answercache.NewCache(&common.CacheConfig{TTL: "5m", Capacity: 200}, logger),
		opts.llm,
		pool,
		logger,
	)
}

func TestAnswerEmptyQuestion(t *testing.T) {
	llm := &stubLLM{response: "ответ не нужен"}
	svc := newTestService(t, serviceOptions{llm: llm})

	for _, question := range []string{"", "   "} {
		_, err := svc.Answer(context.Background(), &models.AskRequest{Question: question})
		if err != models.ErrEmptyQuestion {
			t.Errorf("Answer(%q) error = %v, want ErrEmptyQuestion", question, err)
		}
	}

	if llm.calls.Load() != 0 {
		t.Error("empty question must not reach the model")
	}
	if svc.CacheSize() != 0 {
		t.Error("empty question must not be cached")
	}
}

func TestAnswerKnowledgeUnavailable(t *testing.T) {
	llm := &stubLLM{response: "ответ"}
	svc := newTestService(t, serviceOptions{
		source: &stubSource{err: fmt.Errorf("backend down")},
		llm:    llm,
	})

	_, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где библиотека?"})
	if err != models.ErrKnowledgeUnavailable {
		t.Fatalf("error = %v, want ErrKnowledgeUnavailable", err)
	}
	if llm.calls.Load() != 0 {
		t.Error("unavailable knowledge must not reach the model")
	}
}

func TestAnswerGeneratesAndCaches(t *testing.T) {
	llm := &stubLLM{response: "Библиотека находится в корпусе 2."}
	svc := newTestService(t, serviceOptions{llm: llm})

	first, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где находится библиотека?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("first answer must not be marked cached")
	}
	if first.Answer != llm.response {
		t.Errorf("Answer = %q, want %q", first.Answer, llm.response)
	}

	second, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где находится библиотека?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("repeat answer must be marked cached")
	}
	if second.Answer != first.Answer {
		t.Errorf("cached answer %q differs from original %q", second.Answer, first.Answer)
	}

	if calls := llm.calls.Load(); calls != 1 {
		t.Errorf("expected 1 model call for a repeated question, got %d", calls)
	}
}

func TestAnswerNormalizationSharesCacheEntries(t *testing.T) {
	llm := &stubLLM{response: "Библиотека работает с 9 до 20."}
	svc := newTestService(t, serviceOptions{llm: llm})

	ctx := context.Background()
	variants := []string{
		"Привет, когда работает библиотека?",
		"когда работает библиотека?",
		"Скажи пожалуйста, когда работает библиотека?",
	}
	for _, question := range variants {
		if _, err := svc.Answer(ctx, &models.AskRequest{Question: question}); err != nil {
			t.Fatalf("Answer(%q): %v", question, err)
		}
	}

	if calls := llm.calls.Load(); calls != 1 {
		t.Errorf("normalization should collapse variants to 1 model call, got %d", calls)
	}
}

func TestAnswerModelSeesRelevantContent(t *testing.T) {
	llm := &stubLLM{}
	llm.fn = func(prompt string) (string, error) {
		if !strings.Contains(prompt, "LIBRARY") {
			return "", fmt.Errorf("prompt missing library content")
		}
		if strings.Contains(prompt, "FACULTIES") {
			return "", fmt.Errorf("prompt contains filtered-out section")
		}
		return "Библиотека работает с 9 до 20 по будням.", nil
	}
	svc := newTestService(t, serviceOptions{llm: llm})

	resp, err := svc.Answer(context.Background(), &models.AskRequest{Question: "когда открыта библиотека?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Answer, "9 до 20") {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
}

func TestAnswerForwardsCallerKey(t *testing.T) {
	llm := &stubLLM{response: "Библиотека находится в корпусе 2."}
	svc := newTestService(t, serviceOptions{llm: llm})

	_, err := svc.Answer(context.Background(), &models.AskRequest{
		Question: "где библиотека?",
		APIKey:   "  caller-key  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	llm.mu.Lock()
	got := llm.lastKey
	llm.mu.Unlock()
	if got != "caller-key" {
		t.Errorf("model credential = %q, want %q", got, "caller-key")
	}
}

func TestAnswerShortGenerationFallsBack(t *testing.T) {
	llm := &stubLLM{response: "Да."}
	svc := newTestService(t, serviceOptions{llm: llm})

	resp, err := svc.Answer(context.Background(), &models.AskRequest{Question: "есть ли библиотека?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != fallbackAnswer {
		t.Errorf("short generation should fall back, got %q", resp.Answer)
	}
}

func TestAnswerGenerationTimeout(t *testing.T) {
	llm := &stubLLM{response: "слишком поздно", delay: time.Second}
	svc := newTestService(t, serviceOptions{llm: llm, timeout: "50ms"})

	_, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где библиотека?"})
	if err != models.ErrGenerationTimeout {
		t.Fatalf("error = %v, want ErrGenerationTimeout", err)
	}
	if svc.CacheSize() != 0 {
		t.Error("timed-out generation must not be cached")
	}
}

func TestAnswerGenerationError(t *testing.T) {
	llm := &stubLLM{err: fmt.Errorf("api quota exceeded")}
	svc := newTestService(t, serviceOptions{llm: llm})

	_, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где библиотека?"})
	if err != models.ErrGeneration {
		t.Fatalf("error = %v, want ErrGeneration", err)
	}

	// The service stays usable after a failure.
	llm.err = nil
	llm.response = "Библиотека находится в корпусе 2."
	resp, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где библиотека?"})
	if err != nil {
		t.Fatalf("service did not recover: %v", err)
	}
	if resp.Answer != llm.response {
		t.Errorf("Answer = %q, want %q", resp.Answer, llm.response)
	}
}

func TestClearCache(t *testing.T) {
	svc := newTestService(t, serviceOptions{})

	if _, err := svc.Answer(context.Background(), &models.AskRequest{Question: "где библиотека?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.CacheSize() != 1 {
		t.Fatalf("CacheSize() = %d, want 1", svc.CacheSize())
	}

	if old := svc.ClearCache(); old != 1 {
		t.Errorf("ClearCache() = %d, want 1", old)
	}
	if svc.CacheSize() != 0 {
		t.Errorf("CacheSize() after clear = %d, want 0", svc.CacheSize())
	}
}
