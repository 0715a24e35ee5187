package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// ClaudeService implements the LLMService interface using Anthropic Claude API.
// Requests carrying their own API key get a dedicated client, cached
// per key.
type ClaudeService struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	clients map[string]anthropic.Client
}

// NewClaudeService creates a new Claude LLM service instance.
//
// The API key is resolved with environment priority: RESPONDEO_CLAUDE_API_KEY
// or ANTHROPIC_API_KEY, then the KV store, then claude.api_key in config.
func NewClaudeService(claudeConfig *common.ClaudeConfig, storageManager interfaces.StorageManager, logger arbor.ILogger) (*ClaudeService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, storageManager.KeyValueStorage(), "anthropic_api_key", claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service (set via ANTHROPIC_API_KEY, RESPONDEO_CLAUDE_API_KEY, or claude.api_key in config): %w", err)
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	rateLimit := claudeConfig.RateLimit
	if rateLimit <= 0 {
		rateLimit = 1
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeService{
		config:  claudeConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		clients: make(map[string]anthropic.Client),
	}

	logger.Info().
		Str("model", claudeConfig.Model).
		Float32("rate_limit", float32(rateLimit)).
		Int("max_tokens", claudeConfig.MaxTokens).
		Msg("Claude LLM service initialized")

	return service, nil
}

// clientFor returns the client for a caller-supplied API key, creating
// and caching one on first use. An empty key means the default client.
func (s *ClaudeService) clientFor(apiKey string) anthropic.Client {
	if apiKey == "" {
		return s.client
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.clients[apiKey]
	if !ok {
		client = anthropic.NewClient(option.WithAPIKey(apiKey))
		s.clients[apiKey] = client
	}
	return client
}

// Generate produces a completion for the composed prompt.
func (s *ClaudeService) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	startTime := time.Now()
	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Msg("Starting Claude generation")

	maxTokens := s.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	client := s.clientFor(apiKey)
	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("prompt_length", len(prompt)).
			Msg("Claude generation failed")
		return "", fmt.Errorf("generation failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude generation completed")

	return response.String(), nil
}

// HealthCheck verifies the Claude service is operational and can handle requests.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Generate(healthCheckCtx, "ping", "")
	if err != nil {
		return fmt.Errorf("Claude probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("Claude health check passed")
	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *ClaudeService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	// Claude client doesn't require explicit cleanup
	return nil
}
