package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// GeminiService implements the LLMService interface using Google Gemini.
// Requests carrying their own API key get a dedicated client, cached
// per key.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiService creates a new Gemini LLM service instance.
//
// The API key is resolved with environment priority: RESPONDEO_GEMINI_API_KEY
// or GOOGLE_API_KEY, then the KV store, then gemini.api_key in config.
func NewGeminiService(geminiConfig *common.GeminiConfig, storageManager interfaces.StorageManager, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, storageManager.KeyValueStorage(), "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GOOGLE_API_KEY, RESPONDEO_GEMINI_API_KEY, or gemini.api_key in config): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-1.5-flash"
	}

	rateLimit := geminiConfig.RateLimit
	if rateLimit <= 0 {
		rateLimit = 4
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), int(rateLimit)+1),
		clients: make(map[string]*genai.Client),
	}

	logger.Info().
		Str("model", geminiConfig.Model).
		Float32("rate_limit", float32(rateLimit)).
		Int("max_tokens", geminiConfig.MaxTokens).
		Msg("Gemini LLM service initialized")

	return service, nil
}

// clientFor returns the client for a caller-supplied API key, creating
// and caching one on first use. An empty key means the default client.
func (s *GeminiService) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return s.client, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[apiKey]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	s.clients[apiKey] = client
	return client, nil
}

// Generate produces a completion for the composed prompt. The call is
// single-attempt: rate limiting and the API request both respect the
// caller's context deadline.
func (s *GeminiService) Generate(ctx context.Context, prompt, apiKey string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	client, err := s.clientFor(ctx, apiKey)
	if err != nil {
		return "", err
	}

	startTime := time.Now()
	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Msg("Starting Gemini generation")

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if s.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(s.config.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("prompt_length", len(prompt)).
			Msg("Gemini generation failed")
		return "", fmt.Errorf("generation failed: %w", err)
	}

	// Extract text from response - iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini generation completed")

	return response.String(), nil
}

// HealthCheck verifies the service is operational and can handle requests.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := s.Generate(healthCheckCtx, "ping", "")
	if err != nil {
		return fmt.Errorf("Gemini probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	s.logger.Debug().Str("model", s.config.Model).Msg("Gemini health check passed")
	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")

	// Clear client references (genai.Client doesn't require explicit Close)
	s.mu.Lock()
	s.clients = nil
	s.mu.Unlock()
	s.client = nil

	return nil
}
