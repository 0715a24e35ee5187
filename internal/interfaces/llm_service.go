package interfaces

import "context"

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeMock indicates a test double that never leaves the process
	LLMModeMock LLMMode = "mock"
)

// LLMService defines the interface for language model text generation.
// Implementations are single-attempt: one call per request, bounded by
// the context deadline, no internal retry.
type LLMService interface {
	// Generate produces a completion for the composed prompt. The prompt
	// already contains the system instructions, knowledge context and the
	// user question. A non-empty apiKey replaces the service credential
	// for this request only.
	Generate(ctx context.Context, prompt, apiKey string) (string, error)

	// HealthCheck verifies the service is operational and can handle requests.
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode of the LLM service.
	GetMode() LLMMode

	// Close releases resources and performs cleanup operations.
	Close() error
}
