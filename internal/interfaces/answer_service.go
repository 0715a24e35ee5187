package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// AnswerService owns the single question-answering entry point and the
// response cache administration used by the admin endpoint.
type AnswerService interface {
	// Answer runs the full normalize → retrieve → cache → generate
	// pipeline for one question. Failures are one of the models error
	// kinds; the service stays usable after any of them.
	Answer(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)

	// ClearCache drops all cached answers and returns the previous size.
	ClearCache() int

	// CacheSize returns the current number of cached answers.
	CacheSize() int
}
