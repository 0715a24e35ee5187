package models

import "errors"

// Pipeline failure kinds. Handlers map these to HTTP statuses and
// user-facing messages; the answering service stays usable after any
// of them.
var (
	// ErrEmptyQuestion means the question was empty after trimming.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrKnowledgeUnavailable means no knowledge content could be served.
	ErrKnowledgeUnavailable = errors.New("knowledge content unavailable")

	// ErrGenerationTimeout means the model did not answer within the
	// generation deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGeneration means the model call failed.
	ErrGeneration = errors.New("generation failed")
)
