package models

// AskRequest is the body of POST /api/ask. APIKey optionally carries a
// caller-supplied model credential; the X-API-Key header takes
// precedence over it.
type AskRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key,omitempty"`
}

// AskResponse is the success body of POST /api/ask.
type AskResponse struct {
	Answer            string  `json:"answer"`
	ProcessingSeconds float64 `json:"processing_time"`
	Cached            bool    `json:"cached"`
}

// ErrorResponse is the failure body of POST /api/ask. The answer field
// stays populated with a user-facing message so clients can render it
// directly.
type ErrorResponse struct {
	Answer string `json:"answer"`
	Error  bool   `json:"error"`
}
