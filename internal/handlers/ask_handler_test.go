package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/models"
)

// mockAnswerService implements interfaces.AnswerService for testing
type mockAnswerService struct {
	answerFunc func(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
	clearFunc  func() int
	sizeFunc   func() int
}

func (m *mockAnswerService) Answer(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, req)
	}
	return &models.AskResponse{Answer: "ответ"}, nil
}

func (m *mockAnswerService) ClearCache() int {
	if m.clearFunc != nil {
		return m.clearFunc()
	}
	return 0
}

func (m *mockAnswerService) CacheSize() int {
	if m.sizeFunc != nil {
		return m.sizeFunc()
	}
	return 0
}

func executeAskRequest(handler *AskHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.AskHandler(rec, req)
	return rec
}

func TestAskHandlerSuccess(t *testing.T) {
	svc := &mockAnswerService{
		answerFunc: func(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
			if req.Question != "где библиотека?" {
				t.Errorf("unexpected question %q", req.Question)
			}
			return &models.AskResponse{
				Answer:            "Библиотека в корпусе 2.",
				ProcessingSeconds: 0.42,
				Cached:            true,
			}, nil
		},
	}
	handler := NewAskHandler(svc, arbor.NewLogger())

	rec := executeAskRequest(handler, `{"question":"где библиотека?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp models.AskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Answer != "Библиотека в корпусе 2." || !resp.Cached {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAskHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantAnswer string
	}{
		{"empty question", models.ErrEmptyQuestion, http.StatusBadRequest, msgEmptyQuestion},
		{"knowledge unavailable", models.ErrKnowledgeUnavailable, http.StatusServiceUnavailable, models.SentinelUnavailable},
		{"generation timeout", models.ErrGenerationTimeout, http.StatusGatewayTimeout, msgTimeout},
		{"generation failure", models.ErrGeneration, http.StatusInternalServerError, msgGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAnswerService{
				answerFunc: func(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
					return nil, tt.err
				},
			}
			handler := NewAskHandler(svc, arbor.NewLogger())

			rec := executeAskRequest(handler, `{"question":"вопрос"}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid response body: %v", err)
			}
			if !resp.Error {
				t.Error("error flag not set")
			}
			if resp.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
		})
	}
}

func TestAskHandlerForwardsCredential(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		headerKey string
		wantKey   string
	}{
		{"body credential", `{"question":"вопрос","api_key":"body-key"}`, "", "body-key"},
		{"header overrides body", `{"question":"вопрос","api_key":"body-key"}`, "header-key", "header-key"},
		{"no credential", `{"question":"вопрос"}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey string
			svc := &mockAnswerService{
				answerFunc: func(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
					gotKey = req.APIKey
					return &models.AskResponse{Answer: "ответ"}, nil
				},
			}
			handler := NewAskHandler(svc, arbor.NewLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.headerKey != "" {
				req.Header.Set("X-API-Key", tt.headerKey)
			}
			rec := httptest.NewRecorder()
			handler.AskHandler(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if gotKey != tt.wantKey {
				t.Errorf("forwarded credential = %q, want %q", gotKey, tt.wantKey)
			}
		})
	}
}

func TestAskHandlerInvalidJSON(t *testing.T) {
	handler := NewAskHandler(&mockAnswerService{}, arbor.NewLogger())

	rec := executeAskRequest(handler, `{"question":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAskHandlerMethodNotAllowed(t *testing.T) {
	handler := NewAskHandler(&mockAnswerService{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec := httptest.NewRecorder()
	handler.AskHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
