package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// User-facing error messages. Every failure mode keeps the answer
// field populated so clients can display it directly.
const (
	msgEmptyQuestion = "Вопрос не может быть пустым."
	msgTimeout       = "Извините, обработка вопроса заняла слишком много времени. Попробуйте ещё раз."
	msgGeneration    = "Произошла ошибка при обработке вопроса. Попробуйте позже."
	msgBadRequest    = "Некорректный запрос."
)

// AskHandler handles question-answering HTTP requests
type AskHandler struct {
	answerService interfaces.AnswerService
	logger        arbor.ILogger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(answerService interfaces.AnswerService, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		answerService: answerService,
		logger:        logger,
	}
}

// AskHandler handles POST /api/ask requests
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode ask request")
		WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Answer: msgBadRequest,
			Error:  true,
		})
		return
	}

	// A header credential wins over one in the body.
	if headerKey := r.Header.Get("X-API-Key"); headerKey != "" {
		req.APIKey = headerKey
	}

	response, err := h.answerService.Answer(r.Context(), &req)
	if err != nil {
		h.writeAnswerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// writeAnswerError maps pipeline failures to HTTP statuses and
// user-facing messages.
func (h *AskHandler) writeAnswerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Answer: msgEmptyQuestion,
			Error:  true,
		})
	case errors.Is(err, models.ErrKnowledgeUnavailable):
		WriteJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
			Answer: models.SentinelUnavailable,
			Error:  true,
		})
	case errors.Is(err, models.ErrGenerationTimeout):
		WriteJSON(w, http.StatusGatewayTimeout, models.ErrorResponse{
			Answer: msgTimeout,
			Error:  true,
		})
	default:
		h.logger.Error().Err(err).Msg("Answer pipeline failed")
		WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Answer: msgGeneration,
			Error:  true,
		})
	}
}
