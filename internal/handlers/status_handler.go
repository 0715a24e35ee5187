package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// KnowledgeReporter reports whether knowledge content is currently
// available. The answer service implements it.
type KnowledgeReporter interface {
	KnowledgeAvailable() bool
}

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	answerService interfaces.AnswerService
	knowledge     KnowledgeReporter
	logger        arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(answerService interfaces.AnswerService, knowledge KnowledgeReporter, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		answerService: answerService,
		knowledge:     knowledge,
		logger:        logger,
	}
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	knowledgeStatus := "unavailable"
	if h.knowledge.KnowledgeAvailable() {
		knowledgeStatus = "available"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"cache_size":     h.answerService.CacheSize(),
		"knowledge_base": knowledgeStatus,
		"version":        common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// RootHandler handles GET / with a short service description.
func (h *StatusHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": "respondeo",
		"version": common.GetVersion(),
		"endpoints": []string{
			"POST /api/ask",
			"POST /api/clear-cache",
			"GET /api/health",
			"GET /api/version",
		},
	})
}
