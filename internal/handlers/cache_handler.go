package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

const msgUnauthorized = "Недостаточно прав для этой операции"

// CacheHandler handles cache administration HTTP requests
type CacheHandler struct {
	answerService interfaces.AnswerService
	adminKey      string
	logger        arbor.ILogger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(answerService interfaces.AnswerService, adminKey string, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		answerService: answerService,
		adminKey:      adminKey,
		logger:        logger,
	}
}

// ClearCacheHandler handles POST /api/clear-cache requests. The caller
// must present the admin key in the X-API-Key header. With no admin key
// configured the endpoint always refuses.
func (h *CacheHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	providedKey := r.Header.Get("X-API-Key")
	if h.adminKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(h.adminKey)) != 1 {
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("Unauthorized cache clear attempt")
		WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"status": "error",
			"error":  msgUnauthorized,
		})
		return
	}

	oldSize := h.answerService.ClearCache()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"old_size":  oldSize,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
