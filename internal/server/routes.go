package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.app.StatusHandler.RootHandler)

	// API routes - Question answering
	mux.HandleFunc("/api/ask", s.app.AskHandler.AskHandler) // POST - answer a question

	// API routes - Administration
	mux.HandleFunc("/api/clear-cache", s.app.CacheHandler.ClearCacheHandler) // POST - drop cached answers

	// API routes - Status
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)   // GET - health and cache stats
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler) // GET - version info

	return mux
}
