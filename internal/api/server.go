// Package api exposes the ops HTTP surface: intent registration and
// cancellation, the live intent set, monitor counters, and the
// execution journal.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/service/monitor"
)

// Config tunes the HTTP server
type Config struct {
	Port           string
	AllowedOrigins []string
}

// Server is the ops API around the monitor and the journal
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// NewServer wires all routes and middleware
func NewServer(cfg Config, mon *monitor.Service, journal execution.Journal) *Server {
	h := &handlerSet{monitor: mon, journal: journal}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Intents
	apiRouter.HandleFunc("/intents", h.ListIntents).Methods("GET")
	apiRouter.HandleFunc("/intents", h.CreateIntent).Methods("POST")
	apiRouter.HandleFunc("/intents/{intent_id}", h.GetIntent).Methods("GET")
	apiRouter.HandleFunc("/intents/{intent_id}/cancel", h.CancelIntent).Methods("POST")

	// Monitoring
	apiRouter.HandleFunc("/stats", h.GetStats).Methods("GET")
	apiRouter.HandleFunc("/executions", h.GetExecutions).Methods("GET")

	// CORS configuration
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowedOrigins := gorillaHandlers.AllowedOrigins(origins)
	allowedMethods := gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	allowedHeaders := gorillaHandlers.AllowedHeaders([]string{"Accept", "Content-Type"})
	handler := gorillaHandlers.CORS(allowedOrigins, allowedMethods, allowedHeaders)(router)

	port := cfg.Port
	if port == "" {
		port = "8099"
	}

	return &Server{
		handler: handler,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start launches the listener in a goroutine
func (s *Server) Start() {
	go func() {
		log.Info().
			Str("address", s.httpServer.Addr).
			Msg("🎯 Ops API listening")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start ops API")
		}
	}()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeJSON encodes v with the right content type
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
