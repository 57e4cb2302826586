package api

import (
	"net/http"
	"time"

	chatapi "github.com/futig/formchat-backend/internal/api/chat"
	"github.com/futig/formchat-backend/internal/api/docs"
	"github.com/futig/formchat-backend/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(chatHandler *chatapi.Handler, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)               // Recover from panics
	r.Use(chimiddleware.RequestID)               // Add request ID
	r.Use(middleware.Logger(logger))             // Log requests
	r.Use(middleware.CORS())                     // Handle CORS
	r.Use(chimiddleware.Timeout(requestTimeout)) // Bound the whole turn, LLM calls included

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	chatapi.RegisterRoutes(r, chatHandler)

	return r
}
