package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser front-ends served from any origin and answers preflight requests
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Language", "X-Request-ID", "X-Session-ID"},
		// downloads carry the artifact name
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})
}
