package docs

import (
	"net/http"

	apidocs "github.com/futig/formchat-backend/docs"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const documentPath = "/docs/swagger.yaml"

// Handler returns a handler that serves Swagger UI pointed at the embedded OpenAPI document
func Handler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL(documentPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	)
}

// SwaggerYAMLHandler serves the OpenAPI description compiled into the binary
func SwaggerYAMLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(apidocs.SwaggerYAML)
	}
}

// RegisterRoutes registers Swagger documentation routes on the router.
func RegisterRoutes(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusFound)
	})

	// the exact route wins over the wildcard in chi
	r.Get(documentPath, SwaggerYAMLHandler())
	r.Get("/docs/*", Handler())
}
