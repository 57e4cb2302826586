package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/upload", h.Upload)
	r.Post("/chat", h.Chat)
	r.Post("/rephrase", h.Rephrase)
	r.Get("/session/{id}", h.GetSession)
	r.Get("/download/{name}", h.Download)
}
