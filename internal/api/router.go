package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/pagemark/pagemark/internal/docservice"
	"github.com/pagemark/pagemark/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is also mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/docs", h.ListDocuments)
	r.Post("/docs/upload", h.UploadDocument)
	r.Get("/docs/{id}", h.GetDocument)
	r.Get("/docs/{id}/file", h.DownloadDocument)
	r.Delete("/docs/{id}", h.DeleteDocument)
	r.Get("/docs/{id}/notes", h.ListNotes)

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
