package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagemark/pagemark/internal/apperr"
	"github.com/pagemark/pagemark/internal/docservice"
	"github.com/pagemark/pagemark/internal/sse"
)

const maxUploadBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	svc    *docservice.Service
	events *sse.Broker
}

// NewHandler creates a new Handler. events may be nil when no SSE broker
// is wired (tests, MCP mode).
func NewHandler(svc *docservice.Service, events *sse.Broker) *Handler {
	return &Handler{svc: svc, events: events}
}

// ListDocuments handles GET /api/docs.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument handles GET /api/docs/{id}. The response includes the
// document's notes.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
		} else {
			slog.Error("get document failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UploadDocument handles POST /api/docs/upload (multipart/form-data, field "file").
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	doc, err := h.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupportedFormat) {
			writeJSON(w, http.StatusBadRequest, errorBody("only PDF files are allowed"))
			return
		}
		slog.Error("upload failed", slog.String("filename", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if h.events != nil {
		h.events.PublishDocumentEvent("uploaded", doc.ID)
	}
	writeJSON(w, http.StatusOK, doc)
}

// DownloadDocument handles GET /api/docs/{id}/file and streams the raw
// PDF bytes. A missing backing file is a 404, same as a missing document.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, rc, err := h.svc.OpenFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
		} else {
			slog.Error("download failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	// The title is a client-supplied filename; FormatMediaType escapes it.
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("inline", map[string]string{"filename": doc.Title}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("download stream failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// DeleteDocument handles DELETE /api/docs/{id}. All notes owned by the
// document are deleted with it.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("document not found"))
		} else {
			slog.Error("delete document failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if h.events != nil {
		h.events.PublishDocumentEvent("deleted", id)
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "document deleted successfully"})
}
