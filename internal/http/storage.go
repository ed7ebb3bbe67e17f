package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleStorage serves an uploaded object with range and conditional
// request support.
func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	name := chi.URLParam(r, "*")

	obj, err := s.blobs.Open(r.Context(), bucket, name)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to read object")
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, obj.UpdatedAt, obj.Reader())
}
