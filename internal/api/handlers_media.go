package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/zimshred/internal/archive"
)

// handleMedia streams image bytes straight out of the archive. Media is
// never unpacked to disk; this endpoint is how zim:// locators resolve.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		jsonError(w, "filename is required", http.StatusBadRequest)
		return
	}

	data, err := s.reader.Media(r.Context(), archive.MediaNamespace+"/"+filename)
	if err != nil {
		jsonError(w, "media not found", http.StatusNotFound)
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleCommonsLink reconstructs the public Wikimedia Commons URL for a
// media filename, for clients that want the original source.
func (s *Server) handleCommonsLink(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		jsonError(w, "filename is required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": archive.CommonsURL(filename)})
}
