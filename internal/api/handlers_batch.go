package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/zimshred/internal/chunker"
)

type startBatchRequest struct {
	ArticleIDs []string `json:"article_ids,omitempty"`
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	job, err := s.orchestrator.StartBatch(req.ArticleIDs)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   job.RunID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/batches/%s", job.RunID),
	})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	job := s.orchestrator.Job(runID)
	if job == nil {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleShredArticle runs shred+chunk for one article on demand and
// returns the result without storing it. Useful for inspecting what the
// pipeline would produce.
func (s *Server) handleShredArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	art, err := s.reader.Article(r.Context(), articleID)
	if err != nil {
		jsonError(w, "article not found: "+err.Error(), http.StatusNotFound)
		return
	}

	doc, err := s.orchestrator.Shredder().Shred(art.ID, art.Title, art.HTML)
	if err != nil {
		jsonError(w, "shred: "+err.Error(), http.StatusInternalServerError)
		return
	}
	chunks, err := chunker.Chunk(doc.ArticleID, doc.Markdown, s.orchestrator.ChunkerConfig())
	if err != nil {
		jsonError(w, "chunk: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document": doc,
		"chunks":   chunks,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
