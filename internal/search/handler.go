// internal/search/handler.go
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Reindex rebuilds the whole read side.
type Reindex interface {
	Reindex(ctx context.Context) (int, error)
}

type Handler struct {
	repo    Repository
	reindex Reindex
	logger  *slog.Logger
}

func NewHandler(repo Repository, reindex Reindex, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, reindex: reindex, logger: logger}
}

// Mount registers the query endpoints on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/games", h.handleList)
	r.Get("/games/{id}", h.handleGet)
	r.Get("/search", h.handleSearch)
	r.Post("/search/reindex", h.handleReindex)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	docs, err := h.repo.List(r.Context(), offset, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid game ID", http.StatusBadRequest)
		return
	}

	doc, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if doc == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing search query", http.StatusBadRequest)
		return
	}

	offset, limit := pageParams(r)
	docs, err := h.repo.Search(r.Context(), query, offset, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleReindex(w http.ResponseWriter, r *http.Request) {
	written, err := h.reindex.Reindex(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": written})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("query failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return NormalizePage(offset, limit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
