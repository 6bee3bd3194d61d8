package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/repository"
)

// QueryEmbedder turns the search query into an embedding vector.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher runs vector similarity search over stored chunks.
type ChunkSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]*repository.SearchResult, error)
}

type SearchHandler struct {
	embedder QueryEmbedder
	chunks   ChunkSearcher
}

func NewSearchHandler(embedder QueryEmbedder, chunks ChunkSearcher) *SearchHandler {
	return &SearchHandler{embedder: embedder, chunks: chunks}
}

type SearchResponse struct {
	Results []*repository.SearchResult `json:"results"`
}

// Search embeds the query and returns the most similar chunks.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		api.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	embedding, err := h.embedder.GenerateEmbedding(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results, err := h.chunks.Search(r.Context(), embedding, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
