package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/pagination"
)

// RunReader provides read access to ingestion runs and their documents.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.IngestionRun, error)
	ListDocuments(ctx context.Context, runID string) ([]*domain.DocumentResult, error)
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.IngestionRun], error)
}

type RunsHandler struct {
	runs RunReader
}

func NewRunsHandler(runs RunReader) *RunsHandler {
	return &RunsHandler{runs: runs}
}

type RunResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	TotalDocs  int    `json:"total_docs"`
	StoredDocs int    `json:"stored_docs"`
	FailedDocs int    `json:"failed_docs"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type RunDetailResponse struct {
	RunResponse
	Documents []*domain.DocumentResult `json:"documents"`
}

type RunListResponse struct {
	Items   []*RunResponse `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

func toRunResponse(run *domain.IngestionRun) *RunResponse {
	return &RunResponse{
		ID:         run.ID,
		Status:     string(run.Status),
		TotalDocs:  run.TotalDocs,
		StoredDocs: run.StoredDocs,
		FailedDocs: run.FailedDocs,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  run.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// List returns runs newest first with cursor pagination.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	page, err := h.runs.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if err == pagination.ErrInvalidCursor {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		api.HandleError(w, err)
		return
	}

	items := make([]*RunResponse, len(page.Items))
	for i, run := range page.Items {
		items[i] = toRunResponse(run)
	}

	api.Success(w, http.StatusOK, RunListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

// Get returns one run with its per-document outcomes.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	documents, err := h.runs.ListDocuments(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RunDetailResponse{
		RunResponse: *toRunResponse(run),
		Documents:   documents,
	})
}
