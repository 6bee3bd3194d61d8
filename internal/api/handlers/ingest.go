package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

// IngestStarter kicks off a background ingestion run over a set of sources.
type IngestStarter interface {
	Start(ctx context.Context, sources []string) (*domain.IngestionRun, error)
}

type IngestHandler struct {
	orchestrator IngestStarter
}

func NewIngestHandler(orchestrator IngestStarter) *IngestHandler {
	return &IngestHandler{orchestrator: orchestrator}
}

type IngestRequest struct {
	Sources []string `json:"sources"`
}

type IngestResponse struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	TotalDocs int    `json:"total_docs"`
}

// Create accepts a batch of document sources and starts an ingestion run.
// Processing is asynchronous; the response carries the run id to poll.
func (h *IngestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Sources) == 0 {
		api.Error(w, http.StatusBadRequest, "sources is required")
		return
	}
	for _, source := range req.Sources {
		if source == "" {
			api.Error(w, http.StatusBadRequest, "sources must not contain empty entries")
			return
		}
	}

	run, err := h.orchestrator.Start(r.Context(), req.Sources)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, IngestResponse{
		RunID:     run.ID,
		Status:    string(run.Status),
		TotalDocs: run.TotalDocs,
	})
}
