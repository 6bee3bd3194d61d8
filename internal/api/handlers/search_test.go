package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/repository"
)

type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) Search(ctx context.Context, embedding []float32, limit int) ([]*repository.SearchResult, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.SearchResult), args.Error(1)
}

func TestSearchHandler_Search(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "refund policy").Return([]float32{0.1, 0.2}, nil)

	chunks := new(MockChunkSearcher)
	chunks.On("Search", mock.Anything, []float32{0.1, 0.2}, 5).Return([]*repository.SearchResult{
		{ID: "doc-1:0000", DocumentID: "doc-1", Content: "Refunds are issued within 14 days.", Score: 0.92, Category: "policy"},
	}, nil)

	handler := NewSearchHandler(embedder, chunks)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=refund+policy&limit=5", nil)
	w := httptest.NewRecorder()

	handler.Search(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "doc-1:0000", resp.Data.Results[0].ID)
	assert.Equal(t, "policy", resp.Data.Results[0].Category)
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	handler := NewSearchHandler(new(MockQueryEmbedder), new(MockChunkSearcher))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	w := httptest.NewRecorder()

	handler.Search(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_InvalidLimit(t *testing.T) {
	handler := NewSearchHandler(new(MockQueryEmbedder), new(MockChunkSearcher))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=terms&limit=500", nil)
	w := httptest.NewRecorder()

	handler.Search(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_EmbeddingFailure(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	embedder.On("GenerateEmbedding", mock.Anything, "terms").Return(nil, domain.ErrEmbeddingFailed)

	handler := NewSearchHandler(embedder, new(MockChunkSearcher))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=terms", nil)
	w := httptest.NewRecorder()

	handler.Search(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
