package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/cloo-solutions/docpipe/internal/repository"
)

type countingProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *countingProcessor) ProcessBatch(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestWorker_ProcessesOnInterval(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	after := processor.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, processor.calls.Load(), "no batches after Stop")
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after context cancel")
	}
}

func TestWorker_KeepsRunningAfterBatchError(t *testing.T) {
	processor := &countingProcessor{err: errors.New("boom")}
	worker := NewWorker(processor, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
}

type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) ListUnenriched(ctx context.Context, limit int) ([]repository.UnenrichedChunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UnenrichedChunk), args.Error(1)
}

func (m *MockMetadataStore) UpdateMetadata(ctx context.Context, id string, keywords []string, category string) error {
	args := m.Called(ctx, id, keywords, category)
	return args.Error(0)
}

type MockMetadataEnricher struct {
	mock.Mock
}

func (m *MockMetadataEnricher) Enrich(ctx context.Context, documentID string, chunkIndex int, text string) (domain.ChunkMetadata, []domain.Warning, error) {
	args := m.Called(ctx, documentID, chunkIndex, text)
	var warnings []domain.Warning
	if args.Get(1) != nil {
		warnings = args.Get(1).([]domain.Warning)
	}
	return args.Get(0).(domain.ChunkMetadata), warnings, args.Error(2)
}

func TestEnrichWorker_BackfillsMetadata(t *testing.T) {
	store := new(MockMetadataStore)
	enricher := new(MockMetadataEnricher)

	chunks := []repository.UnenrichedChunk{
		{ID: "abc123:0000", Content: "termination clause text"},
		{ID: "abc123:0001", Content: "liability clause text"},
	}
	store.On("ListUnenriched", mock.Anything, 20).Return(chunks, nil)

	enricher.On("Enrich", mock.Anything, "abc123", 0, "termination clause text").
		Return(domain.ChunkMetadata{Keywords: []string{"termination"}, Category: "legal"}, nil, nil)
	enricher.On("Enrich", mock.Anything, "abc123", 1, "liability clause text").
		Return(domain.ChunkMetadata{Keywords: []string{"liability"}, Category: "legal"}, nil, nil)

	store.On("UpdateMetadata", mock.Anything, "abc123:0000", []string{"termination"}, "legal").Return(nil)
	store.On("UpdateMetadata", mock.Anything, "abc123:0001", []string{"liability"}, "legal").Return(nil)

	worker := NewEnrichWorker(store, enricher, 0)
	err := worker.ProcessBatch(context.Background())

	require.NoError(t, err)
	store.AssertExpectations(t)
	enricher.AssertExpectations(t)
}

func TestEnrichWorker_EmptyMetadataLeftForLaterTick(t *testing.T) {
	store := new(MockMetadataStore)
	enricher := new(MockMetadataEnricher)

	chunks := []repository.UnenrichedChunk{
		{ID: "abc123:0000", Content: "some text"},
	}
	store.On("ListUnenriched", mock.Anything, 20).Return(chunks, nil)

	warnings := []domain.Warning{{Code: domain.WarnKeywordsUnavailable, Message: "keyword extraction failed"}}
	enricher.On("Enrich", mock.Anything, "abc123", 0, "some text").
		Return(domain.ChunkMetadata{Keywords: []string{}}, warnings, nil)

	worker := NewEnrichWorker(store, enricher, 0)
	err := worker.ProcessBatch(context.Background())

	require.NoError(t, err)
	store.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrichWorker_NothingToDo(t *testing.T) {
	store := new(MockMetadataStore)
	enricher := new(MockMetadataEnricher)

	store.On("ListUnenriched", mock.Anything, 20).Return([]repository.UnenrichedChunk{}, nil)

	worker := NewEnrichWorker(store, enricher, 0)
	err := worker.ProcessBatch(context.Background())

	require.NoError(t, err)
	enricher.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrichWorker_ListErrorPropagates(t *testing.T) {
	store := new(MockMetadataStore)
	enricher := new(MockMetadataEnricher)

	store.On("ListUnenriched", mock.Anything, 20).Return(nil, errors.New("db down"))

	worker := NewEnrichWorker(store, enricher, 0)
	err := worker.ProcessBatch(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list unenriched chunks")
}

func TestSplitChunkID(t *testing.T) {
	docID, index, err := splitChunkID("deadbeef:0042")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", docID)
	assert.Equal(t, 42, index)

	_, _, err = splitChunkID("no-separator")
	assert.Error(t, err)

	_, _, err = splitChunkID("doc:notanumber")
	assert.Error(t, err)
}
