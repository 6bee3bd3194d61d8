//go:build e2e

package e2e

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docpipe/internal/api/handlers"
	"github.com/cloo-solutions/docpipe/internal/chunking"
	"github.com/cloo-solutions/docpipe/internal/detect"
	"github.com/cloo-solutions/docpipe/internal/enrich"
	"github.com/cloo-solutions/docpipe/internal/extract"
	"github.com/cloo-solutions/docpipe/internal/ingest"
	"github.com/cloo-solutions/docpipe/internal/openai"
	"github.com/cloo-solutions/docpipe/internal/repository"
	"github.com/cloo-solutions/docpipe/internal/server"
	"github.com/cloo-solutions/docpipe/internal/storage"
	"github.com/cloo-solutions/docpipe/internal/testutil"
	"github.com/cloo-solutions/docpipe/internal/token"
)

// testCategories is the closed category set used across the E2E suite.
var testCategories = []string{"contract", "report", "faq"}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	OpenAIStub   *httptest.Server
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment: containers, a stub
// OpenAI endpoint, and an in-process API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create S3 client
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "docpipe-sources",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	openAIStub := startOpenAIStub()

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	// Start HTTP server
	serverURL, serverCloser := startServer(t, pool, s3Client, openAIStub.URL, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		OpenAIStub:   openAIStub,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.OpenAIStub != nil {
		e.OpenAIStub.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	// Clean up binaries
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the docpiped binary for CLI tests
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docpipe-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docpiped"), "./cmd/docpiped")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docpiped: %v\n%s", err, out)
	}
}

// RunDocpiped runs the docpiped CLI pointed at the test containers and the
// stub OpenAI endpoint.
func (e *E2ETestEnv) RunDocpiped(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docpiped"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DATABASE_URL=%s", e.PostgresC.ConnectionString()),
		"OPENAI_API_KEY=e2e-test-key",
		fmt.Sprintf("OPENAI_BASE_URL=%s/v1", e.OpenAIStub.URL),
		fmt.Sprintf("CATEGORY_LIST=%s", strings.Join(testCategories, ",")),
		"BACKFILL_INTERVAL_S=0",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = strings.NewReader(string(jsonData))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// RunDoc mirrors the document entries in the run detail response.
type RunDoc struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	State      string `json:"state"`
	Pattern    string `json:"pattern"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error"`
}

// RunDetail mirrors the run detail response.
type RunDetail struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	TotalDocs  int      `json:"total_docs"`
	StoredDocs int      `json:"stored_docs"`
	FailedDocs int      `json:"failed_docs"`
	Error      string   `json:"error"`
	Documents  []RunDoc `json:"documents"`
}

// StartIngest kicks off a run for the given sources and returns the run ID.
func (e *E2ETestEnv) StartIngest(sources ...string) string {
	resp, err := e.Post("/api/v1/ingest", map[string]interface{}{"sources": sources})
	if err != nil {
		e.T.Fatalf("failed to start ingestion: %v", err)
	}

	var data struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		e.T.Fatalf("failed to parse ingest response: %v", err)
	}
	if data.RunID == "" {
		e.T.Fatal("ingest response missing run_id")
	}
	return data.RunID
}

// WaitForRun polls the run until it leaves the running state.
func (e *E2ETestEnv) WaitForRun(runID string, timeout time.Duration) *RunDetail {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/api/v1/runs/" + runID)
		if err != nil {
			e.T.Fatalf("failed to get run %s: %v", runID, err)
		}

		var detail RunDetail
		if err := json.Unmarshal(resp.Data, &detail); err != nil {
			e.T.Fatalf("failed to parse run detail: %v", err)
		}

		if detail.Status != "running" {
			return &detail
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("run %s did not finish within %v", runID, timeout)
	return nil
}

// WriteSourceFile writes a text document under a temp dir and returns its path.
func (e *E2ETestEnv) WriteSourceFile(name, content string) string {
	dir := e.T.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.T.Fatalf("failed to write source file: %v", err)
	}
	return path
}

// CountChunks returns the number of stored chunks for a document.
func (e *E2ETestEnv) CountChunks(documentID string) int {
	var count int
	err := e.Pool.QueryRow(e.Ctx,
		"SELECT COUNT(*) FROM document_chunks WHERE document_id = $1", documentID,
	).Scan(&count)
	if err != nil {
		e.T.Fatalf("failed to count chunks: %v", err)
	}
	return count
}

// startServer starts the HTTP server with the full ingestion pipeline wired
// against the test containers.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, openAIBaseURL string, port int) (string, func()) {
	counter, err := token.NewCounter(token.DefaultModel)
	if err != nil {
		t.Fatalf("failed to load tokenizer: %v", err)
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:  "e2e-test-key",
		BaseURL: openAIBaseURL + "/v1",
	})

	chunkCfg := chunking.Config{
		MaxChunkSize:       1200,
		MinChunkSize:       200,
		Overlap:            200,
		MaxEmbeddingTokens: 8000,
	}

	enricher := enrich.NewEnricher(client, enrich.Config{
		Categories:   testCategories,
		KeywordLimit: 5,
	})

	runs := repository.NewRunRepository(pool)

	orchestrator := ingest.NewOrchestrator(
		ingest.NewSourceRouter(s3Client),
		extract.NewExtractor(),
		detect.NewDetector(detect.DefaultThresholds()),
		chunking.NewSelector(chunkCfg),
		chunking.NewNormalizer(counter, chunkCfg),
		enricher,
		client,
		ingest.NewTxRecordStore(repository.NewTxRunner(pool)),
		runs,
		ingest.Config{WorkerCount: 2, MaxRetries: 2, RetryInitialInterval: 50 * time.Millisecond},
	)

	cfg := server.RouterConfig{
		IngestHandler: handlers.NewIngestHandler(orchestrator),
		RunsHandler:   handlers.NewRunsHandler(runs),
		SearchHandler: handlers.NewSearchHandler(client, repository.NewChunkRepository(pool)),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// startOpenAIStub serves deterministic embeddings and completions so the
// pipeline runs end to end without the real API. Embeddings are derived
// from the input text, so identical text always embeds identically.
func startOpenAIStub() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Input) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}

		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i, text := range req.Input {
			data[i] = datum{Object: "embedding", Index: i, Embedding: stubEmbedding(text)}
		}

		writeJSON(w, map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}

		content := "termination, notice, liability"
		if strings.Contains(req.Messages[0].Content, "Classify") {
			content = "contract"
		}

		writeJSON(w, map[string]interface{}{
			"id":     "chatcmpl-e2e",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": content},
				},
			},
		})
	})

	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// stubEmbedding derives a 1536-dim unit-free vector from the text digest.
func stubEmbedding(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, 1536)
	for i := range vec {
		word := binary.BigEndian.Uint32(digest[(i*4)%28 : (i*4)%28+4])
		vec[i] = float32(word%2000)/1000.0 - 1.0
	}
	return vec
}
