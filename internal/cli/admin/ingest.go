package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docpipe/internal/config"
	"github.com/cloo-solutions/docpipe/internal/database"
	"github.com/cloo-solutions/docpipe/internal/domain"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <source> [source...]",
		Short: "Ingest documents into the vector store",
		Long:  "Run the ingestion pipeline synchronously for the given local paths or s3:// URIs and print per-document results",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, pool, err := getPipelineDeps(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	p, err := buildPipeline(ctx, cfg, pool)
	if err != nil {
		return err
	}

	run, results, err := p.orchestrator.Run(ctx, args)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"run":       run,
			"documents": results,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	for _, result := range results {
		printDocumentResult(result)
	}

	fmt.Printf("\nRun %s: %s (%d stored, %d failed of %d)\n",
		run.ID, run.Status, run.StoredDocs, run.FailedDocs, run.TotalDocs)

	if run.Status == domain.RunStatusFailed {
		return fmt.Errorf("run failed: %s", run.Error)
	}

	return nil
}

func printDocumentResult(result *domain.DocumentResult) {
	if result.Succeeded() {
		fmt.Printf("stored  %s (%s): %d chunks, pattern=%s\n",
			result.Source, result.DocumentID, result.ChunkCount, result.Pattern)
	} else {
		fmt.Printf("failed  %s: %s (state=%s)\n", result.Source, result.Error, result.State)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w.Message)
	}
}

func getPipelineDeps(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	return cfg, pool, nil
}
