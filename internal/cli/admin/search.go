package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored chunks",
		Long:  "Embed the query and return the most similar chunks from the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("limit", "l", 10, "Maximum number of results")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
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

	embedding, err := p.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := p.chunks.Search(ctx, embedding, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s (chunk %d)\n", i+1, r.Score, r.DocumentID, r.ChunkIndex)
		if r.Category != "" {
			fmt.Printf("   category: %s\n", r.Category)
		}
		if len(r.Keywords) > 0 {
			fmt.Printf("   keywords: %s\n", strings.Join(r.Keywords, ", "))
		}
		fmt.Printf("   %s\n", truncate(r.Content, 200))
	}

	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
