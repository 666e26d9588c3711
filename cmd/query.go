/*
Copyright © 2025 docuquery
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a one-shot question against the corpus",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		question, _ := cmd.Flags().GetString("query")
		topK, _ := cmd.Flags().GetInt("top-k")
		minSimilarity, _ := cmd.Flags().GetFloat64("min-similarity")

		if question == "" {
			log.Fatal("--query is required")
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		app, err := newApplication(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}

		answer, err := app.queryService.Query(context.Background(), types.QueryRequest{
			Query:         question,
			TopK:          topK,
			MinSimilarity: minSimilarity,
		})
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}

		fmt.Println(answer.Text)
		fmt.Printf("\nConfidence: %.2f (%.2fs)\n", answer.Confidence, answer.ProcessingTime.Seconds())
		for _, source := range answer.Sources {
			if source.PageNumber != nil {
				fmt.Printf("  - %s, page %d (similarity %.2f)\n", source.DocumentName, *source.PageNumber, source.Similarity)
			} else {
				fmt.Printf("  - %s (similarity %.2f)\n", source.DocumentName, source.Similarity)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringP("query", "q", "", "the question to ask")
	queryCmd.Flags().Int("top-k", 0, "number of chunks to retrieve")
	queryCmd.Flags().Float64("min-similarity", 0, "minimum similarity threshold")
}
