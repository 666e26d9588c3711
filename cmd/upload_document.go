/*
Copyright © 2025 docuquery
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/utils"
)

// uploadDocumentCmd represents the upload-document command
var uploadDocumentCmd = &cobra.Command{
	Use:   "upload-document",
	Short: "Ingest a document into the corpus",
	Long: `Reads a PDF or PPTX file, runs the full ingestion pipeline and waits
for it to finish.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		waitTimeout, _ := cmd.Flags().GetDuration("wait")

		if filePath == "" {
			log.Fatal("--file is required")
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		raw, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}
		contentType := utils.ContentTypeFromName(filePath)
		if contentType == "" {
			log.Fatalf("Unsupported file extension: %s", filepath.Ext(filePath))
		}

		app, err := newApplication(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}

		task, err := app.ingestService.Ingest(context.Background(), raw, filepath.Base(filePath), contentType)
		if err != nil {
			log.Fatalf("Failed to start ingestion: %v", err)
		}
		fmt.Println("Ingesting document", task.DocumentID)

		status, err := task.Wait(waitTimeout)
		if err != nil {
			log.Fatalf("Ingestion did not complete: %v", err)
		}
		fmt.Println("Document", task.DocumentID, "finished with status", status)
	},
}

func init() {
	rootCmd.AddCommand(uploadDocumentCmd)

	uploadDocumentCmd.Flags().StringP("file", "f", "", "path to the PDF or PPTX file")
	uploadDocumentCmd.Flags().Duration("wait", 5*time.Minute, "how long to wait for ingestion to finish")
}
