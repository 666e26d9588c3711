/*
Copyright © 2025 docuquery
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/handler"
	"github.com/docuquery/rag-be/middleware"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the document Q&A server",
	Long:  `Starts the HTTP server handling document uploads and questions.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()
		app, err := newApplication(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize services: %v", err)
		}

		limiter := middleware.NewClientRateLimiter(cfg.RateLimitCount, cfg.RateLimitWindow)
		limiter.StartCleanup(ctx, cfg.RateLimitWindow/4)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		healthHandler := handler.NewHealthHandler()
		documentHandler := handler.NewDocumentHandler(app.ingestService, cfg.UploadDir)
		queryHandler := handler.NewQueryHandler(app.queryService)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", healthHandler.HealthHandler)

		apiV1 := router.Group("/api/v1")
		apiV1.Use(middleware.RateLimit(limiter))
		{
			apiV1.POST("/documents/upload", documentHandler.UploadDocumentHandler)
			apiV1.GET("/documents", documentHandler.ListDocumentsHandler)
			apiV1.GET("/documents/:id/status", documentHandler.GetStatusHandler)
			apiV1.DELETE("/documents/:id", documentHandler.DeleteDocumentHandler)
			apiV1.POST("/query", queryHandler.QueryHandler)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
