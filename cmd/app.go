/*
Copyright © 2025 docuquery
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/sashabaranov/go-openai"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/database"
	"github.com/docuquery/rag-be/repository"
	"github.com/docuquery/rag-be/service"
)

// application is the wired service stack shared by the start, upload-document
// and query commands. Empty Mongo/Weaviate settings select the in-memory
// stores, which is what local development uses.
type application struct {
	cfg           *config.Config
	repo          repository.DocumentRepo
	store         database.VectorStore
	ingestService *service.IngestService
	queryService  *service.QueryService
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	breakers := service.NewBreakers(cfg.BreakerThreshold, cfg.BreakerCooldown)

	var repo repository.DocumentRepo
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		repo = repository.NewDocumentRepo(client.Database(cfg.MongoDatabase).Collection("documents"))
	} else {
		log.Println("MONGODB_URI not set, using in-memory document store")
		repo = repository.NewMemoryDocumentRepo()
	}

	var store database.VectorStore
	if cfg.WeaviateStoreConfig.Host != "" {
		weaviateStore, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig, cfg.EmbeddingDimension, breakers.VectorStore)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Weaviate: %w", err)
		}
		store = weaviateStore
	} else {
		log.Println("Weaviate host not set, using in-memory vector store")
		store = database.NewMemoryVectorStore(cfg.EmbeddingDimension)
	}

	openaiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIEndpoint != "" {
		openaiCfg.BaseURL = cfg.OpenAIEndpoint
	}
	embedder := service.NewEmbeddingService(openai.NewClientWithConfig(openaiCfg), cfg, breakers.Embedding)

	var provider service.GenerationProvider
	switch cfg.GenerationProvider {
	case "gemini":
		geminiProvider, err := service.NewGeminiProvider(ctx, cfg, breakers.Generation)
		if err != nil {
			return nil, err
		}
		provider = geminiProvider
	default:
		provider = service.NewOpenAIProvider(cfg, breakers.Generation)
	}

	chunker := service.NewChunkerService(cfg.ChunkSize, cfg.ChunkOverlap)
	dedup := service.NewDedupService(repo)
	extractor := service.NewDocumentExtractor()

	ingestService := service.NewIngestService(
		repo, store, extractor, chunker, dedup, embedder,
		cfg.MaxFileSize, cfg.ChunkDedupEnabled,
	)
	retrievalService := service.NewRetrievalService(embedder, store, cfg.TopK, cfg.SimilarityThreshold)
	answerService := service.NewAnswerService(provider, nil, cfg.MaxContextLength, cfg.MaxSources)
	queryService := service.NewQueryService(retrievalService, answerService, cfg.QueryTimeout)

	return &application{
		cfg:           cfg,
		repo:          repo,
		store:         store,
		ingestService: ingestService,
		queryService:  queryService,
	}, nil
}
