package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"port"`
	UploadDir string `mapstructure:"upload_dir"`

	// Upload validation
	MaxFileSize int64 `mapstructure:"max_file_size"`

	// Generation provider: "openai" or "gemini"
	GenerationProvider string `mapstructure:"generation_provider"`
	GenerationModel    string `mapstructure:"generation_model"`
	OpenAIEndpoint     string `mapstructure:"openai_endpoint"`
	OpenAIAPIKey       string `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey       string `mapstructure:"GEMINI_API_KEY"`

	// Embedding gateway
	EmbeddingModel      string        `mapstructure:"embedding_model"`
	EmbeddingDimension  int           `mapstructure:"embedding_dimension"`
	MaxBatchSize        int           `mapstructure:"max_batch_size"`
	EmbedRequestsPerMin int           `mapstructure:"embed_requests_per_min"`
	EmbedMaxWait        time.Duration `mapstructure:"embed_max_wait"`

	// Chunking
	ChunkSize         int  `mapstructure:"chunk_size"`
	ChunkOverlap      int  `mapstructure:"chunk_overlap"`
	ChunkDedupEnabled bool `mapstructure:"chunk_dedup_enabled"`

	// Retrieval and synthesis
	TopK                int           `mapstructure:"max_results"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	MaxContextLength    int           `mapstructure:"max_context_length"`
	MaxSources          int           `mapstructure:"max_sources"`
	QueryTimeout        time.Duration `mapstructure:"query_timeout"`

	// Resilience
	BreakerThreshold uint32        `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	RateLimitCount   int           `mapstructure:"rate_limit_count"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`

	// Stores. Empty values select the in-memory implementations, which is
	// what local development and tests use.
	MongoURI            string              `mapstructure:"MONGODB_URI"`
	MongoDatabase       string              `mapstructure:"mongo_database"`
	WeaviateStoreConfig WeaviateStoreConfig `mapstructure:"weaviate_store_config"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables for secrets
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("MONGODB_URI")
	v.BindEnv("weaviate_store_config.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_file_size", 50<<20)
	v.SetDefault("generation_provider", "openai")
	v.SetDefault("generation_model", "gpt-4o-mini")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_dimension", 1536)
	v.SetDefault("max_batch_size", 100)
	v.SetDefault("embed_requests_per_min", 300)
	v.SetDefault("embed_max_wait", 30*time.Second)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("chunk_dedup_enabled", false)
	v.SetDefault("max_results", 5)
	v.SetDefault("similarity_threshold", 0.7)
	v.SetDefault("max_context_length", 8000)
	v.SetDefault("max_sources", 3)
	v.SetDefault("query_timeout", 30*time.Second)
	v.SetDefault("breaker_threshold", 5)
	v.SetDefault("breaker_cooldown", 30*time.Second)
	v.SetDefault("rate_limit_count", 100)
	v.SetDefault("rate_limit_window", time.Hour)
	v.SetDefault("mongo_database", "docuquery")
}
