package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

const BATCH_SIZE = 200

var (
	CHUNK_CLASS        = "DocumentChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "documentName", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "pageNumber", DataType: []string{"int"}},
			{Name: "startChar", DataType: []string{"int"}},
			{Name: "endChar", DataType: []string{"int"}},
			{Name: "tokenCount", DataType: []string{"int"}},
			{Name: "fingerprint", DataType: []string{"text"}},
		},
		// Vectors are supplied by the embedding gateway, never by Weaviate.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

// WeaviateStore is the production VectorStore. Physical similarity search is
// delegated to Weaviate; threshold filtering and deterministic tie-breaking
// happen here.
type WeaviateStore struct {
	client    *weaviate.Client
	dimension int
	breaker   *gobreaker.CircuitBreaker
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig, dimension int, breaker *gobreaker.CircuitBreaker) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	clientCfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	hasChunkClass := false
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			hasChunkClass = true
			break
		}
	}
	if !hasChunkClass {
		err = client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s class: %w", CHUNK_CLASS, err)
		}
	}

	return &WeaviateStore{
		client:    client,
		dimension: dimension,
		breaker:   breaker,
	}, nil
}

// ReInit drops and recreates the chunk class. Destructive; used by the CLI
// reinit flag only.
func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete %s class: %w", CHUNK_CLASS, err)
	}
	err = s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create %s class: %w", CHUNK_CLASS, err)
	}
	return nil
}

func (s *WeaviateStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	if s.breaker == nil {
		return fn()
	}
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: vector store circuit open", types.ErrServiceUnavailable)
	}
	return result, err
}

func (s *WeaviateStore) UpsertChunks(ctx context.Context, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector for chunk %d has dimension %d, store expects %d", i, len(v), s.dimension)
		}
	}

	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			pageNumber := 0
			if chunks[j].PageNumber != nil {
				pageNumber = *chunks[j].PageNumber
			}
			properties := map[string]interface{}{
				"content":      chunks[j].Content,
				"documentId":   chunks[j].DocumentID,
				"documentName": chunks[j].Metadata["document_name"],
				"chunkIndex":   chunks[j].Index,
				"pageNumber":   pageNumber,
				"startChar":    chunks[j].StartChar,
				"endChar":      chunks[j].EndChar,
				"tokenCount":   chunks[j].TokenCount,
				"fingerprint":  chunks[j].Fingerprint,
			}
			batcher = batcher.WithObjects(&models.Object{
				Class:      CHUNK_CLASS,
				Properties: properties,
				Vector:     vectors[j],
			})
		}

		_, err := s.execute(func() (interface{}, error) {
			return batcher.Do(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		log.Printf("Inserted batch %d-%d of %d chunks", i, end, total)
	}

	return nil
}

func (s *WeaviateStore) Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]types.RetrievalResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vector), s.dimension)
	}

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "documentName"},
		{Name: "chunkIndex"},
		{Name: "pageNumber"},
		{Name: "startChar"},
		{Name: "endChar"},
		{Name: "tokenCount"},
		{Name: "fingerprint"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	// Over-fetch so threshold filtering below still leaves topK candidates.
	limit := topK * 2
	if limit < topK {
		limit = topK
	}

	raw, err := s.execute(func() (interface{}, error) {
		return s.client.GraphQL().Get().
			WithClassName(CHUNK_CLASS).
			WithFields(fields...).
			WithNearVector(nearVector).
			WithLimit(limit).
			Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	response := raw.(*models.GraphQLResponse)
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("search failed: %v", response.Errors[0].Message)
	}

	var results []types.RetrievalResult
	if data, ok := response.Data["Get"].(map[string]interface{})[CHUNK_CLASS].([]interface{}); ok {
		for _, item := range data {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			chunk := types.Chunk{
				DocumentID:  asString(obj["documentId"]),
				Index:       asInt(obj["chunkIndex"]),
				Content:     asString(obj["content"]),
				StartChar:   asInt(obj["startChar"]),
				EndChar:     asInt(obj["endChar"]),
				TokenCount:  asInt(obj["tokenCount"]),
				Fingerprint: asString(obj["fingerprint"]),
				Metadata: map[string]string{
					"document_name": asString(obj["documentName"]),
				},
			}
			if page := asInt(obj["pageNumber"]); page > 0 {
				chunk.PageNumber = &page
			}

			similarity := 0.0
			if additional, ok := obj["_additional"].(map[string]interface{}); ok {
				chunk.ID = asString(additional["id"])
				if distance, ok := additional["distance"].(float64); ok {
					similarity = 1 - distance
				}
			}
			if similarity < minSimilarity {
				continue
			}
			results = append(results, types.RetrievalResult{
				Chunk:        chunk,
				Similarity:   similarity,
				DocumentName: chunk.Metadata["document_name"],
			})
		}
	}

	SortResults(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueText(documentID)

	_, err := s.execute(func() (interface{}, error) {
		return s.client.Batch().ObjectsBatchDeleter().
			WithClassName(CHUNK_CLASS).
			WithWhere(where).
			Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

func (s *WeaviateStore) FindVectorByFingerprint(ctx context.Context, fingerprint string) ([]float32, bool, error) {
	fields := []graphql.Field{
		{Name: "fingerprint"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "vector"}}},
	}
	where := filters.Where().
		WithPath([]string{"fingerprint"}).
		WithOperator(filters.Equal).
		WithValueText(fingerprint)

	raw, err := s.execute(func() (interface{}, error) {
		return s.client.GraphQL().Get().
			WithClassName(CHUNK_CLASS).
			WithFields(fields...).
			WithWhere(where).
			WithLimit(1).
			Do(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	response := raw.(*models.GraphQLResponse)
	if len(response.Errors) > 0 {
		return nil, false, fmt.Errorf("fingerprint lookup failed: %v", response.Errors[0].Message)
	}

	data, ok := response.Data["Get"].(map[string]interface{})[CHUNK_CLASS].([]interface{})
	if !ok || len(data) == 0 {
		return nil, false, nil
	}
	obj, ok := data[0].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	additional, ok := obj["_additional"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	rawVector, ok := additional["vector"].([]interface{})
	if !ok {
		return nil, false, nil
	}
	vector := make([]float32, len(rawVector))
	for i, v := range rawVector {
		f, ok := v.(float64)
		if !ok {
			return nil, false, fmt.Errorf("unexpected vector element type %T", v)
		}
		vector[i] = float32(f)
	}
	return vector, true, nil
}

// Helper functions
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}
