package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuquery/rag-be/database"
	"github.com/docuquery/rag-be/repository"
	services "github.com/docuquery/rag-be/service"
	"github.com/docuquery/rag-be/types"
)

type stubExtractor struct{}

func (s *stubExtractor) Extract(raw []byte, contentType string) ([]types.PageText, error) {
	return []types.PageText{{PageNumber: 1, Text: "Alberta reduced taxes by 10%."}}, nil
}

type stubEmbedder struct{}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type stubProvider struct{}

func (s *stubProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "Alberta reduced taxes by 10 percent.", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *repository.MemoryDocumentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryDocumentRepo()
	store := database.NewMemoryVectorStore(3)
	ingestService := services.NewIngestService(
		repo, store, &stubExtractor{},
		services.NewChunkerService(1000, 200),
		services.NewDedupService(repo),
		&stubEmbedder{},
		1<<20, false,
	)
	retrieval := services.NewRetrievalService(&stubEmbedder{}, store, 5, 0.7)
	answer := services.NewAnswerService(&stubProvider{}, nil, 8000, 3)
	queryService := services.NewQueryService(retrieval, answer, 30*time.Second)

	documentHandler := NewDocumentHandler(ingestService, "")
	queryHandler := NewQueryHandler(queryService)
	healthHandler := NewHealthHandler()

	router := gin.New()
	router.GET("/health", healthHandler.HealthHandler)
	router.POST("/api/v1/documents/upload", documentHandler.UploadDocumentHandler)
	router.GET("/api/v1/documents", documentHandler.ListDocumentsHandler)
	router.GET("/api/v1/documents/:id/status", documentHandler.GetStatusHandler)
	router.DELETE("/api/v1/documents/:id", documentHandler.DeleteDocumentHandler)
	router.POST("/api/v1/query", queryHandler.QueryHandler)
	return router, repo
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadAndPollStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("pdf bytes")))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp types.DataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var upload types.UploadResponse
	require.NoError(t, json.Unmarshal(data, &upload))
	require.NotEmpty(t, upload.DocumentID)

	// Ingestion runs in the background; poll until it completes.
	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+upload.DocumentID+"/status", nil))
		if w.Code != http.StatusOK {
			return false
		}
		var resp types.DataResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		data, _ := json.Marshal(resp.Data)
		var status types.StatusResponse
		if err := json.Unmarshal(data, &status); err != nil {
			return false
		}
		return status.Status == types.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "notes.txt", []byte("plain text")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusUnknownDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryEmptyBodyRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewBufferString(`{"query":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryAgainstIngestedDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "report.pdf", []byte("pdf bytes")))
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		body := bytes.NewBufferString(`{"query":"What did Alberta do about taxes?","top_k":1,"min_similarity":0.5}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			return false
		}
		var resp types.DataResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		data, _ := json.Marshal(resp.Data)
		var queryResp types.QueryResponse
		if err := json.Unmarshal(data, &queryResp); err != nil {
			return false
		}
		return len(queryResp.Sources) == 1 && queryResp.Answer != ""
	}, 5*time.Second, 10*time.Millisecond)
}
