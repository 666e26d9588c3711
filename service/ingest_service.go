package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuquery/rag-be/database"
	"github.com/docuquery/rag-be/repository"
	"github.com/docuquery/rag-be/types"
)

// IngestTask is the handle returned by an ingestion request. Poll is
// non-blocking; Wait blocks until the background pipeline reaches a terminal
// status or the timeout elapses.
type IngestTask struct {
	DocumentID string

	done   chan struct{}
	mu     sync.Mutex
	status types.ProcessingStatus
	err    error
}

func newIngestTask(documentID string) *IngestTask {
	return &IngestTask{
		DocumentID: documentID,
		done:       make(chan struct{}),
		status:     types.StatusPending,
	}
}

// Poll returns the last status the pipeline reported, plus the terminal
// error if the document failed.
func (t *IngestTask) Poll() (types.ProcessingStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.err
}

// Wait blocks until the pipeline finishes. On timeout it returns the current
// status with types.ErrTimeout.
func (t *IngestTask) Wait(timeout time.Duration) (types.ProcessingStatus, error) {
	select {
	case <-t.done:
		return t.Poll()
	case <-time.After(timeout):
		status, _ := t.Poll()
		return status, fmt.Errorf("%w: ingestion still %s after %s", types.ErrTimeout, status, timeout)
	}
}

func (t *IngestTask) setStatus(status types.ProcessingStatus) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

func (t *IngestTask) finish(status types.ProcessingStatus, err error) {
	t.mu.Lock()
	t.status = status
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// IngestService drives a document through extraction, deduplication,
// chunking, embedding and storage, tracking the processing-status state
// machine on the document row. It is the only mutator of document status.
type IngestService struct {
	repo      repository.DocumentRepo
	store     database.VectorStore
	extractor Extractor
	chunker   *ChunkerService
	dedup     *DedupService
	embedder  Embedder

	maxFileSize int64
	chunkDedup  bool
}

func NewIngestService(
	repo repository.DocumentRepo,
	store database.VectorStore,
	extractor Extractor,
	chunker *ChunkerService,
	dedup *DedupService,
	embedder Embedder,
	maxFileSize int64,
	chunkDedup bool,
) *IngestService {
	if maxFileSize <= 0 {
		maxFileSize = 50 << 20
	}
	return &IngestService{
		repo:        repo,
		store:       store,
		extractor:   extractor,
		chunker:     chunker,
		dedup:       dedup,
		embedder:    embedder,
		maxFileSize: maxFileSize,
		chunkDedup:  chunkDedup,
	}
}

// Ingest validates the upload, persists a pending document row and kicks off
// the background pipeline. It returns immediately with the task handle; the
// caller polls GetStatus or waits on the task.
func (s *IngestService) Ingest(ctx context.Context, raw []byte, fileName, contentType string) (*IngestTask, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty file", types.ErrValidation)
	}
	if int64(len(raw)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file size %d exceeds maximum %d", types.ErrValidation, len(raw), s.maxFileSize)
	}
	if contentType != types.ContentTypePDF && contentType != types.ContentTypePPTX {
		return nil, fmt.Errorf("%w: unsupported content type %q", types.ErrValidation, contentType)
	}

	doc := &types.Document{
		ID:          uuid.NewString(),
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    int64(len(raw)),
		Status:      types.StatusPending,
		Fingerprint: s.dedup.Fingerprint(raw),
		Metadata:    map[string]string{},
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	task := newIngestTask(doc.ID)
	go s.process(doc, raw, task)
	return task, nil
}

// process runs the pipeline for one document. It owns its own context: the
// upload request returning must not cancel ingestion.
func (s *IngestService) process(doc *types.Document, raw []byte, task *IngestTask) {
	ctx := context.Background()

	if err := s.transition(ctx, doc, types.StatusProcessing); err != nil {
		s.fail(ctx, doc, task, err, false)
		return
	}
	task.setStatus(types.StatusProcessing)

	pages, err := s.extractor.Extract(raw, doc.ContentType)
	if err != nil {
		s.fail(ctx, doc, task, err, false)
		return
	}
	if len(pages) == 0 {
		s.fail(ctx, doc, task, types.ErrEmptyDocument, false)
		return
	}
	pageCount := len(pages)
	doc.PageCount = &pageCount

	// Duplicate of an already completed document: reference it and stop
	// before any chunking or embedding work.
	duplicateOf, found, err := s.dedup.IsDuplicate(ctx, doc.Fingerprint, doc.ID)
	if err != nil {
		s.fail(ctx, doc, task, err, false)
		return
	}
	if found {
		doc.Metadata["duplicate_of"] = duplicateOf
		if err := s.transition(ctx, doc, types.StatusCompleted); err != nil {
			s.fail(ctx, doc, task, err, false)
			return
		}
		log.Printf("document %s is a duplicate of %s, skipped embedding", doc.ID, duplicateOf)
		task.finish(types.StatusCompleted, nil)
		return
	}

	chunks, err := s.chunker.ChunkText(pages, doc.ID)
	if err != nil {
		s.fail(ctx, doc, task, err, false)
		return
	}
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].Fingerprint = FingerprintText(chunks[i].Content)
		chunks[i].Metadata = map[string]string{"document_name": doc.FileName}
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.fail(ctx, doc, task, err, false)
		return
	}

	if err := s.store.UpsertChunks(ctx, chunks, vectors); err != nil {
		s.fail(ctx, doc, task, err, true)
		return
	}

	// The document may have been deleted while the pipeline ran. Abandon and
	// clean up rather than completing a row that no longer exists.
	if _, err := s.repo.GetDocument(ctx, doc.ID); err != nil {
		if errors.Is(err, types.ErrDocumentNotFound) {
			log.Printf("document %s deleted mid-ingestion, abandoning", doc.ID)
			s.cleanupChunks(ctx, doc.ID)
			task.finish(types.StatusFailed, err)
			return
		}
		s.fail(ctx, doc, task, err, true)
		return
	}

	doc.Metadata["chunk_count"] = strconv.Itoa(len(chunks))
	if err := s.transition(ctx, doc, types.StatusCompleted); err != nil {
		s.fail(ctx, doc, task, err, true)
		return
	}
	log.Printf("document %s ingested: %d pages, %d chunks", doc.ID, pageCount, len(chunks))
	task.finish(types.StatusCompleted, nil)
}

// embedChunks produces one vector per chunk in one batched gateway call.
// With chunk-level dedup enabled, chunks whose fingerprint already has a
// stored vector reuse it instead of re-embedding.
func (s *IngestService) embedChunks(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var pendingTexts []string
	var pendingIdx []int
	for i, chunk := range chunks {
		if s.chunkDedup {
			vector, ok, err := s.store.FindVectorByFingerprint(ctx, chunk.Fingerprint)
			if err != nil {
				return nil, err
			}
			if ok {
				vectors[i] = vector
				continue
			}
		}
		pendingTexts = append(pendingTexts, chunk.Content)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pendingTexts) > 0 {
		embedded, err := s.embedder.EmbedTexts(ctx, pendingTexts)
		if err != nil {
			return nil, err
		}
		for j, i := range pendingIdx {
			vectors[i] = embedded[j]
		}
	}
	return vectors, nil
}

// transition advances the document status. Backward transitions are a
// programming error and are rejected.
func (s *IngestService) transition(ctx context.Context, doc *types.Document, next types.ProcessingStatus) error {
	if next.Rank() < doc.Status.Rank() {
		return fmt.Errorf("illegal status transition %s -> %s for document %s", doc.Status, next, doc.ID)
	}
	doc.Status = next
	return s.repo.UpdateDocument(ctx, doc)
}

// fail marks the document failed with the error recorded in metadata and,
// when chunk data may have been written, cascades its removal so no orphaned
// chunks survive a failed ingestion.
func (s *IngestService) fail(ctx context.Context, doc *types.Document, task *IngestTask, cause error, wroteChunks bool) {
	log.Printf("ingestion of document %s failed: %v", doc.ID, cause)
	if wroteChunks {
		s.cleanupChunks(ctx, doc.ID)
	}

	doc.Metadata["error"] = cause.Error()
	doc.Status = types.StatusFailed
	if err := s.repo.UpdateDocument(ctx, doc); err != nil && !errors.Is(err, types.ErrDocumentNotFound) {
		log.Printf("failed to record failure for document %s: %v", doc.ID, err)
	}
	task.finish(types.StatusFailed, cause)
}

func (s *IngestService) cleanupChunks(ctx context.Context, documentID string) {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		log.Printf("failed to clean up chunks for document %s: %v", documentID, err)
	}
}

// GetStatus returns the document row backing a status poll.
func (s *IngestService) GetStatus(ctx context.Context, documentID string) (*types.Document, error) {
	return s.repo.GetDocument(ctx, documentID)
}

// ListDocuments returns the most recently uploaded documents.
func (s *IngestService) ListDocuments(ctx context.Context, limit int) ([]types.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListDocuments(ctx, limit)
}

// DeleteDocument removes the document row and cascades removal of its chunks
// and vectors.
func (s *IngestService) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.repo.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, documentID)
}
