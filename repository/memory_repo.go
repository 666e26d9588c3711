package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docuquery/rag-be/types"
)

// MemoryDocumentRepo is an in-process DocumentRepo used by tests and local
// mode. Documents are copied in and out so callers never share memory with
// the store.
type MemoryDocumentRepo struct {
	mu   sync.RWMutex
	docs map[string]types.Document
}

func NewMemoryDocumentRepo() *MemoryDocumentRepo {
	return &MemoryDocumentRepo{
		docs: make(map[string]types.Document),
	}
}

func (r *MemoryDocumentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

func (r *MemoryDocumentRepo) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, types.ErrDocumentNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (r *MemoryDocumentRepo) UpdateDocument(ctx context.Context, doc *types.Document) error {
	doc.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return types.ErrDocumentNotFound
	}
	r.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

func (r *MemoryDocumentRepo) FindByFingerprint(ctx context.Context, fingerprint string) ([]types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []types.Document
	for _, doc := range r.docs {
		if doc.Fingerprint == fingerprint {
			docs = append(docs, cloneDocument(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func (r *MemoryDocumentRepo) ListDocuments(ctx context.Context, limit int) ([]types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []types.Document
	for _, doc := range r.docs {
		docs = append(docs, cloneDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r *MemoryDocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return types.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func cloneDocument(doc types.Document) types.Document {
	if doc.Metadata != nil {
		metadata := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		doc.Metadata = metadata
	}
	if doc.PageCount != nil {
		pageCount := *doc.PageCount
		doc.PageCount = &pageCount
	}
	return doc
}
