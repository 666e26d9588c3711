package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/docuquery/rag-be/types"
)

// DocumentRepo stores document metadata rows, including the processing status
// state machine driven by the ingestion orchestrator.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	UpdateDocument(ctx context.Context, doc *types.Document) error
	FindByFingerprint(ctx context.Context, fingerprint string) ([]types.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type documentRepo struct {
	collection *mongo.Collection
}

func NewDocumentRepo(collection *mongo.Collection) DocumentRepo {
	return &documentRepo{
		collection: collection,
	}
}

func (r *documentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *documentRepo) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	err := r.collection.FindOne(ctx, map[string]string{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) UpdateDocument(ctx context.Context, doc *types.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, map[string]string{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return types.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) FindByFingerprint(ctx context.Context, fingerprint string) ([]types.Document, error) {
	cursor, err := r.collection.Find(ctx, map[string]string{"fingerprint": fingerprint})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func (r *documentRepo) ListDocuments(ctx context.Context, limit int) ([]types.Document, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSort(map[string]int{"created_at": -1})
	cursor, err := r.collection.Find(ctx, map[string]string{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func (r *documentRepo) DeleteDocument(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, map[string]string{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return types.ErrDocumentNotFound
	}
	return nil
}
