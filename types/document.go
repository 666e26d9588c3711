package types

import "time"

// ProcessingStatus tracks a document through the ingestion pipeline.
// Transitions are one-directional: pending -> processing -> completed|failed.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Rank returns the position of the status in the lifecycle. Used to reject
// backward transitions.
func (s ProcessingStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// Terminal reports whether the status is an end state.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Supported upload content types.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// Document represents an uploaded knowledge base document.
type Document struct {
	ID          string            `bson:"_id" json:"id"`
	FileName    string            `bson:"file_name" json:"file_name"`
	ContentType string            `bson:"content_type" json:"content_type"`
	FileSize    int64             `bson:"file_size" json:"file_size"`
	PageCount   *int              `bson:"page_count,omitempty" json:"page_count,omitempty"`
	Status      ProcessingStatus  `bson:"status" json:"status"`
	Fingerprint string            `bson:"fingerprint" json:"fingerprint"`
	Metadata    map[string]string `bson:"metadata" json:"metadata"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at" json:"updated_at"`
}

// PageText is one page (or slide) of extracted document text.
type PageText struct {
	PageNumber int
	Text       string
}

// Chunk is a contiguous span of a document's extracted text. Chunks for one
// document carry contiguous indices starting at 0 and are immutable once
// stored.
type Chunk struct {
	ID          string            `json:"id"`
	DocumentID  string            `json:"document_id"`
	Index       int               `json:"chunk_index"`
	Content     string            `json:"content"`
	PageNumber  *int              `json:"page_number,omitempty"`
	StartChar   int               `json:"start_char"`
	EndChar     int               `json:"end_char"`
	TokenCount  int               `json:"token_count"`
	Fingerprint string            `json:"fingerprint"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Embedding is the vector representation of exactly one chunk. DocumentID is
// denormalized so cascade deletes and filters don't need a join.
type Embedding struct {
	ID         string    `json:"id"`
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"vector"`
	ModelName  string    `json:"model_name"`
}
