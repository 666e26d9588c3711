package types

import "time"

// RetrievalResult pairs a chunk with its similarity score for one query.
// Results are ephemeral and ordered by descending similarity.
type RetrievalResult struct {
	Chunk        Chunk   `json:"chunk"`
	Similarity   float64 `json:"similarity"`
	DocumentName string  `json:"document_name"`
}

// Source is a citation attached to a synthesized answer.
type Source struct {
	DocumentName string  `json:"document_name"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Similarity   float64 `json:"similarity"`
}

// Answer is the result of synthesizing retrieved context into a response.
type Answer struct {
	Text           string        `json:"text"`
	Sources        []Source      `json:"sources"`
	Confidence     float64       `json:"confidence"`
	ProcessingTime time.Duration `json:"processing_time"`
}
