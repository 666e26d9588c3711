package types

// QueryRequest is the payload for /query.
type QueryRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// UploadRequest carries optional metadata submitted with a document upload.
type UploadRequest struct {
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}
