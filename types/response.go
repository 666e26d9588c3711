package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type UploadResponse struct {
	DocumentID string           `json:"document_id"`
	FileName   string           `json:"file_name"`
	Status     ProcessingStatus `json:"status"`
}

type StatusResponse struct {
	DocumentID string           `json:"document_id"`
	Status     ProcessingStatus `json:"status"`
	Message    string           `json:"message,omitempty"`
}

type QueryResponse struct {
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Confidence     float64  `json:"confidence_score"`
	ProcessingTime float64  `json:"processing_time"`
}
