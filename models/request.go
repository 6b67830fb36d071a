package models

// IngestRequest describes one document to push through the ingestion pipeline.
type IngestRequest struct {
	FilePath   string
	FileType   string
	ScopeID    string
	Title      string
	DocumentID string
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}
