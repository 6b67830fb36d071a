package models

// Page is one extracted unit of a document: a PDF page, or the whole body of a
// DOCX/TXT file.
type Page struct {
	Text     string
	Metadata map[string]interface{}
}

// Chunk is a normalized span of page text ready for embedding.
type Chunk struct {
	Text     string
	ScopeID  string // empty when the index runs unscoped
	Metadata map[string]interface{}
}

// IndexedRecord is the stored form of a chunk inside a vector store.
type IndexedRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]interface{}
}

// SearchResult is a ranked hit from a similarity search. Score is a similarity,
// higher is closer.
type SearchResult struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score"`
}

// Metadata keys written on every chunk.
const (
	MetaScopeID    = "scope_id"
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
	MetaDocumentID = "document_id"
	MetaFileType   = "file_type"
)
