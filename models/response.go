package models

// IngestResult is what the pipeline reports back to the caller. Message is safe
// to show to the user in both the success and the failure case.
type IngestResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ChunksAdded    int    `json:"chunks_added"`
	PagesProcessed int    `json:"pages_processed"`
}

// Source is a retrieved passage attributed to an answer.
type Source struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AnswerResult is the outcome of a question. Sources is empty in general mode.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	Version         string `json:"version"`
	IndexConfigured bool   `json:"index_configured"`
	LLMConfigured   bool   `json:"llm_configured"`
}
