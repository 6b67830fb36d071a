package models

// OllamaEmbedRequest is the body of a POST /api/embed call. Input carries one
// or more texts so a whole ingest batch goes out in a single request.
type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OllamaEmbedResponse holds one vector per input, in input order.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}
