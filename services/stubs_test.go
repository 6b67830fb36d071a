package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github/itish2003/docqa/models"
)

const testDimension = 16

// wordEmbedder maps each word to a bucket, so texts sharing words end up close.
type wordEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool // 1-based EmbedDocuments call numbers that fail
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()
	if e.failOn[call] {
		return nil, errors.New("embedding provider timeout")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = embedWords(text)
	}
	return vectors, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedWords(text), nil
}

func embedWords(text string) []float32 {
	v := make([]float32, testDimension)
	v[0] = 0.01
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!")))
		v[1+h.Sum32()%(testDimension-1)]++
	}
	return v
}

func memoryConnector(store *MemoryStore) StoreConnector {
	return func(context.Context) (VectorStore, error) {
		return store, nil
	}
}

func testChunk(text, scopeID, source string) models.Chunk {
	meta := map[string]interface{}{models.MetaSource: source}
	if scopeID != "" {
		meta[models.MetaScopeID] = scopeID
	}
	return models.Chunk{Text: text, ScopeID: scopeID, Metadata: meta}
}

// stubLLM records prompts and tags answers with the prompt variant used.
type stubLLM struct {
	mu           sync.Mutex
	systems      []string
	failGrounded bool
	failGeneral  bool
}

func (l *stubLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	l.mu.Lock()
	l.systems = append(l.systems, systemPrompt)
	l.mu.Unlock()
	if systemPrompt == GeneralSystemPrompt() {
		if l.failGeneral {
			return "", errors.New("rate limited")
		}
		return "general: " + userPrompt, nil
	}
	if l.failGrounded {
		return "", errors.New("context too long")
	}
	return "grounded: " + userPrompt, nil
}

// stubRetriever is a Retriever with canned answers.
type stubRetriever struct {
	configured bool
	empty      bool
	results    []models.SearchResult
	searchErr  error
	searches   int
}

func (r *stubRetriever) IsConfigured() bool { return r.configured }

func (r *stubRetriever) IsEmpty(context.Context, string) (bool, error) { return r.empty, nil }

func (r *stubRetriever) Search(context.Context, string, string, int) ([]models.SearchResult, error) {
	r.searches++
	return r.results, r.searchErr
}

type stubChecker struct {
	has bool
	err error
}

func (c stubChecker) HasProcessedDocuments(context.Context, string) (bool, error) {
	return c.has, c.err
}
