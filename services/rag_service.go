package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github/itish2003/docqa/models"

	"go.uber.org/zap"
)

const (
	DefaultRetrievalK = 3
	snippetLength     = 200
	noLLMAnswer       = "Error: LLM_API_KEY not configured."
)

// Retriever is the read side of VectorIndex used to answer questions.
type Retriever interface {
	IsConfigured() bool
	IsEmpty(ctx context.Context, scopeID string) (bool, error)
	Search(ctx context.Context, query, scopeID string, k int) ([]models.SearchResult, error)
}

// DocumentChecker knows whether a scope has successfully ingested documents.
type DocumentChecker interface {
	HasProcessedDocuments(ctx context.Context, scopeID string) (bool, error)
}

// RAGService answers questions from scoped document context when it can and
// from general knowledge otherwise.
type RAGService struct {
	index      Retriever
	llm        LanguageModel
	documents  DocumentChecker
	retrievalK int
	logger     *zap.Logger
}

// NewRAGService creates the answer service. llm and documents may be nil: no
// model makes every answer an error message, without a checker only the index
// is asked whether the scope has records.
func NewRAGService(index Retriever, llm LanguageModel, documents DocumentChecker, retrievalK int, logger *zap.Logger) *RAGService {
	if retrievalK <= 0 {
		retrievalK = DefaultRetrievalK
	}
	return &RAGService{
		index:      index,
		llm:        llm,
		documents:  documents,
		retrievalK: retrievalK,
		logger:     logger,
	}
}

// LLMConfigured reports whether answers can be generated at all.
func (r *RAGService) LLMConfigured() bool {
	return r.llm != nil
}

// Answer never fails. Retrieval problems degrade to a general answer and
// generation problems are reported in the answer text.
func (r *RAGService) Answer(ctx context.Context, question, scopeID string) models.AnswerResult {
	log := r.logger.With(zap.String("scope_id", scopeID))

	if r.llm == nil {
		log.Warn("RAG: no language model configured")
		return models.AnswerResult{Answer: noLLMAnswer, Sources: []models.Source{}}
	}

	if r.hasDocuments(ctx, scopeID) {
		results, err := r.index.Search(ctx, question, scopeID, r.retrievalK)
		if err != nil {
			log.Warn("RAG: retrieval failed, using general mode", zap.Error(err))
		} else if len(results) > 0 {
			answer, err := r.llm.Complete(ctx, GroundedSystemPrompt(joinContext(results)), question)
			if err == nil {
				log.Info("RAG: answered from documents", zap.Int("sources", len(results)))
				return models.AnswerResult{Answer: answer, Sources: toSources(results)}
			}
			log.Warn("RAG: grounded generation failed, using general mode", zap.Error(err))
		} else {
			log.Info("RAG: no relevant chunks found, using general mode")
		}
	}

	answer, err := r.llm.Complete(ctx, GeneralSystemPrompt(), question)
	if err != nil {
		log.Error("RAG: general generation failed", zap.Error(err))
		return models.AnswerResult{Answer: fmt.Sprintf("Error: %v", err), Sources: []models.Source{}}
	}
	return models.AnswerResult{Answer: answer, Sources: []models.Source{}}
}

// hasDocuments decides whether retrieval is worth attempting. A scope
// qualifies when the checker knows of a processed document or, failing that,
// when the index holds records for it (files indexed by the inbox watcher have
// no document row). Any failure to decide counts as no.
func (r *RAGService) hasDocuments(ctx context.Context, scopeID string) bool {
	if r.index == nil || !r.index.IsConfigured() {
		return false
	}
	if r.documents != nil {
		ok, err := r.documents.HasProcessedDocuments(ctx, scopeID)
		if err != nil {
			r.logger.Warn("RAG: document check failed", zap.String("scope_id", scopeID), zap.Error(err))
		} else if ok {
			return true
		}
	}
	empty, err := r.index.IsEmpty(ctx, scopeID)
	if err != nil {
		r.logger.Warn("RAG: index check failed", zap.String("scope_id", scopeID), zap.Error(err))
		return false
	}
	return !empty
}

func joinContext(results []models.SearchResult) string {
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return strings.Join(texts, "\n\n")
}

// toSources builds the client-facing citations. The source path is a server
// location, so it is replaced by the document title.
func toSources(results []models.SearchResult) []models.Source {
	sources := make([]models.Source, len(results))
	for i, res := range results {
		meta := make(map[string]interface{}, len(res.Metadata))
		for k, v := range res.Metadata {
			meta[k] = v
		}
		if path, ok := meta[models.MetaSource].(string); ok {
			if _, hasTitle := meta[models.MetaTitle]; !hasTitle {
				meta[models.MetaTitle] = filepath.Base(path)
			}
		}
		delete(meta, models.MetaSource)
		sources[i] = models.Source{
			Content:  snippet(res.Text),
			Metadata: meta,
		}
	}
	return sources
}

// snippet keeps the first snippetLength characters and always appends "...".
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetLength {
		runes = runes[:snippetLength]
	}
	return string(runes) + "..."
}
