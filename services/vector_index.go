package services

import (
	"context"
	"fmt"
	"sync"

	"github/itish2003/docqa/models"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
)

const DefaultIngestBatchSize = 50

// StoreConnector opens the backend of a VectorIndex. It is called at most once.
type StoreConnector func(ctx context.Context) (VectorStore, error)

// VectorIndex embeds chunks and stores them, tagged by scope, in a VectorStore.
type VectorIndex struct {
	embedder  embeddings.Embedder
	connect   StoreConnector
	batchSize int
	logger    *zap.Logger

	once    sync.Once
	store   VectorStore
	initErr error
}

// NewVectorIndex creates an index. A nil connect leaves the index permanently
// unconfigured, which is how a missing credential is expressed.
func NewVectorIndex(embedder embeddings.Embedder, connect StoreConnector, batchSize int, logger *zap.Logger) *VectorIndex {
	if batchSize <= 0 {
		batchSize = DefaultIngestBatchSize
	}
	return &VectorIndex{
		embedder:  embedder,
		connect:   connect,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Init connects the backend. Only the first call does any work; its outcome,
// failure included, is kept for the life of the index.
func (v *VectorIndex) Init(ctx context.Context) error {
	v.once.Do(func() {
		if v.connect == nil || v.embedder == nil {
			v.initErr = ErrIndexNotConfigured
			v.logger.Warn("INDEX: vector index not configured, documents cannot be indexed")
			return
		}
		store, err := v.connect(ctx)
		if err != nil {
			v.initErr = NewPipelineError(ErrorTypeProviderUnavailable, "vector index unavailable", err)
			v.logger.Error("INDEX: failed to initialize vector index", zap.Error(err))
			return
		}
		v.store = store
		v.logger.Info("INDEX: vector index initialized")
	})
	return v.initErr
}

// IsConfigured reports whether the index initialized successfully.
func (v *VectorIndex) IsConfigured() bool {
	return v.Init(context.Background()) == nil
}

func (v *VectorIndex) ready(ctx context.Context) (VectorStore, error) {
	if err := v.Init(ctx); err != nil {
		return nil, err
	}
	return v.store, nil
}

// Upsert writes chunks in sequential batches and returns how many were stored.
// A failing batch is logged and skipped; only when every batch fails does
// Upsert return an index write error.
func (v *VectorIndex) Upsert(ctx context.Context, chunks []models.Chunk) (int, error) {
	store, err := v.ready(ctx)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	var (
		added   int
		lastErr error
	)
	for start := 0; start < len(chunks); start += v.batchSize {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		end := min(start+v.batchSize, len(chunks))
		batch := chunks[start:end]
		if err := v.writeBatch(ctx, store, batch); err != nil {
			lastErr = err
			v.logger.Error("INDEX: batch failed, skipping",
				zap.Int("batch", start/v.batchSize+1),
				zap.Int("size", len(batch)),
				zap.Error(err))
			continue
		}
		added += len(batch)
		v.logger.Debug("INDEX: batch stored",
			zap.Int("batch", start/v.batchSize+1),
			zap.Int("size", len(batch)))
	}

	if added == 0 {
		return 0, NewPipelineError(ErrorTypeIndexWrite, "Failed to add any chunks to the vector index", lastErr)
	}
	return added, nil
}

func (v *VectorIndex) writeBatch(ctx context.Context, store VectorStore, batch []models.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}
	vectors, err := v.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("could not embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}

	records := make([]models.IndexedRecord, len(batch))
	for i, chunk := range batch {
		meta := make(map[string]interface{}, len(chunk.Metadata)+1)
		for k, val := range chunk.Metadata {
			meta[k] = val
		}
		if chunk.ScopeID != "" {
			meta[models.MetaScopeID] = chunk.ScopeID
		}
		records[i] = models.IndexedRecord{
			ID:       uuid.New().String(),
			Vector:   vectors[i],
			Text:     chunk.Text,
			Metadata: meta,
		}
	}
	return store.Add(ctx, records)
}

// Search returns the k chunks most similar to query within scopeID. An empty
// scopeID searches the whole index.
func (v *VectorIndex) Search(ctx context.Context, query, scopeID string, k int) ([]models.SearchResult, error) {
	store, err := v.ready(ctx)
	if err != nil {
		return nil, err
	}
	vector, err := v.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}
	results, err := store.Query(ctx, vector, scopeID, k)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("INDEX: search finished", zap.String("scope_id", scopeID), zap.Int("results", len(results)))
	return results, nil
}

// Clear deletes every record of scopeID, or the whole index when scopeID is
// empty. Clearing an unconfigured index does nothing.
func (v *VectorIndex) Clear(ctx context.Context, scopeID string) error {
	store, err := v.ready(ctx)
	if err != nil {
		v.logger.Warn("INDEX: clear skipped, index not configured", zap.String("scope_id", scopeID))
		return nil
	}
	if scopeID == "" {
		err = store.DeleteAll(ctx)
	} else {
		err = store.DeleteWhere(ctx, models.MetaScopeID, scopeID)
	}
	if err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	v.logger.Info("INDEX: cleared", zap.String("scope_id", scopeID))
	return nil
}

// DeleteSource removes every record extracted from the file at source.
func (v *VectorIndex) DeleteSource(ctx context.Context, source string) error {
	store, err := v.ready(ctx)
	if err != nil {
		return err
	}
	if err := store.DeleteWhere(ctx, models.MetaSource, source); err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", source, err)
	}
	return nil
}

// IsEmpty reports whether scopeID has no records. An unconfigured index is
// empty and also returns ErrIndexNotConfigured.
func (v *VectorIndex) IsEmpty(ctx context.Context, scopeID string) (bool, error) {
	store, err := v.ready(ctx)
	if err != nil {
		return true, err
	}
	exists, err := store.Exists(ctx, scopeID)
	if err != nil {
		return true, err
	}
	return !exists, nil
}
