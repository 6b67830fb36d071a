package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github/itish2003/docqa/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"
)

// Every record written by ChromaStore carries metaRecordKind so that the whole
// collection can be cleared with a single where-filtered delete.
const (
	metaRecordKind  = "record_kind"
	recordKindChunk = "chunk"
)

// ChromaStore is a VectorStore backed by a Chroma collection in cosine space.
type ChromaStore struct {
	collection chromago.Collection
	logger     *zap.Logger
}

func NewChromaStore(collection chromago.Collection, logger *zap.Logger) *ChromaStore {
	return &ChromaStore{collection: collection, logger: logger}
}

// ConnectChroma opens a Chroma client and gets or creates the named collection.
// The caller owns the returned client and must Close it.
func ConnectChroma(ctx context.Context, baseURL, apiKey, collectionName string) (chromago.Client, chromago.Collection, error) {
	opts := []chromago.ClientOption{chromago.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, chromago.WithAuth(
			chromago.NewTokenAuthCredentialsProvider(apiKey, chromago.XChromaTokenHeader),
		))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "docqa"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to get or create collection %q: %w", collectionName, err)
	}
	return client, collection, nil
}

func (s *ChromaStore) Add(ctx context.Context, records []models.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]chromago.DocumentID, 0, len(records))
	texts := make([]string, 0, len(records))
	vectors := make([]embeddings.Embedding, 0, len(records))
	metadatas := make([]chromago.DocumentMetadata, 0, len(records))
	for _, r := range records {
		ids = append(ids, chromago.DocumentID(r.ID))
		texts = append(texts, r.Text)
		vectors = append(vectors, embeddings.NewEmbeddingFromFloat32(r.Vector))
		metadatas = append(metadatas, toChromaMetadata(r.Metadata))
	}

	err := s.collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(metadatas...),
	)
	if err != nil {
		return fmt.Errorf("failed to add %d records to chromadb: %w", len(records), err)
	}
	return nil
}

func (s *ChromaStore) Query(ctx context.Context, vector []float32, scopeID string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
	}
	if scopeID != "" {
		opts = append(opts, chromago.WithWhereQuery(chromago.EqString(models.MetaScopeID, scopeID)))
	}

	results, err := s.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	out := make([]models.SearchResult, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		text := doc.ContentString()
		if text == "" {
			continue
		}
		result := models.SearchResult{Text: text, Metadata: map[string]interface{}{}}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			result.Metadata = s.fromChromaMetadata(metadataGroups[0][i])
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Cosine distance; 1 - d gives the similarity.
			result.Score = 1 - float64(distanceGroups[0][i])
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *ChromaStore) Exists(ctx context.Context, scopeID string) (bool, error) {
	if scopeID == "" {
		count, err := s.collection.Count(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to count items in collection: %w", err)
		}
		return count > 0, nil
	}
	results, err := s.collection.Get(ctx,
		chromago.WithWhereGet(chromago.EqString(models.MetaScopeID, scopeID)),
		chromago.WithLimitGet(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to look up scope %s: %w", scopeID, err)
	}
	return len(results.GetIDs()) > 0, nil
}

func (s *ChromaStore) DeleteWhere(ctx context.Context, key, value string) error {
	return s.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(key, value)))
}

func (s *ChromaStore) DeleteAll(ctx context.Context) error {
	return s.DeleteWhere(ctx, metaRecordKind, recordKindChunk)
}

func toChromaMetadata(meta map[string]interface{}) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(meta)+1)
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(k, val))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(val)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, val))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(k, fmt.Sprint(val)))
		}
	}
	attrs = append(attrs, chromago.NewStringAttribute(metaRecordKind, recordKindChunk))
	return chromago.NewDocumentMetadata(attrs...)
}

// fromChromaMetadata converts DocumentMetadata into a plain map. The type has
// no exported accessor for all values, so it goes through JSON.
func (s *ChromaStore) fromChromaMetadata(meta chromago.DocumentMetadata) map[string]interface{} {
	metadataMap := make(map[string]interface{})
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		s.logger.Warn("INDEX: could not marshal metadata", zap.Error(err))
		return metadataMap
	}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		s.logger.Warn("INDEX: could not unmarshal metadata", zap.Error(err))
		return map[string]interface{}{}
	}
	delete(metadataMap, metaRecordKind)
	// JSON numbers decode as float64; page and chunk_index are integers.
	for _, key := range []string{models.MetaPage, models.MetaChunkIndex} {
		if f, ok := metadataMap[key].(float64); ok {
			metadataMap[key] = int(f)
		}
	}
	return metadataMap
}
