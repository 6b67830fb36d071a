package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github/itish2003/docqa/models"
)

func TestIngestionService_Ingest(t *testing.T) {
	ctx := context.Background()
	embedder := &wordEmbedder{}
	index, store := newTestIndex(embedder, 50)
	svc := NewIngestionService(NewChunker(DefaultChunkSize, DefaultChunkOverlap), index, zaptest.NewLogger(t))

	path := writeFile(t, "report.txt", []byte(strings.Repeat("abcdefghi ", 150)))
	result, err := svc.Ingest(ctx, models.IngestRequest{
		FilePath:   path,
		FileType:   "txt",
		ScopeID:    "thread-42",
		Title:      "report.txt",
		DocumentID: "doc-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Successfully processed 2 chunks from 1 pages", result.Message)
	assert.Equal(t, 2, result.ChunksAdded)
	assert.Equal(t, 1, result.PagesProcessed)
	assert.Equal(t, 2, store.Len())

	results, err := index.Search(ctx, "abcdefghi", "thread-42", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "thread-42", r.Metadata[models.MetaScopeID])
		assert.Equal(t, "report.txt", r.Metadata[models.MetaTitle])
		assert.Equal(t, "doc-1", r.Metadata[models.MetaDocumentID])
		assert.Equal(t, "txt", r.Metadata[models.MetaFileType])
		assert.Equal(t, path, r.Metadata[models.MetaSource])
		assert.Equal(t, 1, r.Metadata[models.MetaPage])
		assert.Contains(t, []interface{}{0, 1}, r.Metadata[models.MetaChunkIndex])
	}
}

func TestIngestionService_UnsupportedType(t *testing.T) {
	embedder := &wordEmbedder{}
	index, store := newTestIndex(embedder, 50)
	svc := NewIngestionService(NewChunker(DefaultChunkSize, DefaultChunkOverlap), index, zap.NewNop())

	result, err := svc.Ingest(context.Background(), models.IngestRequest{
		FilePath: "/nonexistent/data.csv",
		FileType: "csv",
		ScopeID:  "s",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Unsupported file type")
	assert.Zero(t, result.ChunksAdded)
	assert.Zero(t, store.Len())
	assert.Zero(t, embedder.calls)
}

func TestIngestionService_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		chunker  *Chunker
		connect  func(*MemoryStore) StoreConnector
		embedder *wordEmbedder
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "only whitespace and control characters",
			content:  "  \n\t\x00\x01  \r\n ",
			chunker:  NewChunker(DefaultChunkSize, DefaultChunkOverlap),
			connect:  memoryConnector,
			embedder: &wordEmbedder{},
			wantErr:  ErrEmptyContent,
			wantMsg:  "No valid text content found: document may be empty or contains only non-text content",
		},
		{
			name:     "every chunk too short",
			content:  "abcd efgh ijkl",
			chunker:  NewChunker(5, 0),
			connect:  memoryConnector,
			embedder: &wordEmbedder{},
			wantErr:  ErrEmptyContent,
			wantMsg:  "No valid chunks after cleaning",
		},
		{
			name:     "index not configured",
			content:  "a perfectly good document body",
			chunker:  NewChunker(DefaultChunkSize, DefaultChunkOverlap),
			connect:  func(*MemoryStore) StoreConnector { return nil },
			embedder: &wordEmbedder{},
			wantErr:  ErrProviderUnavailable,
			wantMsg:  "vector index not configured",
		},
		{
			name:     "embedding provider down",
			content:  "a perfectly good document body",
			chunker:  NewChunker(DefaultChunkSize, DefaultChunkOverlap),
			connect:  memoryConnector,
			embedder: &wordEmbedder{failOn: map[int]bool{1: true}},
			wantErr:  ErrIndexWrite,
			wantMsg:  "Failed to add any chunks to the vector index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(testDimension)
			index := NewVectorIndex(tt.embedder, tt.connect(store), 50, zap.NewNop())
			svc := NewIngestionService(tt.chunker, index, zap.NewNop())

			path := writeFile(t, "doc.txt", []byte(tt.content))
			result, err := svc.Ingest(context.Background(), models.IngestRequest{FilePath: path, FileType: "txt", ScopeID: "s"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMsg, result.Message)
			assert.Zero(t, store.Len())
		})
	}
}
