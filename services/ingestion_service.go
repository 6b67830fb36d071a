package services

import (
	"context"
	"fmt"

	"github/itish2003/docqa/models"

	"go.uber.org/zap"
)

const emptyContentMessage = "No valid text content found: document may be empty or contains only non-text content"

// Indexer is the part of VectorIndex the ingestion pipeline writes through.
type Indexer interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (int, error)
}

// IngestionService turns a document on disk into indexed chunks.
type IngestionService struct {
	chunker *Chunker
	index   Indexer
	logger  *zap.Logger
	extract func(path, fileType string) ([]models.Page, error)
}

func NewIngestionService(chunker *Chunker, index Indexer, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		chunker: chunker,
		index:   index,
		logger:  logger,
		extract: ExtractPages,
	}
}

// Ingest runs extraction, normalization, chunking and indexing for one file.
// Each stage must produce something for the next to run. On failure the
// result carries a user-facing message and the typed error is returned too.
func (s *IngestionService) Ingest(ctx context.Context, req models.IngestRequest) (models.IngestResult, error) {
	log := s.logger.With(
		zap.String("file", req.FilePath),
		zap.String("file_type", req.FileType),
		zap.String("scope_id", req.ScopeID),
	)

	if !IsSupportedFileType(req.FileType) {
		err := NewPipelineError(ErrorTypeUnsupportedType, fmt.Sprintf("Unsupported file type: %s", req.FileType), nil)
		log.Warn("INGEST: rejected file", zap.Error(err))
		return failure(err), err
	}

	log.Info("INGEST: extracting text")
	pages, err := s.extract(req.FilePath, req.FileType)
	if err != nil {
		log.Error("INGEST: extraction failed", zap.Error(err))
		return failure(err), err
	}
	log.Info("INGEST: extracted pages", zap.Int("pages", len(pages)))

	validPages := make([]models.Page, 0, len(pages))
	for _, page := range pages {
		cleaned, ok := CleanText(page.Text)
		if !ok {
			continue
		}
		meta := make(map[string]interface{}, len(page.Metadata)+2)
		for k, v := range page.Metadata {
			meta[k] = v
		}
		if req.Title != "" {
			meta[models.MetaTitle] = req.Title
		}
		if req.DocumentID != "" {
			meta[models.MetaDocumentID] = req.DocumentID
		}
		meta[models.MetaFileType] = NormalizeFileType(req.FileType)
		validPages = append(validPages, models.Page{Text: cleaned, Metadata: meta})
	}
	if len(validPages) == 0 {
		err := NewPipelineError(ErrorTypeEmptyContent, emptyContentMessage, nil)
		log.Warn("INGEST: no valid pages", zap.Int("pages", len(pages)))
		return failure(err), err
	}

	chunks, err := s.chunker.Split(validPages, req.ScopeID)
	if err != nil {
		err = NewPipelineError(ErrorTypeExtraction, "Could not split document into chunks", err)
		log.Error("INGEST: chunking failed", zap.Error(err))
		return failure(err), err
	}
	if len(chunks) == 0 {
		err := NewPipelineError(ErrorTypeEmptyContent, "No text chunks created from document", nil)
		log.Warn("INGEST: no chunks created")
		return failure(err), err
	}

	validChunks := CleanChunks(chunks)
	if len(validChunks) == 0 {
		err := NewPipelineError(ErrorTypeEmptyContent, "No valid chunks after cleaning", nil)
		log.Warn("INGEST: every chunk was dropped by the normalizer", zap.Int("chunks", len(chunks)))
		return failure(err), err
	}
	log.Info("INGEST: chunks ready", zap.Int("chunks", len(validChunks)), zap.Int("dropped", len(chunks)-len(validChunks)))

	added, err := s.index.Upsert(ctx, validChunks)
	if err != nil {
		log.Error("INGEST: indexing failed", zap.Error(err))
		return failure(err), err
	}
	if added == 0 {
		err := NewPipelineError(ErrorTypeIndexWrite, "Failed to add any chunks to the vector index", nil)
		return failure(err), err
	}

	msg := fmt.Sprintf("Successfully processed %d chunks from %d pages", added, len(validPages))
	log.Info("INGEST: "+msg, zap.Int("chunks_added", added))
	return models.IngestResult{
		Success:        true,
		Message:        msg,
		ChunksAdded:    added,
		PagesProcessed: len(validPages),
	}, nil
}

func failure(err error) models.IngestResult {
	return models.IngestResult{Success: false, Message: UserMessage(err)}
}
