package services

import (
	"fmt"

	"github/itish2003/docqa/models"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// chunkSeparators are tried in order: paragraph, line, sentence, word, then a
// hard cut between characters. Separators are kept, attached to the start of
// the following piece, so no text is lost at a chunk boundary.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits page text into overlapping passages.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker builds a chunker. Sizes are counted in characters and are soft
// targets: the splitter prefers a separator boundary over an exact size.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(chunkSeparators),
			textsplitter.WithKeepSeparator(true),
		),
	}
}

// Split chunks every page and tags each chunk with a copy of the page
// metadata plus scopeID. Chunk text is returned as produced by the splitter;
// CleanChunks applies the normalizer.
func (c *Chunker) Split(pages []models.Page, scopeID string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for i, page := range pages {
		texts, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("could not split page %d: %w", i+1, err)
		}
		for _, text := range texts {
			meta := make(map[string]interface{}, len(page.Metadata)+2)
			for k, v := range page.Metadata {
				meta[k] = v
			}
			if scopeID != "" {
				meta[models.MetaScopeID] = scopeID
			}
			chunks = append(chunks, models.Chunk{
				Text:     text,
				ScopeID:  scopeID,
				Metadata: meta,
			})
		}
	}
	return chunks, nil
}

// CleanChunks re-normalizes chunk text and silently drops chunks that fail.
// chunk_index numbers the survivors in document order.
func CleanChunks(chunks []models.Chunk) []models.Chunk {
	valid := make([]models.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		cleaned, ok := CleanText(chunk.Text)
		if !ok {
			continue
		}
		meta := make(map[string]interface{}, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			meta[k] = v
		}
		meta[models.MetaChunkIndex] = len(valid)
		valid = append(valid, models.Chunk{Text: cleaned, ScopeID: chunk.ScopeID, Metadata: meta})
	}
	return valid
}
