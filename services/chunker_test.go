package services

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docqa/models"
)

func TestChunker_Split_DefaultSizes(t *testing.T) {
	// 150 nine-letter words: one page of roughly 1500 characters.
	text, ok := CleanText(strings.Repeat("abcdefghi ", 150))
	require.True(t, ok)

	chunker := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	chunks, err := chunker.Split([]models.Page{newPage(text, 1)}, "thread-1")
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), DefaultChunkSize)
		assert.Equal(t, "thread-1", chunk.ScopeID)
		assert.Equal(t, "thread-1", chunk.Metadata[models.MetaScopeID])
		assert.Equal(t, 1, chunk.Metadata[models.MetaPage])
	}

	// The chunks overlap and together cover the page.
	assert.True(t, strings.HasPrefix(text, chunks[0].Text))
	assert.True(t, strings.HasSuffix(text, chunks[1].Text))
	assert.Greater(t, len(chunks[0].Text)+len(chunks[1].Text), len(text))
}

func TestChunker_Split_Coverage(t *testing.T) {
	// Sentences longer than the overlap, so consecutive chunks meet exactly at
	// a sentence boundary. Newlines never reach the splitter, so ". " is the
	// separator in use.
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, "Sentence number %d opens here.", i)
		sb.WriteString(strings.Repeat(" lorem ipsum dolor", 13))
		sb.WriteString(" end.\n\n")
	}
	text, ok := CleanText(sb.String())
	require.True(t, ok)
	require.NotContains(t, text, "\n")

	chunks, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap).Split([]models.Page{newPage(text, 3)}, "")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	covered := make([]bool, len(text))
	from := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), DefaultChunkSize)
		assert.NotContains(t, chunk.Metadata, models.MetaScopeID)

		idx := strings.Index(text[from:], chunk.Text)
		require.GreaterOrEqual(t, idx, 0, "chunk is not an in-order substring of the page: %q", chunk.Text)
		start := from + idx
		for i := start; i < start+len(chunk.Text); i++ {
			covered[i] = true
		}
		from = start + 1
	}

	var missing []string
	for i, ok := range covered {
		if !ok {
			missing = append(missing, fmt.Sprintf("%d:%q", i, text[i]))
		}
	}
	assert.Empty(t, missing, "characters not covered by any chunk")
}

func TestChunker_Split_DoesNotShareMetadata(t *testing.T) {
	page := newPage(strings.Repeat("word ", 400), 2)
	page.Metadata[models.MetaSource] = "/tmp/a.txt"

	chunks, err := NewChunker(100, 10).Split([]models.Page{page}, "s")
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata["extra"] = true
	assert.NotContains(t, chunks[1].Metadata, "extra")
	assert.NotContains(t, page.Metadata, "extra")
	assert.NotContains(t, page.Metadata, models.MetaScopeID)
}

func TestNewChunker_InvalidSizes(t *testing.T) {
	// Overlap larger than the chunk would never terminate; it is dropped.
	chunks, err := NewChunker(0, 5000).Split([]models.Page{newPage(strings.Repeat("abc ", 600), 1)}, "")
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), DefaultChunkSize)
	}
}

func TestCleanChunks(t *testing.T) {
	chunks := []models.Chunk{
		{Text: "first   chunk with text", ScopeID: "s", Metadata: map[string]interface{}{models.MetaPage: 1}},
		{Text: "tiny", ScopeID: "s", Metadata: map[string]interface{}{models.MetaPage: 1}},
		{Text: "\x00\x01\x02", ScopeID: "s", Metadata: map[string]interface{}{models.MetaPage: 1}},
		{Text: "third chunk survives too", ScopeID: "s", Metadata: map[string]interface{}{models.MetaPage: 2}},
	}

	cleaned := CleanChunks(chunks)
	require.Len(t, cleaned, 2)
	assert.Equal(t, "first chunk with text", cleaned[0].Text)
	assert.Equal(t, 0, cleaned[0].Metadata[models.MetaChunkIndex])
	assert.Equal(t, "third chunk survives too", cleaned[1].Text)
	assert.Equal(t, 1, cleaned[1].Metadata[models.MetaChunkIndex])
	assert.Equal(t, 2, cleaned[1].Metadata[models.MetaPage])

	// Input metadata is left untouched.
	assert.NotContains(t, chunks[0].Metadata, models.MetaChunkIndex)
}
