package services

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docqa/models"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// writeDOCX builds a minimal .docx with one paragraph per entry.
func writeDOCX(t *testing.T, title string, paragraphs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	body += `</w:body></w:document>`
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)

	if title != "" {
		core := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
			`<dc:title>` + title + `</dc:title></cp:coreProperties>`
		w, err := zw.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte(core))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractPages_TXT(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("first line\nsecond line\n"))

	pages, err := ExtractPages(path, "TXT")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "first line\nsecond line\n", pages[0].Text)
	assert.Equal(t, 1, pages[0].Metadata[models.MetaPage])
	assert.Equal(t, path, pages[0].Metadata[models.MetaSource])
}

func TestExtractPages_TXTInvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{0xff, 0xfe, 0xfd, 'a'})

	_, err := ExtractPages(path, "txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtraction))
}

func TestExtractPages_DOCX(t *testing.T) {
	path := writeDOCX(t, "Quarterly Report", "Revenue grew in every region.", "Costs stayed flat.")

	pages, err := ExtractPages(path, ".docx")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Revenue grew in every region.\nCosts stayed flat.", pages[0].Text)
	assert.Equal(t, "Quarterly Report", pages[0].Metadata[models.MetaTitle])
	assert.Equal(t, 1, pages[0].Metadata[models.MetaPage])
}

func TestExtractPages_DOCXWithoutTitle(t *testing.T) {
	path := writeDOCX(t, "", "Only a body here.")

	pages, err := ExtractPages(path, "docx")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.NotContains(t, pages[0].Metadata, models.MetaTitle)
}

func TestExtractPages_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fileType string
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "unsupported type",
			path:     "/does/not/matter.csv",
			fileType: "csv",
			wantErr:  ErrUnsupportedType,
			wantMsg:  "Unsupported file type: csv",
		},
		{
			name:     "missing txt file",
			path:     filepath.Join(t.TempDir(), "missing.txt"),
			fileType: "txt",
			wantErr:  ErrExtraction,
			wantMsg:  "Could not read document content",
		},
		{
			name:     "corrupt docx",
			path:     writeFile(t, "broken.docx", []byte("this is not a zip archive")),
			fileType: "docx",
			wantErr:  ErrExtraction,
			wantMsg:  "Could not read document content",
		},
		{
			name:     "corrupt pdf",
			path:     writeFile(t, "broken.pdf", []byte("not a pdf at all")),
			fileType: "pdf",
			wantErr:  ErrExtraction,
			wantMsg:  "Could not read document content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := ExtractPages(tt.path, tt.fileType)
			require.Error(t, err)
			assert.Nil(t, pages)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Equal(t, tt.wantMsg, UserMessage(err))
		})
	}
}

func TestIsSupportedFileType(t *testing.T) {
	for _, ft := range []string{"pdf", "PDF", ".docx", " txt "} {
		assert.True(t, IsSupportedFileType(ft), ft)
	}
	for _, ft := range []string{"csv", "md", "", "doc"} {
		assert.False(t, IsSupportedFileType(ft), ft)
	}
}
