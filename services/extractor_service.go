package services

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github/itish2003/docqa/models"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// Supported file type tags.
const (
	FileTypePDF  = "pdf"
	FileTypeDOCX = "docx"
	FileTypeTXT  = "txt"
)

// ConfigurePDFLicense registers the UniPDF metered key. Without it PDF
// extraction fails at read time.
func ConfigurePDFLicense(key string) error {
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set Unidoc license key: %w", err)
	}
	return nil
}

// NormalizeFileType lowercases a type tag and strips a leading dot, so ".PDF"
// and "pdf" select the same strategy.
func NormalizeFileType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// IsSupportedFileType reports whether a type tag has an extraction strategy.
func IsSupportedFileType(fileType string) bool {
	switch NormalizeFileType(fileType) {
	case FileTypePDF, FileTypeDOCX, FileTypeTXT:
		return true
	default:
		return false
	}
}

// ExtractPages reads a file and returns its page units. The strategy is picked
// from fileType alone: PDFs yield one unit per page, DOCX and TXT a single unit.
func ExtractPages(path, fileType string) ([]models.Page, error) {
	var (
		pages []models.Page
		err   error
	)
	switch NormalizeFileType(fileType) {
	case FileTypePDF:
		pages, err = extractPagesFromPDF(path)
	case FileTypeDOCX:
		pages, err = extractPagesFromDOCX(path)
	case FileTypeTXT:
		pages, err = extractPagesFromTXT(path)
	default:
		return nil, NewPipelineError(ErrorTypeUnsupportedType, fmt.Sprintf("Unsupported file type: %s", fileType), nil)
	}
	if err != nil {
		return nil, NewPipelineError(ErrorTypeExtraction, "Could not read document content", err)
	}
	if len(pages) == 0 {
		return nil, NewPipelineError(ErrorTypeExtraction, "No content found in document", nil)
	}
	for i := range pages {
		pages[i].Metadata[models.MetaSource] = path
	}
	return pages, nil
}

func newPage(text string, number int) models.Page {
	return models.Page{
		Text:     text,
		Metadata: map[string]interface{}{models.MetaPage: number},
	}
}

func extractPagesFromTXT(path string) ([]models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return []models.Page{newPage(string(content), 1)}, nil
}

// extractPagesFromPDF uses UniPDF to get the text of every page.
func extractPagesFromPDF(path string) ([]models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, err
	}

	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, newPage(text, i))
	}
	return pages, nil
}

// docxBody mirrors the parts of word/document.xml that carry text.
type docxBody struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

type docxCore struct {
	Title string `xml:"title"`
}

// extractPagesFromDOCX returns the whole document as one unit, one line per
// paragraph. The core.xml title, when set, is kept as metadata.
func extractPagesFromDOCX(path string) ([]models.Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var (
		body  []byte
		title string
	)
	for _, file := range reader.File {
		switch file.Name {
		case "word/document.xml":
			if body, err = readZipEntry(file); err != nil {
				return nil, err
			}
		case "docProps/core.xml":
			raw, err := readZipEntry(file)
			if err != nil {
				continue
			}
			var core docxCore
			if xml.Unmarshal(raw, &core) == nil {
				title = strings.TrimSpace(core.Title)
			}
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%s has no word/document.xml", path)
	}

	var doc docxBody
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("could not parse document.xml: %w", err)
	}

	var sb strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
	}

	page := newPage(sb.String(), 1)
	if title != "" {
		page.Metadata[models.MetaTitle] = title
	}
	return []models.Page{page}, nil
}

func readZipEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
