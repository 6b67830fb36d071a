package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileActions stores uploaded documents on the local filesystem.
type FileActions struct {
	UploadDir string // absolute path of the upload directory
}

func NewFileActions(uploadDir string) (*FileActions, error) {
	if uploadDir == "" {
		return nil, fmt.Errorf("upload directory not set")
	}
	absPath, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for %s: %w", uploadDir, err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create upload directory: %w", err)
	}
	return &FileActions{UploadDir: absPath}, nil
}

// FileTypeFromName returns the lowercase extension of filename without the dot.
func FileTypeFromName(filename string) string {
	return NormalizeFileType(filepath.Ext(filename))
}

// sanitizeFilename ensures the stored file stays inside the upload directory.
// A random prefix keeps uploads with the same name apart.
func (fa *FileActions) sanitizeFilename(filename string) (string, error) {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	// This prevents path traversal attacks (e.g., filename = "../../../etc/passwd")
	cleanPath := filepath.Join(fa.UploadDir, uuid.New().String()+"_"+base)
	if !strings.HasPrefix(cleanPath, fa.UploadDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filename, attempts to escape upload directory")
	}
	return cleanPath, nil
}

// Save writes content under the upload directory and returns the stored path.
// Only file types with an extraction strategy are accepted.
func (fa *FileActions) Save(filename string, content io.Reader) (string, error) {
	if !IsSupportedFileType(FileTypeFromName(filename)) {
		return "", NewPipelineError(ErrorTypeUnsupportedType, fmt.Sprintf("Unsupported file type: %s", FileTypeFromName(filename)), nil)
	}
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file '%s': %w", filename, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file '%s': %w", filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file '%s': %w", filename, err)
	}
	return path, nil
}

// Remove deletes a stored upload. Paths outside the upload directory and
// files that are already gone are ignored.
func (fa *FileActions) Remove(path string) error {
	if path == "" || !strings.HasPrefix(filepath.Clean(path), fa.UploadDir+string(filepath.Separator)) {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file '%s': %w", path, err)
	}
	return nil
}
