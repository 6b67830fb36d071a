package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github/itish2003/docqa/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Ingester runs the ingestion pipeline for one file.
type Ingester interface {
	Ingest(ctx context.Context, req models.IngestRequest) (models.IngestResult, error)
}

// SourceRemover deletes the indexed records of one source file.
type SourceRemover interface {
	DeleteSource(ctx context.Context, source string) error
}

// WatcherService keeps an inbox directory in sync with the vector index: new
// or changed files are ingested, deleted files are removed.
type WatcherService struct {
	ingester Ingester
	index    SourceRemover
	scopeID  string
	logger   *zap.Logger

	mu     sync.Mutex
	hashes map[string]string // path -> content hash of the indexed version
}

func NewWatcherService(ingester Ingester, index SourceRemover, scopeID string, logger *zap.Logger) *WatcherService {
	return &WatcherService{
		ingester: ingester,
		index:    index,
		scopeID:  scopeID,
		logger:   logger,
		hashes:   make(map[string]string),
	}
}

// Run scans dirPath once and then watches it until ctx is cancelled.
func (s *WatcherService) Run(ctx context.Context, dirPath string) error {
	s.ScanDirectory(ctx, dirPath)
	return s.Watch(ctx, dirPath)
}

// ScanDirectory indexes every new or modified supported file under dirPath and
// drops records of tracked files that no longer exist.
func (s *WatcherService) ScanDirectory(ctx context.Context, dirPath string) {
	s.logger.Info("WATCHER: starting directory scan", zap.String("dir", dirPath))

	localFiles := make(map[string]bool)
	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isWatchedFile(path) {
			return nil
		}
		localFiles[path] = true
		if err := s.syncFile(ctx, path); err != nil {
			s.logger.Error("WATCHER: failed to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("WATCHER: error walking directory", zap.String("dir", dirPath), zap.Error(err))
	}

	for _, path := range s.trackedFiles() {
		if !localFiles[path] {
			s.removeFile(ctx, path)
		}
	}
	s.logger.Info("WATCHER: directory scan finished", zap.Int("files", len(localFiles)))
}

// Watch blocks, reacting to filesystem events in dirPath, until ctx is done.
func (s *WatcherService) Watch(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dirPath, err)
	}
	s.logger.Info("WATCHER: watching directory", zap.String("dir", dirPath))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("WATCHER: watch error", zap.Error(err))
		case <-ctx.Done():
			s.logger.Info("WATCHER: context cancelled, shutting down watcher")
			return nil
		}
	}
}

// HandleEvent applies a single filesystem event.
func (s *WatcherService) HandleEvent(ctx context.Context, event fsnotify.Event) {
	if !isWatchedFile(event.Name) {
		return
	}
	s.logger.Debug("WATCHER: event", zap.String("event", event.String()))

	// Editors often save by writing a temp file and renaming it over the
	// original, so Create and Write are handled the same way.
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		if err := s.syncFile(ctx, event.Name); err != nil {
			s.logger.Error("WATCHER: failed to process file", zap.String("file", event.Name), zap.Error(err))
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.removeFile(ctx, event.Name)
	}
}

// syncFile ingests path if its content differs from the indexed version.
// Records of the previous version are removed first.
func (s *WatcherService) syncFile(ctx context.Context, path string) error {
	hash, err := calculateFileHash(path)
	if err != nil {
		return fmt.Errorf("could not hash file: %w", err)
	}

	s.mu.Lock()
	prev, tracked := s.hashes[path]
	s.mu.Unlock()
	if tracked && prev == hash {
		return nil
	}

	if tracked {
		s.logger.Info("WATCHER: file changed, re-indexing", zap.String("file", path))
		if err := s.index.DeleteSource(ctx, path); err != nil {
			return fmt.Errorf("failed to delete old version: %w", err)
		}
		s.forget(path)
	}

	result, err := s.ingester.Ingest(ctx, models.IngestRequest{
		FilePath: path,
		FileType: FileTypeFromName(path),
		ScopeID:  s.scopeID,
		Title:    filepath.Base(path),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.hashes[path] = hash
	s.mu.Unlock()
	s.logger.Info("WATCHER: "+result.Message, zap.String("file", path))
	return nil
}

func (s *WatcherService) removeFile(ctx context.Context, path string) {
	s.logger.Info("WATCHER: file removed, removing from index", zap.String("file", path))
	if err := s.index.DeleteSource(ctx, path); err != nil {
		s.logger.Error("WATCHER: failed to delete records", zap.String("file", path), zap.Error(err))
		return
	}
	s.forget(path)
}

func (s *WatcherService) forget(path string) {
	s.mu.Lock()
	delete(s.hashes, path)
	s.mu.Unlock()
}

func (s *WatcherService) trackedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.hashes))
	for path := range s.hashes {
		paths = append(paths, path)
	}
	return paths
}

func isWatchedFile(path string) bool {
	return IsSupportedFileType(FileTypeFromName(path))
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
