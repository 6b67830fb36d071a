package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github/itish2003/docqa/models"

	"github.com/google/uuid"
)

// CreateDocument records an upload. It starts unprocessed.
func (s *Store) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.Processed = false
	doc.UploadedAt = time.Now().UTC()

	_, err := s.exec(ctx, `
		INSERT INTO documents (id, thread_id, title, file_path, file_type, processed, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.ThreadID, doc.Title, doc.FilePath, doc.FileType, doc.Processed, doc.UploadedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("creating document: %w", err)
	}
	return doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (models.Document, error) {
	row := s.queryRow(ctx, `
		SELECT id, thread_id, title, file_path, file_type, processed, uploaded_at
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, ErrNotFound
	}
	return doc, err
}

func (s *Store) MarkDocumentProcessed(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "UPDATE documents SET processed = ? WHERE id = ?", true, id)
	return expectOne(res, err, "marking document processed")
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM documents WHERE id = ?", id)
	return expectOne(res, err, "deleting document")
}

// ListDocuments returns the documents of a thread in upload order.
func (s *Store) ListDocuments(ctx context.Context, threadID string) ([]models.Document, error) {
	rows, err := s.query(ctx, `
		SELECT id, thread_id, title, file_path, file_type, processed, uploaded_at
		FROM documents WHERE thread_id = ? ORDER BY uploaded_at
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// HasProcessedDocuments reports whether the thread has at least one
// successfully ingested document. An empty threadID asks about all threads.
func (s *Store) HasProcessedDocuments(ctx context.Context, threadID string) (bool, error) {
	query := "SELECT COUNT(*) FROM documents WHERE processed = ?"
	args := []any{true}
	if threadID != "" {
		query += " AND thread_id = ?"
		args = append(args, threadID)
	}
	var n int
	if err := s.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("counting processed documents: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (models.Document, error) {
	var doc models.Document
	var uploadedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.ThreadID, &doc.Title, &doc.FilePath, &doc.FileType, &doc.Processed, &uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, err
		}
		return models.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.UploadedAt = uploadedAt.Time
	return doc, nil
}
