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

func (s *Store) CreateThread(ctx context.Context, title string) (models.Thread, error) {
	now := time.Now().UTC()
	thread := models.Thread{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.exec(ctx, `
		INSERT INTO threads (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, thread.ID, thread.Title, thread.CreatedAt, thread.UpdatedAt)
	if err != nil {
		return models.Thread{}, fmt.Errorf("creating thread: %w", err)
	}
	return thread, nil
}

func (s *Store) GetThread(ctx context.Context, id string) (models.Thread, error) {
	row := s.queryRow(ctx, `
		SELECT id, title, created_at, updated_at
		FROM threads WHERE id = ?
	`, id)

	var thread models.Thread
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&thread.ID, &thread.Title, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Thread{}, ErrNotFound
		}
		return models.Thread{}, fmt.Errorf("scanning thread: %w", err)
	}
	thread.CreatedAt = createdAt.Time
	thread.UpdatedAt = updatedAt.Time
	return thread, nil
}

// ListThreads returns all threads, most recently active first.
func (s *Store) ListThreads(ctx context.Context) ([]models.Thread, error) {
	rows, err := s.query(ctx, `
		SELECT id, title, created_at, updated_at
		FROM threads ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		var thread models.Thread
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&thread.ID, &thread.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		thread.CreatedAt = createdAt.Time
		thread.UpdatedAt = updatedAt.Time
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

func (s *Store) UpdateThreadTitle(ctx context.Context, id, title string) error {
	res, err := s.exec(ctx, `
		UPDATE threads SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UTC(), id)
	return expectOne(res, err, "updating thread title")
}

// DeleteThread removes a thread together with its documents and messages.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE thread_id = ?"), id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM documents WHERE thread_id = ?"), id); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM threads WHERE id = ?"), id)
	if err := expectOne(res, err, "deleting thread"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing thread delete: %w", err)
	}
	return nil
}

func (s *Store) touchThread(ctx context.Context, id string, at time.Time) error {
	if _, err := s.exec(ctx, "UPDATE threads SET updated_at = ? WHERE id = ?", at, id); err != nil {
		return fmt.Errorf("touching thread: %w", err)
	}
	return nil
}
