package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github/itish2003/docqa/models"

	"github.com/google/uuid"
)

// AddMessage appends a message to a thread and bumps the thread's activity time.
func (s *Store) AddMessage(ctx context.Context, threadID, role, content string, sources []models.Source) (models.Message, error) {
	if sources == nil {
		sources = []models.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return models.Message{}, fmt.Errorf("marshalling sources: %w", err)
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.exec(ctx, `
		INSERT INTO messages (id, thread_id, role, content, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ThreadID, msg.Role, msg.Content, string(sourcesJSON), msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("creating message: %w", err)
	}
	if err := s.touchThread(ctx, threadID, msg.CreatedAt); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns the messages of a thread, oldest first.
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	rows, err := s.query(ctx, `
		SELECT id, thread_id, role, content, sources, created_at
		FROM messages WHERE thread_id = ? ORDER BY created_at
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) CountMessages(ctx context.Context, threadID, role string) (int, error) {
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM messages WHERE thread_id = ? AND role = ?", threadID, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// FirstMessage returns the oldest message of the given role in a thread.
func (s *Store) FirstMessage(ctx context.Context, threadID, role string) (models.Message, error) {
	row := s.queryRow(ctx, `
		SELECT id, thread_id, role, content, sources, created_at
		FROM messages WHERE thread_id = ? AND role = ?
		ORDER BY created_at LIMIT 1
	`, threadID, role)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrNotFound
	}
	return msg, err
}

func (s *Store) UpdateMessageContent(ctx context.Context, id, content string) error {
	res, err := s.exec(ctx, "UPDATE messages SET content = ? WHERE id = ?", content, id)
	return expectOne(res, err, "updating message")
}

func scanMessage(row rowScanner) (models.Message, error) {
	var msg models.Message
	var sourcesJSON string
	var createdAt sql.NullTime
	if err := row.Scan(&msg.ID, &msg.ThreadID, &msg.Role, &msg.Content, &sourcesJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, err
		}
		return models.Message{}, fmt.Errorf("scanning message: %w", err)
	}
	msg.CreatedAt = createdAt.Time
	msg.Sources = []models.Source{}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &msg.Sources); err != nil {
			return models.Message{}, fmt.Errorf("unmarshaling sources: %w", err)
		}
	}
	return msg, nil
}
