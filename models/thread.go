package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Thread is a conversation. Its ID is also the scope of every document
// uploaded to it.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadDetail is a thread with its documents and messages.
type ThreadDetail struct {
	Thread
	Documents []Document `json:"documents"`
	Messages  []Message  `json:"messages"`
}

// Document is an uploaded file. Processed is set only after ingestion succeeded.
type Document struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Title      string    `json:"title"`
	FilePath   string    `json:"-"`
	FileType   string    `json:"file_type"`
	Processed  bool      `json:"processed"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}

type UploadDocumentResponse struct {
	Document         Document `json:"document"`
	UpdatedMessageID string   `json:"updated_message_id,omitempty"`
	ThreadTitle      string   `json:"thread_title"`
	ChunksAdded      int      `json:"chunks_added"`
}
