package controller

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/docqa/models"
	"github/itish2003/docqa/services"
	"github/itish2003/docqa/store"
)

const (
	newThreadTitle   = "New Chat"
	titleMaxLength   = 50
	welcomeMessage   = "👋 I'm your chat bot. You can ask me anything or upload a document to get started!"
	welcomeMarker    = "upload a document to get started"
	documentReadyMsg = welcomeMessage + "\n\n📄 I have access to your uploaded document. You can now ask me anything about this document."
)

// ThreadStore is the persistence the handlers need.
type ThreadStore interface {
	CreateThread(ctx context.Context, title string) (models.Thread, error)
	GetThread(ctx context.Context, id string) (models.Thread, error)
	ListThreads(ctx context.Context) ([]models.Thread, error)
	UpdateThreadTitle(ctx context.Context, id, title string) error
	DeleteThread(ctx context.Context, id string) error

	CreateDocument(ctx context.Context, doc models.Document) (models.Document, error)
	MarkDocumentProcessed(ctx context.Context, id string) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, threadID string) ([]models.Document, error)

	AddMessage(ctx context.Context, threadID, role, content string, sources []models.Source) (models.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	CountMessages(ctx context.Context, threadID, role string) (int, error)
	FirstMessage(ctx context.Context, threadID, role string) (models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) error
}

// Answerer produces answers for a thread.
type Answerer interface {
	Answer(ctx context.Context, question, scopeID string) models.AnswerResult
	LLMConfigured() bool
}

// DocumentIngester pushes an uploaded file through the ingestion pipeline.
type DocumentIngester interface {
	Ingest(ctx context.Context, req models.IngestRequest) (models.IngestResult, error)
}

// IndexAdmin exposes vector index housekeeping.
type IndexAdmin interface {
	IsConfigured() bool
	Clear(ctx context.Context, scopeID string) error
	DeleteSource(ctx context.Context, source string) error
}

// RAGController handles the HTTP API. Every thread is its own retrieval scope.
type RAGController struct {
	store    ThreadStore
	rag      Answerer
	ingester DocumentIngester
	index    IndexAdmin
	files    *services.FileActions
	logger   *zap.Logger
}

func NewRAGController(store ThreadStore, rag Answerer, ingester DocumentIngester, index IndexAdmin, files *services.FileActions, logger *zap.Logger) *RAGController {
	return &RAGController{
		store:    store,
		rag:      rag,
		ingester: ingester,
		index:    index,
		files:    files,
		logger:   logger,
	}
}

// RegisterRoutes mounts every endpoint on router.
func (c *RAGController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Health)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/threads", c.CreateThread)
		apiV1.GET("/threads", c.ListThreads)
		apiV1.GET("/threads/:id", c.GetThread)
		apiV1.DELETE("/threads/:id", c.DeleteThread)
		apiV1.POST("/threads/:id/messages", c.SendMessage)
		apiV1.POST("/threads/:id/documents", c.UploadDocument)
		apiV1.DELETE("/index", c.ClearIndex)
	}
}

func (c *RAGController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{
		Status:          "healthy",
		Service:         "Document QA API",
		Version:         "1.0.0",
		IndexConfigured: c.index.IsConfigured(),
		LLMConfigured:   c.rag.LLMConfigured(),
	})
}

// CreateThread starts a conversation with a welcome message.
func (c *RAGController) CreateThread(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	thread, err := c.store.CreateThread(reqCtx, newThreadTitle)
	if err != nil {
		c.internalError(ctx, "Failed to create thread", err)
		return
	}
	welcome, err := c.store.AddMessage(reqCtx, thread.ID, models.RoleAssistant, welcomeMessage, nil)
	if err != nil {
		c.internalError(ctx, "Failed to create thread", err)
		return
	}
	ctx.JSON(http.StatusCreated, models.ThreadDetail{
		Thread:    thread,
		Documents: []models.Document{},
		Messages:  []models.Message{welcome},
	})
}

func (c *RAGController) ListThreads(ctx *gin.Context) {
	threads, err := c.store.ListThreads(ctx.Request.Context())
	if err != nil {
		c.internalError(ctx, "Failed to retrieve threads", err)
		return
	}
	ctx.JSON(http.StatusOK, threads)
}

func (c *RAGController) GetThread(ctx *gin.Context) {
	thread, ok := c.loadThread(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	docs, err := c.store.ListDocuments(reqCtx, thread.ID)
	if err != nil {
		c.internalError(ctx, "Failed to retrieve thread", err)
		return
	}
	messages, err := c.store.ListMessages(reqCtx, thread.ID)
	if err != nil {
		c.internalError(ctx, "Failed to retrieve thread", err)
		return
	}
	ctx.JSON(http.StatusOK, models.ThreadDetail{Thread: thread, Documents: docs, Messages: messages})
}

// DeleteThread drops the thread's index scope, its stored files and the
// thread itself.
func (c *RAGController) DeleteThread(ctx *gin.Context) {
	thread, ok := c.loadThread(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	docs, err := c.store.ListDocuments(reqCtx, thread.ID)
	if err != nil {
		c.internalError(ctx, "Failed to delete thread", err)
		return
	}
	if err := c.index.Clear(reqCtx, thread.ID); err != nil {
		c.internalError(ctx, "Failed to delete thread", err)
		return
	}
	for _, doc := range docs {
		if err := c.files.Remove(doc.FilePath); err != nil {
			c.logger.Warn("could not remove document file", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if err := c.store.DeleteThread(reqCtx, thread.ID); err != nil {
		c.internalError(ctx, "Failed to delete thread", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SendMessage stores the question, answers it and stores the answer. The
// first question of a thread becomes its title.
func (c *RAGController) SendMessage(ctx *gin.Context) {
	thread, ok := c.loadThread(ctx)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}

	reqCtx := ctx.Request.Context()
	userMsg, err := c.store.AddMessage(reqCtx, thread.ID, models.RoleUser, req.Message, nil)
	if err != nil {
		c.internalError(ctx, "Failed to save message", err)
		return
	}

	result := c.rag.Answer(reqCtx, req.Message, thread.ID)

	assistantMsg, err := c.store.AddMessage(reqCtx, thread.ID, models.RoleAssistant, result.Answer, result.Sources)
	if err != nil {
		c.internalError(ctx, "Failed to save message", err)
		return
	}

	if n, err := c.store.CountMessages(reqCtx, thread.ID, models.RoleUser); err == nil && n == 1 {
		if err := c.store.UpdateThreadTitle(reqCtx, thread.ID, threadTitle(req.Message)); err != nil {
			c.logger.Warn("could not update thread title", zap.String("thread_id", thread.ID), zap.Error(err))
		}
	}

	ctx.JSON(http.StatusOK, models.SendMessageResponse{UserMessage: userMsg, AssistantMessage: assistantMsg})
}

// UploadDocument stores a file and ingests it into the thread's scope. A file
// that fails ingestion leaves no document record and no stored file behind.
func (c *RAGController) UploadDocument(ctx *gin.Context) {
	thread, ok := c.loadThread(ctx)
	if !ok {
		return
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	fileType := services.FileTypeFromName(fileHeader.Filename)
	if !services.IsSupportedFileType(fileType) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type. Please upload PDF, DOCX, or TXT files."})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.internalError(ctx, "Failed to read upload", err)
		return
	}
	path, err := c.files.Save(fileHeader.Filename, src)
	src.Close()
	if err != nil {
		c.internalError(ctx, "Failed to store upload", err)
		return
	}

	reqCtx := ctx.Request.Context()
	filename := filepath.Base(fileHeader.Filename)
	doc, err := c.store.CreateDocument(reqCtx, models.Document{
		ThreadID: thread.ID,
		Title:    filename,
		FilePath: path,
		FileType: fileType,
	})
	if err != nil {
		c.removeFile(path)
		c.internalError(ctx, "Failed to store upload", err)
		return
	}

	result, err := c.ingester.Ingest(reqCtx, models.IngestRequest{
		FilePath:   path,
		FileType:   fileType,
		ScopeID:    thread.ID,
		Title:      filename,
		DocumentID: doc.ID,
	})
	if err != nil || !result.Success {
		c.logger.Error("document processing failed",
			zap.String("thread_id", thread.ID),
			zap.String("document_id", doc.ID),
			zap.Error(err))
		c.discardUpload(reqCtx, doc, false)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process document: " + result.Message})
		return
	}

	if err := c.store.MarkDocumentProcessed(reqCtx, doc.ID); err != nil {
		c.discardUpload(reqCtx, doc, true)
		c.internalError(ctx, "Failed to update document", err)
		return
	}
	doc.Processed = true

	title := thread.Title
	if title == newThreadTitle {
		title = "📄 " + filename
		if err := c.store.UpdateThreadTitle(reqCtx, thread.ID, title); err != nil {
			c.logger.Warn("could not update thread title", zap.String("thread_id", thread.ID), zap.Error(err))
			title = thread.Title
		}
	}

	resp := models.UploadDocumentResponse{Document: doc, ThreadTitle: title, ChunksAdded: result.ChunksAdded}
	if welcome, err := c.store.FirstMessage(reqCtx, thread.ID, models.RoleAssistant); err == nil {
		resp.UpdatedMessageID = welcome.ID
		if strings.Contains(welcome.Content, welcomeMarker) {
			if err := c.store.UpdateMessageContent(reqCtx, welcome.ID, documentReadyMsg); err != nil {
				c.logger.Warn("could not update welcome message", zap.String("message_id", welcome.ID), zap.Error(err))
			}
		}
	}
	ctx.JSON(http.StatusCreated, resp)
}

// ClearIndex removes every record from the vector index.
func (c *RAGController) ClearIndex(ctx *gin.Context) {
	if err := c.index.Clear(ctx.Request.Context(), ""); err != nil {
		c.internalError(ctx, "Failed to clear vector index", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Vector index cleared"})
}

func (c *RAGController) loadThread(ctx *gin.Context) (models.Thread, bool) {
	thread, err := c.store.GetThread(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
		} else {
			c.internalError(ctx, "Failed to retrieve thread", err)
		}
		return models.Thread{}, false
	}
	return thread, true
}

// discardUpload undoes a partial upload: the document row, the stored file
// and, when ingestion already ran, the document's index records.
func (c *RAGController) discardUpload(ctx context.Context, doc models.Document, indexed bool) {
	if indexed {
		if err := c.index.DeleteSource(ctx, doc.FilePath); err != nil {
			c.logger.Warn("could not delete document records", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if err := c.store.DeleteDocument(ctx, doc.ID); err != nil {
		c.logger.Warn("could not delete failed document", zap.String("document_id", doc.ID), zap.Error(err))
	}
	c.removeFile(doc.FilePath)
}

func (c *RAGController) removeFile(path string) {
	if err := c.files.Remove(path); err != nil {
		c.logger.Warn("could not remove stored file", zap.String("path", path), zap.Error(err))
	}
}

// internalError logs the cause and returns a generic message to the client.
func (c *RAGController) internalError(ctx *gin.Context, msg string, err error) {
	c.logger.Error(msg, zap.String("path", ctx.FullPath()), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// threadTitle truncates the first question to a thread title.
func threadTitle(message string) string {
	runes := []rune(message)
	if len(runes) > titleMaxLength {
		return string(runes[:titleMaxLength]) + "..."
	}
	return message
}
