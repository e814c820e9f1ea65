package http

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit      = 100
)

var forbiddenFilenameChars = regexp.MustCompile(`[/\\<>:"|?*]`)

func validateFilename(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return apperrors.Wrap(domain.CodeValidationFailure, "filename must be 1..255 characters", nil)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return apperrors.Wrap(domain.CodeValidationFailure, "filename must end with .pdf", nil)
	}
	if forbiddenFilenameChars.MatchString(name) {
		return apperrors.Wrap(domain.CodeValidationFailure, `filename must not contain / \ < > : " | ? *`, nil)
	}
	return nil
}

type presignRequest struct {
	Filename string `json:"filename"`
}

// Presign issues an upload URL and the file id the client must later
// report back through /webhook/ingest.
func (h *Handler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", errMessage(err), nil, err))
		return
	}
	if err := validateFilename(req.Filename); err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	fileID := uuid.New()
	key := "uploads/" + fileID.String() + ".pdf"

	url, err := h.svc.Blob.PresignPut(c.Request.Context(), key, time.Duration(h.presignTTLSeconds)*time.Second)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_id":            fileID,
		"presigned_url":      url,
		"expires_in_seconds": h.presignTTLSeconds,
	})
}

type webhookIngestRequest struct {
	S3Bucket string `json:"s3_bucket"`
	S3Key    string `json:"s3_key"`
}

// WebhookIngest triggers the ingestion pipeline for a previously
// uploaded object. With the background worker enabled, the job is
// handed to the queue and the pipeline runs off the request goroutine;
// otherwise it runs inline and the response carries the final status.
func (h *Handler) WebhookIngest(c *gin.Context) {
	var req webhookIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", errMessage(err), nil, err))
		return
	}

	if h.workerEnabled && h.queue != nil {
		fileID, ok := domain.FileIDFromStorageKey(req.S3Key)
		if !ok {
			abortWithError(c, mapServiceError(apperrors.Wrap(domain.CodeInvalidKeyFormat, "storage key does not match uploads/<uuid>.pdf", nil)))
			return
		}
		if err := h.queue.Enqueue(c.Request.Context(), "ingest", map[string]any{"storage_key": req.S3Key}); err != nil {
			abortWithError(c, mapServiceError(err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":           "ok",
			"file_id":          fileID,
			"ingestion_status": domain.FileStatusUploaded,
			"summary":          gin.H{"queued": true},
		})
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), req.S3Key)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	resp := gin.H{
		"status":           "ok",
		"file_id":          result.FileID,
		"ingestion_status": result.Status,
	}
	switch {
	case result.Status == domain.FileStatusCompleted:
		resp["summary"] = gin.H{"chunks_created": result.ChunksCreated}
	case result.Status == domain.FileStatusFailed:
		resp["summary"] = gin.H{"failure_reason": result.FailureReason}
	case result.AlreadyQueued:
		resp["summary"] = gin.H{"already_processed": true}
	}
	c.JSON(http.StatusOK, resp)
}

// ListFiles returns files newest first.
func (h *Handler) ListFiles(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	files, err := h.svc.Catalog.ListFiles(c.Request.Context(), limit, offset)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	total, err := h.svc.Catalog.CountFiles(c.Request.Context())
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"files":  toFileList(files),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetFile returns a single file's details plus a presigned download URL.
func (h *Handler) GetFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", "invalid file id", nil, err))
		return
	}
	file, found, err := h.svc.Catalog.GetFile(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	if !found {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "RecordNotFound", "file not found", nil, nil))
		return
	}
	downloadURL, err := h.svc.Blob.PresignGet(c.Request.Context(), file.StorageKey, time.Duration(h.downloadTTLSeconds)*time.Second)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_id":                file.ID,
		"storage_key":            file.StorageKey,
		"ingestion_status":       file.Status,
		"failure_reason":         file.FailureReason,
		"presigned_download_url": downloadURL,
		"created_at":             file.CreatedAt,
		"updated_at":             file.UpdatedAt,
	})
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	FileID         *string `json:"file_id"`
}

// Chat runs one chat turn through the hybrid retrieval controller.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", errMessage(err), nil, err))
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != nil && strings.TrimSpace(*req.ConversationID) != "" {
		parsed, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", "invalid conversation_id", nil, err))
			return
		}
		conversationID = &parsed
	}

	var fileID *uuid.UUID
	if req.FileID != nil && strings.TrimSpace(*req.FileID) != "" {
		parsed, err := uuid.Parse(*req.FileID)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", "invalid file_id", nil, err))
			return
		}
		fileID = &parsed
	}

	result, err := h.svc.Chat(c.Request.Context(), conversationID, req.Message, fileID)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id":  result.ConversationID,
		"response":         result.Response,
		"retrieval_mode":   result.RetrievalMode,
		"retrieved_chunks": toEvidenceList(result.RetrievedChunks),
	})
}

// ListChats returns conversations newest first.
func (h *Handler) ListChats(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	chats, err := h.svc.Catalog.ListConversations(c.Request.Context(), limit, offset)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	total, err := h.svc.Catalog.CountConversations(c.Request.Context())
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	out := make([]gin.H, len(chats))
	for i, chat := range chats {
		out[i] = gin.H{"conversation_id": chat.ID, "created_at": chat.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{
		"chats":  out,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetChat returns a conversation and its full message history.
func (h *Handler) GetChat(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", "invalid conversation id", nil, err))
		return
	}
	conv, found, err := h.svc.Catalog.GetConversation(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	if !found {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "RecordNotFound", "conversation not found", nil, nil))
		return
	}
	msgs, err := h.svc.Catalog.GetMessages(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"created_at":      conv.CreatedAt,
		"messages":        toMessageList(msgs),
	})
}

type retrieveRequest struct {
	Query   string   `json:"query"`
	FileIDs []string `json:"file_ids"`
	TopK    int      `json:"top_k"`
}

// Retrieve is the standalone debug retrieval endpoint.
func (h *Handler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", errMessage(err), nil, err))
		return
	}
	fileIDs := make([]uuid.UUID, 0, len(req.FileIDs))
	for _, raw := range req.FileIDs {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "ValidationFailure", "invalid file_ids entry", nil, err))
			return
		}
		fileIDs = append(fileIDs, parsed)
	}

	results, err := h.svc.Retrieve(c.Request.Context(), req.Query, req.TopK, fileIDs)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}
	if len(results) == 0 {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "RecordNotFound", "no matching chunks", nil, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func parseLimitOffset(c *gin.Context) (int, int) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func toFileList(files []domain.File) []gin.H {
	out := make([]gin.H, len(files))
	for i, f := range files {
		out[i] = gin.H{
			"file_id":          f.ID,
			"storage_key":      f.StorageKey,
			"ingestion_status": f.Status,
			"failure_reason":   f.FailureReason,
			"created_at":       f.CreatedAt,
			"updated_at":       f.UpdatedAt,
		}
	}
	return out
}

func toEvidenceList(chunks []domain.EvidenceChunk) []gin.H {
	out := make([]gin.H, len(chunks))
	for i, ec := range chunks {
		out[i] = gin.H{"chunk_text": ec.ChunkText, "similarity_score": ec.SimilarityScore}
	}
	return out
}

func toMessageList(msgs []domain.Message) []gin.H {
	out := make([]gin.H, len(msgs))
	for i, m := range msgs {
		entry := gin.H{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"created_at": m.CreatedAt,
		}
		if m.FileID != nil {
			entry["file_id"] = *m.FileID
		}
		if m.RetrievalMode != nil {
			entry["retrieval_mode"] = *m.RetrievalMode
		}
		if len(m.RetrievedChunks) > 0 {
			entry["retrieved_chunks"] = toEvidenceList(m.RetrievedChunks)
		}
		out[i] = entry
	}
	return out
}
