package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	chatpdf "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/blob"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/catalog"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/llmclient"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/queue"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/vectorindex"
	"github.com/tejasgodse/chatpdf/internal/infra/config"
)

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, data []byte) (string, error) {
	return string(data), nil
}

type lineChunker struct{}

func (lineChunker) Chunk(text string) ([]chatpdf.ChunkCandidate, error) {
	return []chatpdf.ChunkCandidate{{Index: 0, Text: text, TokenCount: len(strings.Fields(text))}}, nil
}

type constantEmbedder struct{}

func (constantEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handler, chatpdf.Blob) {
	t.Helper()
	b := blob.NewMemoryBlob()
	svc := chatpdf.NewService(
		b,
		catalog.NewMemoryCatalog(),
		vectorindex.NewMemoryVectorIndex(),
		constantEmbedder{},
		llmclient.EchoLLM{},
		passthroughExtractor{},
		lineChunker{},
		vectorindex.ChunkVectorID,
		testLogger(),
	)
	cfg := &config.Config{}
	cfg.ChatPDF.PresignPutTTL = 0
	cfg.ChatPDF.PresignGetTTL = 0
	handler := NewHandler(svc, queue.NewImmediateQueue(nil), cfg, testLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery(), errorHandlingMiddleware(handler.logger))
	api := router.Group("/api/v1/chatpdf")
	api.POST("/presign", handler.Presign)
	api.POST("/webhook/ingest", handler.WebhookIngest)
	api.GET("/files", handler.ListFiles)
	api.GET("/files/:id", handler.GetFile)
	api.POST("/chat", handler.Chat)
	api.GET("/chats", handler.ListChats)
	api.GET("/chats/:id", handler.GetChat)
	api.POST("/retrieve", handler.Retrieve)
	return router, handler, b
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPresignRejectsNonPDFFilename(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/presign", map[string]any{"filename": "notes.txt"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPresignReturnsFileIDAndURL(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/presign", map[string]any{"filename": "report.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["file_id"] == nil || resp["presigned_url"] == nil {
		t.Fatalf("expected file_id and presigned_url in response, got %#v", resp)
	}
}

func TestWebhookIngestProcessesUploadedFile(t *testing.T) {
	router, _, b := newTestRouter(t)
	fileID := uuid.New()
	key := "uploads/" + fileID.String() + ".pdf"
	if err := b.Put(context.Background(), key, []byte("needle document"), "application/pdf"); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/webhook/ingest", map[string]any{"s3_bucket": "bucket", "s3_key": key})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["ingestion_status"] != string(chatpdf.FileStatusCompleted) {
		t.Fatalf("expected completed ingestion status, got %#v", resp)
	}
}

func TestWebhookIngestWithWorkerEnabledDispatchesThroughQueueAndProcessesInBackground(t *testing.T) {
	b := blob.NewMemoryBlob()
	cat := catalog.NewMemoryCatalog()
	svc := chatpdf.NewService(
		b,
		cat,
		vectorindex.NewMemoryVectorIndex(),
		constantEmbedder{},
		llmclient.EchoLLM{},
		passthroughExtractor{},
		lineChunker{},
		vectorindex.ChunkVectorID,
		testLogger(),
	)

	q := queue.NewImmediateQueue(nil)
	done := make(chan struct{})
	q.SetHandler(func(ctx context.Context, name string, payload map[string]any) {
		defer close(done)
		if name != "ingest" {
			return
		}
		storageKey, _ := payload["storage_key"].(string)
		if _, err := svc.Ingest(ctx, storageKey); err != nil {
			t.Errorf("background ingest failed: %v", err)
		}
	})

	cfg := &config.Config{}
	cfg.ChatPDF.Worker.Enabled = true
	handler := NewHandler(svc, q, cfg, testLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery(), errorHandlingMiddleware(handler.logger))
	router.POST("/api/v1/chatpdf/webhook/ingest", handler.WebhookIngest)

	fileID := uuid.New()
	key := "uploads/" + fileID.String() + ".pdf"
	if err := b.Put(context.Background(), key, []byte("needle document"), "application/pdf"); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/webhook/ingest", map[string]any{"s3_bucket": "bucket", "s3_key": key})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 when worker enabled, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["ingestion_status"] != string(chatpdf.FileStatusUploaded) {
		t.Fatalf("expected uploaded status on the queued response, got %#v", resp)
	}

	<-done

	file, found, err := cat.GetFile(context.Background(), fileID)
	if err != nil || !found {
		t.Fatalf("expected file to exist after background processing: found=%v err=%v", found, err)
	}
	if file.Status != chatpdf.FileStatusCompleted {
		t.Fatalf("expected background ingestion to complete, got status %s", file.Status)
	}
}

func TestGetFileReturns404WhenMissing(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/files/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetFileRejectsInvalidID(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/files/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListFilesReturnsEmptyPageInitially(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["total"].(float64) != 0 {
		t.Fatalf("expected zero total files, got %#v", resp)
	}
}

func TestChatWithoutFileReturnsInlineResponse(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/chat", map[string]any{"message": "hello there"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["retrieval_mode"] != string(chatpdf.ModeInline) {
		t.Fatalf("expected inline retrieval mode, got %#v", resp)
	}
	if resp["response"] != "Answer: hello there" {
		t.Fatalf("unexpected response text: %#v", resp)
	}
}

func TestChatRejectsBlankMessage(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/chat", map[string]any{"message": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChatRejectsInvalidConversationID(t *testing.T) {
	router, _, _ := newTestRouter(t)
	invalid := "not-a-uuid"
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/chat", map[string]any{"message": "hi", "conversation_id": &invalid})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListChatsAndGetChatRoundTrip(t *testing.T) {
	router, _, _ := newTestRouter(t)
	chatRec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/chat", map[string]any{"message": "hi"})
	if chatRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from chat, got %d: %s", chatRec.Code, chatRec.Body.String())
	}
	var chatResp map[string]any
	_ = json.Unmarshal(chatRec.Body.Bytes(), &chatResp)
	conversationID := chatResp["conversation_id"].(string)

	listRec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/chats", nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", listRec.Code, listRec.Body.String())
	}
	var listResp map[string]any
	_ = json.Unmarshal(listRec.Body.Bytes(), &listResp)
	if listResp["total"].(float64) != 1 {
		t.Fatalf("expected one conversation listed, got %#v", listResp)
	}

	getRec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/chats/"+conversationID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
	var getResp map[string]any
	_ = json.Unmarshal(getRec.Body.Bytes(), &getResp)
	messages, ok := getResp["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %#v", getResp)
	}
}

func TestGetChatReturns404WhenMissing(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/chatpdf/chats/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRetrieveRequiresFileIDs(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/retrieve", map[string]any{"query": "needle", "file_ids": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRetrieveReturnsMatchingChunks(t *testing.T) {
	router, _, b := newTestRouter(t)
	fileID := uuid.New()
	key := "uploads/" + fileID.String() + ".pdf"
	_ = b.Put(context.Background(), key, []byte("needle document"), "application/pdf")
	ingestRec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/webhook/ingest", map[string]any{"s3_key": key})
	if ingestRec.Code != http.StatusOK {
		t.Fatalf("expected ingest to succeed, got %d: %s", ingestRec.Code, ingestRec.Body.String())
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/chatpdf/retrieve", map[string]any{
		"query":    "needle",
		"top_k":    5,
		"file_ids": []string{fileID.String()},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	results, ok := resp["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("expected one retrieved chunk, got %#v", resp)
	}
}
