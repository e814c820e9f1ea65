package chatpdf

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Blob abstracts the S3-compatible object store holding uploaded PDFs.
type Blob interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Catalog persists File/Conversation/Message rows.
type Catalog interface {
	CreateFile(ctx context.Context, file File) error
	GetFile(ctx context.Context, id uuid.UUID) (File, bool, error)
	FindFileByStorageKey(ctx context.Context, storageKey string) (File, bool, error)
	UpdateFileStatus(ctx context.Context, id uuid.UUID, status FileStatus, failureReason *string) error
	ListFiles(ctx context.Context, limit, offset int) ([]File, error)
	CountFiles(ctx context.Context) (int, error)

	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (Conversation, bool, error)
	ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error)
	CountConversations(ctx context.Context) (int, error)
	CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error)

	AppendMessages(ctx context.Context, msgs ...Message) error
	GetMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// VectorIndex abstracts the embedding similarity store.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, embedding []float32, fileIDs []uuid.UUID, topK int) ([]RetrievedChunk, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
}

// Embedder produces embeddings for a batch of texts, preserving order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMMessage is a simplified chat message passed to the LLM adapter.
type LLMMessage struct {
	Role       string
	Content    string
	ToolCallID string
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// CompletionResult is the outcome of one LLM turn.
type CompletionResult struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolSpec describes a callable tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// LLM generates chat completions, optionally offering callable tools.
type LLM interface {
	Complete(ctx context.Context, messages []LLMMessage) (CompletionResult, error)
	CompleteWithTools(ctx context.Context, messages []LLMMessage, tools []ToolSpec) (CompletionResult, error)
}

// Extractor pulls page text out of a raw PDF file.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Chunker splits cleaned text into overlapping token windows.
type Chunker interface {
	Chunk(text string) ([]ChunkCandidate, error)
}

// ChunkCandidate is produced by the chunker before embedding. StartChar
// and EndChar locate the chunk in the cleaned source text, as
// half-open offsets: text[StartChar:EndChar] reproduces Text.
type ChunkCandidate struct {
	Index      int
	Text       string
	TokenCount int
	StartChar  int
	EndChar    int
}

// JobQueue enqueues ingestion work, synchronously or asynchronously.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}
