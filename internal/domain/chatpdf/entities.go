package chatpdf

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus tracks ingestion progress for an uploaded PDF.
type FileStatus string

const (
	FileStatusUploaded  FileStatus = "uploaded"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

// File represents one uploaded PDF tracked through ingestion.
type File struct {
	ID            uuid.UUID  `json:"id"`
	StorageKey    string     `json:"storageKey"`
	Status        FileStatus `json:"status"`
	FailureReason *string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Filename returns the last path segment of the storage key.
func (f File) Filename() string {
	key := f.StorageKey
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}

// Conversation groups an ordered sequence of messages.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageRole identifies the speaker of a turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// RetrievalMode records how an assistant turn was produced.
type RetrievalMode string

const (
	ModeInline RetrievalMode = "inline"
	ModeRAG    RetrievalMode = "rag"
)

// EvidenceChunk is a retrieved chunk attached to an assistant message.
type EvidenceChunk struct {
	ChunkText       string  `json:"chunkText"`
	SimilarityScore float64 `json:"similarityScore"`
}

// Message is a single turn in a conversation.
type Message struct {
	ID              uuid.UUID       `json:"id"`
	ConversationID  uuid.UUID       `json:"conversationId"`
	Role            MessageRole     `json:"role"`
	Content         string          `json:"content"`
	FileID          *uuid.UUID      `json:"fileId,omitempty"`
	File            *File           `json:"file,omitempty"`
	RetrievalMode   *RetrievalMode  `json:"retrievalMode,omitempty"`
	RetrievedChunks []EvidenceChunk `json:"retrievedChunks,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Chunk is one embedded slice of a completed file. StartChar/EndChar
// are half-open offsets into the file's cleaned extracted text.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	FileID     uuid.UUID `json:"fileId"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	TokenCount int       `json:"tokenCount"`
	StartChar  int       `json:"startChar"`
	EndChar    int       `json:"endChar"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RetrievedChunk bundles a chunk with its similarity score against a query.
type RetrievedChunk struct {
	FileID          uuid.UUID `json:"fileId"`
	ChunkID         uuid.UUID `json:"chunkId"`
	ChunkText       string    `json:"chunkText"`
	SimilarityScore float64   `json:"similarityScore"`
}
