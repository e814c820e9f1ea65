// Package chatpdf is the core domain: ingesting uploaded PDFs into a
// vector index and answering chat turns over them, with inline or
// tool-calling retrieval depending on each file's ingestion status.
package chatpdf

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
	"github.com/tejasgodse/chatpdf/pkg/util"
)

var storageKeyPattern = regexp.MustCompile(`(?i)^uploads/([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.pdf$`)

const (
	defaultTopK = 5
	minTopK     = 1
	maxTopK     = 20

	searchToolName = "semantic_search"
)

// FileIDFromStorageKey derives the UUID a storage key encodes, per the
// `uploads/<uuid>.pdf` convention. The second return value is false if
// the key does not match that pattern.
func FileIDFromStorageKey(key string) (uuid.UUID, bool) {
	m := storageKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(strings.ToLower(m[1]))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// Service wires the storage adapters and LLM pipeline into the
// ingestion and chat operations the HTTP layer calls.
type Service struct {
	Blob        Blob
	Catalog     Catalog
	VectorIndex VectorIndex
	Embedder    Embedder
	LLM         LLM
	Extractor   Extractor
	Chunker     Chunker

	ChunkVectorID func(fileID uuid.UUID, chunkIndex int) uuid.UUID

	logger *slog.Logger
}

// NewService constructs the domain service.
func NewService(blob Blob, catalog Catalog, vectorIndex VectorIndex, embedder Embedder, llm LLM, extractor Extractor, chunker Chunker, chunkVectorID func(uuid.UUID, int) uuid.UUID, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if chunkVectorID == nil {
		chunkVectorID = func(_ uuid.UUID, _ int) uuid.UUID { return uuid.New() }
	}
	return &Service{
		Blob:          blob,
		Catalog:       catalog,
		VectorIndex:   vectorIndex,
		Embedder:      embedder,
		LLM:           llm,
		Extractor:     extractor,
		Chunker:       chunker,
		ChunkVectorID: chunkVectorID,
		logger:        logger.With("component", "chatpdf.service"),
	}
}

// IngestResult summarizes the outcome of an ingestion run.
type IngestResult struct {
	FileID        uuid.UUID
	Status        FileStatus
	ChunksCreated int
	AlreadyQueued bool
	FailureReason string
}

// Ingest processes an uploaded PDF named by storageKey: extract, clean,
// chunk, embed, and upsert, transitioning the File through its status
// lifecycle. Re-delivery of a key already tracked is idempotent: the
// current status is returned without re-processing.
func (s *Service) Ingest(ctx context.Context, storageKey string) (IngestResult, error) {
	fileID, ok := FileIDFromStorageKey(storageKey)
	if !ok {
		return IngestResult{}, apperrors.Wrap(CodeInvalidKeyFormat, "storage key does not match uploads/<uuid>.pdf", nil)
	}

	if existing, found, err := s.Catalog.GetFile(ctx, fileID); err != nil {
		return IngestResult{}, apperrors.Wrap(CodeCatalogUnavailable, "look up file", err)
	} else if found {
		return IngestResult{FileID: fileID, Status: existing.Status, AlreadyQueued: true}, nil
	}

	now := util.NowUTC()
	file := File{ID: fileID, StorageKey: storageKey, Status: FileStatusUploaded, CreatedAt: now, UpdatedAt: now}
	if err := s.Catalog.CreateFile(ctx, file); err != nil {
		return IngestResult{}, apperrors.Wrap(CodeCatalogUnavailable, "create file", err)
	}

	chunksCreated, err := s.process(ctx, file)
	if err != nil {
		reason := err.Error()
		if updErr := s.Catalog.UpdateFileStatus(ctx, fileID, FileStatusFailed, &reason); updErr != nil {
			s.logger.Error("failed to record failure status", "file_id", fileID, "error", updErr)
		}
		return IngestResult{FileID: fileID, Status: FileStatusFailed, FailureReason: reason}, nil
	}

	if err := s.Catalog.UpdateFileStatus(ctx, fileID, FileStatusCompleted, nil); err != nil {
		return IngestResult{}, apperrors.Wrap(CodeCatalogUnavailable, "mark file completed", err)
	}
	return IngestResult{FileID: fileID, Status: FileStatusCompleted, ChunksCreated: chunksCreated}, nil
}

func (s *Service) process(ctx context.Context, file File) (int, error) {
	reader, err := s.Blob.Get(ctx, file.StorageKey)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, apperrors.Wrap(CodeBlobUnavailable, "read blob", err)
	}

	extracted, err := s.Extractor.Extract(ctx, data)
	if err != nil {
		return 0, err
	}

	cleaned := cleanExtractedText(extracted)
	candidates, err := s.Chunker.Chunk(cleaned)
	if err != nil {
		return 0, apperrors.Wrap(CodeExtractionFailure, "chunk text", err)
	}
	if len(candidates) == 0 {
		return 0, apperrors.Wrap(CodeExtractionFailure, NoExtractableTextMessage, nil)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	embeddings, err := s.Embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(candidates) {
		return 0, apperrors.Wrap(CodeEmbeddingFailure, "embedding count does not match chunk count", nil)
	}

	chunks := make([]Chunk, len(candidates))
	now := util.NowUTC()
	for i, c := range candidates {
		chunks[i] = Chunk{
			ID:         s.ChunkVectorID(file.ID, c.Index),
			FileID:     file.ID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	if err := s.VectorIndex.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// NoExtractableTextMessage is recorded as the failure reason when a
// chunker produces nothing from otherwise non-empty extracted text
// (e.g. whitespace-only pages that survived extraction).
const NoExtractableTextMessage = "no extractable text found; the PDF is likely scanned and needs OCR"

func cleanExtractedText(text string) string {
	text = spacesPattern.ReplaceAllString(text, " ")
	text = hyphenPattern.ReplaceAllString(text, "$1$2")
	text = newlinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var (
	spacesPattern   = regexp.MustCompile(`[ \t]+`)
	hyphenPattern   = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	newlinesPattern = regexp.MustCompile(`\n{3,}`)
)

// ChatResult is the outcome of a single chat turn.
type ChatResult struct {
	ConversationID  uuid.UUID
	Response        string
	RetrievalMode   RetrievalMode
	RetrievedChunks []EvidenceChunk
}

// Chat runs one chat turn: ensure the conversation exists, load
// history, classify referenced files, assemble context, invoke the
// LLM (with the search tool when any file is RAG-eligible), and
// persist the user and assistant messages only after the final LLM
// call succeeds.
func (s *Service) Chat(ctx context.Context, conversationID *uuid.UUID, messageText string, fileID *uuid.UUID) (ChatResult, error) {
	if strings.TrimSpace(messageText) == "" {
		return ChatResult{}, apperrors.Wrap(CodeValidationFailure, "message must not be empty", nil)
	}

	var conv Conversation
	if conversationID != nil {
		existing, found, err := s.Catalog.GetConversation(ctx, *conversationID)
		if err != nil {
			return ChatResult{}, apperrors.Wrap(CodeCatalogUnavailable, "load conversation", err)
		}
		if !found {
			return ChatResult{}, apperrors.Wrap(CodeRecordNotFound, "conversation not found: "+conversationID.String(), nil)
		}
		conv = existing
	} else {
		conv = Conversation{ID: uuid.New(), CreatedAt: util.NowUTC()}
		if err := s.Catalog.CreateConversation(ctx, conv); err != nil {
			return ChatResult{}, apperrors.Wrap(CodeCatalogUnavailable, "create conversation", err)
		}
	}

	history, err := s.Catalog.GetMessages(ctx, conv.ID)
	if err != nil {
		return ChatResult{}, apperrors.Wrap(CodeCatalogUnavailable, "load messages", err)
	}

	var newFile *File
	if fileID != nil {
		f, found, err := s.Catalog.GetFile(ctx, *fileID)
		if err != nil {
			return ChatResult{}, apperrors.Wrap(CodeCatalogUnavailable, "load file", err)
		}
		if found {
			newFile = &f
		}
	}
	inlineIDs, ragIDs := ClassifyFiles(history, newFile)

	pendingUser := Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Role:           RoleUser,
		Content:        messageText,
		FileID:         fileID,
		File:           newFile,
		CreatedAt:      util.NowUTC(),
	}
	assembler := NewAssembler(s.Blob)
	assembled, _, err := assembler.Build(ctx, append(history, pendingUser), inlineIDs)
	if err != nil {
		return ChatResult{}, err
	}

	var (
		responseText    string
		mode            = ModeInline
		retrievedChunks []EvidenceChunk
	)

	if len(ragIDs) == 0 {
		result, err := s.LLM.Complete(ctx, assembled)
		if err != nil {
			return ChatResult{}, apperrors.Wrap(CodeLLMFailure, "complete chat turn", err)
		}
		responseText = result.Text
	} else {
		first, err := s.LLM.CompleteWithTools(ctx, assembled, []ToolSpec{searchToolSpec()})
		if err != nil {
			return ChatResult{}, apperrors.Wrap(CodeLLMFailure, "complete chat turn with tools", err)
		}
		call := firstSearchCall(first.ToolCalls)
		if call == nil {
			responseText = first.Text
		} else {
			query, topK := parseSearchArguments(call.Arguments)
			chunks, err := s.search(ctx, query, topK, ragIDs)
			if err != nil {
				return ChatResult{}, err
			}
			if len(chunks) == 0 {
				mode = ModeRAG
				responseText = first.Text
			} else {
				mode = ModeRAG
				retrievedChunks = chunks
				withEvidence := append(assembled, LLMMessage{Role: "system", Content: RenderEvidenceBlock(chunks)})
				second, err := s.LLM.Complete(ctx, withEvidence)
				if err != nil {
					return ChatResult{}, apperrors.Wrap(CodeLLMFailure, "complete chat turn after retrieval", err)
				}
				responseText = second.Text
			}
		}
	}

	assistant := Message{
		ID:              uuid.New(),
		ConversationID:  conv.ID,
		Role:            RoleAssistant,
		Content:         responseText,
		RetrievalMode:   &mode,
		RetrievedChunks: retrievedChunks,
		CreatedAt:       util.NowUTC(),
	}
	if err := s.Catalog.AppendMessages(ctx, pendingUser, assistant); err != nil {
		return ChatResult{}, apperrors.Wrap(CodeCatalogUnavailable, "persist chat turn", err)
	}

	return ChatResult{
		ConversationID:  conv.ID,
		Response:        responseText,
		RetrievalMode:   mode,
		RetrievedChunks: retrievedChunks,
	}, nil
}

// search embeds query and restricts the vector lookup to fileIDs. An
// empty fileIDs is a caller error: the chat controller never reaches
// here without a non-empty rag_ids set, and Retrieve (behind
// /retrieve) rejects an empty set the same way.
func (s *Service) search(ctx context.Context, query string, topK int, fileIDs []uuid.UUID) ([]EvidenceChunk, error) {
	if len(fileIDs) == 0 {
		return nil, apperrors.Wrap(CodeValidationFailure, "search requires at least one file id", nil)
	}
	embeddings, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, apperrors.Wrap(CodeEmbeddingFailure, "query embedding returned no vector", nil)
	}
	results, err := s.VectorIndex.Query(ctx, embeddings[0], fileIDs, clampTopK(topK))
	if err != nil {
		return nil, err
	}
	out := make([]EvidenceChunk, len(results))
	for i, r := range results {
		out[i] = EvidenceChunk{ChunkText: r.ChunkText, SimilarityScore: r.SimilarityScore}
	}
	return out, nil
}

// Retrieve is the standalone /retrieve debug operation: embed query,
// search fileIDs, return raw retrieved chunks (not wrapped in
// EvidenceChunk, so the file id of each hit is preserved).
func (s *Service) Retrieve(ctx context.Context, query string, topK int, fileIDs []uuid.UUID) ([]RetrievedChunk, error) {
	if len(fileIDs) == 0 {
		return nil, apperrors.Wrap(CodeValidationFailure, "retrieve requires at least one file id", nil)
	}
	embeddings, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, apperrors.Wrap(CodeEmbeddingFailure, "query embedding returned no vector", nil)
	}
	return s.VectorIndex.Query(ctx, embeddings[0], fileIDs, clampTopK(topK))
}

func clampTopK(topK int) int {
	if topK < minTopK {
		return minTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func searchToolSpec() ToolSpec {
	return ToolSpec{
		Name:        searchToolName,
		Description: "Search the uploaded documents for passages relevant to the user's question. Call this for any question whose answer could come from the uploaded documents.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "the search query"},
				"top_k": map[string]any{"type": "integer", "description": "number of chunks to retrieve", "default": defaultTopK, "minimum": minTopK, "maximum": maxTopK},
			},
			"required": []string{"query"},
		},
	}
}

func firstSearchCall(calls []ToolCall) *ToolCall {
	for i := range calls {
		if calls[i].Name == searchToolName {
			return &calls[i]
		}
	}
	return nil
}

func parseSearchArguments(raw string) (query string, topK int) {
	topK = defaultTopK
	var parsed struct {
		Query string `json:"query"`
		TopK  *int   `json:"top_k"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		query = parsed.Query
		if parsed.TopK != nil {
			topK = *parsed.TopK
		}
	}
	return query, topK
}
