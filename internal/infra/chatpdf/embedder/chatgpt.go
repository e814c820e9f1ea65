// Package embedder adapts the ChatGPT-compatible embeddings endpoint
// to the chatpdf domain's Embedder port.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/llm/chatgpt"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API, batching
// requests and retrying transient failures.
type ChatGPTEmbedder struct {
	client     *chatgpt.Client
	model      string
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &ChatGPTEmbedder{
		client:     client,
		model:      strings.TrimSpace(model),
		logger:     logger.With("component", "chatpdf.embedder.chatgpt"),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Embed requests embeddings for the given texts, preserving order.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out            [][]float32
		batch          []string
		batchTokens    int
		maxBatchTokens = 200_000 // stay well below provider's 300k cap
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.createEmbeddingWithRetry(ctx, batch)
		if err != nil {
			return err
		}
		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			out = append(out, vec)
		}
		if len(resp.Data) != len(batch) {
			e.logger.Warn("embedding result count mismatch", "expected", len(batch), "got", len(resp.Data))
		}
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := estimateTokens(text)
		if tokens > maxBatchTokens {
			return nil, apperrors.Wrap(domain.CodeEmbeddingFailure, fmt.Sprintf("text too large for embedding request: estimated tokens=%d", tokens), nil)
		}
		if batchTokens+tokens > maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *ChatGPTEmbedder) createEmbeddingWithRetry(ctx context.Context, batch []string) (chatgpt.EmbeddingResponse, error) {
	req := chatgpt.EmbeddingRequest{Model: e.model, Input: batch}
	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay * time.Duration(1<<(attempt-1)) // 1s, 2s, 4s
			e.logger.Warn("retrying embedding request", "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return chatgpt.EmbeddingResponse{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		resp, err := e.client.CreateEmbedding(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return chatgpt.EmbeddingResponse{}, apperrors.Wrap(domain.CodeEmbeddingFailure, "create embedding", err)
		}
	}
	return chatgpt.EmbeddingResponse{}, apperrors.Wrap(domain.CodeEmbeddingFailure, fmt.Sprintf("create embedding after %d attempts", e.maxRetries), lastErr)
}

// isRetryable reports whether err is a rate-limit or timeout class
// failure, the only classes the ingestion pipeline retries.
func isRetryable(err error) bool {
	var statusErr *chatgpt.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429 || statusErr.StatusCode == 504
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

var _ domain.Embedder = (*ChatGPTEmbedder)(nil)

// estimateTokens provides a rough, upper-biased token count without
// running the full tokenizer on every batching decision.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}
